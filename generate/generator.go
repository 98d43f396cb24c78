package generate

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/tmc/langchaingo/prompts"
)

// DefaultTemplate is the instruction prompt. It is a Go template over
// context, question and policy.
const DefaultTemplate = `You are an assistant providing information from official documents.
Use the following extracted content to answer the following question as accurately as possible.

Context:
{{.context}}

Question: {{.question}}

Instructions:
- Respond only using the provided context.
- If the context contains relevant information, answer using the exact wording from the context without paraphrasing or summarizing unless explicitly asked. Consolidate repeated information into a single response.
- If the extracted content is empty or does not contain any relevant information to answer the question, just say "` + NotFoundSentinel + `" and nothing else.
- If extracting information from a table, include the relevant table content in the response.
- Make clear how the answer connects to the question.
{{.policy}}
`

// ErrChatModelRequired is returned when a chat model is not provided.
var ErrChatModelRequired = errors.New("chat model required")

// Generator streams answers from a chat model.
// It is safe for concurrent use.
type Generator struct {
	model    ai.ChatModel
	template prompts.PromptTemplate
	policy   Policy
	formURL  string
	logger   *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator) error

// WithPolicy sets the follow-up policy.
// Default is PolicyNone.
func WithPolicy(policy Policy) Option {
	return func(g *Generator) error {
		p, err := ParsePolicy(string(policy))
		if err != nil {
			return err
		}
		g.policy = p
		return nil
	}
}

// WithEnquiryFormURL sets the link used by PolicyContactForm.
func WithEnquiryFormURL(url string) Option {
	return func(g *Generator) error {
		g.formURL = url
		return nil
	}
}

// WithTemplate replaces DefaultTemplate. The template must reference
// context and question; policy is optional.
func WithTemplate(tmpl string) Option {
	return func(g *Generator) error {
		if !strings.Contains(tmpl, "{{.context}}") || !strings.Contains(tmpl, "{{.question}}") {
			return fmt.Errorf("%w: prompt template must use {{.context}} and {{.question}}", core.ErrConfiguration)
		}
		g.template = prompts.NewPromptTemplate(tmpl, []string{"context", "question", "policy"})
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
		return nil
	}
}

// NewGenerator creates a new generator.
func NewGenerator(model ai.ChatModel, opts ...Option) (*Generator, error) {
	if model == nil {
		return nil, ErrChatModelRequired
	}

	g := &Generator{
		model:    model,
		template: prompts.NewPromptTemplate(DefaultTemplate, []string{"context", "question", "policy"}),
		policy:   PolicyNone,
		logger:   slog.Default().With("component", "generator"),
	}

	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}

	if g.policy == PolicyContactForm && g.formURL == "" {
		return nil, fmt.Errorf("%w: contact-form policy requires an enquiry form URL", core.ErrConfiguration)
	}

	return g, nil
}

// RenderContext joins document contents with a blank line between them.
func RenderContext(docs []*core.ScoredDocument) string {
	parts := make([]string, 0, len(docs))
	for _, sd := range docs {
		if sd == nil || sd.Document == nil {
			continue
		}
		parts = append(parts, sd.Document.Content)
	}
	return strings.Join(parts, "\n\n")
}

// Render produces the prompt sent to the model.
func (g *Generator) Render(question string, docs []*core.ScoredDocument) (string, error) {
	return g.template.Format(map[string]any{
		"context":  RenderContext(docs),
		"question": question,
		"policy":   g.policy.instructions(g.formURL),
	})
}

// Generate streams the answer to question grounded on docs.
//
// Without any document content the model is not called and the sequence is
// the single fragment NotFoundSentinel. Otherwise fragments are yielded in
// model order as soon as they arrive. A model failure ends the sequence with
// one ("", err) pair wrapping core.ErrGenerationFailure. Stopping the iteration early cancels the model
// call. The sequence can be ranged over once.
func (g *Generator) Generate(ctx context.Context, question string, docs []*core.ScoredDocument) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if strings.TrimSpace(RenderContext(docs)) == "" {
			g.logger.Debug("no context documents, answering not found")
			yield(NotFoundSentinel, nil)
			return
		}

		prompt, err := g.Render(question, docs)
		if err != nil {
			g.logger.Error("failed to render prompt", "err", err)
			yield("", fmt.Errorf("%w: rendering prompt: %w", core.ErrGenerationFailure, err))
			return
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		chunks := make(chan string)
		done := make(chan error, 1)
		go func() {
			defer close(chunks)
			done <- g.model.StreamCompletion(ctx, prompt, func(ctx context.Context, chunk string) error {
				select {
				case chunks <- chunk:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
		}()

		fragments := 0
		for chunk := range chunks {
			fragments++
			if !yield(chunk, nil) {
				g.logger.Debug("consumer stopped, cancelling generation", "fragments", fragments)
				cancel()
				for range chunks {
				}
				<-done
				return
			}
		}

		if err := <-done; err != nil {
			g.logger.Error("generation failed", "fragments", fragments, "err", err)
			yield("", fmt.Errorf("%w: %w", core.ErrGenerationFailure, err))
			return
		}
		g.logger.Debug("generation complete", "fragments", fragments)
	}
}
