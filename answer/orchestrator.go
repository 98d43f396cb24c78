package answer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/recall/cache"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/generate"
)

// Cache is the semantic answer cache consulted before generating.
type Cache interface {
	Lookup(ctx context.Context, question string) cache.LookupResult
	Refresh(ctx context.Context, recordID string, ts time.Time) error
	Store(ctx context.Context, question, answer string, ts time.Time) (string, error)
}

// Retriever finds context documents for a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]*core.ScoredDocument, error)
}

// Generator streams an answer grounded on documents.
type Generator interface {
	Generate(ctx context.Context, question string, docs []*core.ScoredDocument) iter.Seq2[string, error]
}

var (
	// ErrCacheRequired is returned when a cache is not provided.
	ErrCacheRequired = errors.New("cache required")

	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrGeneratorRequired is returned when a generator is not provided.
	ErrGeneratorRequired = errors.New("generator required")
)

// Orchestrator answers questions from the cache or by retrieval and generation.
// It is safe for concurrent use; each answer sequence belongs to one caller.
type Orchestrator struct {
	cache     Cache
	retriever Retriever
	generator Generator
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithClock sets the time source for record timestamps.
// Default is time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) error {
		if now == nil {
			now = time.Now
		}
		o.now = now
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates a new orchestrator.
func NewOrchestrator(c Cache, retriever Retriever, generator Generator, opts ...Option) (*Orchestrator, error) {
	if c == nil {
		return nil, ErrCacheRequired
	}
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	o := &Orchestrator{
		cache:     c,
		retriever: retriever,
		generator: generator,
		now:       time.Now,
		logger:    slog.Default().With("component", "orchestrator"),
	}

	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// Answer streams the answer to question.
// A failure ends the sequence with a single ("", err) pair.
func (o *Orchestrator) Answer(ctx context.Context, question string) iter.Seq2[string, error] {
	return o.AnswerWithMonitor(ctx, question, nil)
}

// AnswerWithMonitor is Answer with state callbacks.
func (o *Orchestrator) AnswerWithMonitor(ctx context.Context, question string, monitor Monitor) iter.Seq2[string, error] {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	return func(yield func(string, error) bool) {
		r := &run{monitor: monitor, logger: o.logger}
		started := o.now()
		r.enter(StateStart)

		if strings.TrimSpace(question) == "" {
			r.enter(StateError)
			yield("", core.ErrEmptyQuestion)
			return
		}

		r.enter(StateCacheLookup)
		lookup := o.cache.Lookup(ctx, question)
		switch lookup.Status {
		case cache.LookupHit:
			r.enter(StateCacheHit)
			if err := o.cache.Refresh(ctx, lookup.RecordID, started); err != nil {
				o.logger.Warn("failed to refresh cache record", "id", lookup.RecordID, "err", err)
			}
			r.enter(StateStreamOut)
			yield(lookup.Answer, nil)
			r.enter(StateDone)
			return
		case cache.LookupUnavailable:
			o.logger.Warn("cache unavailable, answering without it", "err", lookup.Err)
		}
		r.enter(StateCacheMiss)

		r.enter(StateRetrieve)
		docs, err := o.retriever.Retrieve(ctx, question)
		if err != nil {
			r.enter(StateError)
			yield("", err)
			return
		}

		r.enter(StateGenerate)
		var answer strings.Builder
		for fragment, err := range o.generator.Generate(ctx, question, docs) {
			if err != nil {
				r.enter(StateError)
				yield("", err)
				return
			}
			if r.state != StateStreamOut {
				r.enter(StateStreamOut)
			}
			answer.WriteString(fragment)
			if !yield(fragment, nil) {
				o.logger.Debug("consumer stopped early, not caching")
				r.enter(StateDone)
				return
			}
		}

		if err := ctx.Err(); err != nil {
			o.logger.Debug("context done, not caching", "err", err)
			r.enter(StateDone)
			return
		}

		text := answer.String()
		if outcome := generate.Classify(text); !outcome.Cacheable() {
			o.logger.Debug("answer not cacheable", "outcome", outcome)
			r.enter(StateDone)
			return
		}

		r.enter(StateStore)
		if id, err := o.cache.Store(ctx, question, text, started); err != nil {
			o.logger.Warn("failed to store answer", "err", err)
		} else {
			o.logger.Debug("stored answer", "id", id)
		}
		r.enter(StateDone)
	}
}

// AnswerQuestion streams the answer as plain text fragments.
// A failure becomes a final fragment starting with generate.ErrorSentinel.
func (o *Orchestrator) AnswerQuestion(ctx context.Context, question string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for fragment, err := range o.Answer(ctx, question) {
			if err != nil {
				yield(ErrorText(err))
				return
			}
			if !yield(fragment) {
				return
			}
		}
	}
}

// ErrorText renders err the way it is shown to end users.
func ErrorText(err error) string {
	return fmt.Sprintf("%s %v", generate.ErrorSentinel, err)
}

// run tracks the state of one answer.
type run struct {
	state   State
	monitor Monitor
	logger  *slog.Logger
}

func (r *run) enter(state State) {
	r.logger.Debug("answer state", "from", r.state, "to", state)
	r.state = state
	r.monitor.Enter(state)
}
