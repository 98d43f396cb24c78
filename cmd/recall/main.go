// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/poiesic/recall"
	"github.com/poiesic/recall/ai/openai"
	"github.com/poiesic/recall/cache"
	"github.com/poiesic/recall/config"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/generate"
	"github.com/poiesic/recall/ingestion"
	"github.com/urfave/cli/v2"
)

const configKey = "config"

// Replaced in tests.
var (
	newProvider = openai.NewProvider
	newEmbedder = openai.NewEmbedder
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "recall",
		Usage:    "Answer questions from a document corpus, with a semantic answer cache",
		Metadata: map[string]any{},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"RECALL_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error); overrides the config file",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				EnvVars: []string{"RECALL_DB"},
			},
			&cli.StringFlag{
				Name:    "host",
				Usage:   "OpenAI-compatible API host URL",
				EnvVars: []string{"OPENAI_BASE_URL"},
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key for the model host",
				EnvVars: []string{"OPENAI_API_KEY"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				EnvVars: []string{"RECALL_EMBEDDING_MODEL"},
			},
			&cli.IntFlag{
				Name:    "embedding-dimensions",
				Usage:   "Length of the embedding model's vectors",
				EnvVars: []string{"RECALL_EMBEDDING_DIMENSIONS"},
			},
			&cli.StringFlag{
				Name:    "chat-model",
				Usage:   "Chat model name",
				EnvVars: []string{"RECALL_CHAT_MODEL"},
			},
			&cli.Float64Flag{
				Name:  "threshold",
				Usage: "Cache similarity threshold in (0, 1]",
			},
			&cli.StringFlag{
				Name:  "follow-up-policy",
				Usage: "Follow-up questions policy (none, follow-up-questions, contact-form)",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Answer a single question and exit",
				ArgsUsage: "<question>",
				Action:    askCommand,
			},
			{
				Name:   "chat",
				Usage:  "Answer questions read line by line from stdin",
				Action: chatCommand,
			},
			{
				Name:   "ingest",
				Usage:  "Embed JSONL documents into the document collection",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "JSONL file with one document per line, or - for stdin",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents to embed per request",
						Value: ingestion.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of batches embedded concurrently (0 uses half the CPUs)",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per batch",
						Value: ingestion.DefaultMaxRetries,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: ingestion.DefaultRetryDelay,
					},
				},
			},
			{
				Name:  "cache",
				Usage: "Inspect the semantic answer cache",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List cached answers, oldest first",
						Action: cacheListCommand,
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "json",
								Usage: "Print records as JSON",
							},
						},
					},
				},
			},
		},
	}
}

// setup loads the configuration and installs the default logger.
func setup(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	c.App.Metadata[configKey] = cfg

	levelStr := cfg.Logging.Level
	if c.IsSet("log-level") {
		levelStr = c.String("log-level")
	}
	level, err := config.ParseLevel(levelStr)
	if err != nil {
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v := c.String("db"); v != "" {
		cfg.DBPath = v
	}
	if v := c.String("host"); v != "" {
		cfg.OpenAI.Host = v
	}
	if v := c.String("api-key"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := c.String("embedding-model"); v != "" {
		cfg.OpenAI.EmbeddingModel = v
	}
	if v := c.String("chat-model"); v != "" {
		cfg.OpenAI.ChatModel = v
	}
	if c.IsSet("embedding-dimensions") {
		cfg.OpenAI.EmbeddingDimensions = c.Int("embedding-dimensions")
	}
	if c.IsSet("threshold") {
		cfg.Cache.SimilarityThreshold = float32(c.Float64("threshold"))
	}
	if v := c.String("follow-up-policy"); v != "" {
		cfg.Generation.FollowUpPolicy = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func configFrom(c *cli.Context) *config.Config {
	return c.App.Metadata[configKey].(*config.Config)
}

// openService builds the answering service. The returned cleanup closes it
// along with the provider.
func openService(c *cli.Context) (*recall.Service, func(), error) {
	cfg := configFrom(c)

	provider, err := newProvider(cfg.AIConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create AI provider: %w", err)
	}

	service, err := recall.NewService(c.Context, cfg, recall.WithProvider(provider))
	if err != nil {
		provider.Close()
		return nil, nil, fmt.Errorf("failed to start service: %w", err)
	}

	cleanup := func() {
		if err := service.Close(); err != nil {
			slog.Error("error closing service", "err", err)
		}
		if err := provider.Close(); err != nil {
			slog.Error("error closing AI provider", "err", err)
		}
	}
	return service, cleanup, nil
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	service, cleanup, err := openService(c)
	if err != nil {
		return err
	}
	defer cleanup()

	out := c.App.Writer
	for fragment, err := range service.Answer(c.Context, question) {
		if err != nil {
			fmt.Fprintln(out)
			return fmt.Errorf("answer failed: %w", err)
		}
		fmt.Fprint(out, fragment)
	}
	fmt.Fprintln(out)
	return nil
}

func chatCommand(c *cli.Context) error {
	service, cleanup, err := openService(c)
	if err != nil {
		return err
	}
	defer cleanup()

	out := c.App.Writer
	interactive := isTerminal(c.App.Reader)
	prompt := func() {
		if interactive {
			fmt.Fprint(out, "> ")
		}
	}

	scanner := bufio.NewScanner(c.App.Reader)
	prompt()
	for scanner.Scan() {
		question := strings.TrimSpace(scanner.Text())
		switch question {
		case "":
		case "exit", "quit":
			return nil
		default:
			streamAnswer(c.Context, out, service, question)
		}
		if c.Context.Err() != nil {
			return nil
		}
		prompt()
	}
	if interactive {
		fmt.Fprintln(out)
	}
	return scanner.Err()
}

// streamAnswer prints fragments as they arrive and stops at an error fragment.
func streamAnswer(ctx context.Context, out io.Writer, service *recall.Service, question string) {
	for fragment := range service.AnswerQuestion(ctx, question) {
		fmt.Fprint(out, fragment)
		if strings.HasPrefix(fragment, generate.ErrorSentinel) {
			break
		}
	}
	fmt.Fprintln(out)
}

func ingestCommand(c *cli.Context) error {
	cfg := configFrom(c)

	aiConfig := cfg.AIConfig()
	if err := aiConfig.ValidateEmbedding(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}
	embedder, err := newEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	docs, err := readDocuments(c.App.Reader, c.String("file"))
	if err != nil {
		return err
	}

	collections, err := recall.OpenCollections(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer collections.Close()

	opts := []ingestion.Option{
		ingestion.WithBatchSize(c.Int("batch-size")),
		ingestion.WithMaxRetries(c.Int("max-retries")),
		ingestion.WithRetryDelay(c.Duration("retry-delay")),
	}
	if isTerminal(c.App.ErrWriter) {
		opts = append(opts, ingestion.WithProgress(c.App.ErrWriter))
	}
	if c.Int("pool-size") > 0 {
		opts = append(opts, ingestion.WithPoolSize(c.Int("pool-size")))
	}
	pipeline, err := recall.NewIngestionPipeline(cfg, collections, embedder, opts...)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", cfg.DBPath)
	fmt.Fprintf(c.App.ErrWriter, "Collection: %s\n", cfg.Retrieval.Collection)
	fmt.Fprintf(c.App.ErrWriter, "Documents: %d\n", len(docs))

	written, err := pipeline.Ingest(c.Context, docs)
	if err != nil {
		return fmt.Errorf("ingestion failed after %d documents: %w", written, err)
	}
	return nil
}

// isTerminal reports whether v is a file attached to a terminal.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func readDocuments(stdin io.Reader, path string) ([]*core.Document, error) {
	if path == "-" {
		return ingestion.ReadJSONL(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open documents: %w", err)
	}
	defer f.Close()
	return ingestion.ReadJSONL(f)
}

type cacheRecordJSON struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

func cacheListCommand(c *cli.Context) error {
	cfg := configFrom(c)

	collections, err := recall.OpenCollections(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer collections.Close()

	records, err := cache.ListRecords(c.Context, collections, cfg.Cache.Collection)
	if err != nil {
		return err
	}
	slices.SortStableFunc(records, func(a, b *core.CacheRecord) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	out := c.App.Writer
	if c.Bool("json") {
		rows := make([]cacheRecordJSON, len(records))
		for i, r := range records {
			rows[i] = cacheRecordJSON{ID: r.ID, Question: r.Question, Answer: r.Answer, Timestamp: r.Timestamp}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	for _, r := range records {
		fmt.Fprintf(out, "%s\t%s\t%s\n", cache.FormatTimestamp(r.Timestamp), r.ID, r.Question)
	}
	return nil
}
