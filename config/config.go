// Package config loads recall's YAML configuration file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/cache"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/generate"
	"github.com/poiesic/recall/ingestion"
	"github.com/poiesic/recall/retrieval"
	"gopkg.in/yaml.v3"
)

// Config holds all recall configuration.
type Config struct {
	DBPath     string           `yaml:"db_path"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Cache      CacheConfig      `yaml:"cache"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Generation GenerationConfig `yaml:"generation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// OpenAIConfig points at an OpenAI-compatible API.
type OpenAIConfig struct {
	Host                string `yaml:"host"`
	EmbeddingHost       string `yaml:"embedding_host"`
	ChatHost            string `yaml:"chat_host"`
	APIKey              string `yaml:"api_key"`
	EmbeddingModel      string `yaml:"embedding_model"`
	ChatModel           string `yaml:"chat_model"`
	EmbeddingDimensions int    `yaml:"embedding_dimensions"`

	// EmbeddingCacheSize bounds the in-process LRU of question embeddings.
	// Zero disables it.
	EmbeddingCacheSize int `yaml:"embedding_cache_size"`
}

// CacheConfig controls the semantic answer cache.
type CacheConfig struct {
	Collection          string  `yaml:"collection"`
	SimilarityThreshold float32 `yaml:"similarity_threshold"`
}

// RetrievalConfig controls hybrid retrieval.
type RetrievalConfig struct {
	Collection   string  `yaml:"collection"`
	DenseK       int     `yaml:"dense_k"`
	SparseK      int     `yaml:"sparse_k"`
	DenseWeight  float64 `yaml:"dense_weight"`
	SparseWeight float64 `yaml:"sparse_weight"`
	MaxResults   int     `yaml:"max_results"`
}

// GenerationConfig controls answer generation.
type GenerationConfig struct {
	FollowUpPolicy string `yaml:"follow_up_policy"`
	EnquiryFormURL string `yaml:"enquiry_form_url"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		DBPath: "recall.db",
		OpenAI: OpenAIConfig{
			Host:                ai.DefaultHost,
			EmbeddingDimensions: 1536,
			EmbeddingCacheSize:  ai.DefaultEmbeddingCacheSize,
		},
		Cache: CacheConfig{
			Collection:          cache.DefaultCollection,
			SimilarityThreshold: cache.DefaultSimilarityThreshold,
		},
		Retrieval: RetrievalConfig{
			Collection:   ingestion.DefaultCollection,
			DenseK:       retrieval.DefaultDenseK,
			SparseK:      retrieval.DefaultSparseK,
			DenseWeight:  retrieval.DefaultDenseWeight,
			SparseWeight: retrieval.DefaultSparseWeight,
		},
		Generation: GenerationConfig{
			FollowUpPolicy: string(generate.PolicyNone),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// AIConfig converts the openai section into an ai.Config.
// Specific embedding and chat hosts override the shared host.
func (c *Config) AIConfig() *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithAPIKey(c.OpenAI.APIKey),
		ai.WithEmbeddingModel(c.OpenAI.EmbeddingModel),
		ai.WithChatModel(c.OpenAI.ChatModel),
		ai.WithEmbeddingDimensions(c.OpenAI.EmbeddingDimensions),
	}
	if c.OpenAI.Host != "" {
		opts = append(opts, ai.WithHost(c.OpenAI.Host))
	}
	if c.OpenAI.EmbeddingHost != "" {
		opts = append(opts, ai.WithEmbeddingHost(c.OpenAI.EmbeddingHost))
	}
	if c.OpenAI.ChatHost != "" {
		opts = append(opts, ai.WithChatHost(c.OpenAI.ChatHost))
	}
	return ai.NewConfig(opts...)
}

// Validate checks values that would otherwise fail deep inside a component.
// The openai section is checked separately through AIConfig, since ingestion
// needs only the embedding settings. Every failure wraps core.ErrConfiguration.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path is required", core.ErrConfiguration)
	}
	if c.OpenAI.EmbeddingCacheSize < 0 {
		return fmt.Errorf("%w: openai.embedding_cache_size must not be negative", core.ErrConfiguration)
	}
	if c.Cache.Collection == "" || c.Retrieval.Collection == "" {
		return fmt.Errorf("%w: cache and retrieval collections are required", core.ErrConfiguration)
	}
	if c.Cache.Collection == c.Retrieval.Collection {
		return fmt.Errorf("%w: cache and retrieval must use different collections", core.ErrConfiguration)
	}
	if t := c.Cache.SimilarityThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("%w: cache.similarity_threshold must be in (0, 1], got %v", core.ErrConfiguration, t)
	}
	if c.Retrieval.DenseK <= 0 || c.Retrieval.SparseK <= 0 {
		return fmt.Errorf("%w: retrieval dense_k and sparse_k must be positive", core.ErrConfiguration)
	}
	if c.Retrieval.DenseWeight < 0 || c.Retrieval.SparseWeight < 0 || c.Retrieval.DenseWeight+c.Retrieval.SparseWeight == 0 {
		return fmt.Errorf("%w: retrieval weights must be non-negative and not both zero", core.ErrConfiguration)
	}
	if c.Retrieval.MaxResults < 0 {
		return fmt.Errorf("%w: retrieval.max_results must not be negative", core.ErrConfiguration)
	}
	policy, err := generate.ParsePolicy(c.Generation.FollowUpPolicy)
	if err != nil {
		return err
	}
	if policy == generate.PolicyContactForm && c.Generation.EnquiryFormURL == "" {
		return fmt.Errorf("%w: generation.enquiry_form_url is required for the contact-form policy", core.ErrConfiguration)
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel converts a level name into a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: invalid log level %q", core.ErrConfiguration, level)
	}
}
