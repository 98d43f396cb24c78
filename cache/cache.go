package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"golang.org/x/sync/singleflight"
)

// Defaults for a SemanticCache.
const (
	DefaultCollection          = "semantic_cache"
	DefaultSimilarityThreshold = float32(0.8)
	DefaultDimension           = 1536
)

// Payload keys of a cache record point.
const (
	PayloadQuestion  = "question"
	PayloadAnswer    = "answer"
	PayloadTimestamp = "timestamp"
)

// SemanticCache stores generated answers keyed by question embeddings.
// It is safe for concurrent use.
type SemanticCache struct {
	collections storage.VectorCollection
	embedder    ai.Embedder
	collection  string
	threshold   float32
	dimension   int
	logger      *slog.Logger

	group singleflight.Group
	ready atomic.Bool
}

// Option configures a SemanticCache.
type Option func(*SemanticCache) error

// WithCollection sets the cache collection name.
// Default is DefaultCollection.
func WithCollection(name string) Option {
	return func(c *SemanticCache) error {
		if name == "" {
			return fmt.Errorf("%w: cache collection name is required", core.ErrConfiguration)
		}
		c.collection = name
		return nil
	}
}

// WithSimilarityThreshold sets the minimum cosine similarity for a hit.
// Default is DefaultSimilarityThreshold.
func WithSimilarityThreshold(threshold float32) Option {
	return func(c *SemanticCache) error {
		if threshold <= 0 || threshold > 1 {
			return fmt.Errorf("%w: %w: got %v", core.ErrConfiguration, ErrInvalidThreshold, threshold)
		}
		c.threshold = threshold
		return nil
	}
}

// WithDimension sets the embedding length used when creating the collection.
// Default is DefaultDimension.
func WithDimension(dimension int) Option {
	return func(c *SemanticCache) error {
		if dimension <= 0 {
			return fmt.Errorf("%w: %w: got %d", core.ErrConfiguration, ErrInvalidDimension, dimension)
		}
		c.dimension = dimension
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *SemanticCache) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewSemanticCache creates a new semantic cache.
// The collection is created lazily on first use.
func NewSemanticCache(collections storage.VectorCollection, embedder ai.Embedder, opts ...Option) (*SemanticCache, error) {
	if collections == nil {
		return nil, ErrCollectionsRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	c := &SemanticCache{
		collections: collections,
		embedder:    embedder,
		collection:  DefaultCollection,
		threshold:   DefaultSimilarityThreshold,
		dimension:   DefaultDimension,
		logger:      slog.Default().With("component", "semantic-cache"),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Threshold returns the configured similarity threshold.
func (c *SemanticCache) Threshold() float32 {
	return c.threshold
}

// Lookup returns the stored answer for the nearest previously asked question
// if its similarity is at least the threshold.
func (c *SemanticCache) Lookup(ctx context.Context, question string) LookupResult {
	if err := c.ensureCollection(ctx); err != nil {
		return c.unavailable("ensure collection", err)
	}

	vector, err := c.embedder.EmbedText(ctx, question)
	if err != nil {
		return c.unavailable("embed question", err)
	}

	matches, err := c.collections.Search(ctx, c.collection, vector, 1, c.threshold)
	if err != nil {
		return c.unavailable("search", err)
	}
	if len(matches) == 0 {
		c.logger.Debug("cache miss")
		return LookupResult{Status: LookupMiss}
	}

	best := matches[0]
	if best.Score < c.threshold {
		c.logger.Debug("cache miss below threshold", "score", best.Score, "threshold", c.threshold)
		return LookupResult{Status: LookupMiss}
	}

	answer, _ := best.Payload[PayloadAnswer].(string)
	if answer == "" {
		c.logger.Warn("cache record has no answer, treating as miss", "id", best.ID)
		return LookupResult{Status: LookupMiss}
	}
	storedQuestion, _ := best.Payload[PayloadQuestion].(string)

	c.logger.Debug("cache hit", "id", best.ID, "score", best.Score)
	return LookupResult{
		Status:   LookupHit,
		RecordID: best.ID,
		Question: storedQuestion,
		Answer:   answer,
		Score:    best.Score,
	}
}

// Refresh replaces the timestamp of an existing record. Nothing else changes.
func (c *SemanticCache) Refresh(ctx context.Context, recordID string, ts time.Time) error {
	err := c.collections.SetPayload(ctx, c.collection, recordID, map[string]any{
		PayloadTimestamp: FormatTimestamp(ts),
	})
	if err != nil {
		return fmt.Errorf("%w: refresh %s: %w", core.ErrCacheUnavailable, recordID, err)
	}
	return nil
}

// Store embeds question and persists a new record holding answer.
// It returns the new record ID.
func (c *SemanticCache) Store(ctx context.Context, question, answer string, ts time.Time) (string, error) {
	if err := c.ensureCollection(ctx); err != nil {
		return "", fmt.Errorf("%w: ensure collection: %w", core.ErrCacheUnavailable, err)
	}

	vector, err := c.embedder.EmbedText(ctx, question)
	if err != nil {
		return "", fmt.Errorf("%w: embed question: %w", core.ErrCacheUnavailable, err)
	}

	record := &core.CacheRecord{
		ID:        core.NewRecordID(),
		Vector:    vector,
		Question:  question,
		Answer:    answer,
		Timestamp: ts,
	}
	if err := core.ValidateCacheRecord(record); err != nil {
		return "", err
	}

	if err := c.collections.Upsert(ctx, c.collection, pointFromRecord(record)); err != nil {
		return "", fmt.Errorf("%w: upsert: %w", core.ErrCacheUnavailable, err)
	}

	c.logger.Debug("stored answer", "id", record.ID)
	return record.ID, nil
}

// List returns every cache record in ID order.
// A cache that has never stored anything returns no records.
func (c *SemanticCache) List(ctx context.Context) ([]*core.CacheRecord, error) {
	return listRecords(ctx, c.collections, c.collection, c.logger)
}

// ListRecords reads the records of a cache collection without embedding
// anything, for tools that only inspect the cache.
func ListRecords(ctx context.Context, collections storage.VectorCollection, collection string) ([]*core.CacheRecord, error) {
	return listRecords(ctx, collections, collection, slog.Default().With("component", "semantic-cache"))
}

func listRecords(ctx context.Context, collections storage.VectorCollection, collection string, logger *slog.Logger) ([]*core.CacheRecord, error) {
	var records []*core.CacheRecord
	err := collections.Scroll(ctx, collection, func(point *storage.Point) error {
		record, err := recordFromPoint(point)
		if err != nil {
			logger.Warn("skipping unreadable cache record", "id", point.ID, "err", err)
			return nil
		}
		records = append(records, record)
		return nil
	})
	if errors.Is(err, storage.ErrCollectionNotFound) {
		return []*core.CacheRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: list: %w", core.ErrCacheUnavailable, err)
	}
	return records, nil
}

// ensureCollection creates the cache collection once per process.
// Concurrent first callers share a single create call, which is detached
// from the cancellation of whichever caller started it.
func (c *SemanticCache) ensureCollection(ctx context.Context) error {
	if c.ready.Load() {
		return nil
	}

	_, err, _ := c.group.Do(c.collection, func() (any, error) {
		created, err := c.collections.CreateCollectionIfAbsent(context.WithoutCancel(ctx), c.collection, storage.CollectionConfig{
			Dimension: c.dimension,
			Distance:  storage.DistanceCosine,
		})
		if err != nil {
			return nil, err
		}
		if created {
			c.logger.Info("created cache collection", "collection", c.collection, "dimension", c.dimension)
		}
		c.ready.Store(true)
		return nil, nil
	})
	return err
}

func (c *SemanticCache) unavailable(stage string, err error) LookupResult {
	c.logger.Warn("cache unavailable", "stage", stage, "err", err)
	return LookupResult{
		Status: LookupUnavailable,
		Err:    fmt.Errorf("%w: %s: %w", core.ErrCacheUnavailable, stage, err),
	}
}

// FormatTimestamp renders ts the way it is stored in record payloads.
func FormatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

// ParseTimestamp parses a payload timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", core.ErrInvalidTimestamp, err)
	}
	return ts, nil
}

func pointFromRecord(record *core.CacheRecord) *storage.Point {
	return &storage.Point{
		ID:     record.ID,
		Vector: record.Vector,
		Payload: map[string]any{
			PayloadQuestion:  record.Question,
			PayloadAnswer:    record.Answer,
			PayloadTimestamp: FormatTimestamp(record.Timestamp),
		},
	}
}

func recordFromPoint(point *storage.Point) (*core.CacheRecord, error) {
	question, _ := point.Payload[PayloadQuestion].(string)
	answer, _ := point.Payload[PayloadAnswer].(string)
	raw, _ := point.Payload[PayloadTimestamp].(string)

	ts, err := ParseTimestamp(raw)
	if err != nil {
		return nil, err
	}

	record := &core.CacheRecord{
		ID:        point.ID,
		Vector:    point.Vector,
		Question:  question,
		Answer:    answer,
		Timestamp: ts,
	}
	if err := core.ValidateCacheRecord(record); err != nil {
		return nil, err
	}
	return record, nil
}
