package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/docindex"
	"github.com/poiesic/recall/storage"
)

const (
	DefaultCollection = "documents"
	DefaultBatchSize  = 32
	DefaultMaxRetries = 1
	DefaultRetryDelay = 500 * time.Millisecond
	DefaultDimension  = 1536
)

// Pipeline embeds documents and writes them to the document collection.
type Pipeline struct {
	collections storage.VectorCollection
	embedder    ai.Embedder
	pool        *ants.Pool
	collection  string
	dimension   int
	batchSize   int
	maxRetries  int
	retryDelay  time.Duration
	progress    io.Writer
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithCollection sets the document collection name.
func WithCollection(name string) Option {
	return func(p *Pipeline) error {
		if name == "" {
			return fmt.Errorf("%w: collection name must not be empty", core.ErrConfiguration)
		}
		p.collection = name
		return nil
	}
}

// WithDimension sets the embedding dimension the collection is created with.
func WithDimension(dimension int) Option {
	return func(p *Pipeline) error {
		if dimension <= 0 {
			return fmt.Errorf("%w: dimension must be positive, got %d", core.ErrConfiguration, dimension)
		}
		p.dimension = dimension
		return nil
	}
}

// WithBatchSize sets how many documents are embedded per request.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("%w: batch size must be positive, got %d", core.ErrConfiguration, size)
		}
		p.batchSize = size
		return nil
	}
}

// WithMaxRetries sets the number of attempts per batch.
// The default of 1 means a failed batch is not retried.
func WithMaxRetries(attempts int) Option {
	return func(p *Pipeline) error {
		if attempts < 1 {
			return fmt.Errorf("%w: %w", core.ErrConfiguration, ErrInvalidMaxAttempts)
		}
		p.maxRetries = attempts
		return nil
	}
}

// WithRetryDelay sets the base delay between attempts.
func WithRetryDelay(delay time.Duration) Option {
	return func(p *Pipeline) error {
		p.retryDelay = delay
		return nil
	}
}

// WithPoolSize sets the worker pool size for concurrent batches.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if p.pool != nil {
			p.pool.Release()
		}
		p.pool = pool
		return nil
	}
}

// WithProgress reports progress to w, typically os.Stderr.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(collections storage.VectorCollection, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if collections == nil {
		return nil, ErrCollectionsRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		collections: collections,
		embedder:    embedder,
		pool:        pool,
		collection:  DefaultCollection,
		dimension:   DefaultDimension,
		batchSize:   DefaultBatchSize,
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion", "collection", p.collection)

	return p, nil
}

// Ingest embeds and upserts docs, returning how many were written.
// Batches run concurrently; the first failing batch cancels the rest.
// Documents in batches that completed before the failure stay written.
func (p *Pipeline) Ingest(ctx context.Context, docs []*core.Document) (int, error) {
	for _, doc := range docs {
		if err := core.ValidateDocument(doc); err != nil {
			return 0, err
		}
		if doc.ID == "" {
			doc.ID = core.DocumentIDFromContent(doc.Content)
		}
	}
	if len(docs) == 0 {
		return 0, nil
	}

	created, err := p.collections.CreateCollectionIfAbsent(ctx, p.collection, storage.CollectionConfig{
		Dimension: p.dimension,
		Distance:  storage.DistanceCosine,
	})
	if err != nil {
		return 0, err
	}
	if created {
		p.logger.Info("created document collection", "dimension", p.dimension)
	}

	var tracker *ProgressTracker
	if p.progress != nil {
		tracker = NewProgressTracker(p.progress, len(docs), p.batchSize)
		tracker.Start()
		defer tracker.Finish()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		written  int
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	for start := 0; start < len(docs); start += p.batchSize {
		batch := docs[start:min(start+p.batchSize, len(docs))]

		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			if err := p.ingestBatch(ctx, batch); err != nil {
				fail(err)
				return
			}
			mu.Lock()
			written += len(batch)
			mu.Unlock()
			if tracker != nil {
				tracker.Increment(len(batch))
			}
		})
		if submitErr != nil {
			wg.Done()
			fail(submitErr)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		p.logger.Error("ingestion failed", "written", written, "err", firstErr)
		return written, firstErr
	}
	p.logger.Info("ingested documents", "documents", written)
	return written, nil
}

func (p *Pipeline) ingestBatch(ctx context.Context, batch []*core.Document) error {
	texts := make([]string, len(batch))
	for i, doc := range batch {
		texts[i] = doc.Content
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var embedErr error
		vectors, embedErr = p.embedder.EmbedTexts(ctx, texts)
		if embedErr != nil {
			return embedErr
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("%w: expected %d, received %d", ErrEmbeddingMismatch, len(batch), len(vectors))
		}
		return nil
	}, p.maxRetries, p.retryDelay)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("embed batch starting at %s: %w", batch[0].ID, err)
	}

	points := make([]*storage.Point, len(batch))
	for i, doc := range batch {
		points[i] = docindex.PointFromDocument(doc, vectors[i])
	}
	p.logger.Debug("upserting batch", "documents", len(points))
	return p.collections.Upsert(ctx, p.collection, points...)
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
