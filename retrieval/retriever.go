package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"golang.org/x/sync/errgroup"
)

// Defaults for a HybridRetriever.
const (
	DefaultDenseK       = 3
	DefaultSparseK      = 3
	DefaultDenseWeight  = 0.7
	DefaultSparseWeight = 0.3
)

// DocumentIndex is the corpus a HybridRetriever searches.
type DocumentIndex interface {
	All() []*core.Document
	Len() int
	Search(ctx context.Context, vector []float32, k int) ([]*core.ScoredDocument, error)
}

// HybridRetriever fuses dense and lexical retrieval over one corpus.
// It is safe for concurrent use.
type HybridRetriever struct {
	index        DocumentIndex
	embedder     ai.Embedder
	lexical      *lexicalIndex
	denseK       int
	sparseK      int
	denseWeight  float64
	sparseWeight float64
	rrfConstant  int
	maxResults   int
	logger       *slog.Logger
}

// Option configures a HybridRetriever.
type Option func(*HybridRetriever) error

// WithDenseK sets how many documents the dense retriever contributes.
// Default is DefaultDenseK.
func WithDenseK(k int) Option {
	return func(r *HybridRetriever) error {
		if k <= 0 {
			return fmt.Errorf("%w: dense k must be positive, got %d", core.ErrConfiguration, k)
		}
		r.denseK = k
		return nil
	}
}

// WithSparseK sets how many documents the lexical retriever contributes.
// Default is DefaultSparseK.
func WithSparseK(k int) Option {
	return func(r *HybridRetriever) error {
		if k <= 0 {
			return fmt.Errorf("%w: sparse k must be positive, got %d", core.ErrConfiguration, k)
		}
		r.sparseK = k
		return nil
	}
}

// WithWeights sets the fusion weights of the dense and lexical lists.
// Default is DefaultDenseWeight and DefaultSparseWeight.
func WithWeights(dense, sparse float64) Option {
	return func(r *HybridRetriever) error {
		if dense < 0 || sparse < 0 || dense+sparse == 0 {
			return fmt.Errorf("%w: fusion weights must be non-negative and not both zero", core.ErrConfiguration)
		}
		r.denseWeight = dense
		r.sparseWeight = sparse
		return nil
	}
}

// WithRRFConstant sets the reciprocal rank fusion constant.
// Default is DefaultRRFConstant.
func WithRRFConstant(c int) Option {
	return func(r *HybridRetriever) error {
		if c <= 0 {
			return fmt.Errorf("%w: rrf constant must be positive, got %d", core.ErrConfiguration, c)
		}
		r.rrfConstant = c
		return nil
	}
}

// WithMaxResults caps the fused result list. Zero means no cap.
func WithMaxResults(n int) Option {
	return func(r *HybridRetriever) error {
		if n < 0 {
			return fmt.Errorf("%w: max results must not be negative, got %d", core.ErrConfiguration, n)
		}
		r.maxResults = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *HybridRetriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewHybridRetriever builds the lexical index over every document in index.
// It returns core.ErrEmptyIndex when the corpus has no documents.
func NewHybridRetriever(index DocumentIndex, embedder ai.Embedder, opts ...Option) (*HybridRetriever, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if index.Len() == 0 {
		return nil, fmt.Errorf("%w: no documents to retrieve from", core.ErrEmptyIndex)
	}

	r := &HybridRetriever{
		index:        index,
		embedder:     embedder,
		denseK:       DefaultDenseK,
		sparseK:      DefaultSparseK,
		denseWeight:  DefaultDenseWeight,
		sparseWeight: DefaultSparseWeight,
		rrfConstant:  DefaultRRFConstant,
		logger:       slog.Default().With("component", "hybrid-retriever"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	docs := index.All()
	lexical, err := newLexicalIndex(docs)
	if err != nil {
		return nil, err
	}
	r.lexical = lexical

	r.logger.Info("hybrid retriever ready",
		"documents", len(docs),
		"dense_k", r.denseK,
		"sparse_k", r.sparseK,
		"dense_weight", r.denseWeight,
		"sparse_weight", r.sparseWeight)
	return r, nil
}

// Retrieve returns the fused documents most relevant to query.
func (r *HybridRetriever) Retrieve(ctx context.Context, query string) ([]*core.ScoredDocument, error) {
	return r.RetrieveWithMonitor(ctx, query, nil)
}

// RetrieveWithMonitor is Retrieve with stage callbacks.
// Any failure wraps core.ErrRetrievalFailure.
func (r *HybridRetriever) RetrieveWithMonitor(ctx context.Context, query string, monitor Monitor) ([]*core.ScoredDocument, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	var dense, lexical []*core.ScoredDocument
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		vector, err := r.embedder.EmbedText(gctx, query)
		if err != nil {
			return fmt.Errorf("embedding query: %w", err)
		}
		dense, err = r.index.Search(gctx, vector, r.denseK)
		if err != nil {
			return fmt.Errorf("dense search: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		lexical, err = r.lexical.search(gctx, query, r.sparseK)
		return err
	})

	if err := g.Wait(); err != nil {
		r.logger.Error("retrieval failed", "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrRetrievalFailure, err)
	}
	monitor.AfterDense(dense)
	monitor.AfterLexical(lexical)

	results := Fuse(r.rrfConstant,
		RankedList{Weight: r.denseWeight, Documents: dense},
		RankedList{Weight: r.sparseWeight, Documents: lexical},
	)
	if r.maxResults > 0 && len(results) > r.maxResults {
		results = results[:r.maxResults]
	}

	r.logger.Debug("retrieved documents",
		"dense", len(dense),
		"lexical", len(lexical),
		"fused", len(results))
	monitor.Finish(results)
	return results, nil
}

// Close releases the lexical index.
func (r *HybridRetriever) Close() error {
	return r.lexical.close()
}
