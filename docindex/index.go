package docindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/coder/hnsw"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// Payload keys of a document point.
const (
	PayloadContent  = "content"
	PayloadMetadata = "metadata"
)

// HNSW graph parameters.
const (
	defaultM        = 16
	defaultEfSearch = 20
)

// DefaultExactSearchLimit is the largest corpus searched by exhaustive scan.
// Larger corpora are searched through the HNSW graph.
const DefaultExactSearchLimit = 4096

// ErrDimensionMismatch indicates a query vector of the wrong length.
var ErrDimensionMismatch = errors.New("docindex: vector dimension mismatch")

// Index is an immutable in-memory document corpus with dense vector search.
type Index struct {
	mu         sync.RWMutex
	graph      *hnsw.Graph[uint64]
	docs       []*core.Document
	vectors    [][]float32
	exactLimit int
	byKey      map[uint64]*core.Document
	byID       map[string]*core.Document
	dimension  int
	logger     *slog.Logger
}

// Open loads every point of the named collection into a new Index.
// A missing collection yields an empty index.
func Open(ctx context.Context, collections storage.VectorCollection, name string) (*Index, error) {
	logger := slog.Default().With("component", "docindex", "collection", name)

	idx := New()
	idx.logger = logger

	err := collections.Scroll(ctx, name, func(point *storage.Point) error {
		doc, err := DocumentFromPoint(point)
		if err != nil {
			return err
		}
		return idx.add(doc, point.Vector)
	})
	if errors.Is(err, storage.ErrCollectionNotFound) {
		logger.Warn("document collection does not exist, index is empty")
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading document collection %s: %w", name, err)
	}

	logger.Info("document index loaded", "documents", idx.Len(), "dimension", idx.dimension)
	return idx, nil
}

// New creates an empty Index. Use Add to populate it before sharing it.
func New() *Index {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = defaultM
	graph.EfSearch = defaultEfSearch
	graph.Ml = 0.25

	return &Index{
		graph:      graph,
		exactLimit: DefaultExactSearchLimit,
		byKey:      make(map[uint64]*core.Document),
		byID:       make(map[string]*core.Document),
		logger:     slog.Default().With("component", "docindex"),
	}
}

// Add inserts a document with its embedding.
func (i *Index) Add(doc *core.Document, vector []float32) error {
	return i.add(doc, vector)
}

func (i *Index) add(doc *core.Document, vector []float32) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: document %s", core.ErrEmptyVector, doc.ID)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.dimension == 0 {
		i.dimension = len(vector)
	} else if len(vector) != i.dimension {
		return fmt.Errorf("%w: document %s has %d dimensions, index has %d",
			ErrDimensionMismatch, doc.ID, len(vector), i.dimension)
	}
	if _, exists := i.byID[doc.ID]; exists {
		return fmt.Errorf("%w: duplicate document id %s", core.ErrInvalidDocument, doc.ID)
	}

	key := uint64(len(i.docs))
	normalized := normalize(vector)
	i.graph.Add(hnsw.MakeNode(key, normalized))
	i.docs = append(i.docs, doc)
	i.vectors = append(i.vectors, normalized)
	i.byKey[key] = doc
	i.byID[doc.ID] = doc
	return nil
}

// All returns every document in load order.
func (i *Index) All() []*core.Document {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return slices.Clone(i.docs)
}

// Len returns the number of indexed documents.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.docs)
}

// Dimension returns the embedding length, or 0 for an empty index.
func (i *Index) Dimension() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.dimension
}

// Get returns the document with the given ID.
func (i *Index) Get(id string) (*core.Document, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	doc, ok := i.byID[id]
	return doc, ok
}

// Search returns up to k documents nearest to vector by cosine similarity,
// highest score first. Corpora up to DefaultExactSearchLimit documents are
// scanned exhaustively, so the result is the exact top k. Scores are
// 1 - cosine distance.
func (i *Index) Search(ctx context.Context, vector []float32, k int) ([]*core.ScoredDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if k <= 0 || len(i.docs) == 0 {
		return []*core.ScoredDocument{}, nil
	}
	if len(vector) != i.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			ErrDimensionMismatch, len(vector), i.dimension)
	}

	query := normalize(vector)

	var results []*core.ScoredDocument
	if len(i.docs) <= i.exactLimit {
		results = i.scan(query, k)
	} else {
		results = i.approximate(query, k)
	}
	return results, nil
}

// scan scores every document and keeps the k best.
func (i *Index) scan(query []float32, k int) []*core.ScoredDocument {
	results := make([]*core.ScoredDocument, 0, len(i.docs))
	for key, vec := range i.vectors {
		results = append(results, &core.ScoredDocument{
			Document: i.docs[key],
			Score:    float64(dotProduct(query, vec)),
		})
	}
	sortByScore(results)
	if len(results) > k {
		results = results[:k]
	}
	return results
}

// approximate asks the HNSW graph for the k nearest documents.
func (i *Index) approximate(query []float32, k int) []*core.ScoredDocument {
	nodes := i.graph.Search(query, k)

	results := make([]*core.ScoredDocument, 0, len(nodes))
	for _, node := range nodes {
		doc, exists := i.byKey[node.Key]
		if !exists {
			continue
		}
		distance := i.graph.Distance(query, node.Value)
		results = append(results, &core.ScoredDocument{
			Document: doc,
			Score:    1 - float64(distance),
		})
	}
	sortByScore(results)
	return results
}

// sortByScore orders results highest score first, ties in load order.
func sortByScore(results []*core.ScoredDocument) {
	slices.SortStableFunc(results, func(a, b *core.ScoredDocument) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})
}

// DocumentFromPoint converts a stored point into a Document.
func DocumentFromPoint(point *storage.Point) (*core.Document, error) {
	content, _ := point.Payload[PayloadContent].(string)
	doc := &core.Document{
		ID:      point.ID,
		Content: content,
	}

	if raw, ok := point.Payload[PayloadMetadata].(map[string]any); ok && len(raw) > 0 {
		doc.Metadata = make(map[string]string, len(raw))
		for k, v := range raw {
			if s, ok := v.(string); ok {
				doc.Metadata[k] = s
			} else {
				doc.Metadata[k] = fmt.Sprint(v)
			}
		}
	}

	if err := core.ValidateDocument(doc); err != nil {
		return nil, fmt.Errorf("point %s: %w", point.ID, err)
	}
	return doc, nil
}

// PointFromDocument converts a Document and its embedding into a storable point.
func PointFromDocument(doc *core.Document, vector []float32) *storage.Point {
	payload := map[string]any{PayloadContent: doc.Content}
	if len(doc.Metadata) > 0 {
		metadata := make(map[string]any, len(doc.Metadata))
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		payload[PayloadMetadata] = metadata
	}
	return &storage.Point{ID: doc.ID, Vector: vector, Payload: payload}
}

func dotProduct(a, b []float32) float32 {
	var sum float32
	for j := range a {
		sum += a[j] * b[j]
	}
	return sum
}

func normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for j, x := range v {
		out[j] = float32(float64(x) / norm)
	}
	return out
}
