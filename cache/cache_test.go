package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 16

// stubCollections returns scripted search results regardless of threshold.
type stubCollections struct {
	storage.VectorCollection

	mu        sync.Mutex
	creates   int
	results   []*storage.ScoredPoint
	searchErr error
	upserts   []*storage.Point
	payloads  map[string]map[string]any
}

func (s *stubCollections) CreateCollectionIfAbsent(ctx context.Context, name string, config storage.CollectionConfig) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	return s.creates == 1, nil
}

func (s *stubCollections) Search(ctx context.Context, name string, vector []float32, limit int, threshold float32) ([]*storage.ScoredPoint, error) {
	return s.results, s.searchErr
}

func (s *stubCollections) Upsert(ctx context.Context, name string, points ...*storage.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, points...)
	return nil
}

func (s *stubCollections) SetPayload(ctx context.Context, name, id string, payload map[string]any) error {
	if s.payloads == nil {
		s.payloads = make(map[string]map[string]any)
	}
	s.payloads[id] = payload
	return nil
}

func scored(id string, score float32, answer string) *storage.ScoredPoint {
	return &storage.ScoredPoint{
		Point: &storage.Point{
			ID:     id,
			Vector: make([]float32, testDimension),
			Payload: map[string]any{
				PayloadQuestion:  "stored question",
				PayloadAnswer:    answer,
				PayloadTimestamp: "2025-01-01T00:00:00Z",
			},
		},
		Score: score,
	}
}

func newEmbedder() *mock.MockEmbedder {
	e := mock.NewMockEmbedder()
	e.Dimension = testDimension
	return e
}

func newBadgerCache(t *testing.T, embedder *mock.MockEmbedder) *SemanticCache {
	t.Helper()
	collections, err := badger.NewMemoryCollections()
	require.NoError(t, err)
	t.Cleanup(func() { collections.Close() })

	c, err := NewSemanticCache(collections, embedder, WithDimension(testDimension))
	require.NoError(t, err)
	return c
}

func TestNewSemanticCache(t *testing.T) {
	collections := &stubCollections{}

	_, err := NewSemanticCache(nil, newEmbedder())
	assert.ErrorIs(t, err, ErrCollectionsRequired)

	_, err = NewSemanticCache(collections, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	c, err := NewSemanticCache(collections, newEmbedder())
	require.NoError(t, err)
	assert.Equal(t, DefaultSimilarityThreshold, c.Threshold())
	assert.Equal(t, DefaultCollection, c.collection)
	assert.Equal(t, DefaultDimension, c.dimension)
}

func TestNewSemanticCache_InvalidOptions(t *testing.T) {
	collections := &stubCollections{}
	tests := []struct {
		name string
		opt  Option
	}{
		{"zero threshold", WithSimilarityThreshold(0)},
		{"threshold above one", WithSimilarityThreshold(1.01)},
		{"zero dimension", WithDimension(0)},
		{"empty collection", WithCollection("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSemanticCache(collections, newEmbedder(), tt.opt)
			assert.ErrorIs(t, err, core.ErrConfiguration)
		})
	}
}

func TestLookup_ThresholdBoundary(t *testing.T) {
	tests := []struct {
		name   string
		score  float32
		status Status
	}{
		{"exactly at threshold", 0.80, LookupHit},
		{"just below threshold", 0.79, LookupMiss},
		{"well above threshold", 0.97, LookupHit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collections := &stubCollections{results: []*storage.ScoredPoint{scored("r1", tt.score, "cached answer")}}
			c, err := NewSemanticCache(collections, newEmbedder(), WithDimension(testDimension))
			require.NoError(t, err)

			res := c.Lookup(context.Background(), "question")
			assert.Equal(t, tt.status, res.Status)
			if tt.status == LookupHit {
				assert.Equal(t, "r1", res.RecordID)
				assert.Equal(t, "cached answer", res.Answer)
				assert.Equal(t, tt.score, res.Score)
			} else {
				assert.Empty(t, res.Answer)
			}
		})
	}
}

func TestLookup_EmptyCollectionIsMiss(t *testing.T) {
	c := newBadgerCache(t, newEmbedder())

	res := c.Lookup(context.Background(), "anything")
	assert.Equal(t, LookupMiss, res.Status)
	assert.NoError(t, res.Err)
}

func TestLookup_RecordWithoutAnswerIsMiss(t *testing.T) {
	collections := &stubCollections{results: []*storage.ScoredPoint{scored("r1", 0.95, "")}}
	c, err := NewSemanticCache(collections, newEmbedder())
	require.NoError(t, err)

	assert.Equal(t, LookupMiss, c.Lookup(context.Background(), "q").Status)
}

func TestLookup_Unavailable(t *testing.T) {
	t.Run("search fails", func(t *testing.T) {
		collections := &stubCollections{searchErr: errors.New("connection refused")}
		c, err := NewSemanticCache(collections, newEmbedder())
		require.NoError(t, err)

		res := c.Lookup(context.Background(), "q")
		assert.Equal(t, LookupUnavailable, res.Status)
		assert.ErrorIs(t, res.Err, core.ErrCacheUnavailable)
	})

	t.Run("embedding fails", func(t *testing.T) {
		embedder := newEmbedder()
		embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("embedding service down")
		}
		c, err := NewSemanticCache(&stubCollections{}, embedder)
		require.NoError(t, err)

		res := c.Lookup(context.Background(), "q")
		assert.Equal(t, LookupUnavailable, res.Status)
		assert.ErrorIs(t, res.Err, core.ErrCacheUnavailable)
	})

	t.Run("closed storage", func(t *testing.T) {
		collections, err := badger.NewMemoryCollections()
		require.NoError(t, err)
		require.NoError(t, collections.Close())

		c, err := NewSemanticCache(collections, newEmbedder(), WithDimension(testDimension))
		require.NoError(t, err)

		res := c.Lookup(context.Background(), "q")
		assert.Equal(t, LookupUnavailable, res.Status)
		assert.ErrorIs(t, res.Err, core.ErrCacheUnavailable)
		assert.ErrorIs(t, res.Err, storage.ErrStorageClosed)
	})
}

func TestStoreThenLookup(t *testing.T) {
	ctx := context.Background()
	c := newBadgerCache(t, newEmbedder())
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	id, err := c.Store(ctx, "What is the refund window?", "30 days.", ts)
	require.NoError(t, err)
	assert.Len(t, id, 36)

	res := c.Lookup(ctx, "What is the refund window?")
	require.Equal(t, LookupHit, res.Status)
	assert.Equal(t, id, res.RecordID)
	assert.Equal(t, "30 days.", res.Answer)
	assert.Equal(t, "What is the refund window?", res.Question)
	assert.InDelta(t, 1.0, res.Score, 1e-5)

	records, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, ts.Equal(records[0].Timestamp))
}

func TestHitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := newBadgerCache(t, newEmbedder())
	stored := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	id, err := c.Store(ctx, "How do I reset my password?", "Use the reset link.", stored)
	require.NoError(t, err)

	first := c.Lookup(ctx, "How do I reset my password?")
	require.Equal(t, LookupHit, first.Status)
	refreshed := stored.Add(time.Hour)
	require.NoError(t, c.Refresh(ctx, first.RecordID, refreshed))

	second := c.Lookup(ctx, "How do I reset my password?")
	require.Equal(t, LookupHit, second.Status)
	assert.Equal(t, first.RecordID, second.RecordID)
	assert.Equal(t, first.Answer, second.Answer)

	records, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].ID)
	assert.Equal(t, "How do I reset my password?", records[0].Question)
	assert.Equal(t, "Use the reset link.", records[0].Answer)
	assert.True(t, refreshed.Equal(records[0].Timestamp))
}

func TestRefresh_OnlyPatchesTimestamp(t *testing.T) {
	collections := &stubCollections{}
	c, err := NewSemanticCache(collections, newEmbedder())
	require.NoError(t, err)

	ts := time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, c.Refresh(context.Background(), "r1", ts))

	assert.Equal(t, map[string]any{PayloadTimestamp: "2025-05-06T07:08:09Z"}, collections.payloads["r1"])
}

func TestRefresh_MissingRecord(t *testing.T) {
	ctx := context.Background()
	c := newBadgerCache(t, newEmbedder())
	require.Equal(t, LookupMiss, c.Lookup(ctx, "warm up").Status)

	err := c.Refresh(ctx, "does-not-exist", time.Now())
	assert.ErrorIs(t, err, core.ErrCacheUnavailable)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_RejectsEmptyAnswer(t *testing.T) {
	collections := &stubCollections{}
	c, err := NewSemanticCache(collections, newEmbedder())
	require.NoError(t, err)

	_, err = c.Store(context.Background(), "q", "  ", time.Now())
	assert.ErrorIs(t, err, core.ErrInvalidCacheRecord)
	assert.Empty(t, collections.upserts)
}

func TestStore_PayloadShape(t *testing.T) {
	collections := &stubCollections{}
	c, err := NewSemanticCache(collections, newEmbedder(), WithDimension(testDimension))
	require.NoError(t, err)

	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	id, err := c.Store(context.Background(), "q", "a", ts)
	require.NoError(t, err)

	require.Len(t, collections.upserts, 1)
	point := collections.upserts[0]
	assert.Equal(t, id, point.ID)
	assert.Len(t, point.Vector, testDimension)
	assert.Equal(t, map[string]any{
		PayloadQuestion:  "q",
		PayloadAnswer:    "a",
		PayloadTimestamp: "2025-01-02T03:04:05Z",
	}, point.Payload)
}

func TestEnsureCollection_Once(t *testing.T) {
	collections := &stubCollections{}
	c, err := NewSemanticCache(collections, newEmbedder())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Lookup(context.Background(), "q")
		}()
	}
	wg.Wait()

	collections.mu.Lock()
	afterFirst := collections.creates
	collections.mu.Unlock()
	assert.GreaterOrEqual(t, afterFirst, 1)

	c.Lookup(context.Background(), "q")
	c.Lookup(context.Background(), "q")

	collections.mu.Lock()
	defer collections.mu.Unlock()
	assert.Equal(t, afterFirst, collections.creates)
}

// gatedCollections blocks collection creation until release is closed.
type gatedCollections struct {
	stubCollections

	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedCollections) CreateCollectionIfAbsent(ctx context.Context, name string, config storage.CollectionConfig) (bool, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return g.stubCollections.CreateCollectionIfAbsent(ctx, name, config)
}

func TestEnsureCollection_SurvivesFirstCallerCancel(t *testing.T) {
	collections := &gatedCollections{entered: make(chan struct{}), release: make(chan struct{})}
	c, err := NewSemanticCache(collections, newEmbedder())
	require.NoError(t, err)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() { firstErr <- c.ensureCollection(firstCtx) }()
	<-collections.entered

	secondErr := make(chan error, 1)
	go func() { secondErr <- c.ensureCollection(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	cancel()
	close(collections.release)

	require.NoError(t, <-firstErr)
	require.NoError(t, <-secondErr)
	assert.True(t, c.ready.Load())

	collections.mu.Lock()
	defer collections.mu.Unlock()
	assert.Equal(t, 1, collections.creates)
}

func TestList_NoCollection(t *testing.T) {
	c := newBadgerCache(t, newEmbedder())

	records, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestListRecords_WithoutEmbedder(t *testing.T) {
	ctx := context.Background()
	c := newBadgerCache(t, newEmbedder())
	_, err := c.Store(ctx, "Where are you based?", "Berlin.", time.Now())
	require.NoError(t, err)

	records, err := ListRecords(ctx, c.collections, DefaultCollection)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Berlin.", records[0].Answer)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "hit", LookupHit.String())
	assert.Equal(t, "miss", LookupMiss.String())
	assert.Equal(t, "unavailable", LookupUnavailable.String())
	assert.Equal(t, "unknown", Status(42).String())
}
