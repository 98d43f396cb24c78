package recall

import (
	"context"
	"iter"
	"strings"
	"testing"

	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/config"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.OpenAI.EmbeddingDimensions = mock.DefaultDimension
	return cfg
}

func setupCollections(t *testing.T) storage.VectorCollection {
	t.Helper()
	collections, err := badger.NewMemoryCollections()
	require.NoError(t, err)
	t.Cleanup(func() { collections.Close() })
	return collections
}

func seedDocuments(t *testing.T, cfg *config.Config, collections storage.VectorCollection, embedder *mock.MockEmbedder) {
	t.Helper()
	pipeline, err := NewIngestionPipeline(cfg, collections, embedder)
	require.NoError(t, err)
	defer pipeline.Release()

	_, err = pipeline.Ingest(context.Background(), []*core.Document{
		{Content: "Standard orders ship within two business days."},
		{Content: "Returns are accepted within 30 days of delivery."},
		{Content: "Gift cards never expire."},
	})
	require.NoError(t, err)
}

func collect(seq iter.Seq[string]) string {
	var sb strings.Builder
	for fragment := range seq {
		sb.WriteString(fragment)
	}
	return sb.String()
}

func TestService_AnswersThenServesFromCache(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	collections := setupCollections(t)
	embedder := mock.NewMockEmbedder()
	chat := mock.NewMockChatModel("Orders ship ", "within two business days.")
	seedDocuments(t, cfg, collections, embedder)

	service, err := NewService(ctx, cfg,
		WithCollections(collections),
		WithProvider(mock.NewMockProviderWithServices(embedder, chat)),
	)
	require.NoError(t, err)
	defer service.Close()

	question := "How fast do orders ship?"
	assert.Equal(t, "Orders ship within two business days.", collect(service.AnswerQuestion(ctx, question)))
	assert.Equal(t, 1, chat.CallCount())
	assert.Equal(t, 2, embedder.CallCount(), "one ingest batch, then the question once for lookup, retrieval and store")
	assert.Contains(t, chat.LastPrompt(), "Standard orders ship within two business days.")

	assert.Equal(t, "Orders ship within two business days.", collect(service.AnswerQuestion(ctx, question)))
	assert.Equal(t, 1, chat.CallCount(), "second ask is a cache hit")
	assert.Equal(t, 2, embedder.CallCount())

	records, err := service.Cache().List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, question, records[0].Question)
}

func TestService_NotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	collections := setupCollections(t)
	embedder := mock.NewMockEmbedder()
	chat := mock.NewMockChatModel("I couldn't find this info.")
	seedDocuments(t, cfg, collections, embedder)

	service, err := NewService(ctx, cfg,
		WithCollections(collections),
		WithProvider(mock.NewMockProviderWithServices(embedder, chat)),
	)
	require.NoError(t, err)
	defer service.Close()

	collect(service.AnswerQuestion(ctx, "Do you sell boats?"))
	collect(service.AnswerQuestion(ctx, "Do you sell boats?"))
	assert.Equal(t, 2, chat.CallCount())

	records, err := service.Cache().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestService_EmptyCorpusFailsFast(t *testing.T) {
	collections := setupCollections(t)

	_, err := NewService(context.Background(), testConfig(),
		WithCollections(collections),
		WithProvider(mock.NewMockProvider()),
	)
	assert.ErrorIs(t, err, core.ErrEmptyIndex)
}

func TestService_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.SimilarityThreshold = 0

	_, err := NewService(context.Background(), cfg,
		WithCollections(setupCollections(t)),
		WithProvider(mock.NewMockProvider()),
	)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestService_MissingAPIKey(t *testing.T) {
	cfg := testConfig()

	_, err := NewService(context.Background(), cfg, WithCollections(setupCollections(t)))
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestService_EmptyQuestion(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	collections := setupCollections(t)
	embedder := mock.NewMockEmbedder()
	chat := mock.NewMockChatModel("unused")
	seedDocuments(t, cfg, collections, embedder)

	service, err := NewService(ctx, cfg,
		WithCollections(collections),
		WithProvider(mock.NewMockProviderWithServices(embedder, chat)),
	)
	require.NoError(t, err)
	defer service.Close()

	for _, err := range service.Answer(ctx, "   ") {
		assert.ErrorIs(t, err, core.ErrEmptyQuestion)
	}
	assert.Zero(t, chat.CallCount())
}
