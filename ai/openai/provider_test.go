package openai

import (
	"testing"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithHost("http://localhost:11434"),
		ai.WithAPIKey("none"),
		ai.WithEmbeddingModel("nomic-embed-text"),
		ai.WithEmbeddingDimensions(768),
		ai.WithChatModel("qwen2.5:7b"),
	)
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider(testConfig())
	require.NoError(t, err)
	defer provider.Close()

	assert.NotNil(t, provider.Embedder())
	assert.NotNil(t, provider.ChatModel())
}

func TestNewProviderRejectsIncompleteConfig(t *testing.T) {
	cfg := testConfig()
	cfg.ChatModel = ""

	_, err := NewProvider(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestNewEmbedderWithoutChatModel(t *testing.T) {
	cfg := testConfig()
	cfg.ChatModel = ""

	embedder, err := NewEmbedder(cfg)
	require.NoError(t, err)
	assert.NotNil(t, embedder)

	_, err = NewChatModel(cfg)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}
