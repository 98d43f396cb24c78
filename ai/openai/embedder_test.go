package openai

import (
	"context"
	"log/slog"
	"testing"

	"github.com/poiesic/recall/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedEmbeddings returns fixed vectors from EmbedDocuments.
type scriptedEmbeddings struct {
	vectors [][]float32
}

func (s *scriptedEmbeddings) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return s.vectors, nil
}

func (s *scriptedEmbeddings) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if len(s.vectors) == 0 {
		return nil, nil
	}
	return s.vectors[0], nil
}

func scriptedEmbedder(vectors ...[]float32) *Embedder {
	return &Embedder{
		embedder: &scriptedEmbeddings{vectors: vectors},
		logger:   slog.Default(),
	}
}

func TestEmbedText(t *testing.T) {
	vec, err := scriptedEmbedder([]float32{0.1, 0.2}).EmbedText(context.Background(), "refunds")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vec)
}

func TestEmbedText_EmptyResult(t *testing.T) {
	tests := []struct {
		name    string
		vectors [][]float32
	}{
		{"no vectors", nil},
		{"empty vector", [][]float32{{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vec, err := scriptedEmbedder(tt.vectors...).EmbedText(context.Background(), "refunds")
			assert.ErrorIs(t, err, core.ErrEmptyVector)
			assert.Nil(t, vec)
		})
	}
}

func TestEmbedTexts_IncompleteResult(t *testing.T) {
	ctx := context.Background()

	_, err := scriptedEmbedder([]float32{1}).EmbedTexts(ctx, []string{"a", "b"})
	assert.ErrorIs(t, err, core.ErrEmptyVector)

	_, err = scriptedEmbedder([]float32{1}, nil).EmbedTexts(ctx, []string{"a", "b"})
	assert.ErrorIs(t, err, core.ErrEmptyVector)

	vecs, err := scriptedEmbedder([]float32{1}, []float32{2}).EmbedTexts(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, vecs)
}
