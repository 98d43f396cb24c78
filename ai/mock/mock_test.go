package mock

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	ctx := context.Background()
	m := NewMockEmbedder()

	a, err := m.EmbedText(ctx, "hello")
	require.NoError(t, err)
	b, err := m.EmbedText(ctx, "hello")
	require.NoError(t, err)
	c, err := m.EmbedText(ctx, "goodbye")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, DefaultDimension)
	assert.Equal(t, 3, m.CallCount())

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-4)
}

func TestMockEmbedderDimension(t *testing.T) {
	m := NewMockEmbedder()
	m.Dimension = 8

	vecs, err := m.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Len(t, vecs[0], 8)
	assert.Len(t, vecs[1], 8)
}

func TestMockChatModelStreams(t *testing.T) {
	m := NewMockChatModel("The ", "answer ", "is 42.")

	var sb strings.Builder
	err := m.StreamCompletion(context.Background(), "prompt text", func(ctx context.Context, chunk string) error {
		sb.WriteString(chunk)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "The answer is 42.", sb.String())
	assert.Equal(t, "prompt text", m.LastPrompt())
	assert.Equal(t, 1, m.CallCount())
}

func TestMockChatModelStopsOnCallbackError(t *testing.T) {
	m := NewMockChatModel("a", "b", "c")
	stop := errors.New("stop")

	var seen []string
	err := m.StreamCompletion(context.Background(), "p", func(ctx context.Context, chunk string) error {
		seen = append(seen, chunk)
		return stop
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, []string{"a"}, seen)
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider()
	mp := p.(*MockProvider)

	assert.Same(t, mp.GetMockEmbedder(), p.Embedder())
	assert.Same(t, mp.GetMockChatModel(), p.ChatModel())
	assert.NoError(t, p.Close())
}
