package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/docindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = []struct {
	id      string
	content string
	vector  []float32
}{
	{"refund", "Refunds are issued within 30 days of purchase.", []float32{1, 0, 0}},
	{"warranty", "The warranty covers manufacturing defects for two years.", []float32{0.7, 0.7, 0}},
	{"shipping", "Shipping takes five business days.", []float32{0.2, 1, 0}},
	{"password", "Reset your password from the account settings page.", []float32{0, 0, 1}},
}

func newTestIndex(t *testing.T) *docindex.Index {
	t.Helper()
	idx := docindex.New()
	for _, d := range corpus {
		require.NoError(t, idx.Add(&core.Document{ID: d.id, Content: d.content}, d.vector))
	}
	return idx
}

func fixedEmbedder(vector []float32) *mock.MockEmbedder {
	e := mock.NewMockEmbedder()
	e.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return vector, nil
	}
	return e
}

type recordingMonitor struct {
	query   string
	dense   int
	lexical int
	final   int
}

func (m *recordingMonitor) Start(q string)                        { m.query = q }
func (m *recordingMonitor) AfterDense(d []*core.ScoredDocument)   { m.dense = len(d) }
func (m *recordingMonitor) AfterLexical(d []*core.ScoredDocument) { m.lexical = len(d) }
func (m *recordingMonitor) Finish(r []*core.ScoredDocument)       { m.final = len(r) }

func TestNewHybridRetriever_EmptyIndex(t *testing.T) {
	_, err := NewHybridRetriever(docindex.New(), mock.NewMockEmbedder())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmptyIndex)
}

func TestNewHybridRetriever_Required(t *testing.T) {
	_, err := NewHybridRetriever(nil, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, ErrIndexRequired)

	_, err = NewHybridRetriever(newTestIndex(t), nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestNewHybridRetriever_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"zero dense k", WithDenseK(0)},
		{"zero sparse k", WithSparseK(0)},
		{"negative weight", WithWeights(-1, 1)},
		{"zero weights", WithWeights(0, 0)},
		{"zero rrf constant", WithRRFConstant(0)},
		{"negative max results", WithMaxResults(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHybridRetriever(newTestIndex(t), mock.NewMockEmbedder(), tt.opt)
			assert.ErrorIs(t, err, core.ErrConfiguration)
		})
	}
}

func TestRetrieve_DenseAndLexicalAgree(t *testing.T) {
	r, err := NewHybridRetriever(newTestIndex(t), fixedEmbedder([]float32{1, 0.1, 0}))
	require.NoError(t, err)
	defer r.Close()

	results, err := r.Retrieve(context.Background(), "How long until refunds arrive?")
	require.NoError(t, err)

	assert.Equal(t, []string{"refund", "warranty", "shipping"}, ids(results))
	assert.InDelta(t, 0.7/61+0.3/61, results[0].Score, 1e-9)
}

func TestRetrieve_DenseWeightDominates(t *testing.T) {
	r, err := NewHybridRetriever(newTestIndex(t), fixedEmbedder([]float32{1, 0, 0}))
	require.NoError(t, err)
	defer r.Close()

	results, err := r.Retrieve(context.Background(), "password")
	require.NoError(t, err)

	// password is first lexically but absent from the dense top 3.
	assert.Equal(t, []string{"refund", "warranty", "shipping", "password"}, ids(results))
}

func TestRetrieve_LexicalWeightDominates(t *testing.T) {
	r, err := NewHybridRetriever(newTestIndex(t), fixedEmbedder([]float32{1, 0, 0}), WithWeights(0.3, 0.7))
	require.NoError(t, err)
	defer r.Close()

	results, err := r.Retrieve(context.Background(), "password")
	require.NoError(t, err)

	require.NotEmpty(t, results)
	assert.Equal(t, "password", results[0].Document.ID)
}

func TestRetrieve_MaxResultsAndK(t *testing.T) {
	r, err := NewHybridRetriever(newTestIndex(t), fixedEmbedder([]float32{1, 0, 0}),
		WithDenseK(1), WithSparseK(1), WithMaxResults(1))
	require.NoError(t, err)
	defer r.Close()

	monitor := &recordingMonitor{}
	results, err := r.RetrieveWithMonitor(context.Background(), "password", monitor)
	require.NoError(t, err)

	assert.Equal(t, []string{"refund"}, ids(results))
	assert.Equal(t, "password", monitor.query)
	assert.Equal(t, 1, monitor.dense)
	assert.Equal(t, 1, monitor.lexical)
	assert.Equal(t, 1, monitor.final)
}

func TestRetrieve_StopWordsDoNotMatch(t *testing.T) {
	r, err := NewHybridRetriever(newTestIndex(t), fixedEmbedder([]float32{0, 0, 1}))
	require.NoError(t, err)
	defer r.Close()

	monitor := &recordingMonitor{}
	_, err = r.RetrieveWithMonitor(context.Background(), "the of and", monitor)
	require.NoError(t, err)
	assert.Equal(t, 0, monitor.lexical)
}

func TestRetrieve_EmbeddingFailure(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}
	r, err := NewHybridRetriever(newTestIndex(t), embedder)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Retrieve(context.Background(), "refunds")
	assert.ErrorIs(t, err, core.ErrRetrievalFailure)
}

func TestRetrieve_DimensionMismatch(t *testing.T) {
	r, err := NewHybridRetriever(newTestIndex(t), fixedEmbedder([]float32{1, 0}))
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Retrieve(context.Background(), "refunds")
	assert.ErrorIs(t, err, core.ErrRetrievalFailure)
	assert.ErrorIs(t, err, docindex.ErrDimensionMismatch)
}
