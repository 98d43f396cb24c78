package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalPoint(t *testing.T) {
	point := &Point{
		ID:     "5f1c0e4a-8b7e-4a53-9d0c-2b8d2f5b7a10",
		Vector: []float32{0.6, 0.8},
		Payload: map[string]any{
			"question":  "What is the refund window?",
			"answer":    "30 days.",
			"timestamp": "2025-01-02T03:04:05Z",
		},
	}

	data, err := MarshalPoint(point)
	require.NoError(t, err)

	decoded, err := UnmarshalPoint(data)
	require.NoError(t, err)
	assert.Equal(t, point, decoded)
}

func TestUnmarshalPoint_NumbersDecodeAsFloat(t *testing.T) {
	decoded, err := UnmarshalPoint([]byte(`{"id":"a","vector":[1],"payload":{"n":3}}`))
	require.NoError(t, err)
	assert.Equal(t, float64(3), decoded.Payload["n"])
}

func TestUnmarshalPoint_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"truncated", []byte(`{"id":"a","vec`)},
		{"wrong type", []byte(`{"id":7}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalPoint(tt.data)
			assert.ErrorIs(t, err, ErrSerializationFailed)
		})
	}
}

func TestCollectionConfigRoundTrip(t *testing.T) {
	config := CollectionConfig{Dimension: 1536, Distance: DistanceCosine}

	data, err := MarshalCollectionConfig(config)
	require.NoError(t, err)
	assert.JSONEq(t, `{"dimension":1536,"distance":"cosine"}`, string(data))

	decoded, err := UnmarshalCollectionConfig(data)
	require.NoError(t, err)
	assert.Equal(t, config, decoded)

	_, err = UnmarshalCollectionConfig([]byte("nope"))
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
