package storage

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docindex/core"
)

func TestMarshalUint64_Ordering(t *testing.T) {
	// Byte order of keys must match numeric order for iteration.
	a := MarshalUint64(41)
	b := MarshalUint64(42)
	c := MarshalUint64(1 << 40)

	assert.Negative(t, bytes.Compare(a, b))
	assert.Negative(t, bytes.Compare(b, c))

	back, err := UnmarshalUint64(b)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), back)
}

func TestUnmarshalUint64_Truncated(t *testing.T) {
	_, err := UnmarshalUint64([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalChunk_RoundTrip(t *testing.T) {
	chunk := &core.Chunk{
		Id:          7,
		DocumentId:  3,
		Version:     2,
		Content:     "func main() {}",
		StartOffset: 10,
		EndOffset:   24,
		TokenCount:  4,
		Class:       core.ClassCode,
		Metadata: core.ChunkMetadata{
			Language: "en",
			Symbol:   "main",
			Sequence: 1,
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	data, err := MarshalChunk(chunk)
	require.NoError(t, err)

	got, err := UnmarshalChunk(data)
	require.NoError(t, err)
	assert.Equal(t, chunk, got)
}

func TestFilter_Matches(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		filter  *Filter
		deleted bool
		want    bool
	}{
		{
			name:   "nil filter matches live chunk",
			filter: nil,
			want:   true,
		},
		{
			name:    "deleted never matches",
			filter:  nil,
			deleted: true,
			want:    false,
		},
		{
			name:   "class filter hit",
			filter: &Filter{Classes: []core.DocumentClass{core.ClassCode}},
			want:   true,
		},
		{
			name:   "class filter miss",
			filter: &Filter{Classes: []core.DocumentClass{core.ClassLog}},
			want:   false,
		},
		{
			name:   "language filter miss",
			filter: &Filter{Languages: []string{"ru"}},
			want:   false,
		},
		{
			name:   "document filter hit",
			filter: &Filter{DocumentIds: []core.DocumentID{3}},
			want:   true,
		},
		{
			name:   "date range excludes older",
			filter: &Filter{After: now.Add(time.Hour)},
			want:   false,
		},
		{
			name:   "date range includes",
			filter: &Filter{After: now.Add(-time.Hour), Before: now.Add(time.Hour)},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Matches(3, core.ClassCode, "en", now, tt.deleted)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := NormalizeVector([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)

	assert.Empty(t, NormalizeVector(nil))
}
