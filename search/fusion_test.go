package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docindex/storage"
)

func TestFuseRankings_SingleListContribution(t *testing.T) {
	vector := []storage.VectorMatch{{ChunkId: 7, Score: 0.9}}

	fused := fuseRankings(vector, nil, DefaultRRFK)
	require.Len(t, fused, 1)
	assert.Equal(t, 1.0/61.0, fused[0].score)
	assert.Equal(t, 1, fused[0].vectorRank)
	assert.Equal(t, 0, fused[0].lexicalRank)
}

func TestFuseRankings_BothListsOutrankOne(t *testing.T) {
	vector := []storage.VectorMatch{
		{ChunkId: 1, Score: 0.9},
		{ChunkId: 2, Score: 0.8},
	}
	lexical := []storage.LexicalMatch{
		{ChunkId: 1, Score: 12.0},
	}

	fused := fuseRankings(vector, lexical, DefaultRRFK)
	require.Len(t, fused, 2)

	// First in both lists: 1/61 + 1/61
	assert.Equal(t, uint64(1), uint64(fused[0].chunkID))
	assert.Equal(t, 2.0/61.0, fused[0].score)
	assert.Equal(t, 1, fused[0].vectorRank)
	assert.Equal(t, 1, fused[0].lexicalRank)

	// Second in vector only: 1/62
	assert.Equal(t, uint64(2), uint64(fused[1].chunkID))
	assert.Equal(t, 1.0/62.0, fused[1].score)
}

func TestFuseRankings_TiesBreakByChunkID(t *testing.T) {
	// Same rank in opposite lists gives identical scores
	vector := []storage.VectorMatch{{ChunkId: 9, Score: 0.5}}
	lexical := []storage.LexicalMatch{{ChunkId: 4, Score: 3.0}}

	fused := fuseRankings(vector, lexical, DefaultRRFK)
	require.Len(t, fused, 2)
	assert.Equal(t, fused[0].score, fused[1].score)
	assert.Equal(t, uint64(4), uint64(fused[0].chunkID))
	assert.Equal(t, uint64(9), uint64(fused[1].chunkID))
}

func TestFuseRankings_Empty(t *testing.T) {
	assert.Empty(t, fuseRankings(nil, nil, DefaultRRFK))
}
