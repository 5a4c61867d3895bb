package search

import (
	"sort"

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

// DefaultRRFK is the reciprocal rank fusion constant. Larger values flatten
// the contribution difference between adjacent ranks.
const DefaultRRFK = 60

// fusedHit is one chunk's combined standing across both retrieval legs.
// Ranks are 1-indexed; 0 means the chunk was absent from that leg.
type fusedHit struct {
	chunkID     core.ChunkID
	score       float64
	vectorRank  int
	lexicalRank int
}

// fuseRankings combines the two ranked lists with reciprocal rank fusion:
// a chunk at rank r in a list contributes 1/(k+r), and its fused score is
// the sum over the lists it appears in. Absence from a list contributes
// nothing. Results sort by fused score descending with exact ties broken
// by ascending chunk ID, so identical inputs always produce identical
// output order.
func fuseRankings(vector []storage.VectorMatch, lexical []storage.LexicalMatch, k int) []fusedHit {
	if k <= 0 {
		k = DefaultRRFK
	}

	hits := make(map[core.ChunkID]*fusedHit)
	for i, match := range vector {
		rank := i + 1
		hits[match.ChunkId] = &fusedHit{
			chunkID:    match.ChunkId,
			score:      1.0 / float64(k+rank),
			vectorRank: rank,
		}
	}
	for i, match := range lexical {
		rank := i + 1
		if hit, ok := hits[match.ChunkId]; ok {
			hit.score += 1.0 / float64(k+rank)
			hit.lexicalRank = rank
			continue
		}
		hits[match.ChunkId] = &fusedHit{
			chunkID:     match.ChunkId,
			score:       1.0 / float64(k+rank),
			lexicalRank: rank,
		}
	}

	fused := make([]fusedHit, 0, len(hits))
	for _, hit := range hits {
		fused = append(fused, *hit)
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		return fused[i].chunkID < fused[j].chunkID
	})
	return fused
}
