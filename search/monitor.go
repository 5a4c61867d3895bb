package search

import (
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterVectorSearch(matches []storage.VectorMatch)
	AfterLexicalSearch(matches []storage.LexicalMatch)
	LegFailed(leg string, err error)
	AfterFusion(chunkIds []core.ChunkID)
	AfterRerank(reordered []core.ChunkID)
	RerankSkipped(err error)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                              {}
func (n *noopMonitor) AfterVectorSearch(_ []storage.VectorMatch)   {}
func (n *noopMonitor) AfterLexicalSearch(_ []storage.LexicalMatch) {}
func (n *noopMonitor) LegFailed(_ string, _ error)                 {}
func (n *noopMonitor) AfterFusion(_ []core.ChunkID)                {}
func (n *noopMonitor) AfterRerank(_ []core.ChunkID)                {}
func (n *noopMonitor) RerankSkipped(_ error)                       {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)               {}
