package retrieval

import "github.com/poiesic/recall/core"

// Monitor observes the stages of a retrieval.
// All callbacks run on the goroutine that called Retrieve.
type Monitor interface {
	Start(query string)
	AfterDense(docs []*core.ScoredDocument)
	AfterLexical(docs []*core.ScoredDocument)
	Finish(results []*core.ScoredDocument)
}

type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                        {}
func (n *noopMonitor) AfterDense(_ []*core.ScoredDocument)   {}
func (n *noopMonitor) AfterLexical(_ []*core.ScoredDocument) {}
func (n *noopMonitor) Finish(_ []*core.ScoredDocument)       {}
