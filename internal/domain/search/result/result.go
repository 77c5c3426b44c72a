package result

import "github.com/kailas-cloud/ragchat/internal/domain/match"

// Result is the shaped output of one retrieval pipeline run.
type Result struct {
	vectorResults    []match.Match
	rerankedResults  []match.Match
	allVectorResults []match.Match
	latency          float64
}

// New creates a search result. Negative latency is clamped to zero.
func New(vectorResults, rerankedResults, allVectorResults []match.Match, latency float64) Result {
	if latency < 0 {
		latency = 0
	}
	return Result{
		vectorResults:    vectorResults,
		rerankedResults:  rerankedResults,
		allVectorResults: allVectorResults,
		latency:          latency,
	}
}

// VectorResults returns the top vector matches in similarity order.
func (r *Result) VectorResults() []match.Match { return r.vectorResults }

// RerankedResults returns the top matches in rerank score order.
func (r *Result) RerankedResults() []match.Match { return r.rerankedResults }

// AllVectorResults returns the full vector query result set.
func (r *Result) AllVectorResults() []match.Match { return r.allVectorResults }

// Latency returns the index-reported query latency in seconds.
func (r *Result) Latency() float64 { return r.latency }
