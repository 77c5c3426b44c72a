// Package rerank holds the reranking response shared by rerank providers.
package rerank

// Ranked is one rerank hit: an ordinal position into the submitted
// document list and the model relevance score.
type Ranked struct {
	Index int
	Score float64
}
