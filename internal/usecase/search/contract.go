package search

import (
	"context"

	"github.com/kailas-cloud/ragchat/internal/domain/index"
	"github.com/kailas-cloud/ragchat/internal/domain/match"
)

// Embedder vectorizes the query.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index runs the nearest-neighbor query.
type Index interface {
	Query(ctx context.Context, vector []float32, topK int) (index.Response, error)
}

// Reranker reorders matches against the query.
type Reranker interface {
	Rerank(ctx context.Context, query string, matches []match.Match, topK *int) ([]match.Match, error)
}
