package retrieval

import (
	"context"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/index"
	"github.com/kailas-cloud/ragchat/internal/domain/rerank"
)

// EmbeddingProvider vectorizes text with a remote embedding model.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// IndexProvider runs nearest-neighbor queries against a vector index.
type IndexProvider interface {
	Query(ctx context.Context, vector []float32, topK int) (index.Response, error)
}

// RerankProvider scores documents against a query and returns ordinal
// positions into documents, most relevant first.
type RerankProvider interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]rerank.Ranked, error)
}
