// Package retrieval wraps the embedding, index and rerank providers with
// bounded retries and resolves provider responses into domain matches.
package retrieval

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/index"
	"github.com/kailas-cloud/ragchat/internal/domain/match"
	"github.com/kailas-cloud/ragchat/internal/domain/rerank"
	"github.com/kailas-cloud/ragchat/internal/retry"
)

// EmbeddingClient embeds query text.
type EmbeddingClient struct {
	provider EmbeddingProvider
	policy   retry.Policy
}

// NewEmbeddingClient creates an embedding client.
func NewEmbeddingClient(p EmbeddingProvider, policy retry.Policy) *EmbeddingClient {
	return &EmbeddingClient{provider: p, policy: policy}
}

// Embed returns the embedding vector for text.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := retry.Do(ctx, c.policy, "embed", func(ctx context.Context) (domain.EmbeddingResult, error) {
		return c.provider.Embed(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	if len(res.Embedding) == 0 {
		return nil, domain.ContractViolation("embedding", "empty embedding vector")
	}
	return res.Embedding, nil
}

// VectorIndexClient queries the vector index.
type VectorIndexClient struct {
	provider IndexProvider
	policy   retry.Policy
}

// NewVectorIndexClient creates an index client.
func NewVectorIndexClient(p IndexProvider, policy retry.Policy) *VectorIndexClient {
	return &VectorIndexClient{provider: p, policy: policy}
}

// Query returns up to topK matches in the order the index returned them.
func (c *VectorIndexClient) Query(ctx context.Context, vector []float32, topK int) (index.Response, error) {
	if topK <= 0 {
		return index.Response{}, fmt.Errorf("top_k must be positive, got %d: %w", topK, domain.ErrInvalidRequest)
	}
	return retry.Do(ctx, c.policy, "query", func(ctx context.Context) (index.Response, error) {
		return c.provider.Query(ctx, vector, topK)
	})
}

// RerankClient reorders matches against a query.
type RerankClient struct {
	provider RerankProvider
	policy   retry.Policy
}

// NewRerankClient creates a rerank client.
func NewRerankClient(p RerankProvider, policy retry.Policy) *RerankClient {
	return &RerankClient{provider: p, policy: policy}
}

// Rerank returns the matches reordered by rerank score. With topK nil every
// document is ranked. Each returned match carries its rerank score.
func (c *RerankClient) Rerank(ctx context.Context, query string, matches []match.Match, topK *int) ([]match.Match, error) {
	if len(matches) == 0 {
		return nil, nil
	}

	documents := make([]string, len(matches))
	for i := range matches {
		documents[i] = matches[i].Text()
	}

	topN := len(documents)
	if topK != nil {
		topN = *topK
	}

	ranked, err := retry.Do(ctx, c.policy, "rerank", func(ctx context.Context) ([]rerank.Ranked, error) {
		return c.provider.Rerank(ctx, query, documents, topN)
	})
	if err != nil {
		return nil, err
	}

	reranked := make([]match.Match, 0, len(ranked))
	for _, hit := range ranked {
		if hit.Index < 0 || hit.Index >= len(matches) {
			return nil, domain.ContractViolation("rerank",
				"returned index %d out of range for %d documents", hit.Index, len(matches))
		}
		reranked = append(reranked, matches[hit.Index].WithRerankScore(hit.Score))
	}
	return reranked, nil
}
