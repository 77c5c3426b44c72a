package pinecone

import (
	"context"
	"fmt"
	"time"

	gopinecone "github.com/pinecone-io/go-pinecone/v2/pinecone"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/rerank"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// Embedder creates passage embeddings with a Pinecone-hosted model.
type Embedder struct {
	client *Client
	model  string
}

// NewEmbedder creates an embedder for the given model.
func NewEmbedder(c *Client, model string) (*Embedder, error) {
	if model == "" {
		return nil, fmt.Errorf("pinecone embedding model is required: %w", domain.ErrConfiguration)
	}
	return &Embedder{client: c, model: model}, nil
}

// Embed requests a single embedding for text.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	resp, err := e.client.sdk.Inference.Embed(ctx, &gopinecone.EmbedRequest{
		Model:      e.model,
		TextInputs: []string{text},
		Parameters: gopinecone.EmbedParameters{
			InputType: domain.EmbedInputTypePassage,
			Truncate:  domain.EmbedTruncateEnd,
		},
	})
	if err != nil {
		return domain.EmbeddingResult{}, e.client.fail("embed", start, err)
	}
	e.client.succeed("embed", start)

	if resp == nil || len(resp.Data) == 0 || resp.Data[0].Values == nil || len(*resp.Data[0].Values) == 0 {
		return domain.EmbeddingResult{}, domain.ContractViolation(serviceName, "embed returned no dense vector")
	}

	var tokens int
	if resp.Usage.TotalTokens != nil {
		tokens = int(*resp.Usage.TotalTokens)
		metrics.RemoteTokensTotal.WithLabelValues(serviceName, "embed").Add(float64(tokens))
	}

	return domain.EmbeddingResult{
		Embedding:   *resp.Data[0].Values,
		TotalTokens: tokens,
	}, nil
}

// HealthCheck verifies the API key against the control plane.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if err := e.client.ping(ctx); err != nil {
		return fmt.Errorf("list indexes: %w", err)
	}
	return nil
}

// Reranker scores documents against a query with a Pinecone-hosted model.
type Reranker struct {
	client *Client
	model  string
}

// NewReranker creates a reranker for the given model.
func NewReranker(c *Client, model string) (*Reranker, error) {
	if model == "" {
		return nil, fmt.Errorf("pinecone rerank model is required: %w", domain.ErrConfiguration)
	}
	return &Reranker{client: c, model: model}, nil
}

// HealthCheck shares the control plane probe with the embedder.
func (r *Reranker) HealthCheck(ctx context.Context) error {
	if err := r.client.ping(ctx); err != nil {
		return fmt.Errorf("list indexes: %w", err)
	}
	return nil
}

// Rerank returns up to topN ordinal positions into documents, most relevant first.
// Documents are not echoed back.
func (r *Reranker) Rerank(ctx context.Context, query string, documents []string, topN int) ([]rerank.Ranked, error) {
	docs := make([]gopinecone.Document, len(documents))
	for i, d := range documents {
		docs[i] = gopinecone.Document{"text": d}
	}
	returnDocuments := false

	start := time.Now()
	resp, err := r.client.sdk.Inference.Rerank(ctx, &gopinecone.RerankRequest{
		Model:           r.model,
		Query:           query,
		Documents:       docs,
		TopN:            &topN,
		ReturnDocuments: &returnDocuments,
	})
	if err != nil {
		return nil, r.client.fail("rerank", start, err)
	}
	r.client.succeed("rerank", start)

	ranked := make([]rerank.Ranked, len(resp.Data))
	for i, d := range resp.Data {
		ranked[i] = rerank.Ranked{Index: d.Index, Score: float64(d.Score)}
	}
	return ranked, nil
}
