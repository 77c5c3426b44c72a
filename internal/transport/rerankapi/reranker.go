// Package rerankapi calls rerank endpoints that follow the Cohere/Jina shape:
// POST {base}/rerank with {model, query, documents, top_n} answered by
// {results: [{index, relevance_score}]}.
package rerankapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/rerank"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

const serviceName = "rerank_api"

// Config holds rerank endpoint settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

type request struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type response struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Reranker is a client for a Cohere-compatible rerank endpoint.
type Reranker struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// New creates a reranker client.
func New(cfg Config) (*Reranker, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("rerank_api.base_url is required: %w", domain.ErrConfiguration)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("rerank_api.model is required: %w", domain.ErrConfiguration)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reranker{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// Rerank returns up to topN ordinal positions into documents, most relevant first.
func (r *Reranker) Rerank(ctx context.Context, query string, documents []string, topN int) ([]rerank.Ranked, error) {
	payload, err := json.Marshal(request{Model: r.model, Query: query, Documents: documents, TopN: topN})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		metrics.ObserveRemote(serviceName, "rerank", "error", time.Since(start).Seconds())
		return nil, domain.NewServiceError(serviceName, "rerank", 0, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.ObserveRemote(serviceName, "rerank", "error", time.Since(start).Seconds())
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		r.logger.Warn("Rerank request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		msg := strings.TrimSpace(string(body))
		if domain.TransientStatus(resp.StatusCode) {
			return nil, domain.NewServiceError(serviceName, "rerank", resp.StatusCode, msg)
		}
		return nil, domain.NewRejectedError(serviceName, "rerank", resp.StatusCode, msg)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.ObserveRemote(serviceName, "rerank", "error", time.Since(start).Seconds())
		return nil, domain.ContractViolation(serviceName, "decode rerank response: %v", err)
	}
	metrics.ObserveRemote(serviceName, "rerank", "success", time.Since(start).Seconds())

	ranked := make([]rerank.Ranked, len(out.Results))
	for i, res := range out.Results {
		ranked[i] = rerank.Ranked{Index: res.Index, Score: res.RelevanceScore}
	}
	return ranked, nil
}
