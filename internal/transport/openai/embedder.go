package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

const serviceName = "openai"

// Config holds OpenAI-compatible API settings shared by the embedder and the completer.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Logger     *zap.Logger
}

func newClient(cfg *Config) (*openai.Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai.api_key is required: %w", domain.ErrConfiguration)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai model is required: %w", domain.ErrConfiguration)
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg), nil
}

// Embedder is an embedding provider using an OpenAI-compatible API.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) (*Embedder, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		client:     client,
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		logger:     logger,
	}, nil
}

// Embed returns the vector for text and the tokens it consumed.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		metrics.ObserveRemote(serviceName, "embed", "error", elapsed)
		e.logger.Debug("Embedding request failed", zap.Error(err))
		return domain.EmbeddingResult{}, parseAPIError("embed", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		metrics.ObserveRemote(serviceName, "embed", "error", elapsed)
		return domain.EmbeddingResult{}, domain.ContractViolation(serviceName, "empty embedding response")
	}

	metrics.ObserveRemote(serviceName, "embed", "success", elapsed)
	if resp.Usage.TotalTokens > 0 {
		metrics.RemoteTokensTotal.WithLabelValues(serviceName, "embed").Add(float64(resp.Usage.TotalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:   resp.Data[0].Embedding,
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	return healthCheck(ctx, e.client)
}

func healthCheck(ctx context.Context, client *openai.Client) error {
	if _, err := client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError maps a go-openai error to a provider error.
// Server errors, rate limiting and transport failures are transient.
func parseAPIError(op string, err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := extractDetail(reqErr.Body)
		if msg == "" {
			msg = string(reqErr.Body)
		}
		return statusError(op, reqErr.HTTPStatusCode, msg)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusError(op, apiErr.HTTPStatusCode, apiErr.Message)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s %s: %w", serviceName, op, err)
	}

	return domain.NewServiceError(serviceName, op, 0, err.Error())
}

func statusError(op string, status int, msg string) error {
	if domain.TransientStatus(status) {
		return domain.NewServiceError(serviceName, op, status, msg)
	}
	return domain.NewRejectedError(serviceName, op, status, msg)
}

// extractDetail extracts the "detail" field some OpenAI-compatible gateways reply with.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
