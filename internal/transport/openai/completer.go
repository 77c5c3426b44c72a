package openai

import (
	"context"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// CompleterConfig adds sampling settings to Config.
type CompleterConfig struct {
	Config
	Temperature float32
	MaxTokens   int
}

// Completer produces chat completions through the OpenAI-compatible API.
type Completer struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	user        string
	logger      *zap.Logger
}

// NewCompleter creates a chat completion client.
func NewCompleter(cfg *CompleterConfig) (*Completer, error) {
	client, err := newClient(&cfg.Config)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Completer{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		user:        cfg.User,
		logger:      logger,
	}, nil
}

// Complete sends a system and a user message and returns the assistant reply.
func (c *Completer) Complete(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.temperature,
		User:        c.user,
	}
	if c.maxTokens > 0 {
		req.MaxTokens = c.maxTokens
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		metrics.ObserveRemote(serviceName, "chat", "error", elapsed)
		c.logger.Debug("Chat completion failed", zap.Error(err))
		return "", parseAPIError("chat", err)
	}
	if len(resp.Choices) == 0 {
		metrics.ObserveRemote(serviceName, "chat", "error", elapsed)
		return "", domain.ContractViolation(serviceName, "chat completion returned no choices")
	}

	metrics.ObserveRemote(serviceName, "chat", "success", elapsed)
	if resp.Usage.TotalTokens > 0 {
		metrics.RemoteTokensTotal.WithLabelValues(serviceName, "chat").Add(float64(resp.Usage.TotalTokens))
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// HealthCheck verifies API availability via ListModels.
func (c *Completer) HealthCheck(ctx context.Context) error {
	return healthCheck(ctx, c.client)
}
