// Package chat answers a message twice, once from the vector context and once
// from the reranked context, with inline citations.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/match"
	"github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/metrics"
	"github.com/kailas-cloud/ragchat/internal/retry"
)

// Reply holds both persona answers and the matches they were grounded on.
type Reply struct {
	VectorResponse   string
	RerankedResponse string
	AllVectorResults []match.Match
	RerankedResults  []match.Match
}

// Service runs retrieval and the two completions.
type Service struct {
	search    Searcher
	completer Completer
	policy    retry.Policy
}

// New creates a chat service.
func New(search Searcher, completer Completer, policy retry.Policy) *Service {
	return &Service{search: search, completer: completer, policy: policy}
}

// Chat retrieves context for message and issues both completions concurrently.
// Either completion failing fails the request.
func (s *Service) Chat(ctx context.Context, message string, topK int) (Reply, error) {
	if strings.TrimSpace(message) == "" {
		return Reply{}, fmt.Errorf("message is empty: %w", domain.ErrInvalidRequest)
	}

	res, err := s.search.Search(ctx, message, topK)
	if err != nil {
		return Reply{}, err
	}

	vectorPrompt := SystemPrompt(Precise, FormatContext(res.VectorResults()))
	rerankPrompt := SystemPrompt(Enthusiastic, FormatContext(res.RerankedResults()))

	var reply Reply
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := s.complete(gctx, "vector", vectorPrompt, message)
		reply.VectorResponse = out
		return err
	})
	g.Go(func() error {
		out, err := s.complete(gctx, "reranked", rerankPrompt, message)
		reply.RerankedResponse = out
		return err
	})
	if err := g.Wait(); err != nil {
		return Reply{}, err
	}

	reply.AllVectorResults = res.AllVectorResults()
	reply.RerankedResults = res.RerankedResults()
	return reply, nil
}

func (s *Service) complete(ctx context.Context, persona, system, user string) (string, error) {
	// retry logs of the two concurrent completions stay distinguishable
	ctx = logger.With(ctx, zap.String("persona", persona))
	start := time.Now()
	out, err := retry.Do(ctx, s.policy, "complete", func(ctx context.Context) (string, error) {
		return s.completer.Complete(ctx, system, user)
	})
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.PipelineStageDuration.WithLabelValues("complete", status).Observe(time.Since(start).Seconds())
	if err != nil {
		logger.FromContext(ctx).Debug("Completion failed", zap.Error(err))
		return "", fmt.Errorf("%s completion: %w: %w", persona, domain.ErrCompletionFailed, err)
	}
	return out, nil
}
