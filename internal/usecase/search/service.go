// Package search runs the retrieval pipeline: embed, query, rerank, shape.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/match"
	"github.com/kailas-cloud/ragchat/internal/domain/search/result"
	"github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// ShownResults is how many vector and reranked matches a result exposes.
const ShownResults = 3

// Pipeline stages, used in SearchError and metrics.
const (
	StageEmbed  = "embed"
	StageQuery  = "query"
	StageRerank = "rerank"
)

// Service composes the embedding, index and rerank clients.
type Service struct {
	embed  Embedder
	index  Index
	rerank Reranker
}

// New creates a search service.
func New(embed Embedder, index Index, rerank Reranker) *Service {
	return &Service{embed: embed, index: index, rerank: rerank}
}

// Search embeds query, fetches topK neighbors and reranks the full set down
// to ShownResults. Steps run strictly in sequence; any failure fails the
// whole search with a *domain.SearchError.
func (s *Service) Search(ctx context.Context, query string, topK int) (result.Result, error) {
	if strings.TrimSpace(query) == "" {
		return result.Result{}, fmt.Errorf("query is empty: %w", domain.ErrInvalidRequest)
	}
	if topK <= 0 {
		return result.Result{}, fmt.Errorf("top_k must be positive, got %d: %w", topK, domain.ErrInvalidRequest)
	}

	log := logger.FromContext(ctx)

	var vector []float32
	err := stage(ctx, StageEmbed, func() error {
		var err error
		vector, err = s.embed.Embed(ctx, query)
		return err
	})
	if err != nil {
		return result.Result{}, err
	}

	var latency float64
	var all []match.Match
	err = stage(ctx, StageQuery, func() error {
		resp, err := s.index.Query(ctx, vector, topK)
		if err != nil {
			return err
		}
		all = resp.Matches
		latency = resp.LatencyOrZero()
		return nil
	})
	if err != nil {
		return result.Result{}, err
	}

	shown := ShownResults
	var reranked []match.Match
	if len(all) > 0 {
		err = stage(ctx, StageRerank, func() error {
			var err error
			reranked, err = s.rerank.Rerank(ctx, query, all, &shown)
			return err
		})
		if err != nil {
			return result.Result{}, err
		}
	}

	vectorResults := all[:min(len(all), ShownResults)]

	log.Debug("Search completed",
		zap.Int("top_k", topK),
		zap.Int("matches", len(all)),
		zap.Int("reranked", len(reranked)),
		zap.Float64("index_latency", latency),
	)

	return result.New(vectorResults, reranked, all, latency), nil
}

func stage(ctx context.Context, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.PipelineStageDuration.WithLabelValues(name, status).Observe(time.Since(start).Seconds())
	if err != nil {
		logger.FromContext(ctx).Debug("Search stage failed", zap.String("stage", name), zap.Error(err))
		return domain.NewSearchError(name, err)
	}
	return nil
}
