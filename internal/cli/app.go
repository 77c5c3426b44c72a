package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/config"
	dbRedis "github.com/kailas-cloud/ragchat/internal/db/redis"
	"github.com/kailas-cloud/ragchat/internal/metrics"
	"github.com/kailas-cloud/ragchat/internal/repository/vector"
	"github.com/kailas-cloud/ragchat/internal/retry"
	chiTransport "github.com/kailas-cloud/ragchat/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/ragchat/internal/transport/openai"
	"github.com/kailas-cloud/ragchat/internal/transport/pinecone"
	"github.com/kailas-cloud/ragchat/internal/transport/rerankapi"
	chatuc "github.com/kailas-cloud/ragchat/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/ragchat/internal/usecase/health"
	"github.com/kailas-cloud/ragchat/internal/usecase/retrieval"
	searchuc "github.com/kailas-cloud/ragchat/internal/usecase/search"
)

// app is the wired object graph shared by every subcommand.
type app struct {
	search *searchuc.Service
	chat   *chatuc.Service
	health *healthuc.Service
	server *chiTransport.Server

	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// pineconeDialer overrides how Pinecone index connections are opened (tests).
var pineconeDialer pinecone.IndexDialer

type providers struct {
	embed  retrieval.EmbeddingProvider
	index  retrieval.IndexProvider
	rerank retrieval.RerankProvider
	checks map[string]healthuc.Checker
}

// buildApp is the composition root: providers are picked from cfg.Retrieval
// and wrapped in the retrying clients.
func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterRemoteMetrics()

	a := &app{}
	p, err := buildProviders(ctx, cfg, logger, a)
	if err != nil {
		a.Close()
		return nil, err
	}

	completer, err := openaiTransport.NewCompleter(&openaiTransport.CompleterConfig{
		Config: openaiTransport.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.Chat.Model,
			User:    cfg.OpenAI.User,
			Logger:  logger,
		},
		Temperature: *cfg.Chat.Temperature,
		MaxTokens:   cfg.Chat.MaxTokens,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create completer: %w", err)
	}
	p.checks[healthuc.ComponentLLM] = completer

	policy := retryPolicy(cfg)

	a.search = searchuc.New(
		retrieval.NewEmbeddingClient(p.embed, policy),
		retrieval.NewVectorIndexClient(p.index, policy),
		retrieval.NewRerankClient(p.rerank, policy),
	)
	a.chat = chatuc.New(a.search, completer, policy)
	a.health = healthuc.New(p.checks)
	a.server = chiTransport.NewServer(a.search, a.chat, a.health, chiTransport.Defaults{
		SearchTopK: cfg.Retrieval.SearchTopK,
		ChatTopK:   cfg.Retrieval.ChatTopK,
	}, logger)

	logger.Info("Retrieval pipeline ready",
		zap.String("index_provider", cfg.Retrieval.IndexProvider),
		zap.String("embedding_provider", cfg.Retrieval.EmbeddingProvider),
		zap.String("rerank_provider", cfg.Retrieval.RerankProvider),
		zap.String("chat_model", cfg.Chat.Model),
		zap.Int("retry_attempts", policy.MaxAttempts),
	)
	return a, nil
}

// retryPolicy pins the attempt count; only the backoff step is configurable.
func retryPolicy(cfg *config.Config) retry.Policy {
	return retry.Policy{
		MaxAttempts: retry.DefaultMaxAttempts,
		Delay:       time.Duration(cfg.Retry.DelayMs) * time.Millisecond,
	}
}

func buildProviders(ctx context.Context, cfg *config.Config, logger *zap.Logger, a *app) (*providers, error) {
	p := &providers{checks: make(map[string]healthuc.Checker, 4)}

	var pc *pinecone.Client
	pineconeClient := func() (*pinecone.Client, error) {
		if pc != nil {
			return pc, nil
		}
		c, err := pinecone.NewClient(pinecone.Config{
			APIKey:     cfg.Pinecone.APIKey,
			ControlURL: cfg.Pinecone.ControlURL,
			Timeout:    time.Duration(cfg.Pinecone.TimeoutSec) * time.Second,
			Logger:     logger,
			Dialer:     pineconeDialer,
		})
		if err != nil {
			return nil, fmt.Errorf("create pinecone client: %w", err)
		}
		if cfg.Pinecone.IndexHost != "" {
			c.SetIndexHost(cfg.Pinecone.IndexName, cfg.Pinecone.IndexHost)
		}
		pc = c
		return pc, nil
	}

	switch cfg.Retrieval.IndexProvider {
	case config.ProviderPinecone:
		c, err := pineconeClient()
		if err != nil {
			return nil, err
		}
		ix, err := pinecone.NewIndex(c, cfg.Pinecone.IndexName, cfg.Retrieval.Namespace)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, ix.Close)
		p.index = ix
		p.checks[healthuc.ComponentIndex] = ix
	case config.ProviderRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Redis.Addrs,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		a.closers = append(a.closers, store.Close)

		if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
			return nil, fmt.Errorf("redis not ready: %w", err)
		}
		logger.Info("Connected to redis", zap.Strings("addrs", cfg.Redis.Addrs))

		repo, err := vector.New(store, vector.Config{
			IndexName: cfg.Redis.IndexName,
			KeyPrefix: cfg.Redis.KeyPrefix,
			Namespace: cfg.Retrieval.Namespace,
		})
		if err != nil {
			return nil, err
		}
		p.index = repo
		p.checks[healthuc.ComponentIndex] = repo
	default:
		return nil, fmt.Errorf("unknown index provider %q", cfg.Retrieval.IndexProvider)
	}

	switch cfg.Retrieval.EmbeddingProvider {
	case config.ProviderPinecone:
		c, err := pineconeClient()
		if err != nil {
			return nil, err
		}
		emb, err := pinecone.NewEmbedder(c, cfg.Pinecone.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		p.embed = emb
		p.checks[healthuc.ComponentEmbedding] = emb
	case config.ProviderOpenAI:
		emb, err := openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.OpenAI.EmbeddingModel,
			Dimensions: cfg.OpenAI.EmbeddingDimensions,
			User:       cfg.OpenAI.User,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create embedder: %w", err)
		}
		p.embed = emb
		p.checks[healthuc.ComponentEmbedding] = emb
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Retrieval.EmbeddingProvider)
	}

	switch cfg.Retrieval.RerankProvider {
	case config.ProviderPinecone:
		c, err := pineconeClient()
		if err != nil {
			return nil, err
		}
		rr, err := pinecone.NewReranker(c, cfg.Pinecone.RerankModel)
		if err != nil {
			return nil, err
		}
		p.rerank = rr
		p.checks[healthuc.ComponentRerank] = rr
	case config.ProviderRerankAPI:
		// Generic rerank endpoints expose no probe.
		rr, err := rerankapi.New(rerankapi.Config{
			BaseURL: cfg.RerankAPI.BaseURL,
			APIKey:  cfg.RerankAPI.APIKey,
			Model:   cfg.RerankAPI.Model,
			Timeout: time.Duration(cfg.RerankAPI.TimeoutSec) * time.Second,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create reranker: %w", err)
		}
		p.rerank = rr
	default:
		return nil, fmt.Errorf("unknown rerank provider %q", cfg.Retrieval.RerankProvider)
	}

	return p, nil
}
