// Package vector serves nearest-neighbor queries from a Redis FT index.
package vector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/ragchat/internal/db"
	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/index"
	"github.com/kailas-cloud/ragchat/internal/domain/match"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

const serviceName = "redis"

// NamespaceField is the TAG field used to scope documents to a namespace.
const NamespaceField = "namespace"

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	IndexExists(ctx context.Context, name string) (bool, error)
	Ping(ctx context.Context) error
}

// Config selects the index and key layout.
type Config struct {
	IndexName string
	KeyPrefix string
	Namespace string
}

// Repo implements a vector index over Redis hashes holding text, source and title fields.
type Repo struct {
	store     store
	indexName string
	keyPrefix string
	namespace string
}

// New creates a vector repository.
func New(s store, cfg Config) (*Repo, error) {
	if cfg.IndexName == "" {
		return nil, fmt.Errorf("redis.index_name is required: %w", domain.ErrConfiguration)
	}
	return &Repo{
		store:     s,
		indexName: cfg.IndexName,
		keyPrefix: cfg.KeyPrefix,
		namespace: cfg.Namespace,
	}, nil
}

// Query returns the topK nearest documents. Redis does not report server-side
// latency, so the response carries none.
func (r *Repo) Query(ctx context.Context, vector []float32, topK int) (index.Response, error) {
	q := &db.KNNQuery{
		IndexName:    r.indexName,
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{match.FieldText, match.FieldSource, match.FieldTitle},
	}
	if r.namespace != "" {
		q.Tags = map[string]string{NamespaceField: r.namespace}
	}

	start := time.Now()
	sr, err := r.store.SearchKNN(ctx, q)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		metrics.ObserveRemote(serviceName, "query", "error", elapsed)
		return index.Response{}, mapStoreError(err)
	}
	metrics.ObserveRemote(serviceName, "query", "success", elapsed)

	matches := make([]match.Match, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		m, err := match.New(strings.TrimPrefix(entry.Key, r.keyPrefix), entry.Score, toMetadata(entry.Fields))
		if err != nil {
			return index.Response{}, domain.ContractViolation(serviceName, "document %s: %v", entry.Key, err)
		}
		matches = append(matches, m)
	}

	return index.Response{Matches: matches}, nil
}

// HealthCheck pings the store and verifies the index exists.
func (r *Repo) HealthCheck(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return err
	}
	ok, err := r.store.IndexExists(ctx, r.indexName)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", r.indexName, db.ErrIndexNotFound)
	}
	return nil
}

func toMetadata(fields map[string]string) map[string]any {
	md := make(map[string]any, len(fields))
	for k, v := range fields {
		md[k] = v
	}
	return md
}

func mapStoreError(err error) error {
	if errors.Is(err, db.ErrIndexNotFound) {
		return domain.NewRejectedError(serviceName, "query", 0, err.Error())
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s query: %w", serviceName, err)
	}
	return domain.NewServiceError(serviceName, "query", 0, err.Error())
}
