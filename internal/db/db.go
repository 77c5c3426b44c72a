// Package db declares the storage facade used by the Redis vector index backend.
package db

import (
	"context"
	"time"
)

// Store is the database facade: connectivity, index inspection and KNN search.
type Store interface {
	Pinger
	IndexInspector
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IndexInspector reports whether an FT index exists.
type IndexInspector interface {
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides vector search over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}
