// Package index holds the vector index query response shared by index providers.
package index

import "github.com/kailas-cloud/ragchat/internal/domain/match"

// Response is a nearest-neighbor query result as returned by the index.
type Response struct {
	// Matches are in the order the index returned them.
	Matches []match.Match
	// Latency is the index-reported query latency in seconds, nil if not reported.
	Latency *float64
}

// LatencyOrZero returns the reported latency, or 0 when the index reported none.
func (r Response) LatencyOrZero() float64 {
	if r.Latency == nil {
		return 0
	}
	return *r.Latency
}
