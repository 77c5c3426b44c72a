// Package match defines a single document retrieved from the vector index.
package match

import (
	"fmt"
	"maps"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// Well-known metadata keys.
const (
	FieldText   = "text"
	FieldSource = "source"
	FieldTitle  = "title"
)

// DefaultTitle is shown for matches without a title.
const DefaultTitle = "No title"

// Match is one retrieved passage with its similarity score and metadata.
// A Match is immutable once constructed.
type Match struct {
	id          string
	score       float64
	metadata    map[string]any
	rerankScore *float64
}

// New validates metadata and creates a match.
// text and source must be present as strings; title is optional.
func New(id string, score float64, metadata map[string]any) (Match, error) {
	for _, key := range []string{FieldText, FieldSource} {
		if _, ok := metadata[key].(string); !ok {
			return Match{}, fmt.Errorf("match %q: metadata %q missing: %w", id, key, domain.ErrContractViolation)
		}
	}
	return Match{id: id, score: score, metadata: maps.Clone(metadata)}, nil
}

// ID returns the document identifier.
func (m *Match) ID() string { return m.id }

// Score returns the vector similarity score.
func (m *Match) Score() float64 { return m.score }

// Metadata returns a copy of the match metadata.
func (m *Match) Metadata() map[string]any { return maps.Clone(m.metadata) }

// Text returns the passage content.
func (m *Match) Text() string {
	s, _ := m.metadata[FieldText].(string)
	return s
}

// Source returns the source URL.
func (m *Match) Source() string {
	s, _ := m.metadata[FieldSource].(string)
	return s
}

// Title returns the title, or DefaultTitle if the match has none.
func (m *Match) Title() string {
	if s, ok := m.metadata[FieldTitle].(string); ok && s != "" {
		return s
	}
	return DefaultTitle
}

// RerankScore returns the rerank model score, if the match was reranked.
func (m *Match) RerankScore() (float64, bool) {
	if m.rerankScore == nil {
		return 0, false
	}
	return *m.rerankScore, true
}

// WithRerankScore returns a copy of the match carrying the rerank model score.
func (m Match) WithRerankScore(score float64) Match {
	m.rerankScore = &score
	return m
}
