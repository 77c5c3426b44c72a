package chi

import (
	"encoding/json"
	"io"

	"github.com/kailas-cloud/ragchat/internal/domain/match"
	"github.com/kailas-cloud/ragchat/internal/domain/search/result"
	chatuc "github.com/kailas-cloud/ragchat/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/ragchat/internal/usecase/health"
)

type matchDTO struct {
	ID          string         `json:"id"`
	Score       float64        `json:"score"`
	Metadata    map[string]any `json:"metadata"`
	RerankScore *float64       `json:"rerank_score,omitempty"`
}

type searchResponseDTO struct {
	VectorResults    []matchDTO `json:"vector_results"`
	RerankedResults  []matchDTO `json:"reranked_results"`
	AllVectorResults []matchDTO `json:"all_vector_results"`
	Latency          float64    `json:"latency"`
}

type chatResponseDTO struct {
	VectorResponse   string     `json:"vectorResponse"`
	RerankedResponse string     `json:"rerankedResponse"`
	AllVectorResults []matchDTO `json:"all_vector_results"`
	RerankedResults  []matchDTO `json:"reranked_results"`
}

type healthResponseDTO struct {
	Status string                          `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

type errorResponseDTO struct {
	Detail string `json:"detail"`
}

func searchResultToDTO(r *result.Result) searchResponseDTO {
	return searchResponseDTO{
		VectorResults:    matchesToDTO(r.VectorResults()),
		RerankedResults:  matchesToDTO(r.RerankedResults()),
		AllVectorResults: matchesToDTO(r.AllVectorResults()),
		Latency:          r.Latency(),
	}
}

// matchesToDTO never returns nil so empty sets encode as [].
func matchesToDTO(matches []match.Match) []matchDTO {
	out := make([]matchDTO, len(matches))
	for i := range matches {
		m := &matches[i]
		out[i] = matchDTO{
			ID:       m.ID(),
			Score:    m.Score(),
			Metadata: m.Metadata(),
		}
		if s, ok := m.RerankScore(); ok {
			out[i].RerankScore = &s
		}
	}
	return out
}

func chatReplyToDTO(r *chatuc.Reply) chatResponseDTO {
	return chatResponseDTO{
		VectorResponse:   r.VectorResponse,
		RerankedResponse: r.RerankedResponse,
		AllVectorResults: matchesToDTO(r.AllVectorResults),
		RerankedResults:  matchesToDTO(r.RerankedResults),
	}
}

// EncodeSearchResult writes r as indented JSON in the /api/search response shape.
func EncodeSearchResult(w io.Writer, r *result.Result) error {
	return encodeIndented(w, searchResultToDTO(r))
}

// EncodeChatReply writes r as indented JSON in the /api/chat response shape.
func EncodeChatReply(w io.Writer, r *chatuc.Reply) error {
	return encodeIndented(w, chatReplyToDTO(r))
}

func encodeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
