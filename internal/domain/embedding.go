package domain

// EmbeddingResult carries the embedding vector and token usage returned by a provider.
type EmbeddingResult struct {
	Embedding   []float32
	TotalTokens int
}

// Embedding input parameters sent to inference providers that support them.
const (
	EmbedInputTypePassage = "passage"
	EmbedTruncateEnd      = "END"
)
