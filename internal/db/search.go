package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName string
	// Tags restricts the search to documents whose TAG fields equal the given values.
	Tags         map[string]string
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
