package chat

import (
	"context"

	"github.com/kailas-cloud/ragchat/internal/domain/search/result"
)

// Searcher runs the retrieval pipeline.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) (result.Result, error)
}

// Completer returns a language model reply to a system prompt and a user message.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
