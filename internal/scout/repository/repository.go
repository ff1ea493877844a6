package repository

import (
	"context"
	"errors"

	"edtech-market-scout/internal/scout/dto"
)

// ErrNotFound is returned when a requested session or company does not
// exist. The delivery layer maps it to a 404.
var ErrNotFound = errors.New("not found")

// ErrAIUnavailable classifies language model failures (missing key, auth,
// quota, transport, provider error) as distinct from a successful reply
// that fails to parse. Callers abort or fall back on this error; parse
// failures instead degrade to a placeholder payload.
var ErrAIUnavailable = errors.New("language model unavailable")

// AIRepository wraps the chat-completion provider.
type AIRepository interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// SearchRepository wraps the web search provider. Implementations fail
// silently: on any provider error the result slice is empty and err is
// nil, because search is advisory grounding rather than a correctness
// dependency.
type SearchRepository interface {
	Search(ctx context.Context, query string, limit int) ([]dto.SearchResult, error)
}
