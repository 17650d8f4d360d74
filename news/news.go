package news

import (
	"context"

	"github.com/mohammad-safakhou/curator/models"
)

// Source is a content feed returning one candidate per call.
// Implementations may be slow, flaky, and return duplicates.
type Source interface {
	FetchOne(ctx context.Context, category string) (models.Candidate, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, category string) (models.Candidate, error)

func (f SourceFunc) FetchOne(ctx context.Context, category string) (models.Candidate, error) {
	return f(ctx, category)
}
