package curation

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/mohammad-safakhou/curator/models"
	"github.com/mohammad-safakhou/curator/news"
)

// Dedup is the daily identity window the fetcher filters through.
type Dedup interface {
	Seen(ctx context.Context, id string) (bool, error)
	MarkSeen(ctx context.Context, id string) (bool, error)
}

// DefaultRetryMultiplier bounds attempts to size*3 calls per batch.
const DefaultRetryMultiplier = 3

// BatchFetcher assembles deduplicated batches from a flaky source.
type BatchFetcher struct {
	Source          news.Source
	Dedup           Dedup
	RetryMultiplier int
	Logger          *log.Logger
	Metrics         *Metrics
}

func NewBatchFetcher(source news.Source, dedup Dedup, multiplier int) *BatchFetcher {
	if multiplier <= 0 {
		multiplier = DefaultRetryMultiplier
	}
	return &BatchFetcher{
		Source:          source,
		Dedup:           dedup,
		RetryMultiplier: multiplier,
		Logger:          log.New(log.Writer(), "[FETCH] ", log.LstdFlags),
	}
}

func (f *BatchFetcher) logger() *log.Logger {
	if f.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return f.Logger
}

// FetchBatch makes up to size*RetryMultiplier source calls and returns up to
// size candidates whose identity had not been seen today. Accepted identities
// are marked seen immediately. A failed call costs one attempt. Zero accepted
// candidates is an *EmptyBatchError.
func (f *BatchFetcher) FetchBatch(ctx context.Context, size int, category string) (models.Batch, error) {
	if size <= 0 {
		size = 1
	}
	multiplier := f.RetryMultiplier
	if multiplier <= 0 {
		multiplier = DefaultRetryMultiplier
	}
	budget := size * multiplier

	items := make([]models.Candidate, 0, size)
	attempts := 0
	for attempts < budget && len(items) < size {
		if err := ctx.Err(); err != nil {
			return models.Batch{}, context.Cause(ctx)
		}
		attempts++
		c, err := f.Source.FetchOne(ctx, category)
		if err != nil {
			if ctx.Err() != nil {
				return models.Batch{}, context.Cause(ctx)
			}
			f.transient(&FetchError{Attempt: attempts, Err: err})
			continue
		}
		id := c.Identity()
		if id == "" {
			f.transient(&FetchError{Attempt: attempts, Err: errors.New("candidate without media url")})
			continue
		}
		seen, err := f.Dedup.Seen(ctx, id)
		if err != nil {
			f.transient(&FetchError{Attempt: attempts, Err: err})
			continue
		}
		if seen {
			f.Metrics.fetchAttempt("duplicate")
			continue
		}
		added, err := f.Dedup.MarkSeen(ctx, id)
		if err != nil {
			f.transient(&FetchError{Attempt: attempts, Err: err})
			continue
		}
		if !added {
			f.Metrics.fetchAttempt("duplicate")
			continue
		}
		f.Metrics.fetchAttempt("accepted")
		items = append(items, c)
	}

	if len(items) == 0 {
		return models.Batch{}, &EmptyBatchError{Attempts: attempts, Category: category}
	}
	if len(items) < size {
		f.logger().Printf("partial batch: %d/%d after %d attempts (category=%q)", len(items), size, attempts, category)
	}
	return models.NewBatch(items), nil
}

func (f *BatchFetcher) transient(err *FetchError) {
	f.Metrics.fetchAttempt("error")
	f.logger().Printf("%v", err)
}
