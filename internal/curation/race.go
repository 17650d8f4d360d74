package curation

import (
	"context"
	"errors"
	"sync"
)

var errNoBranches = errors.New("race: no branches")

// Branch is one awaitable in a Race. It must return soon after ctx is done.
type Branch[T any] func(ctx context.Context) (T, error)

type raceResult[T any] struct {
	idx int
	val T
	err error
}

// Race runs every branch on a shared cancellation token and returns the first
// successful result with its branch index. Before Race returns, the token is
// cancelled and every losing branch has exited, so nothing registered by a
// loser can fire afterwards.
//
// Failed branches drop out of the race; if all fail, the first error wins.
// If ctx is cancelled, Race reports context.Cause(ctx) even when a branch
// resolved in the same instant: cancellation beats delivery.
func Race[T any](ctx context.Context, branches ...Branch[T]) (T, int, error) {
	var zero T
	if len(branches) == 0 {
		return zero, -1, errNoBranches
	}
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan raceResult[T], len(branches))
	var wg sync.WaitGroup
	for i, b := range branches {
		wg.Add(1)
		go func(i int, b Branch[T]) {
			defer wg.Done()
			v, err := b(raceCtx)
			results <- raceResult[T]{idx: i, val: v, err: err}
		}(i, b)
	}

	var (
		winner   *raceResult[T]
		firstErr error
	)
	for n := 0; n < len(branches); n++ {
		r := <-results
		if r.err == nil {
			winner = &r
			break
		}
		if firstErr == nil {
			firstErr = r.err
		}
	}
	cancel()
	wg.Wait()

	if ctx.Err() != nil {
		return zero, -1, context.Cause(ctx)
	}
	if winner == nil {
		return zero, -1, firstErr
	}
	return winner.val, winner.idx, nil
}
