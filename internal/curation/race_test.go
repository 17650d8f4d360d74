package curation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRaceFirstSuccessWins(t *testing.T) {
	var loserExited atomic.Bool
	fast := func(ctx context.Context) (string, error) { return "fast", nil }
	slow := func(ctx context.Context) (string, error) {
		defer loserExited.Store(true)
		<-ctx.Done()
		return "", ctx.Err()
	}
	v, idx, err := Race[string](context.Background(), slow, fast)
	if err != nil {
		t.Fatalf("Race: %v", err)
	}
	if v != "fast" || idx != 1 {
		t.Fatalf("got (%q,%d)", v, idx)
	}
	if !loserExited.Load() {
		t.Fatalf("losing branch still running after Race returned")
	}
}

func TestRaceFailedBranchDropsOut(t *testing.T) {
	boom := errors.New("boom")
	failing := func(ctx context.Context) (int, error) { return 0, boom }
	late := func(ctx context.Context) (int, error) {
		select {
		case <-time.After(10 * time.Millisecond):
			return 7, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	v, idx, err := Race[int](context.Background(), failing, late)
	if err != nil || v != 7 || idx != 1 {
		t.Fatalf("got (%d,%d,%v)", v, idx, err)
	}

	_, _, err = Race[int](context.Background(), failing)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom when every branch fails, got %v", err)
	}
}

func TestRaceParentCancelReturnsCause(t *testing.T) {
	cause := errors.New("stopped")
	ctx, cancel := context.WithCancelCause(context.Background())
	block := func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, context.Cause(ctx)
	}
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel(cause)
	}()
	_, idx, err := Race[int](ctx, block, block)
	if !errors.Is(err, cause) || idx != -1 {
		t.Fatalf("expected cause, got (%d,%v)", idx, err)
	}
}

func TestRaceCancelBeatsDelivery(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	cause := errors.New("superseded")
	// the branch resolves only after observing the cancellation
	resolvesLate := func(bctx context.Context) (int, error) {
		<-ctx.Done()
		return 1, nil
	}
	cancel(cause)
	if _, _, err := Race[int](ctx, resolvesLate); !errors.Is(err, cause) {
		t.Fatalf("expected cancellation to win, got %v", err)
	}
}

func TestRaceNoBranches(t *testing.T) {
	if _, _, err := Race[int](context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
