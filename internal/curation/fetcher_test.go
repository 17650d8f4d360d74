package curation

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/mohammad-safakhou/curator/models"
	"github.com/mohammad-safakhou/curator/repository/memory_repository"
)

func quietFetcher(src *scriptSource, dedup Dedup) *BatchFetcher {
	f := NewBatchFetcher(src, dedup, 3)
	f.Logger = log.New(io.Discard, "", 0)
	return f
}

func TestFetchBatchSkipsDuplicates(t *testing.T) {
	a, b, c := candidate("a"), candidate("b"), candidate("c")
	src := &scriptSource{script: []any{a, a, b, a, c}}
	window := memory_repository.NewDedupWindow(time.UTC, nil)

	batch, err := quietFetcher(src, window).FetchBatch(context.Background(), 3, "")
	if err != nil {
		t.Fatalf("FetchBatch: %v", err)
	}
	if batch.Len() != 3 {
		t.Fatalf("expected 3 items, got %d", batch.Len())
	}
	seen := map[string]bool{}
	for _, it := range batch.Items() {
		if seen[it.Identity()] {
			t.Fatalf("duplicate identity %s in batch", it.Identity())
		}
		seen[it.Identity()] = true
		if ok, _ := window.Seen(context.Background(), it.Identity()); !ok {
			t.Fatalf("%s not marked seen", it.Identity())
		}
	}
	if src.Calls() != 5 {
		t.Fatalf("expected 5 source calls, got %d", src.Calls())
	}
}

func TestFetchBatchFullFromUniqueSource(t *testing.T) {
	src := &scriptSource{}
	window := memory_repository.NewDedupWindow(time.UTC, nil)
	batch, err := quietFetcher(src, window).FetchBatch(context.Background(), 5, "")
	if err != nil || batch.Len() != 5 || src.Calls() != 5 {
		t.Fatalf("expected 5 items in 5 calls, got %d items, %d calls, err %v", batch.Len(), src.Calls(), err)
	}
}

func TestFetchBatchPartialWithinBudget(t *testing.T) {
	a, b, c := candidate("a"), candidate("b"), candidate("c")
	flaky := errors.New("timeout")
	script := []any{a, flaky, b, a, c}
	for len(script) < 15 {
		script = append(script, b, flaky)
	}
	src := &scriptSource{script: script}
	window := memory_repository.NewDedupWindow(time.UTC, nil)

	batch, err := quietFetcher(src, window).FetchBatch(context.Background(), 5, "")
	if err != nil {
		t.Fatalf("partial batch must not be an error: %v", err)
	}
	if batch.Len() != 3 {
		t.Fatalf("expected 3 items, got %d", batch.Len())
	}
}

func TestFetchBatchBudgetBoundsCalls(t *testing.T) {
	a := candidate("a")
	script := make([]any, 100)
	for i := range script {
		script[i] = a
	}
	src := &scriptSource{script: script}
	window := memory_repository.NewDedupWindow(time.UTC, nil)

	batch, err := quietFetcher(src, window).FetchBatch(context.Background(), 5, "")
	if err != nil {
		t.Fatalf("FetchBatch: %v", err)
	}
	if batch.Len() != 1 {
		t.Fatalf("expected partial batch of 1, got %d", batch.Len())
	}
	if src.Calls() != 15 {
		t.Fatalf("expected 15 calls (5*3), got %d", src.Calls())
	}
}

func TestFetchBatchEmptyWhenAllSeen(t *testing.T) {
	a := candidate("a")
	script := make([]any, 30)
	for i := range script {
		script[i] = a
	}
	src := &scriptSource{script: script}
	window := memory_repository.NewDedupWindow(time.UTC, nil)
	_, _ = window.MarkSeen(context.Background(), a.Identity())

	_, err := quietFetcher(src, window).FetchBatch(context.Background(), 2, "HarryPotterMemes")
	if !errors.Is(err, models.ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
	var empty *EmptyBatchError
	if !errors.As(err, &empty) || empty.Attempts != 6 || empty.Category != "HarryPotterMemes" {
		t.Fatalf("unexpected error %#v", err)
	}
}

func TestFetchBatchTransientErrorsCostAttempts(t *testing.T) {
	flaky := errors.New("503")
	src := &scriptSource{script: []any{flaky, flaky, flaky, flaky, flaky, candidate("a")}}
	window := memory_repository.NewDedupWindow(time.UTC, nil)

	// budget 1*3 is spent on errors before "a" comes up
	_, err := quietFetcher(src, window).FetchBatch(context.Background(), 1, "")
	if !errors.Is(err, models.ErrEmptyBatch) {
		t.Fatalf("expected empty batch, got %v", err)
	}
	if src.Calls() != 3 {
		t.Fatalf("expected 3 calls, got %d", src.Calls())
	}
}

func TestFetchBatchAcceptsAgainAfterRollover(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	var mu sync.Mutex
	now := time.Date(2024, 3, 10, 23, 30, 0, 0, paris)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	window := memory_repository.NewDedupWindow(paris, clock)
	a := candidate("a")

	f := quietFetcher(&scriptSource{script: []any{a}}, window)
	if _, err := f.FetchBatch(context.Background(), 1, ""); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	f.Source = &scriptSource{script: []any{a, a, a}}
	if _, err := f.FetchBatch(context.Background(), 1, ""); !errors.Is(err, models.ErrEmptyBatch) {
		t.Fatalf("expected duplicate to be rejected same day, got %v", err)
	}

	mu.Lock()
	now = now.Add(time.Hour)
	mu.Unlock()
	f.Source = &scriptSource{script: []any{a}}
	batch, err := f.FetchBatch(context.Background(), 1, "")
	if err != nil || batch.Len() != 1 {
		t.Fatalf("expected a to be accepted after midnight, got %v", err)
	}
}

func TestFetchBatchCancelled(t *testing.T) {
	cause := errors.New("superseded")
	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(cause)
	window := memory_repository.NewDedupWindow(time.UTC, nil)
	if _, err := quietFetcher(&scriptSource{}, window).FetchBatch(ctx, 3, ""); !errors.Is(err, cause) {
		t.Fatalf("expected cancellation cause, got %v", err)
	}
}
