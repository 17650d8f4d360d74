package memory_repository

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func TestDedupWindowMarkAndSeen(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	w := NewDedupWindow(time.UTC, clock.Now)

	if seen, _ := w.Seen(ctx, "a"); seen {
		t.Fatalf("fresh window should not have seen a")
	}
	added, _ := w.MarkSeen(ctx, "a")
	if !added {
		t.Fatalf("first MarkSeen should add")
	}
	added, _ = w.MarkSeen(ctx, "a")
	if added {
		t.Fatalf("second MarkSeen should report duplicate")
	}
	if seen, _ := w.Seen(ctx, "a"); !seen {
		t.Fatalf("expected a to be seen")
	}
}

func TestDedupWindowRollsOverAtMidnight(t *testing.T) {
	ctx := context.Background()
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	clock := &fakeClock{t: time.Date(2024, 5, 1, 23, 59, 0, 0, paris)}
	w := NewDedupWindow(paris, clock.Now)
	_, _ = w.MarkSeen(ctx, "a")
	if w.Len() != 1 {
		t.Fatalf("expected one entry")
	}

	clock.Set(time.Date(2024, 5, 2, 0, 1, 0, 0, paris))
	if seen, _ := w.Seen(ctx, "a"); seen {
		t.Fatalf("day rollover should clear the window")
	}
	if w.Day() != "2024-05-02" {
		t.Fatalf("expected window day to advance, got %s", w.Day())
	}
}

func TestDedupWindowUsesConfiguredZone(t *testing.T) {
	ctx := context.Background()
	paris, _ := time.LoadLocation("Europe/Paris")
	// 22:30 UTC is already the next day in Paris during summer time.
	clock := &fakeClock{t: time.Date(2024, 5, 1, 21, 0, 0, 0, time.UTC)}
	w := NewDedupWindow(paris, clock.Now)
	_, _ = w.MarkSeen(ctx, "a")
	clock.Set(time.Date(2024, 5, 1, 22, 30, 0, 0, time.UTC))
	if seen, _ := w.Seen(ctx, "a"); seen {
		t.Fatalf("expected rollover at Paris midnight")
	}
}

func TestDedupWindowConcurrentMarkSingleWinner(t *testing.T) {
	ctx := context.Background()
	w := NewDedupWindow(time.UTC, nil)
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if added, _ := w.MarkSeen(ctx, "same"); added {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}
