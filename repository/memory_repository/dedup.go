package memory_repository

import (
	"context"
	"sync"
	"time"
)

const dayLayout = "2006-01-02"

// DedupWindow is the process-wide set of identities surfaced on one calendar day.
// The seen set and its day always change together under mu.
type DedupWindow struct {
	mu   sync.Mutex
	seen map[string]struct{}
	day  string
	loc  *time.Location
	now  func() time.Time
}

// NewDedupWindow builds a window whose day boundaries follow loc.
// now defaults to time.Now and exists so tests can move the clock.
func NewDedupWindow(loc *time.Location, now func() time.Time) *DedupWindow {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	w := &DedupWindow{seen: make(map[string]struct{}), loc: loc, now: now}
	w.day = w.today()
	return w
}

func (w *DedupWindow) today() string {
	return w.now().In(w.loc).Format(dayLayout)
}

// rollLocked clears the set when the day changed. Caller holds mu.
func (w *DedupWindow) rollLocked() {
	if day := w.today(); day != w.day {
		w.seen = make(map[string]struct{})
		w.day = day
	}
}

func (w *DedupWindow) Seen(_ context.Context, id string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rollLocked()
	_, ok := w.seen[id]
	return ok, nil
}

func (w *DedupWindow) MarkSeen(_ context.Context, id string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rollLocked()
	if _, ok := w.seen[id]; ok {
		return false, nil
	}
	w.seen[id] = struct{}{}
	return true, nil
}

// Day returns the calendar date the window currently covers.
func (w *DedupWindow) Day() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.day
}

// Len returns the number of identities seen today.
func (w *DedupWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rollLocked()
	return len(w.seen)
}
