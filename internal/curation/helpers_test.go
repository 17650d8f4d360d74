package curation

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mohammad-safakhou/curator/internal/transport"
	"github.com/mohammad-safakhou/curator/models"
	"github.com/mohammad-safakhou/curator/news"
	"github.com/mohammad-safakhou/curator/repository/memory_repository"
)

var operator = models.Requester{OperatorID: "op", ChannelID: "chan"}

func candidate(name string) models.Candidate {
	return models.Candidate{
		Title:      name,
		SourceLink: "https://redd.it/" + name,
		MediaURL:   "https://i.redd.it/" + name + ".png",
	}
}

// scriptSource returns script entries in order, then fresh unique candidates.
type scriptSource struct {
	mu     sync.Mutex
	calls  int
	script []any
}

func (s *scriptSource) FetchOne(_ context.Context, _ string) (models.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.script) > 0 {
		next := s.script[0]
		s.script = s.script[1:]
		switch v := next.(type) {
		case models.Candidate:
			return v, nil
		case error:
			return models.Candidate{}, v
		}
	}
	return candidate(fmt.Sprintf("fresh-%d", s.calls)), nil
}

func (s *scriptSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var _ news.Source = (*scriptSource)(nil)

type sent struct {
	ref models.MessageRef
	msg models.Message
}

// recorder is both the notifier and the publisher.
type recorder struct {
	mu         sync.Mutex
	n          int
	sent       []sent
	published  []models.Message
	publishErr error
}

func (r *recorder) Send(_ context.Context, _ models.Requester, msg models.Message) (models.MessageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n++
	ref := models.MessageRef(fmt.Sprintf("m%d", r.n))
	r.sent = append(r.sent, sent{ref: ref, msg: msg})
	return ref, nil
}

func (r *recorder) Publish(_ context.Context, msg models.Message) (models.MessageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.publishErr != nil {
		return "", r.publishErr
	}
	r.published = append(r.published, msg)
	return "p", nil
}

func (r *recorder) Published() []models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Message(nil), r.published...)
}

// countText counts sent text messages containing substr.
func (r *recorder) countText(substr string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sent {
		if s.msg.Text != "" && strings.Contains(s.msg.Text, substr) {
			n++
		}
	}
	return n
}

// refFor returns the ref of the most recent item message with the given title.
func (r *recorder) refFor(t *testing.T, index int, title string) models.MessageRef {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	want := fmt.Sprintf("%d. %s", index, title)
	for i := len(r.sent) - 1; i >= 0; i-- {
		if e := r.sent[i].msg.Embed; e != nil && e.Title == want {
			return r.sent[i].ref
		}
	}
	t.Fatalf("no item message %q sent", want)
	return ""
}

type harness struct {
	m      *Manager
	hub    *transport.Hub
	rec    *recorder
	window *memory_repository.DedupWindow
	src    *scriptSource
}

func newHarness(t *testing.T, src *scriptSource, gestures bool, settings Settings) *harness {
	t.Helper()
	quiet := log.New(io.Discard, "", 0)
	hub := transport.NewHub()
	hub.Logger = quiet
	window := memory_repository.NewDedupWindow(time.UTC, nil)
	fetcher := NewBatchFetcher(src, window, 3)
	fetcher.Logger = quiet
	rec := &recorder{}
	if settings.BatchSize == 0 {
		settings.BatchSize = 3
	}
	if settings.Timeout == 0 {
		settings.Timeout = time.Minute
	}
	m := NewManager(fetcher, NewArbiter(hub, gestures), rec, rec, window, settings)
	m.Logger = quiet
	t.Cleanup(m.Close)
	return &harness{m: m, hub: hub, rec: rec, window: window, src: src}
}

// reply delivers text from the operator once a wait is armed for it.
func (h *harness) reply(t *testing.T, text string) {
	t.Helper()
	r := models.Reply{SenderID: operator.OperatorID, ChannelID: operator.ChannelID, Text: text}
	eventually(t, func() bool { return h.hub.DeliverReply(r) }, "reply %q never consumed", text)
}

func eventually(t *testing.T, cond func() bool, format string, args ...any) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf(format, args...)
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session %s never terminated (status %s)", s.ID, s.Status())
	}
}
