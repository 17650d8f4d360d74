// Package transport carries messages between the curation core and the outside:
// inbound operator acknowledgments through Hub, outbound messages through Webhook
// or LogSink.
package transport

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/mohammad-safakhou/curator/models"
)

type waiter[T any] struct {
	match func(T) bool
	ch    chan T
}

type waitSet[T any] struct {
	next    uint64
	waiters map[uint64]*waiter[T]
}

func newWaitSet[T any]() *waitSet[T] {
	return &waitSet[T]{waiters: make(map[uint64]*waiter[T])}
}

// Hub fans inbound replies and gestures out to filtered waits. Each event goes
// to at most one waiter, the oldest whose filter matches; unmatched events are
// dropped. A wait whose ctx ends is withdrawn under the same lock deliveries
// take, so a cancelled wait never receives anything after it returns.
type Hub struct {
	mu       sync.Mutex
	replies  *waitSet[models.Reply]
	gestures *waitSet[models.Gesture]
	Logger   *log.Logger
}

func NewHub() *Hub {
	return &Hub{
		replies:  newWaitSet[models.Reply](),
		gestures: newWaitSet[models.Gesture](),
		Logger:   log.New(log.Writer(), "[HUB] ", log.LstdFlags),
	}
}

func (h *Hub) logger() *log.Logger {
	if h.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return h.Logger
}

func (h *Hub) WaitReply(ctx context.Context, match func(models.Reply) bool) (models.Reply, error) {
	return wait(ctx, &h.mu, h.replies, match)
}

func (h *Hub) WaitGesture(ctx context.Context, match func(models.Gesture) bool) (models.Gesture, error) {
	return wait(ctx, &h.mu, h.gestures, match)
}

// DeliverReply reports whether a waiter took r.
func (h *Hub) DeliverReply(r models.Reply) bool {
	ok := deliver(&h.mu, h.replies, r)
	if !ok {
		h.logger().Printf("reply from %s in %s matched no waiter", r.SenderID, r.ChannelID)
	}
	return ok
}

// DeliverGesture reports whether a waiter took g.
func (h *Hub) DeliverGesture(g models.Gesture) bool {
	ok := deliver(&h.mu, h.gestures, g)
	if !ok {
		h.logger().Printf("gesture %s on %s matched no waiter", g.Emoji, g.MessageRef)
	}
	return ok
}

// Pending returns the number of registered reply and gesture waits.
func (h *Hub) Pending() (replies, gestures int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.replies.waiters), len(h.gestures.waiters)
}

func wait[T any](ctx context.Context, mu *sync.Mutex, set *waitSet[T], match func(T) bool) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, context.Cause(ctx)
	}
	w := &waiter[T]{match: match, ch: make(chan T, 1)}
	mu.Lock()
	set.next++
	id := set.next
	set.waiters[id] = w
	mu.Unlock()

	select {
	case v := <-w.ch:
		return v, nil
	case <-ctx.Done():
		mu.Lock()
		delete(set.waiters, id)
		mu.Unlock()
		return zero, context.Cause(ctx)
	}
}

func deliver[T any](mu *sync.Mutex, set *waitSet[T], v T) bool {
	mu.Lock()
	defer mu.Unlock()
	var (
		bestID uint64
		best   *waiter[T]
	)
	for id, w := range set.waiters {
		if (best == nil || id < bestID) && w.match(v) {
			bestID, best = id, w
		}
	}
	if best == nil {
		return false
	}
	delete(set.waiters, bestID)
	best.ch <- v
	return true
}
