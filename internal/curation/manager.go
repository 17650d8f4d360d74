package curation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mohammad-safakhou/curator/models"
)

// State is the manager-level view of the single session slot.
type State string

const (
	StateIdle             State = "idle"
	StatePresenting       State = "presenting"
	StateAwaitingDecision State = "awaiting_decision"
)

// Settings tunes a Manager.
type Settings struct {
	BatchSize       int
	Timeout         time.Duration
	RepromptTimeout time.Duration
	PublishTimeout  time.Duration
	// Footer is attached to every published item.
	Footer string
}

func (s Settings) withDefaults() Settings {
	if s.BatchSize <= 0 {
		s.BatchSize = 5
	}
	if s.Timeout <= 0 {
		s.Timeout = time.Hour
	}
	if s.RepromptTimeout <= 0 {
		s.RepromptTimeout = s.Timeout
	}
	if s.PublishTimeout <= 0 {
		s.PublishTimeout = 30 * time.Second
	}
	return s
}

// run is one StartSession invocation: the initial session plus every
// session requeued from it by a reject. Cancelling ctx ends the run.
type run struct {
	ctx       context.Context
	cancel    context.CancelCauseFunc
	done      chan struct{}
	requester models.Requester
	category  string

	session *Session // guarded by Manager.mu
}

// Manager owns the single active session slot. StartSession and Stop are the
// only ways in; everything else happens on the run's goroutine.
type Manager struct {
	fetcher   *BatchFetcher
	arbiter   *Arbiter
	notifier  Notifier
	publisher Publisher
	dedup     Dedup
	settings  Settings

	Logger  *log.Logger
	Metrics *Metrics

	mu     sync.Mutex
	active *run
	closed bool
}

func NewManager(fetcher *BatchFetcher, arbiter *Arbiter, notifier Notifier, publisher Publisher, dedup Dedup, settings Settings) *Manager {
	return &Manager{
		fetcher:   fetcher,
		arbiter:   arbiter,
		notifier:  notifier,
		publisher: publisher,
		dedup:     dedup,
		settings:  settings.withDefaults(),
		Logger:    log.New(log.Writer(), "[CURATE] ", log.LstdFlags),
	}
}

// StartSession supersedes any active session, fetches a fresh batch, presents
// it, and leaves the session awaiting a decision in the background.
//
// The previous session is fully torn down (arbiter registrations withdrawn)
// before the new batch is fetched, so none of its decisions can land on the
// new one. An exhausted budget notifies the requester and returns an error
// wrapping models.ErrEmptyBatch; the manager is then idle.
func (m *Manager) StartSession(ctx context.Context, req models.Requester, category string) (*Session, error) {
	runCtx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))
	r := &run{ctx: runCtx, cancel: cancel, done: make(chan struct{}), requester: req, category: category}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel(ErrManagerClosed)
		return nil, ErrManagerClosed
	}
	old := m.active
	m.active = r
	m.mu.Unlock()

	if old != nil {
		old.cancel(ErrSessionSuperseded)
		<-old.done
	}

	s, err := m.present(r)
	if err != nil {
		m.release(r)
		return nil, err
	}
	go m.loop(r, s)
	return s, nil
}

// Stop ends the active session as discarded, whatever it is waiting on, and
// returns once its resources are released. The requester gets the same notice
// as for a typed stop unless the session finished on its own first.
func (m *Manager) Stop() error {
	m.mu.Lock()
	r := m.active
	m.mu.Unlock()
	if r == nil {
		return ErrNoActiveSession
	}
	r.cancel(ErrSessionStopped)
	<-r.done

	if !errors.Is(context.Cause(r.ctx), ErrSessionStopped) {
		return nil
	}
	m.mu.Lock()
	s := r.session
	m.mu.Unlock()
	if s == nil || s.Outcome() == OutcomeDiscarded {
		ctx, cancel := context.WithTimeout(context.Background(), m.settings.PublishTimeout)
		defer cancel()
		m.notify(ctx, r, textMessage(stoppedNotice))
	}
	return nil
}

// Close stops the active session and refuses new ones.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	r := m.active
	m.mu.Unlock()
	if r != nil {
		r.cancel(ErrManagerClosed)
		<-r.done
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return StateIdle
	}
	if m.active.session == nil {
		return StatePresenting
	}
	switch m.active.session.Status() {
	case StatusPresenting:
		return StatePresenting
	case StatusAwaitingDecision:
		return StateAwaitingDecision
	}
	// terminated and about to requeue or release
	return StatePresenting
}

// Current returns a snapshot of the active session.
func (m *Manager) Current() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || m.active.session == nil {
		return Snapshot{}, false
	}
	return m.active.session.Snapshot(), true
}

// present fetches a batch, installs a new session on r and sends it.
func (m *Manager) present(r *run) (*Session, error) {
	batch, err := m.fetcher.FetchBatch(r.ctx, m.settings.BatchSize, r.category)
	if err != nil {
		if r.ctx.Err() != nil {
			return nil, context.Cause(r.ctx)
		}
		if errors.Is(err, models.ErrEmptyBatch) {
			m.Logger.Printf("%s: %v", r.requester, err)
			m.notify(r.ctx, r, textMessage("Sorry, couldn't fetch any new candidates right now."))
		}
		return nil, err
	}

	s := newSession(r.requester, r.category, batch)
	m.mu.Lock()
	if m.active != r || r.ctx.Err() != nil {
		m.mu.Unlock()
		return nil, context.Cause(r.ctx)
	}
	r.session = s
	m.mu.Unlock()

	refs, err := m.send(r.ctx, s)
	if err != nil {
		if r.ctx.Err() != nil {
			err = context.Cause(r.ctx)
		}
		m.end(s, outcomeFor(err), nil)
		return nil, fmt.Errorf("present batch: %w", err)
	}
	s.setPresented(refs)
	m.Metrics.sessionStarted()
	m.Logger.Printf("session %s: presented %d items to %s (category=%q)", s.ID, batch.Len(), r.requester, r.category)
	return s, nil
}

// send delivers the header and one unit per item; refs[i] belongs to item i+1.
func (m *Manager) send(ctx context.Context, s *Session) ([]models.MessageRef, error) {
	if _, err := m.notifier.Send(ctx, s.Requester, batchHeader(s.Batch, s.Category, m.arbiter.Gestures)); err != nil {
		return nil, err
	}
	items := s.Batch.Items()
	refs := make([]models.MessageRef, 0, len(items))
	for i, c := range items {
		ref, err := m.notifier.Send(ctx, s.Requester, itemMessage(i+1, c))
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// loop waits for decisions and applies them until the run ends. Requeues
// replace s in place instead of recursing.
func (m *Manager) loop(r *run, s *Session) {
	defer m.release(r)
	timeout := m.settings.Timeout
	for s != nil {
		armed := time.Now()
		d, err := m.arbiter.AwaitDecision(r.ctx, s, timeout)
		if err != nil {
			if r.ctx.Err() == nil {
				m.Logger.Printf("session %s: await decision: %v", s.ID, err)
			}
			m.end(s, outcomeFor(context.Cause(r.ctx)), nil)
			return
		}
		if !m.current(r) {
			m.Metrics.staleDecision()
			m.Logger.Printf("session %s: dropping %s for inactive session", s.ID, d)
			m.end(s, outcomeFor(context.Cause(r.ctx)), nil)
			return
		}
		m.Metrics.decision(d, armed)
		s, timeout = m.resolve(r, s, d)
	}
}

// resolve applies one decision to s. It returns the session to keep waiting
// on with the window to arm, or nil when the run is over.
func (m *Manager) resolve(r *run, s *Session, d Decision) (*Session, time.Duration) {
	switch d.Kind {
	case DecisionApprove:
		c, ok := s.Batch.Item(d.Index)
		if !ok {
			m.notify(r.ctx, r, selectionNotice(&SelectionError{Input: d.Raw, Index: d.Index, Size: s.Batch.Len()}))
			return s, m.settings.RepromptTimeout
		}
		m.publish(r, s, c)
		return nil, 0
	case DecisionMalformed:
		m.notify(r.ctx, r, selectionNotice(&SelectionError{Input: d.Raw, Size: s.Batch.Len()}))
		return s, m.settings.RepromptTimeout
	case DecisionReject:
		m.end(s, OutcomeRequeued, nil)
		m.notify(r.ctx, r, textMessage("Okay, fetching a new batch..."))
		next, err := m.present(r)
		if err != nil {
			if r.ctx.Err() == nil && !errors.Is(err, models.ErrEmptyBatch) {
				m.Logger.Printf("requeue for %s: %v", r.requester, err)
			}
			return nil, 0
		}
		return next, m.settings.Timeout
	case DecisionStop:
		m.notify(r.ctx, r, textMessage(stoppedNotice))
		m.end(s, OutcomeDiscarded, nil)
		return nil, 0
	case DecisionTimeout:
		m.notify(r.ctx, r, textMessage("⌛ Timeout: no response, cancelling this selection."))
		m.end(s, OutcomeExpired, nil)
		return nil, 0
	}
	m.end(s, OutcomeDiscarded, nil)
	return nil, 0
}

// publish writes c once. The write is detached from run cancellation: once a
// decision is accepted it is carried out even if a Stop lands meanwhile.
func (m *Manager) publish(r *run, s *Session, c models.Candidate) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), m.settings.PublishTimeout)
	defer cancel()

	if _, err := m.publisher.Publish(ctx, publishMessage(c, m.settings.Footer)); err != nil {
		perr := &PublishError{Candidate: c, Err: err}
		m.Logger.Printf("session %s: %v", s.ID, perr)
		m.notify(ctx, r, textMessage("Publishing failed: %v", err))
		m.end(s, OutcomePublishFailed, nil)
		return
	}
	if _, err := m.dedup.MarkSeen(ctx, c.Identity()); err != nil {
		m.Logger.Printf("session %s: mark published item seen: %v", s.ID, err)
	}
	m.notify(ctx, r, textMessage("✅ Published to the channel!"))
	m.end(s, OutcomePublished, &c)
}

func (m *Manager) current(r *run) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active == r && r.ctx.Err() == nil
}

func (m *Manager) notify(ctx context.Context, r *run, msg models.Message) {
	if _, err := m.notifier.Send(ctx, r.requester, msg); err != nil && ctx.Err() == nil {
		m.Logger.Printf("notify %s: %v", r.requester, err)
	}
}

func (m *Manager) end(s *Session, o Outcome, published *models.Candidate) {
	if s.terminate(o, published) {
		m.Metrics.outcome(o)
		m.Logger.Printf("session %s: %s", s.ID, o)
	}
}

// release frees the slot if r still holds it and marks r finished.
func (m *Manager) release(r *run) {
	outcome := outcomeFor(context.Cause(r.ctx))
	m.mu.Lock()
	if m.active == r {
		m.active = nil
	}
	s := r.session
	m.mu.Unlock()
	if s != nil {
		m.end(s, outcome, nil)
	}
	r.cancel(nil)
	close(r.done)
}

func outcomeFor(cause error) Outcome {
	if errors.Is(cause, ErrSessionSuperseded) {
		return OutcomeSuperseded
	}
	return OutcomeDiscarded
}
