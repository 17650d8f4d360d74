package curation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mohammad-safakhou/curator/models"
)

// Status is the lifecycle position of a Session.
type Status string

const (
	StatusPresenting       Status = "presenting"
	StatusAwaitingDecision Status = "awaiting_decision"
	StatusTerminated       Status = "terminated"
)

// Outcome records why a Session terminated.
type Outcome string

const (
	OutcomePublished     Outcome = "published"
	OutcomeRequeued      Outcome = "requeued"
	OutcomeDiscarded     Outcome = "discarded"
	OutcomeExpired       Outcome = "expired"
	OutcomeSuperseded    Outcome = "superseded"
	OutcomePublishFailed Outcome = "publish_failed"
)

// Session is one batch awaiting one decision. Batch, requester and category
// never change; only status, outcome and presented refs do.
type Session struct {
	ID        string
	Requester models.Requester
	Category  string
	Batch     models.Batch
	CreatedAt time.Time

	mu        sync.Mutex
	status    Status
	outcome   Outcome
	refs      []models.MessageRef
	published *models.Candidate
	done      chan struct{}
}

func newSession(req models.Requester, category string, batch models.Batch) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Requester: req,
		Category:  category,
		Batch:     batch,
		CreatedAt: time.Now(),
		status:    StatusPresenting,
		done:      make(chan struct{}),
	}
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Outcome is empty until the session terminates.
func (s *Session) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Published returns the candidate that was published, if any.
func (s *Session) Published() (models.Candidate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.published == nil {
		return models.Candidate{}, false
	}
	return *s.published, true
}

// Done is closed once the session reaches a terminal outcome.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) setPresented(refs []models.MessageRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs = append([]models.MessageRef(nil), refs...)
	if s.status == StatusPresenting {
		s.status = StatusAwaitingDecision
	}
}

// itemForRef maps a presented message back to its 1-based item index, or 0.
func (s *Session) itemForRef(ref models.MessageRef) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.refs {
		if r != "" && r == ref {
			return i + 1
		}
	}
	return 0
}

func (s *Session) hasRefs() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.refs {
		if r != "" {
			return true
		}
	}
	return false
}

// terminate is idempotent; the first outcome sticks.
func (s *Session) terminate(o Outcome, published *models.Candidate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusTerminated {
		return false
	}
	s.status = StatusTerminated
	s.outcome = o
	s.published = published
	close(s.done)
	return true
}

// Snapshot is a read-only copy for APIs.
type Snapshot struct {
	ID        string             `json:"id"`
	Status    Status             `json:"status"`
	Outcome   Outcome            `json:"outcome,omitempty"`
	Category  string             `json:"category,omitempty"`
	Items     []models.Candidate `json:"items"`
	CreatedAt time.Time          `json:"created_at"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:        s.ID,
		Status:    s.status,
		Outcome:   s.outcome,
		Category:  s.Category,
		Items:     s.Batch.Items(),
		CreatedAt: s.CreatedAt,
	}
}
