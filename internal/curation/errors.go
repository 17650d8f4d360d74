package curation

import (
	"errors"
	"fmt"

	"github.com/mohammad-safakhou/curator/models"
)

var (
	// ErrSessionSuperseded marks a session replaced by a newer StartSession.
	// Decisions that arrive for it are dropped without telling the operator.
	ErrSessionSuperseded = errors.New("session superseded")
	// ErrSessionStopped is the cancellation cause used by Stop.
	ErrSessionStopped  = errors.New("session stopped")
	ErrNoActiveSession = errors.New("no active session")
	ErrManagerClosed   = errors.New("session manager closed")
)

// FetchError is one failed content-source call. It costs a single attempt
// from the batch budget and is never shown to the operator.
type FetchError struct {
	Attempt int
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch attempt %d: %v", e.Attempt, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// EmptyBatchError reports an exhausted budget with nothing accepted.
type EmptyBatchError struct {
	Attempts int
	Category string
}

func (e *EmptyBatchError) Error() string {
	if e.Category != "" {
		return fmt.Sprintf("no new candidates in %q after %d attempts", e.Category, e.Attempts)
	}
	return fmt.Sprintf("no new candidates after %d attempts", e.Attempts)
}

func (e *EmptyBatchError) Unwrap() error { return models.ErrEmptyBatch }

// SelectionError is an approval the batch can't satisfy: either the text did
// not parse (Index == 0) or the index is outside 1..Size.
type SelectionError struct {
	Input string
	Index int
	Size  int
}

func (e *SelectionError) Error() string {
	if e.Index == 0 {
		return fmt.Sprintf("malformed input %q", e.Input)
	}
	return fmt.Sprintf("selection %d out of range 1..%d", e.Index, e.Size)
}

// OutOfRange distinguishes a bad index from unparseable input.
func (e *SelectionError) OutOfRange() bool { return e.Index != 0 }

// PublishError wraps a failed destination write. Publishing is not retried.
type PublishError struct {
	Candidate models.Candidate
	Err       error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %q: %v", e.Candidate.Title, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
