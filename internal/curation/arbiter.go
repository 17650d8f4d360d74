package curation

import (
	"context"
	"errors"
	"time"

	"github.com/mohammad-safakhou/curator/models"
)

// Acknowledgments is the inbound side of the transport: filtered waits that
// return when a matching event arrives or ctx is done. A transport without
// gesture support returns models.ErrGesturesUnsupported from WaitGesture.
type Acknowledgments interface {
	WaitReply(ctx context.Context, match func(models.Reply) bool) (models.Reply, error)
	WaitGesture(ctx context.Context, match func(models.Gesture) bool) (models.Gesture, error)
}

// Arbiter resolves the first of {typed reply, gesture, timeout} for a session.
type Arbiter struct {
	Acks     Acknowledgments
	Gestures bool
}

func NewArbiter(acks Acknowledgments, gestures bool) *Arbiter {
	return &Arbiter{Acks: acks, Gestures: gestures}
}

// AwaitDecision blocks until exactly one decision is resolved. The losing
// registrations are withdrawn before it returns. If ctx is cancelled first
// (session stopped or superseded) the cause is returned and no decision is.
func (a *Arbiter) AwaitDecision(ctx context.Context, s *Session, timeout time.Duration) (Decision, error) {
	branches := []Branch[Decision]{a.replyBranch(s), timerBranch(timeout)}
	if a.Gestures && s.hasRefs() {
		branches = append(branches, a.gestureBranch(s))
	}
	d, _, err := Race(ctx, branches...)
	if err != nil {
		return Decision{}, err
	}
	return d, nil
}

func (a *Arbiter) replyBranch(s *Session) Branch[Decision] {
	req := s.Requester
	return func(ctx context.Context) (Decision, error) {
		r, err := a.Acks.WaitReply(ctx, func(r models.Reply) bool {
			return r.SenderID == req.OperatorID && r.ChannelID == req.ChannelID
		})
		if err != nil {
			return Decision{}, err
		}
		return ParseCommand(r.Text), nil
	}
}

func (a *Arbiter) gestureBranch(s *Session) Branch[Decision] {
	operator := s.Requester.OperatorID
	return func(ctx context.Context) (Decision, error) {
		g, err := a.Acks.WaitGesture(ctx, func(g models.Gesture) bool {
			return g.SenderID == operator && s.itemForRef(g.MessageRef) > 0
		})
		if err != nil {
			if errors.Is(err, models.ErrGesturesUnsupported) {
				// park until the race ends so the other branches decide
				<-ctx.Done()
				return Decision{}, context.Cause(ctx)
			}
			return Decision{}, err
		}
		d := Approve(s.itemForRef(g.MessageRef))
		d.Via = ViaGesture
		d.Raw = g.Emoji
		return d, nil
	}
}

func timerBranch(timeout time.Duration) Branch[Decision] {
	return func(ctx context.Context) (Decision, error) {
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-t.C:
			return Decision{Kind: DecisionTimeout, Via: ViaTimer}, nil
		case <-ctx.Done():
			return Decision{}, context.Cause(ctx)
		}
	}
}
