package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/mohammad-safakhou/curator/internal/curation"
	"github.com/mohammad-safakhou/curator/models"
	"github.com/mohammad-safakhou/curator/repository"
)

// SessionStarter is what the daily trigger needs from the manager.
type SessionStarter interface {
	StartSession(ctx context.Context, req models.Requester, category string) (*curation.Session, error)
}

// Scheduler starts a curation session whenever the cron expression fires in
// its timezone. With a Locker, only one replica acts per firing.
type Scheduler struct {
	Manager   SessionStarter
	Notifier  curation.Notifier
	Requester models.Requester
	Category  string
	Locker    repository.Locker
	Interval  time.Duration
	Stop      chan struct{}
	Logger    *log.Logger

	expr *cronexpr.Expression
	loc  *time.Location
	next time.Time
}

func NewScheduler(cronSpec, timezone string, mgr SessionStarter, notifier curation.Notifier, req models.Requester) (*Scheduler, error) {
	expr, err := cronexpr.Parse(cronSpec)
	if err != nil {
		return nil, fmt.Errorf("schedule cron %q: %w", cronSpec, err)
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule timezone %q: %w", timezone, err)
	}
	return &Scheduler{
		Manager:   mgr,
		Notifier:  notifier,
		Requester: req,
		Interval:  time.Minute,
		Stop:      make(chan struct{}),
		Logger:    log.New(log.Writer(), "[SCHED] ", log.LstdFlags),
		expr:      expr,
		loc:       loc,
	}, nil
}

// Next is the next firing time, in the scheduler's timezone.
func (s *Scheduler) Next() time.Time { return s.next }

func (s *Scheduler) Start() {
	s.arm(time.Now())
	ticker := time.NewTicker(s.Interval)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case now := <-ticker.C:
				s.tick(context.Background(), now)
			}
		}
	}()
}

func (s *Scheduler) arm(now time.Time) {
	s.next = s.expr.Next(now.In(s.loc))
	s.Logger.Printf("next daily batch at %s", s.next.Format(time.RFC3339))
}

// tick fires at most once per due time, however late the ticker runs.
func (s *Scheduler) tick(ctx context.Context, now time.Time) bool {
	if s.next.IsZero() || now.Before(s.next) {
		return false
	}
	fireAt := s.next
	s.arm(now)

	if s.Locker != nil {
		ok, err := s.Locker.TryLock(ctx, "daily:"+fireAt.UTC().Format(time.RFC3339), 2*time.Minute)
		if err != nil {
			s.Logger.Printf("lock %s: %v", fireAt.Format(time.RFC3339), err)
			return false
		}
		if !ok {
			s.Logger.Printf("batch for %s already started elsewhere", fireAt.Format(time.RFC3339))
			return false
		}
	}

	if s.Notifier != nil {
		msg := models.Message{Text: fmt.Sprintf("⏰ It's %s, fetching your daily batch!", fireAt.Format("15:04"))}
		if _, err := s.Notifier.Send(ctx, s.Requester, msg); err != nil {
			s.Logger.Printf("notify %s: %v", s.Requester, err)
		}
	}
	if _, err := s.Manager.StartSession(ctx, s.Requester, s.Category); err != nil && !errors.Is(err, models.ErrEmptyBatch) {
		s.Logger.Printf("daily batch: %v", err)
	}
	return true
}
