// Package followup delivers the 24-hour check-in messages queued at
// diagnosis time and classifies the replies they draw.
package followup

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/db/models"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/messages"
)

// Sender delivers one text to a user on a platform. The bool mirrors
// the channel APIs: true means the message was accepted for delivery.
type Sender interface {
	SendMessage(ctx context.Context, userID, platform, text string) bool
}

// ReminderStore is the slice of the persistence layer the scheduler
// reads and updates.
type ReminderStore interface {
	DueFollowUps(ctx context.Context, now time.Time) ([]models.FollowUpReminder, error)
	MarkSent(ctx context.Context, id uint) error
}

type Config struct {
	Interval     time.Duration
	ErrorBackoff time.Duration
	SentGuardTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval:     5 * time.Minute,
		ErrorBackoff: time.Minute,
		SentGuardTTL: time.Hour,
	}
}

// Scheduler sweeps for due check-ins on a fixed interval and delivers
// each at most once.
type Scheduler struct {
	cfg    Config
	store  ReminderStore
	sender Sender
	cat    messages.Catalog
	log    *slog.Logger
	now    func() time.Time

	// recentlySent keeps ids delivered inside the guard TTL so a failed
	// MarkSent cannot produce a second message on the next sweep.
	recentlySent *expirable.LRU[uint, struct{}]

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(cfg Config, store ReminderStore, sender Sender, cat messages.Catalog, log *slog.Logger) *Scheduler {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = def.ErrorBackoff
	}
	if cfg.SentGuardTTL <= 0 {
		cfg.SentGuardTTL = def.SentGuardTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		cfg:          cfg,
		store:        store,
		sender:       sender,
		cat:          cat,
		log:          log,
		now:          time.Now,
		recentlySent: expirable.NewLRU[uint, struct{}](0, nil, cfg.SentGuardTTL),
	}
}

// Start launches the sweep loop. The first sweep runs immediately.
// Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(runCtx, s.done)
	s.log.Info("followup_scheduler_started", "interval", s.cfg.Interval.String())
}

// Stop halts the loop and waits for any in-flight sweep to return.
// Calling Stop on a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info("followup_scheduler_stopped")
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		wait := s.cfg.Interval
		if err := s.Sweep(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("followup_sweep_error", "error", err.Error())
			wait = s.cfg.ErrorBackoff
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// Sweep delivers every due reminder once. A failed send is retried on
// the next sweep; a failed MarkSent is shielded by the recently-sent
// guard until its TTL expires. Callable directly for one-shot runs
// alongside the Start loop.
func (s *Scheduler) Sweep(ctx context.Context) error {
	due, err := s.store.DueFollowUps(ctx, s.now())
	if err != nil {
		return err
	}
	for _, rem := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, seen := s.recentlySent.Get(rem.ID); seen {
			continue
		}
		text := s.cat.RenderCheckIn(rem.Symptoms)
		if !s.sender.SendMessage(ctx, rem.UserID, rem.Platform, text) {
			s.log.Warn("followup_send_failed", "reminder_id", rem.ID, "platform", rem.Platform)
			continue
		}
		s.recentlySent.Add(rem.ID, struct{}{})
		if err := s.store.MarkSent(ctx, rem.ID); err != nil {
			s.log.Error("followup_mark_sent_error", "reminder_id", rem.ID, "error", err.Error())
			continue
		}
		s.log.Info("followup_sent", "reminder_id", rem.ID, "user_id", rem.UserID, "platform", rem.Platform)
	}
	return nil
}
