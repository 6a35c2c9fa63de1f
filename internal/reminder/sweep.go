package reminder

import (
	"context"
	"errors"
	"time"

	"remindbot/internal/clockz"
	"remindbot/pkg/logx"
)

// NotifyFunc delivers one message to an owner. An error means the delivery
// failed and the reminder stays due for the next sweep.
type NotifyFunc func(ctx context.Context, owner, text string) error

// Sweeper runs the due-check-and-dispatch cycle over the store.
//
// Delivery is at-least-once: a row is consumed (one-time) or advanced
// (recurring) only after notify returned nil, and notify always runs outside
// any store statement. A failed delivery leaves the row due and is retried
// by the next sweep, with no backoff and no dead-lettering.
type Sweeper struct {
	store *Store
	log   logx.Logger
}

func NewSweeper(store *Store, log logx.Logger) *Sweeper {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Sweeper{store: store, log: log}
}

// Sweep processes every reminder due at now, sequentially. A failure on one
// row never blocks the remaining rows; store-level fetch failures abort the
// sweep and are returned so the scheduler can log and wait for the next tick.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time, notify NotifyFunc) error {
	if err := s.sweepOneTime(ctx, now, notify); err != nil {
		return err
	}
	return s.sweepRecurring(ctx, now, notify)
}

func (s *Sweeper) sweepOneTime(ctx context.Context, now time.Time, notify NotifyFunc) error {
	due, err := s.store.DueOneTime(ctx, now)
	if err != nil {
		return err
	}
	for _, r := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := notify(ctx, r.Owner, r.Text); err != nil {
			// Row stays intact; the next sweep retries it.
			s.log.Warn("reminder delivery failed",
				logx.Int64("id", r.ID), logx.String("owner", r.Owner), logx.Err(err))
			continue
		}
		if err := s.store.ConsumeOneTime(ctx, r.ID); err != nil {
			s.log.Error("consume after delivery failed",
				logx.Int64("id", r.ID), logx.String("owner", r.Owner), logx.Err(err))
			continue
		}
		s.log.Info("reminder delivered",
			logx.Int64("id", r.ID), logx.String("owner", r.Owner), logx.String("due_at", clockz.Format(r.DueAt)))
	}
	return nil
}

func (s *Sweeper) sweepRecurring(ctx context.Context, now time.Time, notify NotifyFunc) error {
	due, err := s.store.DueRecurring(ctx, now)
	if err != nil {
		return err
	}
	for _, r := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := notify(ctx, r.Owner, r.Text); err != nil {
			// next_due_at stays unchanged so the same occurrence retries.
			s.log.Warn("recurring delivery failed",
				logx.Int64("id", r.ID), logx.String("owner", r.Owner),
				logx.String("cadence", string(r.Cadence)), logx.Err(err))
			continue
		}
		next, err := NextAfter(r.NextDueAt, r.Cadence, now)
		if err != nil {
			// Unknown cadence in a persisted row: validation bug, not retryable.
			var cfgErr *ConfigError
			if errors.As(err, &cfgErr) {
				s.log.Error("recurring reminder has invalid cadence",
					logx.Int64("id", r.ID), logx.String("owner", r.Owner),
					logx.String("cadence", string(r.Cadence)), logx.Err(err))
				continue
			}
			return err
		}
		if err := s.store.AdvanceRecurring(ctx, r.ID, next); err != nil {
			s.log.Error("advance after delivery failed",
				logx.Int64("id", r.ID), logx.String("owner", r.Owner), logx.Err(err))
			continue
		}
		s.log.Info("recurring reminder delivered",
			logx.Int64("id", r.ID), logx.String("owner", r.Owner),
			logx.String("cadence", string(r.Cadence)), logx.String("next_due_at", clockz.Format(next)))
	}
	return nil
}
