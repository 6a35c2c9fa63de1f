// Package scheduler drives the periodic due-sweep and the once-daily
// static-calendar broadcast on a cron timer in the bot's timezone.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"remindbot/internal/calendar"
	"remindbot/internal/clockz"
	"remindbot/internal/reminder"
	"remindbot/pkg/logx"
)

type Config struct {
	// SweepInterval is the polling cadence of the due-check (default 60s).
	SweepInterval time.Duration
	// CalendarAt is the HH:MM trigger time of the daily calendar broadcast.
	CalendarAt string
}

// Service owns the cron loop. All triggers fire in the clock's location so
// "08:00" means 08:00 civil time.
type Service struct {
	mu sync.Mutex

	cfg     Config
	clk     *clockz.Clock
	sweeper *reminder.Sweeper
	cal     *calendar.Calendar
	notify  reminder.NotifyFunc
	log     logx.Logger

	c *cron.Cron

	// sweepMu serializes sweeps; cron fires every tick in a fresh goroutine.
	sweepMu sync.Mutex
}

func New(cfg Config, clk *clockz.Clock, sweeper *reminder.Sweeper, cal *calendar.Calendar, notify reminder.NotifyFunc, log logx.Logger) *Service {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, clk: clk, sweeper: sweeper, cal: cal, notify: notify, log: log}
}

func (s *Service) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}

	c := cron.New(cron.WithLocation(s.clk.Location()))

	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.cfg.SweepInterval), func() { s.runSweep(ctx) }); err != nil {
		return fmt.Errorf("register sweep: %w", err)
	}

	if s.cal != nil {
		hour, minute, err := clockz.ParseHHMM(s.cfg.CalendarAt)
		if err != nil {
			return fmt.Errorf("calendar trigger time: %w", err)
		}
		spec := fmt.Sprintf("%d %d * * *", minute, hour)
		if _, err := c.AddFunc(spec, func() { s.runCalendar(ctx) }); err != nil {
			return fmt.Errorf("register calendar broadcast: %w", err)
		}
	}

	s.c = c
	c.Start()
	s.log.Info("scheduler started",
		logx.Duration("sweep_interval", s.cfg.SweepInterval),
		logx.String("calendar_at", s.cfg.CalendarAt),
		logx.String("tz", s.clk.Location().String()))
	return nil
}

// Stop halts scheduling and waits for an in-flight sweep to finish (bounded
// by ctx). Jobs are never killed mid-run.
func (s *Service) Stop(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	done := c.Stop().Done()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out with a sweep still running")
		return ctx.Err()
	}
}

func (s *Service) runSweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	// A sweep that outlasts the interval (the notifier has no deadline) must
	// not overlap the next tick: concurrent sweeps would read the same due
	// rows before any consume/advance lands and deliver them twice.
	if !s.sweepMu.TryLock() {
		s.log.Debug("sweep still running, tick skipped")
		return
	}
	defer s.sweepMu.Unlock()

	now := s.clk.Now()
	if err := s.sweeper.Sweep(ctx, now, s.notify); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		// One bad tick never kills the loop; the next tick retries.
		s.log.Error("sweep failed", logx.Time("now", now), logx.Err(err))
	}
	if s.cal != nil {
		s.cal.RetryPending(ctx, now, calendar.Notify(s.notify))
	}
}

func (s *Service) runCalendar(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.cal.Broadcast(ctx, s.clk.Now(), calendar.Notify(s.notify))
}
