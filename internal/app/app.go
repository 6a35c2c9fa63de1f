// Package app wires the bot together from one immutable config: logger,
// clock, store, transport, command router, scheduler and health endpoint.
package app

import (
	"context"
	"io"
	"sync"
	"time"

	"remindbot/internal/calendar"
	"remindbot/internal/clockz"
	"remindbot/internal/commands"
	"remindbot/internal/config"
	"remindbot/internal/health"
	"remindbot/internal/reminder"
	"remindbot/internal/scheduler"
	"remindbot/internal/transport"
	"remindbot/internal/transport/telegram"
	"remindbot/pkg/logx"
)

type App struct {
	log       logx.Logger
	logCloser io.Closer

	store   *reminder.Store
	adapter *telegram.Adapter
	router  *commands.Router
	sched   *scheduler.Service
	health  *health.Service

	msgCh chan transport.Message
	quit  chan struct{}
	wg    sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	log, logCloser := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	clk, err := clockz.New(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	busyTimeout, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 2*time.Second)
	if err != nil {
		return nil, err
	}
	store, err := reminder.OpenStore(reminder.StoreConfig{
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, clk, log.With(logx.String("comp", "store")))
	if err != nil {
		return nil, err
	}

	pollTimeout, err := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	if err != nil {
		return nil, err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
		RatePerSec:  cfg.Telegram.RatePerSec,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	notify := func(ctx context.Context, owner, text string) error {
		to, err := transport.TargetFromOwner(owner)
		if err != nil {
			return err
		}
		return adapter.SendText(ctx, to, text, &transport.SendOptions{DisablePreview: true})
	}

	var cal *calendar.Calendar
	if len(cfg.Calendar.Entries) > 0 {
		cal = calendar.New(calendar.Config{
			Destination: cfg.Telegram.GroupChatID,
			Entries:     cfg.Calendar.Entries,
		}, log.With(logx.String("comp", "calendar")))
	}

	sweepInterval, err := config.ParseDurationOrDefault("sweep.interval", cfg.Sweep.Interval, time.Minute)
	if err != nil {
		return nil, err
	}
	sweeper := reminder.NewSweeper(store, log.With(logx.String("comp", "sweep")))
	sched := scheduler.New(scheduler.Config{
		SweepInterval: sweepInterval,
		CalendarAt:    cfg.Calendar.At,
	}, clk, sweeper, cal, notify, log.With(logx.String("comp", "scheduler")))

	return &App{
		log:       log,
		logCloser: logCloser,
		store:     store,
		adapter:   adapter,
		router:    commands.NewRouter(store, adapter, log.With(logx.String("comp", "commands"))),
		sched:     sched,
		health:    health.New(health.Config(cfg.Health), log.With(logx.String("comp", "health"))),
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	a.msgCh = make(chan transport.Message, 64)
	a.quit = make(chan struct{})
	if err := a.adapter.Start(ctx, a.msgCh); err != nil {
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		runDispatch(ctx, a.msgCh, a.quit, a.router.Handle)
	}()

	if err := a.sched.Start(ctx); err != nil {
		return err
	}
	if err := a.health.Start(ctx); err != nil {
		// Liveness is best-effort; the bot still works without it.
		a.log.Warn("health endpoint failed to start", logx.Err(err))
	}

	a.log.Info("remindbot started")
	return nil
}

// runDispatch pumps incoming messages into handle until quit is signalled,
// then drains whatever is already buffered. The channel itself is never
// closed: a poll handler still in flight during shutdown may forward one
// last message, which must land in the buffer instead of panicking.
func runDispatch(ctx context.Context, ch <-chan transport.Message, quit <-chan struct{}, handle func(context.Context, transport.Message)) {
	for {
		select {
		case msg := <-ch:
			handle(ctx, msg)
		case <-quit:
			for {
				select {
				case msg := <-ch:
					handle(ctx, msg)
				default:
					return
				}
			}
		}
	}
}

// Stop shuts down in dependency order: no new sweeps, finish the in-flight
// one, stop polling, drain pending commands, then close storage.
func (a *App) Stop(ctx context.Context) error {
	_ = a.sched.Stop(ctx)
	_ = a.adapter.Stop(ctx)
	if a.quit != nil {
		close(a.quit)
		a.wg.Wait()
		a.quit = nil
		a.msgCh = nil
	}
	a.health.Stop(ctx)
	err := a.store.Close()
	a.log.Info("remindbot stopped")
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
	return err
}
