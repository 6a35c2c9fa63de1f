// Package calendar broadcasts fixed day-of-month announcements to a single
// configured chat, once per matching calendar day.
package calendar

import (
	"context"
	"sync"
	"time"

	"remindbot/pkg/logx"
)

// Config is deployment-time data: a day-of-month -> message map and the
// destination every announcement goes to.
type Config struct {
	Destination string
	Entries     map[int]string
}

// Notify delivers one announcement. Matches reminder.NotifyFunc.
type Notify func(ctx context.Context, destination, text string) error

// Calendar tracks which day was last announced so a broadcast never repeats
// within the same calendar day, even across scheduler restarts of the loop.
type Calendar struct {
	cfg Config
	log logx.Logger

	mu       sync.Mutex
	lastSent string // YYYY-MM-DD of the last successful broadcast
	pending  string // YYYY-MM-DD of a failed broadcast awaiting retry
}

func New(cfg Config, log logx.Logger) *Calendar {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Calendar{cfg: cfg, log: log}
}

// Broadcast sends today's entry, if any. It is safe to call more than once
// per day; only the first successful delivery for a given day goes out.
// A failed delivery is logged and marked pending so RetryPending can pick
// it up before the day is over.
func (c *Calendar) Broadcast(ctx context.Context, now time.Time, notify Notify) {
	day := now.Day()
	msg, ok := c.cfg.Entries[day]
	if !ok {
		c.log.Debug("no calendar entry for today", logx.Int("day", day))
		return
	}

	key := now.Format("2006-01-02")
	c.mu.Lock()
	already := c.lastSent == key
	c.mu.Unlock()
	if already {
		return
	}

	if err := notify(ctx, c.cfg.Destination, msg); err != nil {
		c.mu.Lock()
		c.pending = key
		c.mu.Unlock()
		c.log.Warn("calendar broadcast failed", logx.Int("day", day), logx.Err(err))
		return
	}

	c.mu.Lock()
	c.lastSent = key
	c.pending = ""
	c.mu.Unlock()
	c.log.Info("calendar broadcast sent", logx.Int("day", day))
}

// RetryPending redelivers a broadcast that failed earlier the same day.
// Callers invoke it from a frequent tick so a transient send failure does
// not lose the day's announcement; it is a no-op unless the daily trigger
// already fired today and failed.
func (c *Calendar) RetryPending(ctx context.Context, now time.Time, notify Notify) {
	key := now.Format("2006-01-02")
	c.mu.Lock()
	due := c.pending == key && c.lastSent != key
	c.mu.Unlock()
	if !due {
		return
	}
	c.Broadcast(ctx, now, notify)
}
