package reminder

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"remindbot/internal/clockz"
	"remindbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// StoreConfig configures the SQLite backing file.
type StoreConfig struct {
	Path        string
	BusyTimeout time.Duration // 0 means driver default
}

// Store is the durable table of pending reminders.
//
// Timestamps are persisted as YYYY-MM-DD HH:MM civil strings; lexicographic
// comparison in SQL therefore equals chronological comparison. Each method
// is one short-lived statement, so concurrent command handlers and the
// sweep serialize on the single SQLite writer without holding locks across
// notifier I/O.
type Store struct {
	db  *sql.DB
	clk *clockz.Clock
	log logx.Logger
}

// OpenStore opens (and migrates) the reminder database.
func OpenStore(cfg StoreConfig, clk *clockz.Clock, log logx.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &Store{db: db, clk: clk, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Clock exposes the store's clock so callers share one notion of "now".
func (s *Store) Clock() *clockz.Clock { return s.clk }

// CreateOneTime validates and persists a single-shot reminder.
// dueAt must parse as a civil timestamp strictly after the current time.
func (s *Store) CreateOneTime(ctx context.Context, owner, text, dueAt string) (int64, error) {
	due, err := clockz.Parse(dueAt, s.clk.Location())
	if err != nil {
		return 0, &ValidationError{Reason: err.Error()}
	}
	now := s.clk.Now()
	if !due.After(now) {
		return 0, &ValidationError{Reason: fmt.Sprintf("%s is not in the future (now %s)", clockz.Format(due), clockz.Format(now))}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders(owner, text, due_at) VALUES(?,?,?)`,
		owner, text, clockz.Format(due),
	)
	if err != nil {
		return 0, fmt.Errorf("insert reminder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert reminder id: %w", err)
	}
	s.log.Debug("one-time reminder created", logx.Int64("id", id), logx.String("owner", owner), logx.String("due_at", clockz.Format(due)))
	return id, nil
}

// CreateRecurring validates and persists a repeating reminder.
//
// The first occurrence is today at the given HH:MM; when that slot is not
// strictly in the future anymore, it starts one cadence period later.
func (s *Store) CreateRecurring(ctx context.Context, owner, text, cadence, timeOfDay string) (int64, error) {
	cad, err := ParseCadence(cadence)
	if err != nil {
		return 0, err
	}
	hour, minute, err := clockz.ParseHHMM(timeOfDay)
	if err != nil {
		return 0, &ValidationError{Reason: err.Error()}
	}

	now := s.clk.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, s.clk.Location())
	if !next.After(now) {
		next, err = Advance(next, cad)
		if err != nil {
			return 0, err
		}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO recurring_reminders(owner, text, next_due_at, cadence) VALUES(?,?,?,?)`,
		owner, text, clockz.Format(next), string(cad),
	)
	if err != nil {
		return 0, fmt.Errorf("insert recurring reminder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert recurring reminder id: %w", err)
	}
	s.log.Debug("recurring reminder created", logx.Int64("id", id), logx.String("owner", owner), logx.String("cadence", string(cad)), logx.String("next_due_at", clockz.Format(next)))
	return id, nil
}

// List returns all of owner's reminders, both kinds, ordered by id.
func (s *Store) List(ctx context.Context, owner string) ([]OneTime, []Recurring, error) {
	ones, err := s.scanOneTime(ctx,
		`SELECT id, owner, text, due_at FROM reminders WHERE owner = ? ORDER BY id`, owner)
	if err != nil {
		return nil, nil, err
	}
	recs, err := s.scanRecurring(ctx,
		`SELECT id, owner, text, next_due_at, cadence FROM recurring_reminders WHERE owner = ? ORDER BY id`, owner)
	if err != nil {
		return nil, nil, err
	}
	return ones, recs, nil
}

// Delete removes owner's reminder with the given id from whichever table
// holds it. Deleting an id that does not exist (or belongs to someone else)
// is a no-op, never an error.
func (s *Store) Delete(ctx context.Context, owner string, id int64) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM reminders WHERE id = ? AND owner = ?`, id, owner); err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM recurring_reminders WHERE id = ? AND owner = ?`, id, owner); err != nil {
		return fmt.Errorf("delete recurring reminder: %w", err)
	}
	return nil
}

// DueOneTime returns every one-time reminder scheduled at or before now.
func (s *Store) DueOneTime(ctx context.Context, now time.Time) ([]OneTime, error) {
	return s.scanOneTime(ctx,
		`SELECT id, owner, text, due_at FROM reminders WHERE due_at <= ? ORDER BY id`,
		clockz.Format(now))
}

// DueRecurring returns every recurring reminder scheduled at or before now.
func (s *Store) DueRecurring(ctx context.Context, now time.Time) ([]Recurring, error) {
	return s.scanRecurring(ctx,
		`SELECT id, owner, text, next_due_at, cadence FROM recurring_reminders WHERE next_due_at <= ? ORDER BY id`,
		clockz.Format(now))
}

// ConsumeOneTime deletes a delivered one-time reminder.
func (s *Store) ConsumeOneTime(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id); err != nil {
		return fmt.Errorf("consume reminder: %w", err)
	}
	return nil
}

// AdvanceRecurring moves a delivered recurring reminder to its next slot.
func (s *Store) AdvanceRecurring(ctx context.Context, id int64, next time.Time) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE recurring_reminders SET next_due_at = ? WHERE id = ?`,
		clockz.Format(next), id); err != nil {
		return fmt.Errorf("advance recurring reminder: %w", err)
	}
	return nil
}

func (s *Store) scanOneTime(ctx context.Context, query string, args ...any) ([]OneTime, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}
	defer rows.Close()

	var out []OneTime
	for rows.Next() {
		var (
			r   OneTime
			due string
		)
		if err := rows.Scan(&r.ID, &r.Owner, &r.Text, &due); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		r.DueAt, err = clockz.Parse(due, s.clk.Location())
		if err != nil {
			return nil, fmt.Errorf("reminder %d: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) scanRecurring(ctx context.Context, query string, args ...any) ([]Recurring, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recurring reminders: %w", err)
	}
	defer rows.Close()

	var out []Recurring
	for rows.Next() {
		var (
			r        Recurring
			due, cad string
		)
		if err := rows.Scan(&r.ID, &r.Owner, &r.Text, &due, &cad); err != nil {
			return nil, fmt.Errorf("scan recurring reminder: %w", err)
		}
		r.NextDueAt, err = clockz.Parse(due, s.clk.Location())
		if err != nil {
			return nil, fmt.Errorf("recurring reminder %d: %w", r.ID, err)
		}
		r.Cadence = Cadence(cad)
		out = append(out, r)
	}
	return out, rows.Err()
}
