package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"remindbot/pkg/logx"
)

func at(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
	if err != nil {
		t.Fatalf("bad test timestamp %q: %v", s, err)
	}
	return tm
}

func TestBroadcastOncePerDay(t *testing.T) {
	t.Parallel()
	c := New(Config{
		Destination: "-100200300",
		Entries:     map[int]string{1: "new month", 15: "mid month"},
	}, logx.Nop())

	var sent []string
	notify := func(_ context.Context, dest, text string) error {
		sent = append(sent, dest+"|"+text)
		return nil
	}

	c.Broadcast(context.Background(), at(t, "2024-03-15 08:00"), notify)
	c.Broadcast(context.Background(), at(t, "2024-03-15 08:01"), notify)
	if len(sent) != 1 || sent[0] != "-100200300|mid month" {
		t.Fatalf("sent = %v", sent)
	}

	// A new matching day broadcasts again.
	c.Broadcast(context.Background(), at(t, "2024-04-15 08:00"), notify)
	if len(sent) != 2 {
		t.Fatalf("sent = %v", sent)
	}
}

func TestBroadcastSkipsNonMatchingDay(t *testing.T) {
	t.Parallel()
	c := New(Config{Destination: "d", Entries: map[int]string{5: "x"}}, logx.Nop())
	c.Broadcast(context.Background(), at(t, "2024-03-04 08:00"), func(context.Context, string, string) error {
		t.Fatal("notify should not be called")
		return nil
	})
}

func TestBroadcastRetriesAfterFailure(t *testing.T) {
	t.Parallel()
	c := New(Config{Destination: "d", Entries: map[int]string{15: "x"}}, logx.Nop())

	calls := 0
	notify := func(context.Context, string, string) error {
		calls++
		if calls == 1 {
			return errors.New("boom")
		}
		return nil
	}

	c.Broadcast(context.Background(), at(t, "2024-03-15 08:00"), notify)
	c.Broadcast(context.Background(), at(t, "2024-03-15 08:01"), notify)
	c.Broadcast(context.Background(), at(t, "2024-03-15 08:02"), notify)
	if calls != 2 {
		t.Fatalf("calls = %d, want 2 (fail once, succeed once, then suppressed)", calls)
	}
}

func TestRetryPendingOnlyAfterFailedTrigger(t *testing.T) {
	t.Parallel()
	c := New(Config{Destination: "d", Entries: map[int]string{15: "x"}}, logx.Nop())

	delivered := 0
	ok := func(context.Context, string, string) error {
		delivered++
		return nil
	}

	// The daily trigger has not fired yet: a tick must not send early.
	c.RetryPending(context.Background(), at(t, "2024-03-15 07:59"), ok)
	if delivered != 0 {
		t.Fatalf("delivered = %d, want 0 before the trigger", delivered)
	}

	fail := func(context.Context, string, string) error { return errors.New("boom") }
	c.Broadcast(context.Background(), at(t, "2024-03-15 08:00"), fail)

	c.RetryPending(context.Background(), at(t, "2024-03-15 08:01"), ok)
	c.RetryPending(context.Background(), at(t, "2024-03-15 08:02"), ok)
	if delivered != 1 {
		t.Fatalf("delivered = %d, want exactly 1 after the failed trigger", delivered)
	}
}

func TestRetryPendingDoesNotCrossDays(t *testing.T) {
	t.Parallel()
	c := New(Config{Destination: "d", Entries: map[int]string{15: "x"}}, logx.Nop())

	fail := func(context.Context, string, string) error { return errors.New("boom") }
	c.Broadcast(context.Background(), at(t, "2024-03-15 23:59"), fail)

	// The day ended before a successful retry; the announcement is dropped,
	// not delivered on the wrong day.
	delivered := 0
	c.RetryPending(context.Background(), at(t, "2024-03-16 00:01"), func(context.Context, string, string) error {
		delivered++
		return nil
	})
	if delivered != 0 {
		t.Fatalf("delivered = %d, want 0 on the next day", delivered)
	}
}
