package reminder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"remindbot/internal/clockz"
	"remindbot/pkg/logx"
)

func newTestStore(t *testing.T, now string) (*Store, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(civil(t, now))

	st, err := OpenStore(StoreConfig{
		Path:        filepath.Join(t.TempDir(), "reminders.db"),
		BusyTimeout: 2 * time.Second,
	}, clockz.NewWith(mock, time.UTC), logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st, mock
}

func TestCreateOneTimeRoundTrip(t *testing.T) {
	t.Parallel()
	st, _ := newTestStore(t, "2024-03-01 08:05")
	ctx := context.Background()

	id, err := st.CreateOneTime(ctx, "u1", "pay rent", "2024-03-05 09:00")
	require.NoError(t, err)

	ones, recs, err := st.List(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, recs)
	require.Len(t, ones, 1)
	require.Equal(t, id, ones[0].ID)
	require.Equal(t, "u1", ones[0].Owner)
	require.Equal(t, "pay rent", ones[0].Text)
	require.Equal(t, "2024-03-05 09:00", clockz.Format(ones[0].DueAt))
}

func TestCreateOneTimeRejectsPastAndGarbage(t *testing.T) {
	t.Parallel()
	st, _ := newTestStore(t, "2024-03-01 08:05")
	ctx := context.Background()

	for _, due := range []string{"2024-03-01 08:05", "2024-02-29 23:59", "next tuesday", ""} {
		_, err := st.CreateOneTime(ctx, "u1", "x", due)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr, "due=%q", due)
	}

	// Nothing persisted.
	ones, recs, err := st.List(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, ones)
	require.Empty(t, recs)
}

func TestCreateRecurringInitialSlot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name      string
		cadence   string
		timeOfDay string
		wantNext  string
	}{
		{name: "daily slot passed", cadence: "daily", timeOfDay: "08:00", wantNext: "2024-03-02 08:00"},
		{name: "daily slot ahead", cadence: "daily", timeOfDay: "09:00", wantNext: "2024-03-01 09:00"},
		{name: "daily slot is now", cadence: "daily", timeOfDay: "08:05", wantNext: "2024-03-02 08:05"},
		{name: "weekly slot passed", cadence: "weekly", timeOfDay: "07:30", wantNext: "2024-03-08 07:30"},
		{name: "monthly slot passed", cadence: "monthly", timeOfDay: "00:00", wantNext: "2024-04-01 00:00"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			st, _ := newTestStore(t, "2024-03-01 08:05")
			id, err := st.CreateRecurring(ctx, "u1", "drink water", tt.cadence, tt.timeOfDay)
			require.NoError(t, err)

			_, recs, err := st.List(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, recs, 1)
			require.Equal(t, id, recs[0].ID)
			require.Equal(t, tt.wantNext, clockz.Format(recs[0].NextDueAt))
		})
	}
}

func TestCreateRecurringValidation(t *testing.T) {
	t.Parallel()
	st, _ := newTestStore(t, "2024-03-01 08:05")
	ctx := context.Background()

	var vErr *ValidationError
	_, err := st.CreateRecurring(ctx, "u1", "x", "hourly", "08:00")
	require.ErrorAs(t, err, &vErr)

	_, err = st.CreateRecurring(ctx, "u1", "x", "daily", "25:00")
	require.ErrorAs(t, err, &vErr)
}

func TestDeleteIsIdempotentAndOwnerScoped(t *testing.T) {
	t.Parallel()
	st, _ := newTestStore(t, "2024-03-01 08:05")
	ctx := context.Background()

	id, err := st.CreateOneTime(ctx, "alice", "secret", "2024-03-05 09:00")
	require.NoError(t, err)

	// Unknown id for an existing owner: success, no change.
	require.NoError(t, st.Delete(ctx, "alice", id+100))

	// Another owner cannot delete alice's reminder.
	require.NoError(t, st.Delete(ctx, "bob", id))
	ones, _, err := st.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, ones, 1)

	// Owner deletes it for real; a second delete is a no-op.
	require.NoError(t, st.Delete(ctx, "alice", id))
	require.NoError(t, st.Delete(ctx, "alice", id))
	ones, _, err = st.List(ctx, "alice")
	require.NoError(t, err)
	require.Empty(t, ones)
}

func TestListIsOwnerScoped(t *testing.T) {
	t.Parallel()
	st, _ := newTestStore(t, "2024-03-01 08:05")
	ctx := context.Background()

	_, err := st.CreateOneTime(ctx, "alice", "a", "2024-03-05 09:00")
	require.NoError(t, err)
	_, err = st.CreateRecurring(ctx, "bob", "b", "daily", "09:00")
	require.NoError(t, err)

	ones, recs, err := st.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, ones, 1)
	require.Empty(t, recs)

	ones, recs, err = st.List(ctx, "bob")
	require.NoError(t, err)
	require.Empty(t, ones)
	require.Len(t, recs, 1)
}

func TestDueQueriesIncludeBoundary(t *testing.T) {
	t.Parallel()
	st, mock := newTestStore(t, "2024-03-01 08:05")
	ctx := context.Background()

	_, err := st.CreateOneTime(ctx, "u1", "x", "2024-03-05 09:00")
	require.NoError(t, err)
	_, err = st.CreateRecurring(ctx, "u1", "y", "daily", "09:00")
	require.NoError(t, err)

	// Not due yet.
	due, err := st.DueOneTime(ctx, st.Clock().Now())
	require.NoError(t, err)
	require.Empty(t, due)

	// Exactly at the scheduled minute counts as due.
	mock.Set(civil(t, "2024-03-05 09:00"))
	due, err = st.DueOneTime(ctx, st.Clock().Now())
	require.NoError(t, err)
	require.Len(t, due, 1)

	recs, err := st.DueRecurring(ctx, st.Clock().Now())
	require.NoError(t, err)
	require.Len(t, recs, 1)
}
