package reminder

import (
	"errors"
	"testing"
	"time"
)

func civil(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
	if err != nil {
		t.Fatalf("bad test timestamp %q: %v", s, err)
	}
	return tm
}

func TestAdvanceVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		from    string
		cadence Cadence
		want    string
	}{
		{name: "daily", from: "2024-03-01 08:00", cadence: CadenceDaily, want: "2024-03-02 08:00"},
		{name: "daily month end", from: "2024-04-30 21:30", cadence: CadenceDaily, want: "2024-05-01 21:30"},
		{name: "weekly", from: "2024-03-01 08:00", cadence: CadenceWeekly, want: "2024-03-08 08:00"},
		{name: "weekly across month", from: "2024-02-26 12:00", cadence: CadenceWeekly, want: "2024-03-04 12:00"},
		{name: "monthly plain", from: "2024-03-15 10:00", cadence: CadenceMonthly, want: "2024-04-15 10:00"},
		{name: "monthly leap clamp", from: "2024-01-31 09:00", cadence: CadenceMonthly, want: "2024-02-29 09:00"},
		{name: "monthly non-leap clamp", from: "2025-01-31 09:00", cadence: CadenceMonthly, want: "2025-02-28 09:00"},
		{name: "monthly 31 to 30", from: "2024-03-31 09:00", cadence: CadenceMonthly, want: "2024-04-30 09:00"},
		{name: "monthly year rollover", from: "2024-12-15 08:00", cadence: CadenceMonthly, want: "2025-01-15 08:00"},
		{name: "monthly century non-leap", from: "2100-01-31 09:00", cadence: CadenceMonthly, want: "2100-02-28 09:00"},
		{name: "monthly 400y leap", from: "2000-01-31 09:00", cadence: CadenceMonthly, want: "2000-02-29 09:00"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := Advance(civil(t, tt.from), tt.cadence)
			if err != nil {
				t.Fatalf("Advance(%s, %s) error: %v", tt.from, tt.cadence, err)
			}
			if want := civil(t, tt.want); !got.Equal(want) {
				t.Fatalf("Advance(%s, %s) = %v, want %v", tt.from, tt.cadence, got, want)
			}
		})
	}
}

func TestAdvanceDailySevenTimesEqualsWeekly(t *testing.T) {
	t.Parallel()
	starts := []string{"2024-03-01 08:00", "2024-02-26 23:59", "2023-12-28 00:00"}
	for _, s := range starts {
		d := civil(t, s)
		for i := 0; i < 7; i++ {
			var err error
			d, err = Advance(d, CadenceDaily)
			if err != nil {
				t.Fatalf("daily advance error: %v", err)
			}
		}
		w, err := Advance(civil(t, s), CadenceWeekly)
		if err != nil {
			t.Fatalf("weekly advance error: %v", err)
		}
		if !d.Equal(w) {
			t.Fatalf("7x daily from %s = %v, weekly = %v", s, d, w)
		}
	}
}

func TestAdvanceUnknownCadence(t *testing.T) {
	t.Parallel()
	_, err := Advance(civil(t, "2024-03-01 08:00"), Cadence("hourly"))
	if err == nil {
		t.Fatal("expected error for unknown cadence")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error type = %T, want *ConfigError", err)
	}
}

func TestNextAfter(t *testing.T) {
	t.Parallel()

	// Normal case: one period is already past now.
	got, err := NextAfter(civil(t, "2024-03-02 08:00"), CadenceDaily, civil(t, "2024-03-02 08:10"))
	if err != nil {
		t.Fatalf("NextAfter error: %v", err)
	}
	if want := civil(t, "2024-03-03 08:00"); !got.Equal(want) {
		t.Fatalf("NextAfter = %v, want %v", got, want)
	}

	// Downtime: resync to the first slot strictly after now, not one per call.
	got, err = NextAfter(civil(t, "2024-03-01 08:00"), CadenceDaily, civil(t, "2024-03-05 10:00"))
	if err != nil {
		t.Fatalf("NextAfter error: %v", err)
	}
	if want := civil(t, "2024-03-06 08:00"); !got.Equal(want) {
		t.Fatalf("NextAfter after downtime = %v, want %v", got, want)
	}
}

func TestParseCadence(t *testing.T) {
	t.Parallel()
	if c, err := ParseCadence(" Daily "); err != nil || c != CadenceDaily {
		t.Fatalf("ParseCadence(Daily) = %v, %v", c, err)
	}
	_, err := ParseCadence("fortnightly")
	if err == nil {
		t.Fatal("expected error for unknown cadence")
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
}
