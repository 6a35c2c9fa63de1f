// Package clockz supplies "now" in the bot's fixed civil timezone and owns
// the civil timestamp codec used by the reminder store.
//
// All due-comparisons and recurrence math operate on the civil calendar of
// one configured zone, never on absolute UTC instants: "9:00 daily" means
// 9:00 local no matter how the zone's offset shifts.
package clockz

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
)

// CivilLayout is the fixed on-disk timestamp format (minute precision).
// Lexicographic order on these strings equals chronological order, which the
// store relies on for due-comparisons in SQL.
const CivilLayout = "2006-01-02 15:04"

// Clock yields the current civil time in a fixed location.
type Clock struct {
	clk clock.Clock
	loc *time.Location
}

// New loads the IANA timezone name and returns a wall clock for it.
func New(tz string) (*Clock, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(tz))
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return &Clock{clk: clock.New(), loc: loc}, nil
}

// NewWith wraps an arbitrary clock source (tests pass clock.NewMock()).
func NewWith(clk clock.Clock, loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{clk: clk, loc: loc}
}

// Now returns the current time in the configured location, truncated to
// minute precision so comparisons line up with stored timestamps.
func (c *Clock) Now() time.Time {
	return c.clk.Now().In(c.loc).Truncate(time.Minute)
}

func (c *Clock) Location() *time.Location { return c.loc }

// Format renders t as a civil timestamp string.
func Format(t time.Time) string { return t.Format(CivilLayout) }

// Parse decodes a civil timestamp string in loc.
func Parse(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(CivilLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q, expected YYYY-MM-DD HH:MM: %w", s, err)
	}
	return t, nil
}

// ParseHHMM validates a time-of-day string.
func ParseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}
