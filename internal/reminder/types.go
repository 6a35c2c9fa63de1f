package reminder

import (
	"strings"
	"time"
)

// Cadence classifies how a recurring reminder's next occurrence is computed.
type Cadence string

const (
	CadenceDaily   Cadence = "daily"
	CadenceWeekly  Cadence = "weekly"
	CadenceMonthly Cadence = "monthly"
)

// ParseCadence normalizes and validates a cadence string.
func ParseCadence(s string) (Cadence, error) {
	switch Cadence(strings.ToLower(strings.TrimSpace(s))) {
	case CadenceDaily:
		return CadenceDaily, nil
	case CadenceWeekly:
		return CadenceWeekly, nil
	case CadenceMonthly:
		return CadenceMonthly, nil
	default:
		return "", &ValidationError{Reason: "unknown cadence " + strings.TrimSpace(s) + ", expected daily/weekly/monthly"}
	}
}

// OneTime is a single-shot reminder. It is deleted by the sweep once
// delivered.
type OneTime struct {
	ID    int64
	Owner string
	Text  string
	DueAt time.Time
}

// Recurring is a repeating reminder. NextDueAt always names the next
// undelivered occurrence; the sweep never deletes these, only advances them.
type Recurring struct {
	ID        int64
	Owner     string
	Text      string
	NextDueAt time.Time
	Cadence   Cadence
}
