package reminder

import "time"

// Advance computes the occurrence after t for the given cadence.
//
// Monthly keeps t's day-of-month and time-of-day with the month incremented
// (year rolls over after December). When the target month is shorter than
// t's day-of-month, the day clamps to the target month's last valid day
// (Jan 31 -> Feb 28/29).
func Advance(t time.Time, cadence Cadence) (time.Time, error) {
	switch cadence {
	case CadenceDaily:
		return t.AddDate(0, 0, 1), nil
	case CadenceWeekly:
		return t.AddDate(0, 0, 7), nil
	case CadenceMonthly:
		year, month, day := t.Date()
		month++
		if month > time.December {
			month = time.January
			year++
		}
		// time.AddDate would normalize Jan 31 + 1mo into March; clamp instead.
		if last := daysIn(year, month); day > last {
			day = last
		}
		return time.Date(year, month, day, t.Hour(), t.Minute(), 0, 0, t.Location()), nil
	default:
		return time.Time{}, &ConfigError{Reason: "cannot advance unknown cadence " + string(cadence)}
	}
}

// NextAfter advances t by at least one period, then keeps advancing until
// the result is strictly after now. After downtime this delivers the missed
// occurrence once and resyncs to the schedule instead of storming through
// every period that passed.
func NextAfter(t time.Time, cadence Cadence, now time.Time) (time.Time, error) {
	next, err := Advance(t, cadence)
	if err != nil {
		return time.Time{}, err
	}
	for !next.After(now) {
		next, err = Advance(next, cadence)
		if err != nil {
			return time.Time{}, err
		}
	}
	return next, nil
}

func daysIn(year int, month time.Month) int {
	switch month {
	case time.April, time.June, time.September, time.November:
		return 30
	case time.February:
		if isLeap(year) {
			return 29
		}
		return 28
	default:
		return 31
	}
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
