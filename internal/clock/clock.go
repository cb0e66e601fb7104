// Package clock supplies the application's notion of "now" pinned to a fixed
// time zone, plus the end-of-month arithmetic used to normalize drug
// expiration dates. Services take a Clock so tests can pin time.
package clock

import "time"

// Clock yields the current instant in the application time zone.
type Clock interface {
	Now() time.Time
}

// systemClock reads the wall clock and converts to a fixed location.
type systemClock struct {
	loc *time.Location
}

// System returns a Clock backed by the wall clock, reporting instants in loc.
// A nil loc falls back to UTC.
func System(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time { return time.Now().In(c.loc) }

// Fixed is a Clock frozen at a single instant, for deterministic tests.
type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time { return f.At }

// EndOfMonth returns the last representable instant of (year, month) in loc:
// 23:59:59.999999999 on the last day of the month. Drug expiration dates are
// always stored as this instant, so a drug stays usable through its printed
// expiry month.
func EndOfMonth(year int, month time.Month, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, loc)
	return firstOfNext.Add(-time.Nanosecond)
}

// YearMonth recovers the (year, month) pair an expiration instant encodes,
// interpreted in loc. Inverse of EndOfMonth for instants it produced.
func YearMonth(t time.Time, loc *time.Location) (int, time.Month) {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return t.Year(), t.Month()
}
