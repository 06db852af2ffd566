package dates

import "time"

// Clock abstracts time.Now() to allow deterministic testing.
// It is used to determine "today" for range counts and schedule matching.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// FixedClock always reports the same instant.
type FixedClock time.Time

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return time.Time(c)
}

// TodayIn returns the calendar date of "now" in loc, as a UTC midnight.
func TodayIn(c Clock, loc *time.Location) time.Time {
	return DateOnly(c.Now().UTC().In(loc))
}
