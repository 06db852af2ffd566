package attendance

import (
	"log/slog"
	"sort"
	"time"

	"github.com/tartampluch/go-attendance/internal/apperr"
	"github.com/tartampluch/go-attendance/internal/config"
	"github.com/tartampluch/go-attendance/internal/dates"
)

// Bounds selects whether the start and stop dates of a range are counted.
// The zero value counts both ends.
type Bounds struct {
	ExcludeStart bool
	ExcludeStop  bool
}

// contains reports whether the date-only value day lies within [start, stop]
// under b. All three arguments are already date-only.
func (b Bounds) contains(day, start, stop time.Time) bool {
	if b.ExcludeStart {
		if !day.After(start) {
			return false
		}
	} else if day.Before(start) {
		return false
	}

	if b.ExcludeStop {
		return day.Before(stop)
	}
	return !day.After(stop)
}

// Dedupe collapses dates sharing the same (year, month, day) and returns the
// distinct dates, date-only and ascending.
func Dedupe(in []time.Time) []time.Time {
	seen := make(map[time.Time]struct{}, len(in))
	out := make([]time.Time, 0, len(in))
	for _, t := range in {
		day := dates.DateOnly(t)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// CountInRange counts the distinct attendance dates between start and stop.
// Every comparison is date-only. A nil slice is rejected; an empty one counts 0.
func CountInRange(attended []time.Time, start, stop time.Time, b Bounds) (int, error) {
	if attended == nil {
		return 0, apperr.New(apperr.KindInvalidArgument, config.ErrDatesNil)
	}

	start, stop = dates.DateOnly(start), dates.DateOnly(stop)
	inRange := make([]time.Time, 0, len(attended))
	for _, t := range attended {
		if day := dates.DateOnly(t); b.contains(day, start, stop) {
			inRange = append(inRange, day)
		}
	}
	return len(Dedupe(inRange)), nil
}

// Counter counts attendance up to the client-local today.
type Counter struct {
	Clock dates.Clock
}

// NewCounter returns a Counter on the wall clock.
func NewCounter() *Counter {
	return &Counter{Clock: dates.RealClock{}}
}

// CountUntilToday counts from start to today in zone (IANA name).
func (c *Counter) CountUntilToday(attended []time.Time, zone string, start time.Time, b Bounds) (int, error) {
	today, err := c.todayIn(zone)
	if err != nil {
		return 0, err
	}
	return CountInRange(attended, start, today, b)
}

// CountFromFirstOfMonth counts from the 1st of the current UTC month to today in zone.
func (c *Counter) CountFromFirstOfMonth(attended []time.Time, zone string, b Bounds) (int, error) {
	today, err := c.todayIn(zone)
	if err != nil {
		return 0, err
	}
	return CountInRange(attended, dates.FirstOfMonth(c.Clock.Now().UTC()), today, b)
}

// CountFromFirstOfYear counts from January 1st of the current UTC year to today in zone.
func (c *Counter) CountFromFirstOfYear(attended []time.Time, zone string, b Bounds) (int, error) {
	today, err := c.todayIn(zone)
	if err != nil {
		return 0, err
	}
	return CountInRange(attended, dates.FirstOfYear(c.Clock.Now().UTC()), today, b)
}

func (c *Counter) todayIn(zone string) (time.Time, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return time.Time{}, err
	}
	return dates.TodayIn(c.Clock, loc), nil
}

// LoadZone resolves an IANA zone name. The empty name and "Local", which
// time.LoadLocation maps to UTC and to the host zone, are not IANA names and
// fail like any unknown zone.
func LoadZone(zone string) (*time.Location, error) {
	if zone == "" || zone == config.ZoneLocal {
		slog.Debug(config.MsgZoneRejected,
			config.LogKeyComponent, config.CompAttendance,
			config.LogKeyZone, zone,
		)
		return nil, apperr.Newf(apperr.KindLookupFailure, "%s: %q", config.ErrUnknownZone, zone)
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		slog.Debug(config.MsgZoneRejected,
			config.LogKeyComponent, config.CompAttendance,
			config.LogKeyZone, zone,
			config.LogKeyError, err,
		)
		return nil, apperr.Wrap(err, apperr.KindLookupFailure, config.ErrUnknownZone+": "+zone)
	}
	return loc, nil
}
