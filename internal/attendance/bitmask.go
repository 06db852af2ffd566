// Package attendance encodes the days of a month on which attendance occurred
// as a 32-bit mask and counts attendance over date ranges.
//
// Bit d of a Bitmask stands for day-of-month d. Bit 0 is never used; it is
// cleared by every constructor so that it cannot leak into counts.
package attendance

import (
	"strconv"
	"time"

	"github.com/tartampluch/go-attendance/internal/apperr"
	"github.com/tartampluch/go-attendance/internal/config"
	"github.com/tartampluch/go-attendance/internal/dates"
)

// Bitmask is the persisted form of one month of attendance.
type Bitmask uint32

// dayBits keeps bits 1..31.
const dayBits Bitmask = 0xFFFFFFFE

// FromInt converts a persisted signed integer column into a Bitmask.
func FromInt(v int32) Bitmask {
	return Bitmask(uint32(v)) & dayBits
}

// Parse reads a persisted decimal value. Both the signed (int32) and the
// unsigned (uint32) renderings of the same bits are accepted.
func Parse(s string) (Bitmask, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, apperr.Wrap(err, apperr.KindInvalidArgument, config.ErrMaskParse)
	}
	if v < -1<<31 || v > 1<<32-1 {
		return 0, apperr.Newf(apperr.KindOutOfRange, "%s: %d", config.ErrMaskParse, v)
	}
	return Bitmask(uint32(v)) & dayBits, nil
}

// FromBits packs a bit array, index i being bit i. Arrays longer than 32
// entries are rejected.
func FromBits(bits []bool) (Bitmask, error) {
	if bits == nil {
		return 0, apperr.New(apperr.KindInvalidArgument, config.ErrBitsNil)
	}
	if len(bits) > config.BitmaskWidth {
		return 0, apperr.New(apperr.KindOutOfRange, config.ErrBitsTooLong)
	}
	var m Bitmask
	for i, set := range bits {
		if set {
			m |= 1 << uint(i)
		}
	}
	return m & dayBits, nil
}

// Encode sets the bit of every date's day-of-month. Month and year are
// dropped: the 5th of January and the 5th of March share one bit, so callers
// partition by month first when that matters.
func Encode(attended []time.Time) Bitmask {
	var m Bitmask
	for _, date := range attended {
		m |= 1 << uint(date.Day())
	}
	return m & dayBits
}

// Int32 returns the value to persist in a signed integer column.
func (m Bitmask) Int32() int32 {
	return int32(uint32(m & dayBits))
}

// Has reports whether day is set. Days outside 1..31 are never set.
func (m Bitmask) Has(day int) bool {
	if day < 1 || day > config.MaxDayOfMonth {
		return false
	}
	return m&(1<<uint(day)) != 0
}

// With returns a copy of m with the given days set; invalid days are ignored.
func (m Bitmask) With(days ...int) Bitmask {
	for _, day := range days {
		if day >= 1 && day <= config.MaxDayOfMonth {
			m |= 1 << uint(day)
		}
	}
	return m & dayBits
}

// Days lists the set days in ascending order.
func (m Bitmask) Days() []int {
	var out []int
	for day := 1; day <= config.MaxDayOfMonth; day++ {
		if m.Has(day) {
			out = append(out, day)
		}
	}
	return out
}

// Count returns the number of days set.
func (m Bitmask) Count() int {
	return PopulationCount(m)
}

// Dates is Decode bound to m.
func (m Bitmask) Dates(year int, month time.Month) []time.Time {
	return Decode(m, year, month)
}

// Decode returns the dates of year/month whose bit is set, ascending. Days the
// month does not have (the 31st of April, the 29th of a common February) are
// skipped without error.
func Decode(m Bitmask, year int, month time.Month) []time.Time {
	var out []time.Time
	for day := 1; day <= config.MaxDayOfMonth; day++ {
		if !m.Has(day) {
			continue
		}
		if !dates.Valid(year, month, day) {
			continue
		}
		out = append(out, dates.New(year, month, day))
	}
	return out
}

// DecodeStrings is Decode for a year and month read from text.
func DecodeStrings(year, month string, m Bitmask) ([]time.Time, error) {
	y, err := strconv.ParseUint(year, 10, 16)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindInvalidArgument, config.ErrYearParse)
	}
	mon, err := strconv.ParseUint(month, 10, 16)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindInvalidArgument, config.ErrMonthParse)
	}
	if y < config.MinAttendanceYear {
		return nil, apperr.Newf(apperr.KindOutOfRange, "%s: %d", config.ErrYearParse, y)
	}
	if mon < 1 || mon > 12 {
		return nil, apperr.Newf(apperr.KindOutOfRange, "%s: %d", config.ErrMonthParse, mon)
	}
	return Decode(m, int(y), time.Month(mon)), nil
}
