package dates

import (
	"fmt"
	"time"

	"github.com/tartampluch/go-attendance/internal/apperr"
	"github.com/tartampluch/go-attendance/internal/config"
)

// Age is elapsed calendar time. Each component is the remainder left after
// the coarser ones: a partial final year rolls down into months, a partial
// final month into days.
type Age struct {
	Years  int
	Months int
	Days   int
}

// String renders the age in the invariant, non-localized form.
func (a Age) String() string {
	return fmt.Sprintf(config.FallbackAge, a.Years, a.Months, a.Days)
}

// IsZero reports whether no time has elapsed.
func (a Age) IsZero() bool {
	return a.Years <= 0 && a.Months <= 0 && a.Days <= 0
}

// CalculateAge measures the calendar distance from start to end, date-only.
// Year and month steps are clamped to the end of the month, so 2020-02-29 to
// 2021-03-01 is one year and one day.
func CalculateAge(start, end time.Time) (Age, error) {
	start, end = DateOnly(start), DateOnly(end)
	if start.After(end) {
		return Age{}, apperr.New(apperr.KindInvalidArgument, config.ErrAgeOrder)
	}

	years := end.Year() - start.Year()
	if years != 0 && end.Before(AddYearsClamped(start, years)) {
		years--
	}
	start = AddYearsClamped(start, years)

	var months int
	if start.Year() == end.Year() {
		months = int(end.Month()) - int(start.Month())
	} else {
		months = 12 - int(start.Month()) + int(end.Month())
	}
	if months != 0 && end.Before(AddMonthsClamped(start, months)) {
		months--
	}
	start = AddMonthsClamped(start, months)

	days := int(end.Sub(start).Hours() / 24)
	return Age{Years: years, Months: months, Days: days}, nil
}

// Birthday is a birth date together with the age it represents on a
// reference "client today".
type Birthday struct {
	date time.Time
	age  Age
}

// NewBirthday builds a Birthday measured against clientToday. The birth date
// must be strictly before clientToday.
func NewBirthday(birth, clientToday time.Time) (Birthday, error) {
	birth, clientToday = DateOnly(birth), DateOnly(clientToday)
	if !birth.Before(clientToday) {
		return Birthday{}, apperr.New(apperr.KindOutOfRange, config.ErrBirthdayFuture)
	}

	age, err := CalculateAge(birth, clientToday)
	if err != nil {
		return Birthday{}, err
	}
	return Birthday{date: birth, age: age}, nil
}

// UpcomingBirthday returns the Birthday measured to the next anniversary on or
// after clientToday. Its Age is the age being turned.
func UpcomingBirthday(birth, clientToday time.Time) (Birthday, error) {
	today := DateOnly(clientToday)
	year := today.Year()

	candidate, err := SetYear(birth, year)
	if err != nil {
		return Birthday{}, err
	}
	if DateOnly(candidate).Before(today) {
		year++
	}

	anniversary, err := SetYear(birth, year)
	if err != nil {
		return Birthday{}, err
	}
	return NewBirthday(birth, anniversary)
}

func (b Birthday) Date() time.Time   { return b.date }
func (b Birthday) Year() int         { return b.date.Year() }
func (b Birthday) Month() time.Month { return b.date.Month() }
func (b Birthday) Day() int          { return b.date.Day() }
func (b Birthday) Age() Age          { return b.age }

// IsZero reports whether the birthday carries no elapsed time.
func (b Birthday) IsZero() bool {
	return b.age.IsZero()
}

// String renders the birth date as "January 2 2006".
func (b Birthday) String() string {
	return b.date.Format(config.DateFormatDisplay)
}

// Display renders the birth date followed by the age.
func (b Birthday) Display() string {
	return fmt.Sprintf(config.FallbackBirthday, b.String(), b.age.String())
}
