package dates

import "time"

// WeekRule carries the locale data used by the week-53 correction.
type WeekRule struct {
	// LastDayOfWeek is the day a locale considers the end of the week.
	LastDayOfWeek time.Weekday
}

var (
	// Invariant is the culture-neutral rule: weeks end on Sunday.
	Invariant = WeekRule{LastDayOfWeek: time.Sunday}

	// USEnglish ends weeks on Saturday.
	USEnglish = WeekRule{LastDayOfWeek: time.Saturday}
)

// WeekOfYear returns the ISO-8601 week number of date, except that a week 53
// is reported as week 1 when December 31 of the date's calendar year does not
// fall on rule.LastDayOfWeek.
func WeekOfYear(date time.Time, rule WeekRule) int {
	_, week := date.ISOWeek()
	if week == 53 && LastDateOfYear(date).Weekday() != rule.LastDayOfWeek {
		return 1
	}
	return week
}

// WeekOfMonth returns the 1-based index of the Monday-started week of date
// within its month. The days before the month's first Monday form week 1.
func WeekOfMonth(date time.Time) int {
	offset := ISODayOfWeek(FirstOfMonth(date)) - 1
	return (date.Day()-1+offset)/7 + 1
}

// ISODayOfWeek maps Monday..Sunday to 1..7.
func ISODayOfWeek(date time.Time) int {
	return (int(date.Weekday())+6)%7 + 1
}

// FirstDateOfISOWeek returns the Monday starting ISO week `week` of isoYear.
func FirstDateOfISOWeek(isoYear, week int) time.Time {
	// January 4th is always inside week 1.
	jan4 := New(isoYear, time.January, 4)
	monday := jan4.AddDate(0, 0, 1-ISODayOfWeek(jan4))
	return monday.AddDate(0, 0, (week-1)*7)
}

// TodayDetails is a snapshot of the ISO-8601 coordinates of one calendar date.
type TodayDetails struct {
	DayOfYear   int `json:"day_of_year"`
	WeekOfYear  int `json:"week_of_year"`
	MonthOfYear int `json:"month_of_year"`
	DayOfMonth  int `json:"day_of_month"`
	WeekOfMonth int `json:"week_of_month"`
	DayOfWeek   int `json:"day_of_week"` // 1 = Monday .. 7 = Sunday
}

// NewTodayDetails computes the coordinates of date under rule.
func NewTodayDetails(date time.Time, rule WeekRule) TodayDetails {
	date = DateOnly(date)
	return TodayDetails{
		DayOfYear:   date.YearDay(),
		WeekOfYear:  WeekOfYear(date, rule),
		MonthOfYear: int(date.Month()),
		DayOfMonth:  date.Day(),
		WeekOfMonth: WeekOfMonth(date),
		DayOfWeek:   ISODayOfWeek(date),
	}
}
