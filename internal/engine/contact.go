package engine

import (
	"time"

	"github.com/tartampluch/go-attendance/internal/dates"
)

// BirthdayEntry is a contact with a birth date, measured against a "client today".
type BirthdayEntry struct {
	// UID is a stable identifier derived from the name and birth date.
	UID string

	// Name is the formatted name (FN), else the structured name (N).
	Name string

	// YearKnown is false for truncated dates such as --MM-DD; ages are then meaningless.
	YearKnown bool

	// Birthday carries the age on today.
	Birthday dates.Birthday

	// Upcoming is measured to Next; its Age is the age being turned.
	Upcoming dates.Birthday

	// Next is the next anniversary on or after today. Feb 29 falls on Feb 28 in common years.
	Next time.Time
}
