package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/tartampluch/go-attendance/internal/apperr"
	"github.com/tartampluch/go-attendance/internal/config"
	"github.com/tartampluch/go-attendance/internal/dates"
	"github.com/tartampluch/go-attendance/internal/periodicity"
)

// Schedule is one named recurrence as found in the schedule document.
type Schedule struct {
	Name  string                    `json:"Name"`
	Rules []periodicity.Periodicity `json:"Rules"`
}

// ScheduleEntry is the resolved form of a Schedule, ready for display.
type ScheduleEntry struct {
	// UID is the stable identifier of the generated event.
	UID string `json:"uid"`

	// Name is the schedule name or its positional fallback.
	Name string `json:"name"`

	// Chain is the validated periodicity chain, highest category first.
	Chain []periodicity.Periodicity `json:"chain"`

	// Next is the first occurrence on or after today, if any within the horizon.
	Next    time.Time `json:"next,omitempty"`
	HasNext bool      `json:"has_next"`

	// DueToday reports whether today matches the chain.
	DueToday bool `json:"due_today"`

	// RRule is the exported recurrence rule, empty when the chain has none.
	RRule string `json:"rrule,omitempty"`
}

// DecodeSchedules reads a JSON schedule document.
func DecodeSchedules(r io.Reader) ([]Schedule, error) {
	var out []Schedule
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		// Reader failures such as an oversized body keep their own kind.
		if apperr.KindOf(err) != "" {
			return nil, err
		}
		return nil, apperr.Wrap(err, apperr.KindInvalidArgument, config.ErrScheduleParse)
	}
	for i := range out {
		if out[i].Name == "" {
			out[i].Name = fmt.Sprintf(config.FallbackScheduleName, i+1)
		}
	}
	return out, nil
}

// TodaySnapshot is the JSON document served on config.RouteToday.
type TodaySnapshot struct {
	Date        string             `json:"date"`
	Details     dates.TodayDetails `json:"details"`
	DueToday    []string           `json:"due_today"`
	Schedules   []ScheduleEntry    `json:"schedules"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// NewTodaySnapshot describes today and the schedules resolved by a sync.
func NewTodaySnapshot(today time.Time, rule dates.WeekRule, entries []ScheduleEntry, generatedAt time.Time) TodaySnapshot {
	due := []string{}
	for _, e := range entries {
		if e.DueToday {
			due = append(due, e.Name)
		}
	}
	if entries == nil {
		entries = []ScheduleEntry{}
	}
	return TodaySnapshot{
		Date:        dates.DateOnly(today).Format(config.DateFormatFullDash),
		Details:     dates.NewTodayDetails(today, rule),
		DueToday:    due,
		Schedules:   entries,
		GeneratedAt: generatedAt.UTC(),
	}
}
