package periodicity

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/mo"
	"github.com/tartampluch/go-attendance/internal/apperr"
	"github.com/tartampluch/go-attendance/internal/config"
	"github.com/tartampluch/go-attendance/internal/dates"
)

// MatchResult is the outcome of Match. A failed match carries every error met
// while evaluating the chain; Matched is false then.
type MatchResult struct {
	Matched bool
	Errors  []error
}

// Succeeded reports whether the chain could be evaluated.
func (r MatchResult) Succeeded() bool {
	return len(r.Errors) == 0
}

// Err joins the accumulated errors, nil on success.
func (r MatchResult) Err() error {
	return errors.Join(r.Errors...)
}

// AddError records a failure.
func (r *MatchResult) AddError(err error) {
	r.Matched = false
	r.Errors = append(r.Errors, err)
}

// Result converts the outcome into a mo.Result.
func (r MatchResult) Result() mo.Result[bool] {
	if err := r.Err(); err != nil {
		return mo.Err[bool](err)
	}
	return mo.Ok(r.Matched)
}

// Match decides whether today satisfies a validated chain. It does not fail:
// malformed chains come back as a MatchResult with errors.
func Match(chain []Periodicity, today dates.TodayDetails) MatchResult {
	var res MatchResult
	matched, err := match(chain, today)
	if err != nil {
		res.AddError(err)
		return res
	}
	res.Matched = matched
	return res
}

func match(chain []Periodicity, today dates.TodayDetails) (bool, error) {
	l0, ok, err := atLevel(chain, 0)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, apperr.Newf(apperr.KindAmbiguousRule, "%s %d", config.ErrLevelMissing, 0)
	}

	switch l0.CategoryID {
	case Yearly:
		return contains(l0.Values, today.DayOfYear), nil

	case Monthly:
		l2, ok, err := atLevel(chain, 2)
		if err != nil {
			return false, err
		}
		if !ok {
			return contains(l0.Values, today.DayOfMonth), nil
		}
		return contains(l2.Values, today.MonthOfYear) && contains(l0.Values, today.DayOfMonth), nil

	case Weekly:
		l1, ok, err := atLevel(chain, 1)
		if err != nil {
			return false, err
		}
		if !ok {
			return contains(l0.Values, today.DayOfWeek), nil
		}
		switch l1.CategoryID {
		case Yearly:
			return contains(l1.Values, today.WeekOfYear) && contains(l0.Values, today.DayOfWeek), nil
		case Monthly:
			l2, ok, err := atLevel(chain, 2)
			if err != nil {
				return false, err
			}
			if !ok {
				return contains(l1.Values, today.WeekOfMonth) && contains(l0.Values, today.DayOfWeek), nil
			}
			return contains(l2.Values, today.MonthOfYear) &&
				contains(l1.Values, today.WeekOfMonth) &&
				contains(l0.Values, today.DayOfWeek), nil
		default:
			return false, apperr.Newf(apperr.KindInvalidRule, "%s: %d", config.ErrLevel1Category, l1.CategoryID)
		}

	default:
		return false, apperr.Newf(apperr.KindInvalidRule, "%s: %d", config.ErrLevel0Category, l0.CategoryID)
	}
}

// atLevel returns the single node with the given LevelID.
func atLevel(chain []Periodicity, level int) (Periodicity, bool, error) {
	var (
		found Periodicity
		count int
	)
	for _, p := range chain {
		if p.LevelID == level {
			found = p
			count++
		}
	}
	switch count {
	case 0:
		return Periodicity{}, false, nil
	case 1:
		return found, true, nil
	default:
		return Periodicity{}, false, apperr.Newf(apperr.KindAmbiguousRule, "%s %d", config.ErrLevelMany, level)
	}
}

// Occurrences lists every date in [from, to] matched by chain, date-only.
func Occurrences(chain []Periodicity, from, to time.Time, rule dates.WeekRule) ([]time.Time, error) {
	var out []time.Time
	for day, end := dates.DateOnly(from), dates.DateOnly(to); !day.After(end); day = day.AddDate(0, 0, 1) {
		res := Match(chain, dates.NewTodayDetails(day, rule))
		if !res.Succeeded() {
			return nil, fmt.Errorf("%s: %w", day.Format(config.DateFormatFullDash), res.Err())
		}
		if res.Matched {
			out = append(out, day)
		}
	}
	return out, nil
}

// Next returns the first date on or after from, within horizonDays, matched by chain.
func Next(chain []Periodicity, from time.Time, horizonDays int, rule dates.WeekRule) (time.Time, bool, error) {
	day := dates.DateOnly(from)
	for i := 0; i < horizonDays; i++ {
		res := Match(chain, dates.NewTodayDetails(day, rule))
		if !res.Succeeded() {
			return time.Time{}, false, res.Err()
		}
		if res.Matched {
			return day, true, nil
		}
		day = day.AddDate(0, 0, 1)
	}
	return time.Time{}, false, nil
}
