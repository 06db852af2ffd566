package periodicity

import (
	"log/slog"
	"time"

	"github.com/tartampluch/go-attendance/internal/apperr"
	"github.com/tartampluch/go-attendance/internal/config"
	"github.com/tartampluch/go-attendance/internal/dates"
	"github.com/teambition/rrule-go"
)

// boundaryWeeks can hold days of the neighbouring calendar year (week 52 may
// end on Jan 2, week 1 start on Dec 29). BYWEEKNO only counts the weeks of the
// year being expanded, and Match renumbers week 53 as week 1.
var boundaryWeeks = []int{1, 52, 53}

var isoWeekdays = map[int]rrule.Weekday{
	1: rrule.MO,
	2: rrule.TU,
	3: rrule.WE,
	4: rrule.TH,
	5: rrule.FR,
	6: rrule.SA,
	7: rrule.SU,
}

// Recurrence builds the RFC 5545 rule equivalent to chain, starting at dtstart.
//
// Week-of-month chains have no RRULE equivalent. Week-of-year chains listing
// one of the boundary weeks 1, 52 or 53 are refused too.
func Recurrence(chain []Periodicity, dtstart time.Time) (*rrule.RRule, error) {
	opt, err := options(chain)
	if err != nil {
		return nil, err
	}
	opt.Dtstart = dtstart
	opt.Wkst = rrule.MO

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindInvalidRule, config.ErrNotExpressible)
	}
	return r, nil
}

// RRule renders the RRULE value (without DTSTART) for chain.
func RRule(chain []Periodicity, dtstart time.Time) (string, error) {
	r, err := Recurrence(chain, dtstart)
	if err != nil {
		return "", err
	}
	return r.OrigOptions.RRuleString(), nil
}

// CheckedRRule is RRule, also refusing with an InvalidRule error a rule whose
// expansion over [from, to] differs from Occurrences under the same week rule.
func CheckedRRule(chain []Periodicity, from, to time.Time, rule dates.WeekRule) (string, error) {
	r, err := Recurrence(chain, dates.DateOnly(from))
	if err != nil {
		return "", err
	}
	same, err := agrees(r, chain, from, to, rule)
	if err != nil {
		return "", err
	}
	if !same {
		slog.Debug(config.MsgRRuleMismatch,
			config.LogKeyComponent, config.CompPeriodicity,
			config.LogKeyValue, r.OrigOptions.RRuleString(),
		)
		return "", apperr.New(apperr.KindInvalidRule, config.ErrRRuleMismatch)
	}
	return r.OrigOptions.RRuleString(), nil
}

// agrees reports whether r yields exactly the dates chain matches in [from, to].
func agrees(r *rrule.RRule, chain []Periodicity, from, to time.Time, rule dates.WeekRule) (bool, error) {
	want, err := Occurrences(chain, from, to, rule)
	if err != nil {
		return false, err
	}
	got := r.Between(dates.DateOnly(from), dates.DateOnly(to), true)
	if len(got) != len(want) {
		return false, nil
	}
	for i := range got {
		if !dates.DateOnly(got[i]).Equal(want[i]) {
			return false, nil
		}
	}
	return true, nil
}

func options(chain []Periodicity) (rrule.ROption, error) {
	l0, ok, err := atLevel(chain, 0)
	if err != nil {
		return rrule.ROption{}, err
	}
	if !ok {
		return rrule.ROption{}, apperr.Newf(apperr.KindAmbiguousRule, "%s %d", config.ErrLevelMissing, 0)
	}

	switch l0.CategoryID {
	case Yearly:
		return rrule.ROption{Freq: rrule.YEARLY, Byyearday: l0.Values}, nil

	case Monthly:
		l2, ok, err := atLevel(chain, 2)
		if err != nil {
			return rrule.ROption{}, err
		}
		if !ok {
			return rrule.ROption{Freq: rrule.MONTHLY, Bymonthday: l0.Values}, nil
		}
		for _, m := range l2.Values {
			if m > 12 {
				return rrule.ROption{}, apperr.Newf(apperr.KindInvalidRule, "%s: month %d", config.ErrNotExpressible, m)
			}
		}
		return rrule.ROption{Freq: rrule.YEARLY, Bymonth: l2.Values, Bymonthday: l0.Values}, nil

	case Weekly:
		days, err := weekdays(l0.Values)
		if err != nil {
			return rrule.ROption{}, err
		}
		l1, ok, err := atLevel(chain, 1)
		if err != nil {
			return rrule.ROption{}, err
		}
		if !ok {
			return rrule.ROption{Freq: rrule.WEEKLY, Byweekday: days}, nil
		}
		if l1.CategoryID != Yearly {
			return rrule.ROption{}, apperr.New(apperr.KindInvalidRule, config.ErrNotExpressible)
		}
		for _, w := range boundaryWeeks {
			if contains(l1.Values, w) {
				return rrule.ROption{}, apperr.Newf(apperr.KindInvalidRule, "%s: week %d", config.ErrNotExpressible, w)
			}
		}
		return rrule.ROption{Freq: rrule.YEARLY, Byweekno: l1.Values, Byweekday: days}, nil

	default:
		return rrule.ROption{}, apperr.Newf(apperr.KindInvalidRule, "%s: %d", config.ErrLevel0Category, l0.CategoryID)
	}
}

func weekdays(values []int) ([]rrule.Weekday, error) {
	out := make([]rrule.Weekday, 0, len(values))
	for _, v := range values {
		wd, ok := isoWeekdays[v]
		if !ok {
			return nil, apperr.Newf(apperr.KindInvalidRule, "%s: day of week %d", config.ErrNotExpressible, v)
		}
		out = append(out, wd)
	}
	return out, nil
}
