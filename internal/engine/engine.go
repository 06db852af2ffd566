package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/go-attendance/internal/apperr"
	"github.com/tartampluch/go-attendance/internal/config"
	"github.com/tartampluch/go-attendance/internal/dates"
	"github.com/tartampluch/go-attendance/internal/periodicity"
)

// SyncConfig contains all parameters required to perform a synchronization.
type SyncConfig struct {
	Mode            string         // config.SourceModeLocal or config.SourceModeWeb
	LocalPath       string         // Path to the JSON schedule document
	WebURL          string         // URL of the JSON schedule document
	WebUser         string         // HTTP Basic Auth Username
	WebPass         string         // HTTP Basic Auth Password
	ReminderTrigger string         // ISO8601 duration string (e.g., "-P1D")
	Location        *time.Location // Zone of the client-local today; UTC when nil
}

// Generator turns a schedule document into an iCalendar feed.
type Generator struct {
	Clock   dates.Clock
	Fetcher Fetcher

	// Rule numbers the weeks of the year. The zero value is dates.Invariant.
	Rule dates.WeekRule

	// Horizon bounds the search for the next occurrence and the RDATE expansion, in days.
	// Zero means config.DefaultHorizonDays.
	Horizon int

	// FormatSummary localizes the event summary.
	FormatSummary func(name string) string
}

// RunSync fetches and decodes the schedules, then builds the feed.
// It returns the ICS data, one entry per valid schedule, the count of
// schedules due today, and any error.
func (g *Generator) RunSync(ctx context.Context, cfg SyncConfig) ([]byte, []ScheduleEntry, int, error) {
	start := time.Now()
	log := slog.With(
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyMode, cfg.Mode,
	)
	log.InfoContext(ctx, config.MsgSyncStarted)

	reader, err := g.acquireStream(ctx, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, 0, ctx.Err()
		}
		return nil, nil, 0, fmt.Errorf("%s: %w", config.ErrScheduleParse, err)
	}
	defer func() { _ = reader.Close() }()

	if err := ctx.Err(); err != nil {
		return nil, nil, 0, err
	}

	schedules, err := DecodeSchedules(reader)
	if err != nil {
		return nil, nil, 0, err
	}

	ics, entries, count, err := g.generateCalendar(ctx, schedules, cfg)
	if err == nil {
		log.Debug(config.MsgSyncFinished, config.LogKeyDuration, time.Since(start).Milliseconds())
	}
	return ics, entries, count, err
}

// acquireStream opens the appropriate data source based on configuration.
func (g *Generator) acquireStream(ctx context.Context, cfg SyncConfig) (io.ReadCloser, error) {
	switch cfg.Mode {
	case config.SourceModeLocal:
		if cfg.LocalPath == "" {
			return nil, errors.New(config.ErrLocalPathEmpty)
		}
		return os.Open(cfg.LocalPath)
	case config.SourceModeWeb:
		if cfg.WebURL == "" {
			return nil, errors.New(config.ErrWebURLEmpty)
		}
		if g.Fetcher == nil {
			return nil, errors.New(config.ErrFetcherMissing)
		}
		return g.Fetcher.Fetch(ctx, Request{
			URL:    cfg.WebURL,
			User:   cfg.WebUser,
			Pass:   cfg.WebPass,
			Accept: config.AcceptSchedules,
		})
	default:
		return nil, fmt.Errorf("%s: %q", config.ErrModeUnsupport, cfg.Mode)
	}
}

func (g *Generator) horizon() int {
	if g.Horizon > 0 {
		return g.Horizon
	}
	return config.DefaultHorizonDays
}

// generateCalendar resolves every schedule and emits one VEVENT per schedule
// with an occurrence inside the horizon.
func (g *Generator) generateCalendar(ctx context.Context, schedules []Schedule, cfg SyncConfig) ([]byte, []ScheduleEntry, int, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	now := g.Clock.Now()
	today := dates.TodayIn(g.Clock, loc)
	details := dates.NewTodayDetails(today, g.Rule)

	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	stats := syncStats{total: len(schedules)}
	var entries []ScheduleEntry

	for i, s := range schedules {
		if err := ctx.Err(); err != nil {
			return nil, nil, 0, err
		}

		log := slog.With(
			config.LogKeyComponent, config.CompEngine,
			config.LogKeyIndex, i,
			config.LogKeyName, s.Name,
		)

		chain, err := periodicity.Validate(s.Rules...)
		if err != nil {
			log.Warn(config.MsgSkippedSchedule, config.LogKeyError, err, config.LogKeyKind, apperr.KindOf(err))
			continue
		}

		res := periodicity.Match(chain, details)
		if !res.Succeeded() {
			log.Warn(config.MsgMatchFailed, config.LogKeyError, res.Err(), config.LogKeyKind, apperr.KindOf(res.Err()))
			continue
		}
		stats.valid++

		entry := ScheduleEntry{
			UID:      stableUID(s.Name, chainKey(chain)),
			Name:     s.Name,
			Chain:    chain,
			DueToday: res.Matched,
		}
		if entry.DueToday {
			stats.today++
			log.Info(config.MsgScheduleToday, config.LogKeyDate, today.Format(config.DateFormatFullDash))
		}

		next, ok, err := periodicity.Next(chain, today, g.horizon(), g.Rule)
		if err != nil {
			log.Warn(config.MsgSkippedSchedule, config.LogKeyError, err)
			continue
		}
		if !ok {
			log.Debug(config.MsgNoOccurrence, config.LogKeyValue, g.horizon())
			entries = append(entries, entry)
			continue
		}
		entry.Next, entry.HasNext = next, true

		event, rule, err := g.createEvent(entry, today)
		if err != nil {
			log.Warn(config.MsgSkippedSchedule, config.LogKeyError, err)
			continue
		}
		entry.RRule = rule
		entries = append(entries, entry)

		event.Props.Set(dtStampProp)
		if cfg.ReminderTrigger != "" {
			addAlarm(event, cfg.ReminderTrigger, event.Props.Get(config.PropSummary).Value)
		}
		cal.Children = append(cal.Children, event.Component)
	}

	if len(cal.Children) == 0 {
		g.logSuccess(stats)
		return []byte(config.StubVCalendar), entries, stats.today, nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, nil, 0, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}

	g.logSuccess(stats)
	return buf.Bytes(), entries, stats.today, nil
}

// createEvent builds the all-day VEVENT of one schedule. The recurrence is an
// RRULE when one exists, else the explicit dates within the horizon.
func (g *Generator) createEvent(entry ScheduleEntry, today time.Time) (*ical.Event, string, error) {
	event := ical.NewEvent()
	event.Props.SetText(config.PropUID, entry.UID)

	summary := fmt.Sprintf(config.FallbackSummary, entry.Name)
	if g.FormatSummary != nil {
		summary = g.FormatSummary(entry.Name)
	}
	event.Props.SetText(config.PropSummary, summary)

	dtStartProp := ical.NewProp(config.PropDTStart)
	dtStartProp.SetDate(entry.Next)
	event.Props.Set(dtStartProp)

	// RRULE only when it expands to the matched dates over the whole horizon.
	end := today.AddDate(0, 0, g.horizon()-1)
	rule, err := periodicity.CheckedRRule(entry.Chain, entry.Next, end, g.Rule)
	if err == nil {
		// Set manually: SetText would escape the commas of BYxxx lists.
		rruleProp := ical.NewProp(config.PropRRule)
		rruleProp.Value = rule
		event.Props.Set(rruleProp)
		return event, rule, nil
	}
	if !errors.Is(err, apperr.ErrInvalidRule) {
		return nil, "", err
	}

	slog.Debug(config.MsgRRuleFallback,
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyName, entry.Name,
		config.LogKeyError, err)

	occurrences, err := periodicity.Occurrences(entry.Chain, entry.Next, end, g.Rule)
	if err != nil {
		return nil, "", err
	}
	// DTSTART is the first occurrence; RDATE lists the rest.
	for _, day := range occurrences[1:] {
		rdate := ical.NewProp(config.PropRDate)
		rdate.SetDate(day)
		event.Props.Add(rdate)
	}
	return event, "", nil
}

// addAlarm appends a DISPLAY alarm to the event.
func addAlarm(event *ical.Event, trigger, description string) {
	alarm := ical.NewComponent(config.ICalComponent)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	// Set trigger manually to avoid "VALUE=TEXT" param
	triggerProp := ical.NewProp(config.PropTrigger)
	triggerProp.Value = trigger
	alarm.Props.Set(triggerProp)

	event.Children = append(event.Children, alarm)
}

type syncStats struct {
	total, valid, today int
}

func (g *Generator) logSuccess(stats syncStats) {
	slog.Info(config.MsgGenSuccess,
		config.LogKeyComponent, config.CompEngine,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyTotal, stats.total),
			slog.Int(config.LogKeyValid, stats.valid),
			slog.Int(config.LogKeyToday, stats.today),
		),
	)
}

// chainKey renders a chain deterministically for UID derivation.
func chainKey(chain []periodicity.Periodicity) string {
	var b bytes.Buffer
	for _, p := range chain {
		fmt.Fprintf(&b, "%d/%d%v;", p.CategoryID, p.LevelID, p.Values)
	}
	return b.String()
}
