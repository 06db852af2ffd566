// Package app wires the engine, the feed server and the translator behind the
// command-line flags.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tartampluch/go-attendance/internal/apperr"
	"github.com/tartampluch/go-attendance/internal/attendance"
	"github.com/tartampluch/go-attendance/internal/config"
	"github.com/tartampluch/go-attendance/internal/dates"
	"github.com/tartampluch/go-attendance/internal/engine"
	"github.com/tartampluch/go-attendance/internal/locale"
	"github.com/tartampluch/go-attendance/internal/server"
)

// Options mirrors the command-line flags.
type Options struct {
	SchedulesPath string
	URL           string
	User          string
	Port          string
	Serve         bool
	Interval      int // minutes
	VCardPath     string
	Lang          string
	Zone          string
	Attendance    string
	Month         string // YYYY-MM
	Reminder      string // e.g. 1d, 2h, +30m
	Output        string // ICS file written by a one-shot sync
	USWeeks       bool
}

// App executes the actions selected by Options.
type App struct {
	Clock      dates.Clock
	Fetcher    engine.Fetcher
	Server     *server.FeedServer
	Translator *locale.Translator
	Out        io.Writer

	opts    Options
	loc     *time.Location
	trigger string

	mu      sync.RWMutex
	entries []engine.ScheduleEntry
}

// New validates opts and builds an App on the wall clock.
func New(opts Options, out io.Writer) (*App, error) {
	if opts.Zone == "" {
		opts.Zone = config.DefaultZone
	}
	loc, err := attendance.LoadZone(opts.Zone)
	if err != nil {
		return nil, err
	}

	trigger, err := ParseReminder(opts.Reminder)
	if err != nil {
		return nil, err
	}

	if opts.Port == "" {
		opts.Port = config.DefaultPort
	}
	if err := ValidatePort(opts.Port); err != nil {
		return nil, err
	}

	a := &App{
		Clock:      dates.RealClock{},
		Fetcher:    engine.NewHTTPFetcher(),
		Translator: locale.New(opts.Lang),
		Out:        out,
		opts:       opts,
		loc:        loc,
		trigger:    trigger,
	}
	if opts.Serve {
		a.Server = server.NewFeedServer(opts.Port)
	}
	return a, nil
}

// Run performs every requested action in turn: attendance decoding, birthday
// listing, then a one-shot sync or, with Serve, the server and its worker.
func (a *App) Run(ctx context.Context) error {
	if a.opts.Attendance != "" {
		if err := a.PrintAttendance(); err != nil {
			return err
		}
	}
	if a.opts.VCardPath != "" {
		if err := a.PrintBirthdays(ctx); err != nil {
			return err
		}
	}
	if !a.hasSchedules() {
		return nil
	}
	if a.Server != nil {
		return a.Serve(ctx)
	}

	ics, err := a.SyncOnce(ctx)
	if err != nil {
		return err
	}
	a.PrintSchedules()
	if a.opts.Output == "" {
		return nil
	}
	if err := os.WriteFile(a.opts.Output, ics, config.FilePermUserRW); err != nil {
		return fmt.Errorf("%s: %w", config.ErrOutputWrite, err)
	}
	slog.Info(config.MsgOutputWritten,
		config.LogKeyComponent, config.CompMain,
		config.LogKeyFile, a.opts.Output,
		config.LogKeySizeBytes, len(ics),
	)
	return nil
}

// rule selects the week numbering.
func (a *App) rule() dates.WeekRule {
	if a.opts.USWeeks {
		return dates.USEnglish
	}
	return dates.Invariant
}

func (a *App) hasSchedules() bool {
	return a.opts.URL != "" || a.opts.SchedulesPath != ""
}

// syncConfig assembles the engine configuration from the flags and the keyring.
func (a *App) syncConfig() engine.SyncConfig {
	cfg := engine.SyncConfig{
		Mode:            config.SourceModeLocal,
		LocalPath:       a.opts.SchedulesPath,
		ReminderTrigger: a.trigger,
		Location:        a.loc,
	}
	if a.opts.URL != "" {
		cfg.Mode = config.SourceModeWeb
		cfg.WebURL = a.opts.URL
		cfg.WebUser = a.opts.User
		cfg.WebPass = engine.LookupPassword(a.opts.User)
	}
	return cfg
}

// SyncOnce runs the pipeline and publishes the result to the server, if any.
func (a *App) SyncOnce(ctx context.Context) ([]byte, error) {
	slog.Info(config.MsgSyncReq, config.LogKeyComponent, config.CompWorker)

	gen := &engine.Generator{
		Clock:         a.Clock,
		Fetcher:       a.Fetcher,
		Rule:          a.rule(),
		FormatSummary: a.Translator.Summary,
	}
	ics, entries, _, err := gen.RunSync(ctx, a.syncConfig())
	if err != nil {
		slog.Error(config.MsgSyncFailed, config.LogKeyError, err, config.LogKeyComponent, config.CompWorker)
		return nil, err
	}

	a.mu.Lock()
	a.entries = entries
	a.mu.Unlock()

	if a.Server != nil {
		a.Server.Update(ics)
		snapshot := engine.NewTodaySnapshot(dates.TodayIn(a.Clock, a.loc), a.rule(), entries, a.Clock.Now())
		if err := a.Server.UpdateToday(snapshot); err != nil {
			return nil, err
		}
	}
	return ics, nil
}

// Entries returns the schedules resolved by the last successful sync.
func (a *App) Entries() []engine.ScheduleEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]engine.ScheduleEntry(nil), a.entries...)
}

// Serve runs the feed server and the periodic sync until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	go a.backgroundWorker(ctx)
	return a.Server.Start(ctx)
}

// interval is the refresh period. Non-positive values fall back to the default.
func (a *App) interval() time.Duration {
	val := a.opts.Interval
	if val <= 0 {
		val = config.DefaultRefreshMin
	}
	return time.Duration(val) * time.Minute
}

// backgroundWorker syncs immediately, then on every tick. With
// config.DisabledInterval the first sync is served until ctx is cancelled.
func (a *App) backgroundWorker(ctx context.Context) {
	log := slog.With(config.LogKeyComponent, config.CompWorker)

	// 1. Initial sync, so the server has content on startup.
	_, _ = a.SyncOnce(ctx)

	if a.opts.Interval == config.DisabledInterval {
		log.Info(config.MsgRefreshDisabled)
		<-ctx.Done()
		log.Info(config.MsgWorkerStop)
		return
	}

	// 2. Periodic refresh.

	ticker := time.NewTicker(a.interval())
	defer ticker.Stop()
	log.Info(config.MsgWorkerStart, config.LogKeyInterval, a.interval())

	for {
		select {
		case <-ctx.Done():
			log.Info(config.MsgWorkerStop)
			return
		case <-ticker.C:
			_, _ = a.SyncOnce(ctx)
		}
	}
}

// ParseReminder converts a reminder flag ("1d", "2h", "30m", "+1d") to an
// ISO8601 trigger. Offsets are before the event unless prefixed with "+".
// An empty value disables reminders.
func ParseReminder(value string) (string, error) {
	if value == "" {
		return "", nil
	}

	dir := config.DirBefore
	if rest, ok := strings.CutPrefix(value, "+"); ok {
		dir, value = config.DirAfter, rest
	}
	if len(value) < 2 {
		return "", apperr.Newf(apperr.KindInvalidArgument, "%s: %q", config.ErrReminderFlag, value)
	}

	unit := value[len(value)-1:]
	n, err := strconv.Atoi(value[:len(value)-1])
	if err != nil || n < 0 {
		return "", apperr.Newf(apperr.KindInvalidArgument, "%s: %q", config.ErrReminderFlag, value)
	}
	switch unit {
	case config.UnitDays, config.UnitHours, config.UnitMinutes:
	default:
		return "", apperr.Newf(apperr.KindInvalidArgument, "%s: %q", config.ErrReminderFlag, value)
	}
	return engine.ReminderTrigger(n, unit, dir), nil
}

// ValidatePort checks a TCP port given as text.
func ValidatePort(port string) error {
	if port == "" {
		return errors.New(config.ErrPortRequired)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrPortNumber, err)
	}
	if n < config.MinPort || n > config.MaxPort {
		return errors.New(config.ErrPortRange)
	}
	return nil
}
