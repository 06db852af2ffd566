package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/tartampluch/go-attendance/internal/apperr"
	"github.com/tartampluch/go-attendance/internal/attendance"
	"github.com/tartampluch/go-attendance/internal/config"
	"github.com/tartampluch/go-attendance/internal/dates"
	"github.com/tartampluch/go-attendance/internal/engine"
)

// PrintAttendance lists the days of the -attendance bitmask in -month, then
// how many of them are already behind the client-local today.
func (a *App) PrintAttendance() error {
	first, err := time.Parse(config.DateFormatYearMonth, a.opts.Month)
	if err != nil {
		return apperr.Wrap(err, apperr.KindInvalidArgument, config.ErrMonthFlag)
	}
	year, month, _ := strings.Cut(a.opts.Month, "-")

	mask, err := attendance.Parse(a.opts.Attendance)
	if err != nil {
		return err
	}
	days, err := attendance.DecodeStrings(year, month, mask)
	if err != nil {
		return err
	}

	for _, day := range days {
		fmt.Fprintln(a.Out, day.Format(config.DateFormatFullDash))
	}

	counter := &attendance.Counter{Clock: a.Clock}
	n, err := counter.CountUntilToday(days, a.opts.Zone, first, attendance.Bounds{})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.Out, a.Translator.Attendance(n, a.opts.Month))
	return nil
}

// PrintBirthdays lists the contacts of -vcard by upcoming anniversary.
func (a *App) PrintBirthdays(ctx context.Context) error {
	f, err := a.openVCard(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	entries, err := engine.LoadBirthdays(ctx, f, dates.TodayIn(a.Clock, a.loc))
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.Out, a.Translator.NoBirthdays())
		return nil
	}

	for _, e := range entries {
		if !e.YearKnown {
			fmt.Fprintf(a.Out, config.FormatReportLine+"\n", e.Name, e.Next.Format(config.DateFormatFullDash))
			continue
		}
		fmt.Fprintf(a.Out, config.FormatReportLine+"\n", e.Name, a.Translator.Birthday(e.Birthday))
		fmt.Fprintf(a.Out, config.FormatReportItem+"\n", a.Translator.Upcoming(e.Name, e.Upcoming.Age().Years, e.Next))
	}
	return nil
}

// openVCard opens -vcard: an http(s) URL goes through the fetcher with the
// -user credentials, anything else is a local path.
func (a *App) openVCard(ctx context.Context) (io.ReadCloser, error) {
	path := a.opts.VCardPath
	if !strings.HasPrefix(path, config.SchemeHTTP+"://") && !strings.HasPrefix(path, config.SchemeHTTPS+"://") {
		return os.Open(path)
	}
	return a.Fetcher.Fetch(ctx, engine.Request{
		URL:    path,
		User:   a.opts.User,
		Pass:   engine.LookupPassword(a.opts.User),
		Accept: config.AcceptVCard,
	})
}

// PrintSchedules reports the last sync: the schedules due today, then the
// next occurrence and RRULE of each one.
func (a *App) PrintSchedules() {
	entries := a.Entries()

	var due []string
	for _, e := range entries {
		if e.DueToday {
			due = append(due, e.Name)
		}
	}
	fmt.Fprintln(a.Out, a.Translator.DueToday(len(due)))
	for _, name := range due {
		fmt.Fprintf(a.Out, config.FormatReportItem+"\n", name)
	}

	for _, e := range entries {
		next := config.ReportNoOccurrence
		if e.HasNext {
			next = e.Next.Format(config.DateFormatFullDash)
		}
		fmt.Fprintf(a.Out, config.FormatReportLine+"\n", e.Name, next)
		if e.RRule != "" {
			fmt.Fprintf(a.Out, config.FormatReportRule+"\n", e.RRule)
		}
	}
}
