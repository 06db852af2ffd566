package engine_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-attendance/internal/apperr"
	"github.com/tartampluch/go-attendance/internal/config"
	"github.com/tartampluch/go-attendance/internal/dates"
	"github.com/tartampluch/go-attendance/internal/engine"

	_ "time/tzdata"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

// MockFetcher simulates the network layer with testify/mock.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, req engine.Request) (io.ReadCloser, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(io.ReadCloser), args.Error(1)
	}
	return nil, args.Error(1)
}

func serving(doc string) *MockFetcher {
	f := new(MockFetcher)
	f.On("Fetch", mock.Anything, mock.Anything).
		Return(io.NopCloser(strings.NewReader(doc)), nil)
	return f
}

// Monday, March 3rd 2025.
var monday = dates.FixedClock(time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC))

const scheduleDoc = `[
  {"Name": "Standup", "Rules": [{"CategoryID": 1, "LevelID": 0, "Values": [1, 2, 3, 4, 5]}]},
  {"Name": "Payroll", "Rules": [{"CategoryID": 2, "LevelID": 0, "Values": [1, 15]}]},
  {"Name": "Board", "Rules": [
    {"CategoryID": 1, "LevelID": 0, "Values": [1]},
    {"CategoryID": 2, "LevelID": 1, "Values": [1]}
  ]},
  {"Name": "Broken", "Rules": [
    {"CategoryID": 2, "LevelID": 0, "Values": [15]},
    {"CategoryID": 5, "LevelID": 0, "Values": [1]}
  ]}
]`

func byName(entries []engine.ScheduleEntry) map[string]engine.ScheduleEntry {
	out := make(map[string]engine.ScheduleEntry, len(entries))
	for _, e := range entries {
		out[e.Name] = e
	}
	return out
}

// -----------------------------------------------------------------------------
// Test Cases
// -----------------------------------------------------------------------------

func TestRunSync_Local_Success(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedules.json")
	require.NoError(t, os.WriteFile(path, []byte(scheduleDoc), config.FilePermUserRW))

	gen := &engine.Generator{Clock: monday}
	icsData, entries, count, err := gen.RunSync(context.Background(), engine.SyncConfig{
		Mode:      config.SourceModeLocal,
		LocalPath: path,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, count, "Only the standup is due on a Monday")
	assert.Len(t, entries, 3, "The broken schedule is skipped")

	m := byName(entries)
	assert.True(t, m["Standup"].DueToday)
	assert.Equal(t, dates.New(2025, 3, 3), m["Standup"].Next)
	assert.False(t, m["Payroll"].DueToday)
	assert.Equal(t, dates.New(2025, 3, 15), m["Payroll"].Next)
	// The first Monday within week 1 is in the first month starting on a Monday.
	assert.Equal(t, dates.New(2025, 9, 1), m["Board"].Next)
	assert.Empty(t, m["Board"].RRule)

	ics := string(icsData)
	assert.Contains(t, ics, "BEGIN:VCALENDAR")
	assert.Equal(t, 3, strings.Count(ics, "BEGIN:VEVENT"))
	assert.Contains(t, ics, "SUMMARY:Scheduled: Standup")
	assert.Contains(t, ics, "DTSTART;VALUE=DATE:20250303")
	assert.Contains(t, ics, "DTSTART;VALUE=DATE:20250315")
	assert.Contains(t, ics, "BYMONTHDAY=1,15", "Commas in RRULE must not be escaped")
	assert.Contains(t, ics, "BYDAY=MO,TU,WE,TH,FR")
	assert.Equal(t, 2, strings.Count(ics, "RRULE:"))

	assert.Contains(t, ics, "DTSTART;VALUE=DATE:20250901")
	assert.Contains(t, ics, "RDATE;VALUE=DATE:20251201")
	assert.Equal(t, 1, strings.Count(ics, "RDATE"), "Only December 2025 also starts on a Monday within the horizon")
	assert.NotContains(t, ics, "Broken")
}

func TestRunSync_Web_WithReminder(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, engine.Request{
		URL:    "http://example.com/s.json",
		User:   "planner",
		Pass:   "pw",
		Accept: config.AcceptSchedules,
	}).
		Return(io.NopCloser(strings.NewReader(scheduleDoc)), nil)

	gen := &engine.Generator{Clock: monday, Fetcher: fetcher}
	icsData, _, _, err := gen.RunSync(context.Background(), engine.SyncConfig{
		Mode:            config.SourceModeWeb,
		WebURL:          "http://example.com/s.json",
		WebUser:         "planner",
		WebPass:         "pw",
		ReminderTrigger: engine.ReminderTrigger(1, config.UnitDays, config.DirBefore),
	})
	require.NoError(t, err)

	ics := string(icsData)
	assert.Equal(t, 3, strings.Count(ics, "BEGIN:VALARM"))
	assert.Contains(t, ics, "TRIGGER:-P1D")
	assert.Contains(t, ics, "ACTION:DISPLAY")
	fetcher.AssertExpectations(t)
}

func TestRunSync_FormatSummary(t *testing.T) {
	gen := &engine.Generator{
		Clock:         monday,
		Fetcher:       serving(scheduleDoc),
		FormatSummary: func(name string) string { return "Due: " + name },
	}
	icsData, _, _, err := gen.RunSync(context.Background(), engine.SyncConfig{Mode: config.SourceModeWeb, WebURL: "http://x"})
	require.NoError(t, err)
	assert.Contains(t, string(icsData), "SUMMARY:Due: Payroll")
}

func TestRunSync_ClientZone(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	// Sunday 23:30 UTC is already Monday in Paris.
	gen := &engine.Generator{
		Clock:   dates.FixedClock(time.Date(2025, 3, 2, 23, 30, 0, 0, time.UTC)),
		Fetcher: serving(scheduleDoc),
	}

	_, _, count, err := gen.RunSync(context.Background(), engine.SyncConfig{Mode: config.SourceModeWeb, WebURL: "http://x"})
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	gen.Fetcher = serving(scheduleDoc)
	_, _, count, err = gen.RunSync(context.Background(), engine.SyncConfig{Mode: config.SourceModeWeb, WebURL: "http://x", Location: paris})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunSync_StableUIDs(t *testing.T) {
	run := func() []engine.ScheduleEntry {
		gen := &engine.Generator{Clock: monday, Fetcher: serving(scheduleDoc)}
		_, entries, _, err := gen.RunSync(context.Background(), engine.SyncConfig{Mode: config.SourceModeWeb, WebURL: "http://x"})
		require.NoError(t, err)
		return entries
	}
	first, second := byName(run()), byName(run())

	assert.Equal(t, first["Standup"].UID, second["Standup"].UID)
	assert.NotEqual(t, first["Standup"].UID, first["Payroll"].UID)
	assert.True(t, strings.HasSuffix(first["Standup"].UID, "@"+config.ICalDomain))
}

func TestRunSync_NoOccurrenceWithinHorizon(t *testing.T) {
	doc := `[{"Name": "Leap day", "Rules": [{"CategoryID": 3, "LevelID": 0, "Values": [366]}]}]`
	gen := &engine.Generator{Clock: monday, Fetcher: serving(doc), Horizon: 100}

	icsData, entries, count, err := gen.RunSync(context.Background(), engine.SyncConfig{Mode: config.SourceModeWeb, WebURL: "http://x"})
	require.NoError(t, err)

	assert.Equal(t, 0, count)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].HasNext)
	assert.Equal(t, config.StubVCalendar, string(icsData))
}

// Week 52 of 2021 ends on 2022-01-02, so its Sunday is listed as a date
// rather than a BYWEEKNO rule.
func TestRunSync_Week52FallsBackToDates(t *testing.T) {
	doc := `[{"Name": "Inventory", "Rules": [
    {"CategoryID": 1, "LevelID": 0, "Values": [7]},
    {"CategoryID": 3, "LevelID": 1, "Values": [52]}
  ]}]`
	gen := &engine.Generator{
		Clock:   dates.FixedClock(time.Date(2021, 12, 20, 9, 0, 0, 0, time.UTC)),
		Fetcher: serving(doc),
		Horizon: 400,
	}

	icsData, entries, _, err := gen.RunSync(context.Background(), engine.SyncConfig{Mode: config.SourceModeWeb, WebURL: "http://x"})
	require.NoError(t, err)

	ics := string(icsData)
	assert.NotContains(t, ics, "RRULE")
	assert.Contains(t, ics, "DTSTART;VALUE=DATE:20220102")
	assert.Contains(t, ics, "RDATE;VALUE=DATE:20230101")
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].RRule)
}

func TestRunSync_OversizedDocument(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HeaderContentType, "application/json")
		_, _ = w.Write([]byte(scheduleDoc))
	}))
	defer ts.Close()

	fetcher := engine.NewHTTPFetcher()
	fetcher.MaxBytes = 32
	gen := &engine.Generator{Clock: monday, Fetcher: fetcher}

	_, _, _, err := gen.RunSync(context.Background(), engine.SyncConfig{Mode: config.SourceModeWeb, WebURL: ts.URL})
	assert.ErrorIs(t, err, apperr.ErrOutOfRange)
	assert.NotErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestRunSync_EmptyDocument(t *testing.T) {
	gen := &engine.Generator{Clock: monday, Fetcher: serving("[]")}
	icsData, entries, count, err := gen.RunSync(context.Background(), engine.SyncConfig{Mode: config.SourceModeWeb, WebURL: "http://x"})

	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 0, count)
	assert.Equal(t, config.StubVCalendar, string(icsData))
}

func TestRunSync_MalformedDocument(t *testing.T) {
	gen := &engine.Generator{Clock: monday, Fetcher: serving(`{"Name":`)}
	_, _, _, err := gen.RunSync(context.Background(), engine.SyncConfig{Mode: config.SourceModeWeb, WebURL: "http://x"})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestRunSync_Web_NetworkError(t *testing.T) {
	fetcher := new(MockFetcher)
	expectedErr := errors.New("network unreachable")
	fetcher.On("Fetch", mock.Anything, mock.Anything).Return(nil, expectedErr)

	gen := &engine.Generator{Clock: monday, Fetcher: fetcher}
	icsData, entries, count, err := gen.RunSync(context.Background(), engine.SyncConfig{Mode: config.SourceModeWeb, WebURL: "http://bad-url.com"})

	assert.ErrorIs(t, err, expectedErr)
	assert.Nil(t, icsData)
	assert.Nil(t, entries)
	assert.Equal(t, 0, count)
}

func TestRunSync_ConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		gen     *engine.Generator
		cfg     engine.SyncConfig
		wantErr string
	}{
		{"No local path", &engine.Generator{Clock: monday}, engine.SyncConfig{Mode: config.SourceModeLocal}, config.ErrLocalPathEmpty},
		{"No URL", &engine.Generator{Clock: monday}, engine.SyncConfig{Mode: config.SourceModeWeb}, config.ErrWebURLEmpty},
		{"No fetcher", &engine.Generator{Clock: monday}, engine.SyncConfig{Mode: config.SourceModeWeb, WebURL: "http://x"}, config.ErrFetcherMissing},
		{"Unknown mode", &engine.Generator{Clock: monday}, engine.SyncConfig{Mode: "carrier-pigeon"}, config.ErrModeUnsupport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := tt.gen.RunSync(context.Background(), tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunSync_ContextCancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedules.json")
	require.NoError(t, os.WriteFile(path, []byte(scheduleDoc), config.FilePermUserRW))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &engine.Generator{Clock: monday}
	_, _, _, err := gen.RunSync(ctx, engine.SyncConfig{Mode: config.SourceModeLocal, LocalPath: path})

	assert.Equal(t, context.Canceled, err)
}

func TestNewTodaySnapshot(t *testing.T) {
	gen := &engine.Generator{Clock: monday, Fetcher: serving(scheduleDoc)}
	_, entries, _, err := gen.RunSync(context.Background(), engine.SyncConfig{Mode: config.SourceModeWeb, WebURL: "http://x"})
	require.NoError(t, err)

	snap := engine.NewTodaySnapshot(dates.New(2025, 3, 3), dates.Invariant, entries, time.Time(monday))
	assert.Equal(t, "2025-03-03", snap.Date)
	assert.Equal(t, 1, snap.Details.DayOfWeek)
	assert.Equal(t, 10, snap.Details.WeekOfYear)
	assert.Equal(t, []string{"Standup"}, snap.DueToday)
	assert.Len(t, snap.Schedules, 3)

	empty := engine.NewTodaySnapshot(dates.New(2025, 3, 3), dates.Invariant, nil, time.Time(monday))
	assert.NotNil(t, empty.DueToday)
	assert.NotNil(t, empty.Schedules)
}

func TestReminderTrigger(t *testing.T) {
	tests := []struct {
		value     int
		unit, dir string
		want      string
	}{
		{1, config.UnitDays, config.DirBefore, "-P1D"},
		{2, config.UnitDays, config.DirAfter, "P2D"},
		{2, config.UnitHours, config.DirAfter, "PT2H"},
		{30, config.UnitMinutes, config.DirBefore, "-PT30M"},
		{3, "weeks", config.DirBefore, "-P3D"},
		{-4, config.UnitHours, config.DirBefore, "-PT4H"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.ReminderTrigger(tt.value, tt.unit, tt.dir))
		})
	}
}
