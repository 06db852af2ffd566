package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-attendance/internal/app"
	"github.com/tartampluch/go-attendance/internal/apperr"
	"github.com/tartampluch/go-attendance/internal/config"
	"github.com/tartampluch/go-attendance/internal/dates"
	"github.com/tartampluch/go-attendance/internal/engine"
	"github.com/zalando/go-keyring"

	_ "time/tzdata"
)

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

// Monday, March 3rd 2025.
var monday = dates.FixedClock(time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC))

const scheduleDoc = `[
  {"Name": "Standup", "Rules": [{"CategoryID": 1, "LevelID": 0, "Values": [1, 2, 3, 4, 5]}]},
  {"Name": "Payroll", "Rules": [{"CategoryID": 2, "LevelID": 0, "Values": [1, 15]}]}
]`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), config.FilePermUserRW))
	return path
}

func newApp(t *testing.T, opts app.Options) (*app.App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	a, err := app.New(opts, &out)
	require.NoError(t, err)
	a.Clock = monday
	return a, &out
}

// -----------------------------------------------------------------------------
// Options
// -----------------------------------------------------------------------------

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts app.Options
		kind error
	}{
		{"Unknown zone", app.Options{Zone: "Mars/Olympus"}, apperr.ErrLookupFailure},
		{"Bad reminder", app.Options{Reminder: "1w"}, apperr.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := app.New(tt.opts, io.Discard)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
		})
	}

	_, err := app.New(app.Options{Port: "99999"}, io.Discard)
	assert.EqualError(t, err, config.ErrPortRange)
}

func TestParseReminder(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"1d", "-P1D", false},
		{"2h", "-PT2H", false},
		{"30m", "-PT30M", false},
		{"+1d", "P1D", false},
		{"+15m", "PT15M", false},
		{"d", "", true},
		{"3w", "", true},
		{"xd", "", true},
		{"-1d", "", true},
		{"+", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := app.ParseReminder(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatePort(t *testing.T) {
	assert.NoError(t, app.ValidatePort("8080"))
	assert.EqualError(t, app.ValidatePort(""), config.ErrPortRequired)
	assert.ErrorContains(t, app.ValidatePort("http"), config.ErrPortNumber)
	assert.EqualError(t, app.ValidatePort("0"), config.ErrPortRange)
	assert.EqualError(t, app.ValidatePort("65536"), config.ErrPortRange)
}

// -----------------------------------------------------------------------------
// Reports
// -----------------------------------------------------------------------------

func TestPrintAttendance(t *testing.T) {
	// Days 1, 2, 3 and 20.
	mask := (1 << 1) | (1 << 2) | (1 << 3) | (1 << 20)
	a, out := newApp(t, app.Options{Attendance: strconv.Itoa(mask), Month: "2025-03"})

	require.NoError(t, a.PrintAttendance())

	want := "2025-03-01\n2025-03-02\n2025-03-03\n2025-03-20\n" +
		"3 days attended in 2025-03\n"
	assert.Equal(t, want, out.String(), "Only days up to today are counted")
}

func TestPrintAttendance_French(t *testing.T) {
	a, out := newApp(t, app.Options{Attendance: "2", Month: "2025-02", Lang: "fr"})

	require.NoError(t, a.PrintAttendance())
	assert.Contains(t, out.String(), "1 jour de présence en 2025-02")
}

func TestPrintAttendance_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts app.Options
		kind error
	}{
		{"Missing month", app.Options{Attendance: "2"}, apperr.ErrInvalidArgument},
		{"Malformed month", app.Options{Attendance: "2", Month: "March"}, apperr.ErrInvalidArgument},
		{"Malformed mask", app.Options{Attendance: "many", Month: "2025-03"}, apperr.ErrInvalidArgument},
		{"Ancient year", app.Options{Attendance: "2", Month: "1066-10"}, apperr.ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newApp(t, tt.opts)
			assert.ErrorIs(t, a.PrintAttendance(), tt.kind)
		})
	}
}

const vcards = "BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Ada\r\nBDAY:1990-03-10\r\nEND:VCARD\r\n" +
	"BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Noel\r\nBDAY:--12-25\r\nEND:VCARD\r\n" +
	"BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Nobody\r\nEND:VCARD\r\n"

func TestPrintBirthdays(t *testing.T) {
	a, out := newApp(t, app.Options{VCardPath: writeFile(t, "contacts.vcf", vcards)})

	require.NoError(t, a.PrintBirthdays(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Ada: 1990-03-10 (34 years"), lines[0])
	assert.Equal(t, "  - Ada turns 35 on 2025-03-10", lines[1])
	assert.Equal(t, "Noel: 2025-12-25", lines[2], "Without a year only the anniversary is shown")
}

func TestPrintBirthdays_Empty(t *testing.T) {
	a, out := newApp(t, app.Options{VCardPath: writeFile(t, "contacts.vcf", "")})

	require.NoError(t, a.PrintBirthdays(context.Background()))
	assert.Equal(t, config.FallbackNoBirthdays+"\n", out.String())
}

func TestPrintBirthdays_Web(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, engine.StorePassword("carddav", "pw"))

	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, engine.Request{
		URL:    "https://dav.example.com/contacts.vcf",
		User:   "carddav",
		Pass:   "pw",
		Accept: config.AcceptVCard,
	}).Return(io.NopCloser(strings.NewReader(vcards)), nil)

	a, out := newApp(t, app.Options{VCardPath: "https://dav.example.com/contacts.vcf", User: "carddav"})
	a.Fetcher = fetcher

	require.NoError(t, a.PrintBirthdays(context.Background()))
	assert.Contains(t, out.String(), "Noel: 2025-12-25")
	fetcher.AssertExpectations(t)
}

func TestPrintBirthdays_WebRefused(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, mock.Anything).
		Return(nil, apperr.Newf(apperr.KindInvalidArgument, "%s: %q", config.ErrContentType, "text/html"))

	a, out := newApp(t, app.Options{VCardPath: "http://dav.example.com/contacts.vcf"})
	a.Fetcher = fetcher

	assert.ErrorIs(t, a.PrintBirthdays(context.Background()), apperr.ErrInvalidArgument)
	assert.Empty(t, out.String())
}

func TestPrintBirthdays_MissingFile(t *testing.T) {
	a, _ := newApp(t, app.Options{VCardPath: filepath.Join(t.TempDir(), "missing.vcf")})
	assert.ErrorIs(t, a.PrintBirthdays(context.Background()), os.ErrNotExist)
}

// -----------------------------------------------------------------------------
// Sync
// -----------------------------------------------------------------------------

func TestRun_OneShot(t *testing.T) {
	output := filepath.Join(t.TempDir(), "feed.ics")
	a, out := newApp(t, app.Options{
		SchedulesPath: writeFile(t, "schedules.json", scheduleDoc),
		Output:        output,
		Reminder:      "1d",
	})

	require.NoError(t, a.Run(context.Background()))

	report := out.String()
	assert.Contains(t, report, "1 schedule due today\n  - Standup\n")
	assert.Contains(t, report, "Standup: 2025-03-03\n")
	assert.Contains(t, report, "Payroll: 2025-03-15\n")
	assert.Contains(t, report, "BYMONTHDAY=1,15")

	ics, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(ics), "BEGIN:VCALENDAR")
	assert.Equal(t, 2, strings.Count(string(ics), "TRIGGER:-P1D"))
}

func TestRun_NothingToDo(t *testing.T) {
	a, out := newApp(t, app.Options{})

	require.NoError(t, a.Run(context.Background()))
	assert.Empty(t, out.String())
}

func TestSyncOnce_WebWithKeyring(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, engine.StorePassword("planner", "pw"))

	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, engine.Request{
		URL:    "https://example.com/s.json",
		User:   "planner",
		Pass:   "pw",
		Accept: config.AcceptSchedules,
	}).
		Return(io.NopCloser(strings.NewReader(scheduleDoc)), nil)

	a, _ := newApp(t, app.Options{URL: "https://example.com/s.json", User: "planner"})
	a.Fetcher = fetcher

	ics, err := a.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(ics), "SUMMARY:Scheduled: Payroll")
	assert.Len(t, a.Entries(), 2)
	fetcher.AssertExpectations(t)
}

func TestSyncOnce_PublishesToServer(t *testing.T) {
	a, _ := newApp(t, app.Options{
		SchedulesPath: writeFile(t, "schedules.json", scheduleDoc),
		Serve:         true,
		Lang:          "fr",
	})
	require.NotNil(t, a.Server)

	_, err := a.SyncOnce(context.Background())
	require.NoError(t, err)

	h := a.Server.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "SUMMARY:Prévu : Standup")

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, config.RouteToday, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var snapshot engine.TodaySnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Equal(t, []string{"Standup"}, snapshot.DueToday)
	assert.Equal(t, 10, snapshot.Details.WeekOfYear)
}

func TestSyncOnce_FailureKeepsPreviousEntries(t *testing.T) {
	path := writeFile(t, "schedules.json", scheduleDoc)
	a, _ := newApp(t, app.Options{SchedulesPath: path})

	_, err := a.SyncOnce(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{"), config.FilePermUserRW))
	_, err = a.SyncOnce(context.Background())
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	assert.Len(t, a.Entries(), 2)
}

func TestServe_StopsOnCancel(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, mock.Anything).
		Return(io.NopCloser(strings.NewReader(scheduleDoc)), nil)

	a, _ := newApp(t, app.Options{
		URL:      "https://example.com/s.json",
		Serve:    true,
		Port:     "18098",
		Interval: config.DisabledInterval,
	})
	a.Fetcher = fetcher

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() { errChan <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:18098/")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 50*time.Millisecond, "The worker publishes the first sync")

	cancel()
	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}
	fetcher.AssertNumberOfCalls(t, "Fetch", 1)
}
