package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Go-Attendance/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Go Attendance"
	AppID             = "com.github.tartampluch.go-attendance"
	KeyringService    = "com.github.tartampluch.go-attendance"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagVersion    = "version"
	FlagDebug      = "debug"
	FlagSchedules  = "schedules"
	FlagURL        = "url"
	FlagUser       = "user"
	FlagPort       = "port"
	FlagServe      = "serve"
	FlagInterval   = "interval"
	FlagVCard      = "vcard"
	FlagLang       = "lang"
	FlagZone       = "tz"
	FlagAttendance = "attendance"
	FlagMonth      = "month"
	FlagReminder   = "reminder"
	FlagOutput     = "output"
	FlagUSWeeks    = "us-weeks"
	FlagSetPass    = "set-password"

	FlagDescVersion    = "Show application version and exit"
	FlagDescDebug      = "Enable debug logging to stderr"
	FlagDescSchedules  = "Path to a JSON schedule document"
	FlagDescURL        = "URL of a JSON schedule document (overrides -schedules)"
	FlagDescUser       = "HTTP Basic Auth user; the password is read from the OS keyring"
	FlagDescPort       = "Port of the local feed server"
	FlagDescServe      = "Serve the feed over HTTP and refresh it periodically"
	FlagDescInterval   = "Refresh interval in minutes when serving (0 disables refresh)"
	FlagDescVCard      = "Path or http(s) URL of a vCard file; prints ages and upcoming birthdays"
	FlagDescLang       = "Display language (ISO 639-1)"
	FlagDescZone       = "IANA time zone used as the client-local today"
	FlagDescAttendance = "Attendance bitmask to decode (requires -month)"
	FlagDescMonth      = "Month of the attendance bitmask (YYYY-MM)"
	FlagDescReminder   = "Reminder offset before each event (1d, 2h, 30m; prefix + for after)"
	FlagDescOutput     = "Write the generated ICS feed to this file"
	FlagDescUSWeeks    = "Number weeks with Saturday as the last day of the week"
	FlagDescSetPass    = "Read the -user password from stdin, store it in the OS keyring and exit"

	MsgVersionOutput = "%s version %s (commit %s, built %s, %s/%s)\n"
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	SourceModeWeb     = "web"
	SourceModeLocal   = "local"
	DefaultPort       = "18081"
	DefaultRefreshMin = 60
	DefaultLanguage   = "en"
	DefaultZone       = "UTC"
	ZoneLocal         = "Local" // time.LoadLocation alias for the host zone

	// DisabledInterval as -interval serves the first sync without refreshing it.
	DisabledInterval = 0

	// DefaultHorizonDays bounds occurrence searches and RDATE expansion.
	DefaultHorizonDays = 366

	// MinAttendanceYear is the oldest year accepted when decoding persisted masks.
	MinAttendanceYear = 1900

	// MaxChainDepth is the maximum number of nodes in a periodicity chain.
	MaxChainDepth = 3

	// MaxDayOfMonth is the highest bit used by an attendance mask.
	MaxDayOfMonth = 31

	// BitmaskWidth is the declared bit length of an attendance mask.
	BitmaskWidth = 32

	UIDNamespace = "go-attendance-v1" // Namespace seed for deterministic event UIDs
)

// ISO8601 Duration Components for Reminders
const (
	ISOPeriodPrefix   = "P"
	ISONegativePrefix = "-P"
	ISOTimePrefix     = "T"
	ISODay            = "D"
	ISOHour           = "H"
	ISOMinute         = "M"
)

// -----------------------------------------------------------------------------
// Reminder Units & Directions
// -----------------------------------------------------------------------------

const (
	UnitDays    = "d"
	UnitHours   = "h"
	UnitMinutes = "m"
	DirBefore   = "before"
	DirAfter    = "after"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	ICalVersion   = "2.0"
	ICalProdid    = "-//Go Attendance//Engine//EN"
	ICalCalName   = "Schedules"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "goattendance"

	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropRRule       = "RRULE"
	PropRDate       = "RDATE"
	PropRefresh     = "REFRESH-INTERVAL"
	PropAction      = "ACTION"
	PropDescription = "DESCRIPTION"
	PropTrigger     = "TRIGGER"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"

	DefaultICalRefresh = 1 * time.Hour

	// StubVCalendar is the minimal valid iCalendar object used when no events are found.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"
)

// -----------------------------------------------------------------------------
// Data Formats & Limits
// -----------------------------------------------------------------------------

const (
	DateFormatFullDash  = "2006-01-02"
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatFullT     = "2006-01-02T15:04:05Z"
	DateFormatNoYearD   = "--01-02"
	DateFormatNoYearB   = "--0102"
	DateFormatYearMonth = "2006-01"
	DateFormatDisplay   = "January 2 2006"

	// DefaultLeapYear is the fallback year for vCard dates without a year (--02-29).
	DefaultLeapYear = 2000

	MinPort = 1
	MaxPort = 65535

	UIDSeparator  = "|"
	FormatUID     = "%s@%s"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	RetryAfterSeconds   = "10"
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 16 * 1024 * 1024 // 16MB
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	RouteRoot           = "/"
	RouteToday          = "/today"
	AddrSeparator       = ":"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderAccept          = "Accept"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeJSON            = "application/json; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyAge          = "age"            // Requires Years, Months, Days
	TKeyBirthday     = "birthday"       // Requires Date, Age
	TKeyEvtSummary   = "event_summary"  // Requires Name
	TKeyDueToday     = "due_today"      // Requires Count > 0
	TKeyDueTodayZero = "due_today_zero" // Explicit key for 0
	TKeyNoBirthdays  = "no_birthdays"
	TKeyUpcoming     = "upcoming_birthday" // Requires Name, Date, Age
	TKeyAttendance   = "attendance_days"   // Requires Count, Month
)

// AcceptSchedules lists the media types a schedule document may be served as.
// Raw file hosts commonly serve JSON as text/plain.
var AcceptSchedules = []string{"application/json", "text/json", "text/plain"}

// AcceptVCard lists the media types a vCard stream may be served as.
var AcceptVCard = []string{"text/vcard", "text/x-vcard", "text/directory", "text/plain"}

// SupportedLanguages defines the list of available display languages (ISO 639-1).
var SupportedLanguages = []string{"en", "fr"}

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrInvalidArgument = "invalid argument"
	ErrOutOfRange      = "value out of range"
	ErrLookupFailure   = "lookup failed"
	ErrDuplicateRule   = "duplicate periodicity rule"
	ErrAmbiguousRule   = "ambiguous periodicity rule"
	ErrInvalidRule     = "invalid periodicity rule"

	ErrDatesNil         = "attendance dates are nil"
	ErrBitsNil          = "bit array is nil"
	ErrBitsTooLong      = "bit array must be at most 32 bits long"
	ErrBitLength        = "declared bit length exceeds backing words"
	ErrYearParse        = "invalid year"
	ErrMonthParse       = "invalid month"
	ErrMaskParse        = "invalid attendance mask"
	ErrUnknownZone      = "unknown time zone"
	ErrAgeOrder         = "start date cannot be after end date"
	ErrBirthdayFuture   = "the birthday cannot be now or in the future"
	ErrYearRange        = "the year value cannot be less than 1 or more than 9999"
	ErrMonthRange       = "the month value cannot be less than 1 or more than 12"
	ErrDayRange         = "the day value cannot be less than 1 or more than 31"
	ErrNoPeriodicity    = "no periodicity supplied"
	ErrDuplicateCat     = "there is a duplicate category in periodicities"
	ErrDuplicateLevel   = "there is a duplicate level in periodicities"
	ErrParentMissing    = "no periodicity matches the parent level"
	ErrParentMany       = "several periodicities match the parent level"
	ErrLevelMissing     = "no periodicity at level"
	ErrLevelMany        = "several periodicities at level"
	ErrLevel0Category   = "invalid level-0 category"
	ErrLevel1Category   = "invalid level-1 category"
	ErrNotExpressible   = "periodicity cannot be expressed as an RRULE"
	ErrNodeInvalid      = "periodicity node failed validation"
	ErrPeriodicityParse = "failed to parse periodicity document"

	ErrLocalPathEmpty = "configuration error: local path is empty"
	ErrWebURLEmpty    = "configuration error: web URL is empty"
	ErrFetcherMissing = "internal error: network fetcher is not initialized"
	ErrModeUnsupport  = "configuration error: unsupported source mode"
	ErrScheduleParse  = "failed to parse schedule document"
	ErrICalEncode     = "failed to encode iCalendar data"
	ErrDateParse      = "unable to parse date"
	ErrVCardParse     = "failed to parse vCard stream"
	ErrInvalidURL     = "invalid URL structure"
	ErrRequestBuild   = "failed to create request"
	ErrNetwork        = "network error during fetch"
	ErrStatus         = "server returned unexpected status"
	ErrProtocol       = "unsupported protocol scheme (http/https only)"
	ErrContentType    = "unexpected content type"
	ErrBodyTooLarge   = "response body exceeds size limit"
	ErrRRuleMismatch  = "RRULE expansion differs from the matched dates"
	ErrServerStartup  = "server startup failed"
	ErrServerShutdown = "server shutdown failed"
	ErrPortRequired   = "server port is required"
	ErrPortNumber     = "server port must be a number"
	ErrPortRange      = "server port must be between 1 and 65535"
	ErrLogFile        = "failed to open log file"
	ErrCacheDir       = "could not determine user cache dir"
	ErrCreateDir      = "could not create app cache dir"
	ErrAppFailed      = "application failed unexpectedly"
	ErrWriteResp      = "failed to write response body"
	ErrSnapshotEncode = "failed to encode today snapshot"
	ErrLocalesAccess  = "failed to access embedded locales"
	ErrLocaleLoad     = "failed to load locale file"
	ErrLocNotInit     = "localizer not initialized"
	ErrMonthFlag      = "-attendance requires -month in YYYY-MM form"
	ErrReminderFlag   = "invalid reminder offset"
	ErrOutputWrite    = "failed to write ICS file"
	ErrPasswordRead   = "failed to read password from stdin"
	ErrPasswordUser   = "-set-password requires -user"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Feed initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
)

// -----------------------------------------------------------------------------
// Fallbacks & Log Messages
// -----------------------------------------------------------------------------

const (
	FallbackSummary      = "Scheduled: %s"
	FallbackAge          = "%d years, %d months, %d days"
	FallbackBirthday     = "%s (%s)"
	FallbackDueToday     = "%d schedule(s) due today"
	FallbackName         = "Unknown"
	FallbackNoBirthdays  = "No birthdays found"
	FallbackUpcoming     = "%s turns %d on %s"
	FallbackAttendance   = "%d day(s) attended in %s"
	FallbackScheduleName = "Schedule %d"
	FormatReportLine     = "%s: %s"
	FormatReportItem     = "  - %s"
	FormatReportRule     = "    %s"
	ReportNoOccurrence   = "-"

	MsgSyncStarted     = "Synchronization started..."
	MsgSyncFailed      = "Synchronization failed. Check logs."
	MsgSyncFinished    = "Sync finished"
	MsgSyncReq         = "Sync requested"
	MsgWorkerStart     = "Background worker started"
	MsgWorkerStop      = "Worker stopping due to context cancellation"
	MsgPasswordStored  = "Password stored in the OS keyring"
	MsgOutputWritten   = "ICS feed written"
	MsgAppStop         = "Application stopped gracefully"
	MsgSkippedSchedule = "Skipping invalid schedule"
	MsgSkippedCard     = "Skipping malformed vCard"
	MsgSkippedDate     = "Skipping invalid date format"
	MsgSkippedBirthday = "Skipping birthday that is not in the past"
	MsgNoOccurrence    = "Schedule has no occurrence within the horizon"
	MsgRRuleFallback   = "Schedule not expressible as RRULE, expanding dates"
	MsgGenSuccess      = "Feed generation successful"
	MsgBirthdaysLoaded = "Birthdays loaded"
	MsgScheduleToday   = "Schedule due today"
	MsgAppStarting     = "Starting application"
	MsgServerListen    = "HTTP server listening"
	MsgServerStop      = "Shutting down HTTP server..."
	MsgCacheUpdated    = "Feed cache updated"
	MsgLocaleSkip      = "Skipping non-locale file"
	MsgLocaleBadName   = "Skipping malformed locale filename"
	MsgLocaleLoaded    = "Locale loaded successfully"
	MsgTransMissing    = "Missing translation key"
	MsgPassFail        = "Password retrieval failed (might be empty)"
	MsgLogWarning      = "Warning: %s at %s: %v\n"
	MsgMatchFailed     = "Periodicity match failed"
	MsgFetchStart      = "Initiating document download"
	MsgFetchStatus     = "Server returned error status"
	MsgFetchBody       = "Document downloading"
	MsgFetchMediaType  = "Server returned an unexpected media type"
	MsgRRuleMismatch   = "RRULE expansion differs from the matched dates"
	MsgZoneRejected    = "Time zone rejected"
	MsgRefreshDisabled = "Periodic refresh disabled"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeyMode      = "mode"
	LogKeyInterval  = "interval"
	LogKeyUser      = "user"
	LogKeyTotal     = "total_schedules"
	LogKeyValid     = "valid_schedules"
	LogKeyToday     = "due_today"
	LogKeySizeBytes = "size_bytes"
	LogKeyLength    = "content_length"
	LogKeyETag      = "etag"
	LogKeyValue     = "value"
	LogKeyStats     = "stats"
	LogKeyCount     = "count"
	LogKeyName      = "name"
	LogKeyIndex     = "index"
	LogKeyZone      = "zone"
	LogKeyMediaType = "media_type"
	LogKeyDOB       = "date_of_birth"
	LogKeyDate      = "date"
	LogKeyDuration  = "duration_ms"
	LogKeyKind      = "kind"

	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyCommit  = "commit"
	LogKeyBuilt   = "built"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompEngine      = "engine"
	CompServer      = "server"
	CompFetcher     = "fetcher"
	CompWorker      = "worker"
	CompMain        = "main"
	CompI18n        = "i18n"
	CompPeriodicity = "periodicity"
	CompAttendance  = "attendance"
)
