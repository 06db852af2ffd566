package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/tartampluch/go-attendance/internal/app"
	"github.com/tartampluch/go-attendance/internal/config"
	"github.com/tartampluch/go-attendance/internal/engine"

	_ "time/tzdata"
)

// main is the application entry point.
// It delegates execution to runMain so that deferred calls (closing the log
// file) run before the process terminates: os.Exit does not run defers.
func main() {
	os.Exit(runMain(os.Args[1:], os.Stdin, os.Stdout))
}

// cliFlags holds the switches that do not belong to app.Options.
type cliFlags struct {
	version     bool
	debug       bool
	setPassword bool
}

// parseFlags reads the command line into the application options.
// Flag help goes to output; on -h it returns flag.ErrHelp.
func parseFlags(args []string, output io.Writer) (app.Options, cliFlags, error) {
	var opts app.Options
	var cli cliFlags

	fs := flag.NewFlagSet(config.AppID, flag.ContinueOnError)
	fs.SetOutput(output)

	// Process switches.
	fs.BoolVar(&cli.version, config.FlagVersion, false, config.FlagDescVersion)
	fs.BoolVar(&cli.debug, config.FlagDebug, false, config.FlagDescDebug)
	fs.BoolVar(&cli.setPassword, config.FlagSetPass, false, config.FlagDescSetPass)


	// Schedule source and feed server.
	fs.StringVar(&opts.SchedulesPath, config.FlagSchedules, "", config.FlagDescSchedules)
	fs.StringVar(&opts.URL, config.FlagURL, "", config.FlagDescURL)
	fs.StringVar(&opts.User, config.FlagUser, "", config.FlagDescUser)
	fs.StringVar(&opts.Port, config.FlagPort, config.DefaultPort, config.FlagDescPort)
	fs.BoolVar(&opts.Serve, config.FlagServe, false, config.FlagDescServe)
	fs.IntVar(&opts.Interval, config.FlagInterval, config.DefaultRefreshMin, config.FlagDescInterval)

	// Reports.
	fs.StringVar(&opts.VCardPath, config.FlagVCard, "", config.FlagDescVCard)
	fs.StringVar(&opts.Lang, config.FlagLang, config.DefaultLanguage, config.FlagDescLang)
	fs.StringVar(&opts.Zone, config.FlagZone, config.DefaultZone, config.FlagDescZone)
	fs.StringVar(&opts.Attendance, config.FlagAttendance, "", config.FlagDescAttendance)
	fs.StringVar(&opts.Month, config.FlagMonth, "", config.FlagDescMonth)
	fs.StringVar(&opts.Reminder, config.FlagReminder, "", config.FlagDescReminder)
	fs.StringVar(&opts.Output, config.FlagOutput, "", config.FlagDescOutput)
	fs.BoolVar(&opts.USWeeks, config.FlagUSWeeks, false, config.FlagDescUSWeeks)

	err := fs.Parse(args)
	return opts, cli, err
}

// runMain manages the application lifecycle, argument parsing, and exit codes.
// Returns config.ExitCodeSuccess on success, config.ExitCodeError on failure.
func runMain(args []string, stdin io.Reader, stdout io.Writer) int {
	// -------------------------------------------------------------------------
	// 1. CLI Argument Parsing
	// -------------------------------------------------------------------------
	opts, cli, err := parseFlags(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return config.ExitCodeSuccess
	}
	if err != nil {
		return config.ExitCodeError
	}

	if cli.version {
		printVersion(stdout)
		return config.ExitCodeSuccess
	}

	// -------------------------------------------------------------------------
	// 2. Logging Initialization
	// -------------------------------------------------------------------------
	// Structured logging is configured early to capture startup issues.
	logCloser := setupLogging(cli.debug)
	if logCloser != nil {
		defer func() {
			_ = logCloser.Close() // Best effort close
		}()
	}

	// -set-password stores the credential and exits without syncing.
	if cli.setPassword {
		if err := setPassword(opts.User, stdin); err != nil {
			slog.Error(config.ErrAppFailed,
				config.LogKeyComponent, config.CompMain,
				config.LogKeyError, err,
			)
			return config.ExitCodeError
		}
		return config.ExitCodeSuccess
	}

	// -------------------------------------------------------------------------
	// 3. Context & Signal Handling
	// -------------------------------------------------------------------------
	// Root context, cancelled on SIGINT (Ctrl+C) or SIGTERM. The feed server
	// and its worker shut down on it.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logStartupInfo()

	// -------------------------------------------------------------------------
	// 4. Application Logic
	// -------------------------------------------------------------------------
	if err := run(ctx, opts, stdout); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeError
	}

	slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return config.ExitCodeSuccess
}

// run wires the application and executes the requested actions.
// With -serve it blocks until ctx is cancelled.
func run(ctx context.Context, opts app.Options, stdout io.Writer) error {
	// Options are validated here (zone, port, reminder) before any I/O.
	a, err := app.New(opts, stdout)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

// setPassword stores the first line of stdin as the keyring password of user.
func setPassword(user string, stdin io.Reader) error {
	if user == "" {
		return errors.New(config.ErrPasswordUser)
	}
	// Only the first line is read, so a trailing newline from echo or a
	// here-string is not stored.
	scanner := bufio.NewScanner(stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("%s: %w", config.ErrPasswordRead, err)
		}
		return errors.New(config.ErrPasswordRead)
	}
	if err := engine.StorePassword(user, strings.TrimRight(scanner.Text(), "\r")); err != nil {
		return err
	}
	slog.Info(config.MsgPasswordStored,
		config.LogKeyComponent, config.CompMain,
		config.LogKeyUser, user,
	)
	return nil
}

// printVersion outputs the build information to w.
func printVersion(w io.Writer) {
	fmt.Fprintf(w, config.MsgVersionOutput,
		config.AppName,
		config.Version,
		config.Commit,
		config.Date,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyCommit, config.Commit),
			slog.String(config.LogKeyBuilt, config.Date),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging installs a JSON slog logger writing to stderr and to a log
// file in the user cache directory. Stdout is kept for reports.
func setupLogging(debugMode bool) io.Closer {
	// 1. Always write to Stderr.
	writers := []io.Writer{os.Stderr}
	var logFile *os.File

	// 2. Attempt to set up a file writer in the user's cache directory.
	if logPath, err := getLogFilePath(); err == nil {
		// O_TRUNC resets logs on restart to prevent indefinite growth.
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), opts)))

	if logFile == nil {
		return nil
	}
	return logFile
}

// getLogFilePath determines the platform-specific cache directory for logs.
func getLogFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}

	// Ensure the directory exists with restricted permissions (700).
	appDir := filepath.Join(cacheDir, config.AppID)
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}

	return filepath.Join(appDir, config.LogFileName), nil
}
