// Package cli implements the fileknight command: first-run bootstrap,
// config import/export, and the backup run with its printed report.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/joe/fileknight/internal/backup"
	"github.com/joe/fileknight/internal/config"
	"github.com/joe/fileknight/internal/i18n"
	"github.com/joe/fileknight/internal/logging"
	pkgerrors "github.com/joe/fileknight/pkg/errors"
	"github.com/joe/fileknight/pkg/filesystem"
)

// Exported constants.
const (
	HeaderTimeLayout = "2006-01-02 15:04:05"
	RuleWidth        = 60
)

// Session is everything the interactive form needs to start.
type Session struct {
	ConfigPath string
	Document   *config.Document
	Strings    i18n.Strings
	Runner     *backup.Runner
	DryRun     *bool
	Now        func() time.Time
}

// InteractiveFunc runs the interactive form until the user quits.
type InteractiveFunc func(session Session) error

// App wires the command to its environment.
type App struct {
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	Now    func() time.Time
	// LogPath is where the log file goes; empty disables file logging
	LogPath     string
	Interactive InteractiveFunc
}

// NewApp returns an App bound to the process environment.
func NewApp(interactive InteractiveFunc) *App {
	return &App{
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Getenv:      os.Getenv,
		Now:         time.Now,
		LogPath:     config.DefaultLogPath(),
		Interactive: interactive,
	}
}

// Run executes the command for argv (without the program name) and
// returns the process exit code.
func (a *App) Run(argv []string) int {
	args, err := config.Parse(argv, a.Stdout)
	if errors.Is(err, config.ErrHelp) || errors.Is(err, config.ErrVersion) {
		return backup.ExitOK
	}

	if err != nil {
		_, _ = fmt.Fprintf(a.Stderr, "Error: %v\n", err)
		return backup.ExitConfigError
	}

	closeLog := logging.Setup(args.Verbose, a.LogPath, a.Stderr)
	defer closeLog()

	logger := logging.GetLogger("cli")
	configPath := filesystem.ExpandPath(args.ConfigPath)

	logger.Debug().Str("config", configPath).Msg("starting")

	if args.ImportConfig != "" {
		return a.importConfig(logger, args.ImportConfig, configPath)
	}

	if args.Interactive {
		return a.interactive(logger, args, configPath)
	}

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return a.bootstrap(configPath)
	}

	if args.ExportConfig != "" {
		return a.exportConfig(logger, filesystem.ExpandPath(args.ExportConfig), configPath)
	}

	return a.backup(logger, args, configPath)
}

func (a *App) bootstrap(configPath string) int {
	err := config.WriteDefault(configPath, a.Now())
	if err != nil {
		a.printf("[ERROR] %v\n", err)
		return backup.ExitConfigError
	}

	a.printf("[INFO] config.json was created at: %s\n", configPath)
	a.printf("[INFO] Edit it with your paths and run FileKnight again.\n")

	return backup.ExitOK
}

func (a *App) importConfig(logger zerolog.Logger, src, configPath string) int {
	src = filesystem.ExpandPath(src)

	err := config.Import(src, configPath)
	if err != nil {
		logger.Error().Err(err).Str("source", src).Msg("import failed")
		a.printf("[ERROR] %v\n", err)

		return backup.ExitConfigError
	}

	logger.Info().Str("source", src).Str("config", configPath).Msg("config imported")
	a.printf("[OK] Config imported: %s -> %s\n", src, configPath)

	return backup.ExitOK
}

func (a *App) exportConfig(logger zerolog.Logger, dir, configPath string) int {
	exported, err := config.Export(configPath, dir, a.Now())
	if err != nil {
		logger.Error().Err(err).Str("dir", dir).Msg("export failed")
		a.printf("[ERROR] %v\n", err)

		return backup.ExitConfigError
	}

	logger.Info().Str("file", exported).Msg("config exported")
	a.printf("[OK] Config exported to: %s\n", exported)

	return backup.ExitOK
}

func (a *App) backup(logger zerolog.Logger, args *config.Args, configPath string) int {
	doc, err := config.Load(configPath)
	if err != nil {
		a.printf("[ERROR] %v\n", err)
		return backup.ExitConfigError
	}

	strs := a.loadStrings(logger, args.LocalesDir, doc.Language)
	runner := backup.NewRunner(logging.GetLogger("backup"))
	runner.SetClock(a.Now)

	summary, err := runner.Run(doc, backup.Options{
		DryRun:  args.DryRunOverride(),
		Emitter: &reportPrinter{out: a.Stdout, strings: strs},
	})
	if err != nil {
		a.printf("[ERROR] %s\n", strings.TrimPrefix(err.Error(), config.ErrInvalidConfig.Error()+": "))
		return backup.ExitCode(summary, err)
	}

	return backup.ExitCode(summary, nil)
}

func (a *App) interactive(logger zerolog.Logger, args *config.Args, configPath string) int {
	if a.Interactive == nil {
		a.printf("[ERROR] interactive mode is not available\n")
		return backup.ExitConfigError
	}

	doc, created, err := config.LoadOrCreate(configPath, a.Now())
	if err != nil {
		a.printf("[ERROR] %v\n", err)
		return backup.ExitConfigError
	}

	if created {
		logger.Info().Str("config", configPath).Msg("default config created")
	}

	runner := backup.NewRunner(logging.GetLogger("backup"))
	runner.SetClock(a.Now)

	err = a.Interactive(Session{
		ConfigPath: configPath,
		Document:   doc,
		Strings:    a.loadStrings(logger, args.LocalesDir, doc.Language),
		Runner:     runner,
		DryRun:     args.DryRunOverride(),
		Now:        a.Now,
	})
	if err != nil {
		_, _ = fmt.Fprintf(a.Stderr, "Error: %v\n", err)
		return backup.ExitConfigError
	}

	return backup.ExitOK
}

// loadStrings loads the string table for the configured language. A
// missing table is logged and every key then renders as itself.
func (a *App) loadStrings(logger zerolog.Logger, localesDir, setting string) i18n.Strings {
	lang := i18n.Resolve(setting, a.Getenv)

	strs, err := i18n.NewLoader(localesDir).Load(lang)
	if err != nil {
		logger.Warn().Err(err).Str("language", lang).Msg("translations unavailable")
		return i18n.Strings{}
	}

	return strs
}

func (a *App) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.Stdout, format, args...)
}

// reportPrinter prints run events as the plain-text backup report.
type reportPrinter struct {
	out     io.Writer
	strings i18n.Strings
}

// Emit implements backup.EventEmitter.
func (p *reportPrinter) Emit(event backup.Event) {
	switch e := event.(type) {
	case backup.RunStarted:
		p.printf("%s  |  %s  |  %s\n", strings.TrimSpace(p.strings.T("app_title")), e.Platform, e.StartedAt.Format(HeaderTimeLayout))
		p.printf("%s: %s\n", p.strings.T("select_destination"), e.DestinationRoot)
		p.printf("dry_run: %t\n", e.DryRun)
		p.rule()
	case backup.EntryCopied:
		status := "COPIED"
		if e.Simulated {
			status = "SIMULATED"
		}

		p.printf("[OK] %s (%s) [%s]\n", e.Entry.Name, e.Entry.Mode, status)
		p.printf("     from: %s\n", e.Entry.Source)
		p.printf("       to: %s\n", e.Destination)
	case backup.EntryFailed:
		p.printf("[FAIL] %s: %v\n", e.Entry.Name, e.Err)

		if suggestions := pkgerrors.FormatSuggestions(e.Err); suggestions != "" {
			p.printf("%s\n", suggestions)
		}
	case backup.RunComplete:
		p.rule()
		p.printf("OK: %d | FAIL: %d\n", e.Summary.OK, e.Summary.Failed)
	}
}

func (p *reportPrinter) rule() {
	p.printf("%s\n", strings.Repeat("-", RuleWidth))
}

func (p *reportPrinter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}
