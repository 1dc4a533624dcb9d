package backup

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/joe/fileknight/internal/config"
	"github.com/joe/fileknight/internal/logging"
	pkgerrors "github.com/joe/fileknight/pkg/errors"
	"github.com/joe/fileknight/pkg/filesystem"
)

// Exported constants.
const (
	ExitOK            = 0
	ExitConfigError   = 1
	ExitEntryFailures = 2
)

// FileSystemFactory opens the filesystem for a destination root. It returns
// the filesystem, the root's path on it, and a closer.
type FileSystemFactory func(root string) (filesystem.FileSystem, string, func(), error)

// Options tune a single run.
type Options struct {
	// DryRun overrides the config's dry_run when set
	DryRun  *bool
	Emitter EventEmitter
}

// EntryResult is the outcome of one entry.
type EntryResult struct {
	Entry       config.Entry
	Destination string
	Simulated   bool
	Files       int
	Bytes       int64
	Err         error
}

// Summary is the outcome of a whole run.
type Summary struct {
	DestinationRoot string
	DryRun          bool
	StartedAt       time.Time
	Duration        time.Duration
	Results         []EntryResult
	OK              int
	Failed          int
}

// Runner validates a config document and copies each of its entries.
type Runner struct {
	logger   zerolog.Logger
	enricher pkgerrors.Enricher
	sourceFS filesystem.FileSystem
	factory  FileSystemFactory
	now      func() time.Time
}

// NewRunner creates a runner over the local filesystem and SFTP destinations.
func NewRunner(logger zerolog.Logger) *Runner {
	return &Runner{
		logger:   logger,
		enricher: pkgerrors.NewEnricher(),
		sourceFS: filesystem.NewRealFileSystem(),
		factory:  filesystem.CreateFileSystem,
		now:      time.Now,
	}
}

// NewRunnerWithFS creates a runner over fixed source and destination
// filesystems, with destination roots used as given.
func NewRunnerWithFS(sourceFS, destFS filesystem.FileSystem, logger zerolog.Logger) *Runner {
	runner := NewRunner(logger)
	runner.sourceFS = sourceFS
	runner.factory = func(root string) (filesystem.FileSystem, string, func(), error) {
		return destFS, root, func() {}, nil
	}

	return runner
}

// SetClock replaces the clock used to stamp runs.
func (r *Runner) SetClock(now func() time.Time) {
	r.now = now
}

// Run copies every valid entry of doc. Config problems abort the run
// before anything is copied and wrap config.ErrInvalidConfig. Entry
// failures are collected in the summary and never stop later entries.
func (r *Runner) Run(doc *config.Document, opts Options) (*Summary, error) {
	defer logging.LogOperationStart(r.logger, "backup run")()

	dryRun := doc.DryRun
	if opts.DryRun != nil {
		dryRun = *opts.DryRun
	}

	rawRoot := strings.TrimSpace(doc.DestinationRoot)
	if rawRoot == "" {
		return nil, fmt.Errorf("%w: config.destination_root is missing", config.ErrInvalidConfig)
	}

	entries, err := doc.ValidEntries()
	if err != nil {
		return nil, err //nolint:wrapcheck // Already carries ErrInvalidConfig context
	}

	root := filesystem.ExpandPath(rawRoot)

	destFS, basePath, closeFS, err := r.factory(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open destination %s: %w", root, err)
	}

	defer closeFS()

	if !dryRun {
		err = destFS.MkdirAll(basePath, config.DefaultDirPermissions)
		if err != nil {
			return nil, fmt.Errorf("failed to create destination root %s: %w", root, err)
		}
	}

	summary := &Summary{
		DestinationRoot: root,
		DryRun:          dryRun,
		StartedAt:       r.now(),
	}

	emit := func(event Event) {
		if opts.Emitter != nil {
			opts.Emitter.Emit(event)
		}
	}

	emit(RunStarted{
		DestinationRoot: root,
		DryRun:          dryRun,
		Entries:         len(entries),
		Platform:        Platform(),
		StartedAt:       summary.StartedAt,
	})

	r.logger.Info().Str("destination", root).Bool("dryRun", dryRun).Int("entries", len(entries)).Msg("backup started")

	engine := NewEngineWithFS(r.sourceFS, destFS, r.logger)
	engine.SetSkipFunc(func(entry config.Entry, rel, reason string) {
		emit(PathSkipped{Entry: entry, RelativePath: rel, Reason: reason})
	})

	display := displayFunc(root)

	for i, entry := range entries {
		emit(EntryStarted{Index: i, Entry: entry})

		result := EntryResult{Entry: entry, Simulated: dryRun}

		copied, err := engine.CopyEntry(entry, basePath, dryRun)
		if err != nil {
			result.Err = r.enricher.Enrich(err, entry.Source)
			summary.Failed++

			r.logger.Error().Err(err).Str("entry", entry.Name).Msg("entry failed")
			emit(EntryFailed{Entry: entry, Err: result.Err})
		} else {
			result.Destination = display(copied.Destination)
			result.Files = copied.Files
			result.Bytes = copied.Bytes
			summary.OK++

			r.logger.Info().Str("entry", entry.Name).Str("destination", result.Destination).
				Int("files", copied.Files).Int64("bytes", copied.Bytes).Bool("dryRun", dryRun).Msg("entry copied")
			emit(EntryCopied{
				Entry:       entry,
				Destination: result.Destination,
				Simulated:   dryRun,
				Files:       copied.Files,
				Bytes:       copied.Bytes,
				Skipped:     copied.Skipped,
			})
		}

		summary.Results = append(summary.Results, result)
	}

	summary.Duration = r.now().Sub(summary.StartedAt)

	r.logger.Info().Int("ok", summary.OK).Int("failed", summary.Failed).Dur("duration", summary.Duration).Msg("backup finished")
	emit(RunComplete{Summary: summary})

	return summary, nil
}

// ExitCode maps a run's outcome to the process exit status.
func ExitCode(summary *Summary, err error) int {
	switch {
	case err != nil:
		return ExitConfigError
	case summary != nil && summary.Failed > 0:
		return ExitEntryFailures
	default:
		return ExitOK
	}
}

// Platform describes the host in the run header, e.g. "linux/amd64".
func Platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

// displayFunc turns paths on the destination filesystem into the form the
// user wrote the root in.
func displayFunc(root string) func(string) string {
	parsed, err := filesystem.ParsePath(root)
	if err != nil || !parsed.IsRemote {
		return func(p string) string { return p }
	}

	return func(p string) string {
		remote := *parsed
		remote.Path = p

		return remote.String()
	}
}
