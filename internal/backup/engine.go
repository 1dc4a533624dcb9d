// Package backup copies configured entries into the destination root and
// reports per-entry outcomes.
package backup

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/joe/fileknight/internal/config"
	"github.com/joe/fileknight/internal/logging"
	"github.com/joe/fileknight/pkg/fileops"
	"github.com/joe/fileknight/pkg/filesystem"
)

// Exported variables.
var (
	ErrSourceNotFound = errors.New("source not found")
	ErrInvalidPattern = errors.New("invalid exclude pattern")
)

// Result describes one finished entry copy.
type Result struct {
	// Destination is the path of the copied item under the destination root
	Destination string
	Simulated   bool
	Files       int
	Bytes       int64
	Skipped     int
}

// SkipFunc is told about paths an entry copy leaves out.
type SkipFunc func(entry config.Entry, relativePath, reason string)

// Engine copies single entries. Sources are read through sourceFS and
// written to destFS, which may be remote.
type Engine struct {
	ops    *fileops.FileOps
	logger zerolog.Logger
	onSkip SkipFunc
}

// NewEngine creates an engine reading local sources and writing to destFS.
func NewEngine(destFS filesystem.FileSystem, logger zerolog.Logger) *Engine {
	return NewEngineWithFS(filesystem.NewRealFileSystem(), destFS, logger)
}

// NewEngineWithFS creates an engine over explicit source and destination filesystems.
func NewEngineWithFS(sourceFS, destFS filesystem.FileSystem, logger zerolog.Logger) *Engine {
	return &Engine{
		ops:    fileops.NewFileOps(sourceFS, destFS),
		logger: logger,
	}
}

// SetSkipFunc registers a callback for paths left out of directory copies.
func (e *Engine) SetSkipFunc(fn SkipFunc) {
	e.onSkip = fn
}

// Destination returns the folder created for entry under root and the
// path the source's copy will have inside it.
func (e *Engine) Destination(entry config.Entry, root string) (string, string) {
	dstDir := e.ops.DestFS.Join(root, entry.Name)
	return dstDir, e.ops.DestFS.Join(dstDir, baseName(entry.Source))
}

// Copy backs up entry into root/entry.Name/basename(source) and returns
// the item's destination path. In a dry run nothing on either filesystem
// is changed.
func (e *Engine) Copy(entry config.Entry, root string, dryRun bool) (string, error) {
	result, err := e.CopyEntry(entry, root, dryRun)
	if err != nil {
		return "", err
	}

	return result.Destination, nil
}

// CopyEntry is Copy with transfer statistics.
func (e *Engine) CopyEntry(entry config.Entry, root string, dryRun bool) (*Result, error) {
	defer logging.LogOperationStart(e.logger.With().Str("entry", entry.Name).Logger(), "copy entry")()

	dstDir, dstItem := e.Destination(entry, root)

	// Patterns are checked before anything is written so a dry run fails
	// the same way the real run would.
	err := ValidatePatterns(entry.Exclude)
	if err != nil {
		return nil, err
	}

	info, err := e.ops.SourceFS.Stat(entry.Source)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, entry.Source)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to access source %s: %w", entry.Source, err)
	}

	result := &Result{Destination: dstItem, Simulated: dryRun}

	if dryRun {
		e.logger.Debug().Str("entry", entry.Name).Str("destination", dstItem).Msg("dry run, nothing written")
		return result, nil
	}

	err = e.ops.DestFS.MkdirAll(dstDir, fileops.DefaultDirPermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dstDir, err)
	}

	if !info.IsDir() {
		// A renamed file source leaves its previous copy behind in dstDir
		stats, err := e.ops.CopyFile(entry.Source, dstItem)
		if err != nil {
			return nil, err
		}

		result.Files = 1
		result.Bytes = stats.BytesCopied

		return result, nil
	}

	opts := fileops.TreeOptions{
		OnSkip: func(rel, reason string) {
			e.logger.Debug().Str("entry", entry.Name).Str("path", rel).Str("reason", reason).Msg("skipped")

			if e.onSkip != nil {
				e.onSkip(entry, rel, reason)
			}
		},
	}

	if filter := NewExcludeFilter(entry.Exclude); filter != nil {
		opts.Filter = filter
	}

	strategy := StrategyFor(entry.Mode)

	e.logger.Debug().Str("entry", entry.Name).Str("strategy", strategy.Name()).Str("destination", dstItem).Msg("copying directory")

	stats, err := strategy.Apply(e.ops, entry.Source, dstItem, opts)
	if err != nil {
		return nil, err
	}

	result.Files = stats.Files
	result.Bytes = stats.BytesCopied
	result.Skipped = stats.Skipped

	return result, nil
}

// baseName returns the last element of a local source path.
func baseName(source string) string {
	return path.Base(filepath.ToSlash(filepath.Clean(source)))
}
