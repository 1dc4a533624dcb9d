// Package logging configures the zerolog logger shared by all components.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// unexported constants.
const (
	logDirPermissions  = 0o750
	logFilePermissions = 0o600
)

// Setup points the global logger at the log file at path, and additionally
// at stderr when verbose is set. The returned func closes the log file.
// A log file that cannot be opened is reported and logging falls back to
// the remaining writers.
func Setup(verbose bool, path string, stderr io.Writer) func() {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	zerolog.SetGlobalLevel(level)

	var writers []io.Writer

	if verbose {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        stderr,
			TimeFormat: time.Kitchen,
		})
	}

	closer := func() {}

	file, err := openLogFile(path)
	if err == nil {
		writers = append(writers, file)
		closer = func() {
			_ = file.Close()
		}
	}

	if len(writers) == 0 {
		log.Logger = zerolog.Nop()
		return closer
	}

	log.Logger = zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger()

	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to open log file, logging to console only")
	}

	log.Debug().Bool("verbose", verbose).Str("logFile", path).Msg("Logger initialized")

	return closer
}

// GetLogger returns a contextualized logger with the given name
func GetLogger(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// LogOperationStart logs the start of an operation and returns a function to log its completion
func LogOperationStart(logger zerolog.Logger, operation string) func() {
	start := time.Now()
	logger.Debug().
		Str("operation", operation).
		Msg("Operation started")

	return func() {
		logger.Debug().
			Str("operation", operation).
			Dur("duration", time.Since(start)).
			Msg("Operation completed")
	}
}

// openLogFile creates the log file and its parent directories
func openLogFile(path string) (*os.File, error) {
	if path == "" {
		return nil, fmt.Errorf("no log file path") //nolint:err113 // Only logged
	}

	err := os.MkdirAll(filepath.Dir(path), logDirPermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, logFilePermissions) // #nosec G304 - path from XDG state dir
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return file, nil
}
