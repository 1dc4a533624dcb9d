package backup

import (
	"time"

	"github.com/joe/fileknight/internal/config"
)

// Event is the interface implemented by all backup events.
type Event interface {
	isEvent()
}

// EventEmitter is the interface for emitting events.
type EventEmitter interface {
	Emit(event Event)
}

// EmitterFunc adapts a plain function to EventEmitter.
type EmitterFunc func(Event)

// Emit implements EventEmitter.
func (f EmitterFunc) Emit(event Event) {
	f(event)
}

// RunStarted is emitted once the config has been validated, before any copying.
type RunStarted struct {
	DestinationRoot string
	DryRun          bool
	Entries         int
	Platform        string
	StartedAt       time.Time
}

func (RunStarted) isEvent() {}

// EntryStarted is emitted before an entry is copied.
type EntryStarted struct {
	Index int
	Entry config.Entry
}

func (EntryStarted) isEvent() {}

// PathSkipped is emitted for each path left out of a directory copy.
type PathSkipped struct {
	Entry        config.Entry
	RelativePath string
	Reason       string
}

func (PathSkipped) isEvent() {}

// EntryCopied is emitted when an entry finishes, or would have finished in a dry run.
type EntryCopied struct {
	Entry       config.Entry
	Destination string
	Simulated   bool
	Files       int
	Bytes       int64
	Skipped     int
}

func (EntryCopied) isEvent() {}

// EntryFailed is emitted when an entry could not be copied. Err carries
// actionable suggestions when they are known.
type EntryFailed struct {
	Entry config.Entry
	Err   error
}

func (EntryFailed) isEvent() {}

// RunComplete is emitted after every entry has been attempted.
type RunComplete struct {
	Summary *Summary
}

func (RunComplete) isEvent() {}
