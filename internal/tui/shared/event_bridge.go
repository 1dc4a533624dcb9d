package shared

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/fileknight/internal/backup"
)

// BackupEventMsg wraps a backup.Event for use as a tea.Msg.
type BackupEventMsg struct {
	Event backup.Event
}

// EventBridge adapts backup events to bubble tea messages.
// It implements backup.EventEmitter and provides a channel for TUI consumption.
// Emit and Close must be called from the goroutine running the backup.
type EventBridge struct {
	eventChan chan tea.Msg
	closed    bool
}

// NewEventBridge creates a new event bridge.
func NewEventBridge() *EventBridge {
	return &EventBridge{
		eventChan: make(chan tea.Msg, eventBufferSize),
	}
}

// Emit implements backup.EventEmitter.
// Per-path skips are not forwarded; they are logged and counted in
// EntryCopied. Every other event waits for room in the buffer, so entry
// outcomes always reach the listener.
func (b *EventBridge) Emit(event backup.Event) {
	if b.closed {
		return
	}

	if _, ok := event.(backup.PathSkipped); ok {
		return
	}

	b.eventChan <- BackupEventMsg{Event: event}
}

// Subscribe returns the event channel for receiving events.
func (b *EventBridge) Subscribe() <-chan tea.Msg {
	return b.eventChan
}

// ListenCmd returns a tea.Cmd that blocks until an event is received.
// It yields nil once the bridge is closed and drained.
func (b *EventBridge) ListenCmd() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-b.eventChan
		if !ok {
			return nil
		}

		return msg
	}
}

// Close closes the event channel. Buffered events can still be received.
func (b *EventBridge) Close() {
	if !b.closed {
		b.closed = true
		close(b.eventChan)
	}
}

// unexported constants.
const (
	eventBufferSize = 256
)
