package shared_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/fileknight/internal/backup"
	"github.com/joe/fileknight/internal/config"
	"github.com/joe/fileknight/internal/tui/shared"
)

// TestEventBridge_ImplementsEventEmitter verifies the bridge implements EventEmitter.
func TestEventBridge_ImplementsEventEmitter(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	bridge := shared.NewEventBridge()
	defer bridge.Close()

	var emitter backup.EventEmitter = bridge
	g.Expect(emitter).ToNot(BeNil())
}

// TestEventBridge_EmitSendsToChan verifies events are sent to the channel.
func TestEventBridge_EmitSendsToChan(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	bridge := shared.NewEventBridge()
	defer bridge.Close()

	eventChan := bridge.Subscribe()
	bridge.Emit(backup.EntryStarted{Index: 0, Entry: config.Entry{Name: "docs"}})

	select {
	case msg := <-eventChan:
		eventMsg, ok := msg.(shared.BackupEventMsg)
		g.Expect(ok).To(BeTrue(), "Expected BackupEventMsg")

		started, ok := eventMsg.Event.(backup.EntryStarted)
		g.Expect(ok).To(BeTrue(), "Expected EntryStarted event")
		g.Expect(started.Entry.Name).To(Equal("docs"))
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timed out waiting for event")
	}
}

// TestEventBridge_PreservesOrder verifies events arrive in emission order.
func TestEventBridge_PreservesOrder(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	bridge := shared.NewEventBridge()
	bridge.Emit(backup.RunStarted{Entries: 1})
	bridge.Emit(backup.EntryFailed{Entry: config.Entry{Name: "docs"}, Err: errors.New("boom")})
	bridge.Emit(backup.RunComplete{})
	bridge.Close()

	var events []backup.Event
	for msg := range bridge.Subscribe() {
		events = append(events, msg.(shared.BackupEventMsg).Event)
	}

	g.Expect(events).To(HaveLen(3))
	g.Expect(events[0]).To(BeAssignableToTypeOf(backup.RunStarted{}))
	g.Expect(events[1]).To(BeAssignableToTypeOf(backup.EntryFailed{}))
	g.Expect(events[2]).To(BeAssignableToTypeOf(backup.RunComplete{}))
}

// TestEventBridge_EmitAfterCloseIsIgnored verifies a closed bridge does not panic.
func TestEventBridge_EmitAfterCloseIsIgnored(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	bridge := shared.NewEventBridge()
	bridge.Close()
	bridge.Close()

	g.Expect(func() { bridge.Emit(backup.RunComplete{}) }).NotTo(Panic())

	_, open := <-bridge.Subscribe()
	g.Expect(open).To(BeFalse(), "Channel should be closed")
}

// TestEventBridge_ListenCmd verifies the listen command drains buffered
// events and then yields nil.
func TestEventBridge_ListenCmd(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	bridge := shared.NewEventBridge()
	bridge.Emit(backup.RunStarted{Entries: 2})
	bridge.Close()

	cmd := bridge.ListenCmd()
	g.Expect(cmd).ToNot(BeNil())

	msg := cmd()
	eventMsg, ok := msg.(shared.BackupEventMsg)
	g.Expect(ok).To(BeTrue())
	g.Expect(eventMsg.Event).To(Equal(backup.RunStarted{Entries: 2}))

	g.Expect(bridge.ListenCmd()()).To(BeNil())
}

// TestEventBridge_SkipFloodKeepsEntryOutcomes verifies per-path skips
// never crowd entry results out of the buffer.
func TestEventBridge_SkipFloodKeepsEntryOutcomes(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	bridge := shared.NewEventBridge()
	entry := config.Entry{Name: "docs"}

	for i := range 1000 {
		bridge.Emit(backup.PathSkipped{Entry: entry, RelativePath: fmt.Sprintf("cache/%d", i), Reason: "excluded"})
	}

	bridge.Emit(backup.EntryFailed{Entry: entry, Err: errors.New("boom")})
	bridge.Emit(backup.RunComplete{})
	bridge.Close()

	var events []backup.Event
	for msg := range bridge.Subscribe() {
		events = append(events, msg.(shared.BackupEventMsg).Event)
	}

	g.Expect(events).To(HaveLen(2))
	g.Expect(events[0]).To(BeAssignableToTypeOf(backup.EntryFailed{}))
	g.Expect(events[1]).To(BeAssignableToTypeOf(backup.RunComplete{}))
}

// TestEventBridge_FullBufferWaitsForListener verifies events beyond the
// buffer size are delivered once the listener catches up.
func TestEventBridge_FullBufferWaitsForListener(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	const total = 1000

	bridge := shared.NewEventBridge()

	go func() {
		for i := range total {
			bridge.Emit(backup.EntryStarted{Index: i})
		}

		bridge.Close()
	}()

	var indexes []int
	for msg := range bridge.Subscribe() {
		indexes = append(indexes, msg.(shared.BackupEventMsg).Event.(backup.EntryStarted).Index)
	}

	g.Expect(indexes).To(HaveLen(total))
	g.Expect(indexes[total-1]).To(Equal(total - 1))
}
