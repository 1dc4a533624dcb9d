package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/fileknight/internal/backup"
	"github.com/joe/fileknight/internal/config"
	"github.com/joe/fileknight/internal/tui/shared"
	"github.com/joe/fileknight/pkg/filesystem"
)

// RunFinishedMsg is sent when a backup started from the form returns.
type RunFinishedMsg struct {
	Summary *backup.Summary
	Err     error
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case shared.BackupEventMsg:
		m.logEvent(msg.Event)
		if m.bridge == nil {
			return m, nil
		}

		return m, m.bridge.ListenCmd()
	case RunFinishedMsg:
		return m.handleRunFinished(msg)
	}

	input := m.focusedInput()
	if input == nil {
		return m, nil
	}

	var cmd tea.Cmd
	*input, cmd = input.Update(msg)

	return m, cmd
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	//nolint:exhaustive // Quit keys work even while a backup runs
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.quitting = true
		return m, tea.Quit
	}

	if m.running {
		return m, nil
	}

	//nolint:exhaustive // Every other key goes to the focused field
	switch msg.Type {
	case tea.KeyTab:
		return m.setFocus(Field((int(m.focus) + 1) % fieldCount)), nil
	case tea.KeyShiftTab:
		return m.setFocus(Field((int(m.focus) + fieldCount - 1) % fieldCount)), nil
	case tea.KeyCtrlS:
		return m.saveEntry(), nil
	case tea.KeyCtrlD:
		return m.removeEntry(), nil
	case tea.KeyCtrlR:
		return m.startRun()
	case tea.KeyCtrlE:
		return m.exportConfig(), nil
	case tea.KeyCtrlO:
		return m.importConfig(), nil
	}

	switch m.focus {
	case FieldMode:
		return m.handleModeKey(msg), nil
	case FieldDryRun:
		return m.handleDryRunKey(msg), nil
	case FieldEntries:
		return m.handleEntriesKey(msg), nil
	case FieldDestination, FieldSource, FieldName, FieldTransfer:
	}

	return m.updateInput(msg)
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	input := m.focusedInput()
	before := input.Value()

	var cmd tea.Cmd
	*input, cmd = input.Update(msg)

	if m.focus == FieldDestination && input.Value() != before {
		m.doc.SetDestinationRoot(input.Value())
		m = m.persist("")
	}

	return m, cmd
}

func (m Model) handleModeKey(msg tea.KeyMsg) Model {
	//nolint:exhaustive // Only toggling keys change the mode
	switch msg.Type {
	case tea.KeySpace, tea.KeyLeft, tea.KeyRight, tea.KeyEnter:
		if m.mode == config.ModeMirror {
			m.mode = config.ModeCopy
		} else {
			m.mode = config.ModeMirror
		}
	}

	return m
}

func (m Model) handleDryRunKey(msg tea.KeyMsg) Model {
	//nolint:exhaustive // Only toggling keys change the flag
	switch msg.Type {
	case tea.KeySpace, tea.KeyEnter:
		m.dryRun = !m.dryRun
		m.doc.SetDryRun(m.dryRun)

		return m.persist("")
	}

	return m
}

func (m Model) handleEntriesKey(msg tea.KeyMsg) Model {
	if len(m.entries) == 0 {
		return m
	}

	//nolint:exhaustive // Only arrow keys move the selection
	switch msg.Type {
	case tea.KeyUp:
		if m.selected > 0 {
			m.selectEntry(m.selected - 1)
		} else {
			m.selectEntry(0)
		}
	case tea.KeyDown:
		if m.selected < len(m.entries)-1 {
			m.selectEntry(m.selected + 1)
		}
	}

	return m
}

func (m Model) saveEntry() Model {
	name := strings.TrimSpace(m.name.Value())

	err := m.doc.AddOrUpdateEntry(name, m.source.Value(), m.mode)
	if errors.Is(err, config.ErrIncompleteEntry) {
		return m.fail(m.strings.T("status_missing_fields"))
	}

	m = m.persist(m.strings.Tf("status_saved_entry", name))
	m.entries = m.doc.EntryNames()

	for i, entry := range m.entries {
		if entry == name {
			m.selected = i
		}
	}

	return m
}

func (m Model) removeEntry() Model {
	if m.selected < 0 || m.selected >= len(m.entries) {
		return m.fail(m.strings.T("status_select_entry"))
	}

	name := m.entries[m.selected]
	m.doc.RemoveEntry(name)
	m.entries = m.doc.EntryNames()
	m.selected = -1

	return m.persist(m.strings.Tf("status_removed_entry", name))
}

func (m Model) startRun() (tea.Model, tea.Cmd) {
	m.running = true
	m.failed = false
	m.status = m.strings.T("status_running")
	m.log = nil
	m.bridge = shared.NewEventBridge()

	runner := m.runner
	doc := m.doc
	bridge := m.bridge
	dryRun := m.dryRun

	run := func() tea.Msg {
		defer bridge.Close()

		summary, err := runner.Run(doc, backup.Options{DryRun: &dryRun, Emitter: bridge})

		return RunFinishedMsg{Summary: summary, Err: err}
	}

	return m, tea.Batch(run, bridge.ListenCmd())
}

func (m Model) handleRunFinished(msg RunFinishedMsg) (tea.Model, tea.Cmd) {
	m.running = false

	if msg.Err != nil {
		return m.fail(m.strings.Tf("status_error", msg.Err.Error())), nil
	}

	m.failed = msg.Summary.Failed > 0
	m.status = m.strings.Tf("status_backup_finished", msg.Summary.OK, msg.Summary.Failed)

	return m, nil
}

func (m Model) exportConfig() Model {
	dir := strings.TrimSpace(m.transfer.Value())
	if dir == "" {
		dir = config.DefaultExportDir()
	}

	exported, err := config.Export(m.configPath, filesystem.ExpandPath(dir), m.now())
	if err != nil {
		return m.fail(m.strings.Tf("status_error", err.Error()))
	}

	m.failed = false
	m.status = m.strings.Tf("status_exported", exported)

	return m
}

func (m Model) importConfig() Model {
	src := strings.TrimSpace(m.transfer.Value())
	if src == "" {
		return m.fail(m.strings.Tf("status_error", ErrNoTransferPath.Error()))
	}

	err := config.Import(filesystem.ExpandPath(src), m.configPath)
	if err != nil {
		return m.fail(m.strings.Tf("status_error", err.Error()))
	}

	doc, err := config.Load(m.configPath)
	if err != nil {
		return m.fail(m.strings.Tf("status_error", err.Error()))
	}

	m.doc = doc
	m.selected = -1
	m.loadDocument()
	m.failed = false
	m.status = m.strings.T("status_imported")

	return m
}

// persist saves the document. On success the status becomes ok, unless
// ok is empty, in which case the status line is left alone.
func (m Model) persist(ok string) Model {
	err := m.doc.Save(m.configPath)
	if err != nil {
		return m.fail(m.strings.Tf("status_error", err.Error()))
	}

	if ok != "" {
		m.failed = false
		m.status = ok
	}

	return m
}

func (m Model) fail(status string) Model {
	m.failed = true
	m.status = status

	return m
}

// logEvent appends a line for event to the activity log.
func (m *Model) logEvent(event backup.Event) {
	switch e := event.(type) {
	case backup.RunStarted:
		m.log = append(m.log, shared.RenderDim(fmt.Sprintf("%s: %s | dry_run: %t",
			m.strings.T("select_destination"), e.DestinationRoot, e.DryRun)))
	case backup.EntryCopied:
		tag := "COPIED"
		if e.Simulated {
			tag = "SIMULATED"
		}

		line := shared.RenderSuccess("[OK]") +
			fmt.Sprintf(" %s (%s) [%s] -> %s", e.Entry.Name, e.Entry.Mode, tag, e.Destination)
		if e.Skipped > 0 {
			line += shared.RenderDim(fmt.Sprintf(" (%d skipped)", e.Skipped))
		}

		m.log = append(m.log, line)
	case backup.EntryFailed:
		m.log = append(m.log, shared.RenderError("[FAIL]")+fmt.Sprintf(" %s: %v", e.Entry.Name, e.Err))
	case backup.EntryStarted, backup.PathSkipped, backup.RunComplete:
	}
}
