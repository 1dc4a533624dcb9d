// Package tui implements the interactive form: a single screen for editing
// the destination, the entries and the dry-run default, and for running
// backups and moving the config between machines.
package tui

import (
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/fileknight/internal/backup"
	"github.com/joe/fileknight/internal/cli"
	"github.com/joe/fileknight/internal/config"
	"github.com/joe/fileknight/internal/i18n"
	"github.com/joe/fileknight/internal/tui/shared"
)

// Field identifies a focusable part of the form, in tab order.
type Field int

// Exported constants.
const (
	FieldDestination Field = iota
	FieldSource
	FieldName
	FieldMode
	FieldDryRun
	FieldTransfer
	FieldEntries

	fieldCount = int(FieldEntries) + 1
)

// Exported variables.
var (
	ErrNoTransferPath = errors.New("no config file given to import")
)

// Model is the form state.
type Model struct {
	configPath string
	doc        *config.Document
	strings    i18n.Strings
	runner     *backup.Runner
	now        func() time.Time

	destination textinput.Model
	source      textinput.Model
	name        textinput.Model
	transfer    textinput.Model
	mode        config.Mode
	dryRun      bool

	entries  []string
	selected int
	focus    Field

	status   string
	failed   bool
	log      []string
	running  bool
	bridge   *shared.EventBridge
	quitting bool
	width    int
}

// New builds the form for an interactive session. A dry-run override from
// the command line seeds the toggle without being saved.
func New(session cli.Session) Model {
	now := session.Now
	if now == nil {
		now = time.Now
	}

	model := Model{
		configPath:  session.ConfigPath,
		doc:         session.Document,
		strings:     session.Strings,
		runner:      session.Runner,
		now:         now,
		destination: newInput(),
		source:      newInput(),
		name:        newInput(),
		transfer:    newInput(),
		mode:        config.ModeMirror,
		selected:    -1,
	}

	model.destination.Placeholder = config.DefaultDestinationRoot
	model.source.Placeholder = "~/Documents"
	model.transfer.Placeholder = config.DefaultExportDir()

	model.loadDocument()

	if session.DryRun != nil {
		model.dryRun = *session.DryRun
	}

	model.status = model.strings.T("status_ready")
	model = model.setFocus(FieldDestination)

	return model
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Focus returns the focused field (for testing)
func (m Model) Focus() Field {
	return m.focus
}

// Status returns the status line text (for testing)
func (m Model) Status() string {
	return m.status
}

// Running reports whether a backup is in progress
func (m Model) Running() bool {
	return m.running
}

// Document returns the config being edited
func (m Model) Document() *config.Document {
	return m.doc
}

// loadDocument copies the document's values into the form.
func (m *Model) loadDocument() {
	m.destination.SetValue(m.doc.DestinationRoot)
	m.destination.CursorEnd()
	m.dryRun = m.doc.DryRun
	m.entries = m.doc.EntryNames()

	if m.selected >= len(m.entries) {
		m.selected = -1
	}
}

// selectEntry loads entry i into the entry fields.
func (m *Model) selectEntry(i int) {
	if i < 0 || i >= len(m.entries) {
		return
	}

	m.selected = i

	entry, ok := m.doc.EntryByName(m.entries[i])
	if !ok {
		return
	}

	m.name.SetValue(entry.Name)
	m.name.CursorEnd()
	m.source.SetValue(entry.Source)
	m.source.CursorEnd()
	m.mode = config.NormalizeMode(entry.Mode)
}

// setFocus moves the cursor to field, blurring every other input.
func (m Model) setFocus(field Field) Model {
	m.focus = field

	inputs := map[Field]*textinput.Model{
		FieldDestination: &m.destination,
		FieldSource:      &m.source,
		FieldName:        &m.name,
		FieldTransfer:    &m.transfer,
	}

	for f, input := range inputs {
		input.Prompt = shared.PromptBlank
		input.Blur()

		if f == field {
			input.Prompt = shared.PromptArrow
			input.Focus()
		}
	}

	return m
}

// focusedInput returns the text input under the cursor, or nil when the
// focus is on a toggle or the entries list.
func (m *Model) focusedInput() *textinput.Model {
	switch m.focus {
	case FieldDestination:
		return &m.destination
	case FieldSource:
		return &m.source
	case FieldName:
		return &m.name
	case FieldTransfer:
		return &m.transfer
	case FieldMode, FieldDryRun, FieldEntries:
		return nil
	}

	return nil
}

// Run starts the form on the terminal and blocks until the user quits.
func Run(session cli.Session, opts ...tea.ProgramOption) error {
	_, err := tea.NewProgram(New(session), opts...).Run()

	return err
}

func newInput() textinput.Model {
	input := textinput.New()
	input.Prompt = shared.PromptBlank

	return input
}
