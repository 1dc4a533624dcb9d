package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/joe/fileknight/internal/config"
	"github.com/joe/fileknight/internal/tui/shared"
)

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		shared.RenderTitle(m.strings.T("app_title")),
		m.renderField(FieldDestination, "select_destination", m.destination.View()),
		"",
		m.renderField(FieldSource, "select_source", m.source.View()),
		m.renderField(FieldName, "entry_name", m.name.View()),
		m.renderField(FieldMode, "mode", m.renderMode()),
		"",
		m.renderField(FieldDryRun, "dry_run", m.renderDryRun()),
		m.renderField(FieldTransfer, "transfer_path", m.transfer.View()),
		"",
		m.renderEntries(),
		"",
		m.renderStatus(),
	}

	if len(m.log) > 0 {
		sections = append(sections, "", shared.RenderActivityLog("", m.log, shared.MaxLogEntries))
	}

	sections = append(sections, "", m.renderHelpText())

	box := shared.BoxStyle()
	if width := m.width - box.GetHorizontalFrameSize(); m.width > 0 && width > 0 {
		box = box.Width(width)
	}

	return box.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) renderField(field Field, labelKey, value string) string {
	style := shared.NormalStyle()
	if m.focus == field {
		style = shared.LabelStyle()
	}

	label := style.Width(shared.LabelWidth).Render(m.strings.T(labelKey))

	return lipgloss.JoinHorizontal(lipgloss.Top, label, value)
}

func (m Model) renderMode() string {
	choices := []config.Mode{config.ModeMirror, config.ModeCopy}
	parts := make([]string, 0, len(choices))

	for _, choice := range choices {
		if choice == m.mode {
			parts = append(parts, shared.RenderLabel("("+choice.String()+")"))
		} else {
			parts = append(parts, shared.RenderDim(" "+choice.String()+" "))
		}
	}

	return m.cursor(FieldMode) + strings.Join(parts, " ")
}

func (m Model) renderDryRun() string {
	box := "[ ]"
	if m.dryRun {
		box = "[x]"
	}

	return m.cursor(FieldDryRun) + box
}

func (m Model) renderEntries() string {
	lines := []string{m.cursor(FieldEntries) + shared.RenderLabel(m.strings.T("entries"))}

	if len(m.entries) == 0 {
		lines = append(lines, "    "+shared.RenderDim(m.strings.T("no_entries")))
	}

	for i, name := range m.entries {
		if i == m.selected {
			lines = append(lines, shared.LabelStyle().Render("  "+shared.PromptArrow+name))
		} else {
			lines = append(lines, shared.NormalStyle().Render("    "+name))
		}
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderStatus() string {
	switch {
	case m.failed:
		return shared.RenderError(m.status)
	case m.running:
		return shared.RenderWarning(m.status)
	default:
		return shared.RenderSuccess(m.status)
	}
}

func (m Model) renderHelpText() string {
	keys := []string{
		fmt.Sprintf("ctrl+s %s", m.strings.T("add_update_entry")),
		fmt.Sprintf("ctrl+d %s", m.strings.T("remove_entry")),
		fmt.Sprintf("ctrl+r %s", m.strings.T("run_backup")),
		fmt.Sprintf("ctrl+e %s", m.strings.T("export_config")),
		fmt.Sprintf("ctrl+o %s", m.strings.T("import_config")),
		fmt.Sprintf("esc %s", m.strings.T("quit")),
	}

	return shared.RenderDim("tab/shift+tab • " + strings.Join(keys, " • "))
}

// cursor marks toggles and the entries list the way prompts mark inputs.
func (m Model) cursor(field Field) string {
	if m.focus == field {
		return shared.PromptArrow
	}

	return shared.PromptBlank
}
