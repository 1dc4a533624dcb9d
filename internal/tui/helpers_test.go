package tui_test

import (
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/joe/fileknight/internal/backup"
	"github.com/joe/fileknight/internal/cli"
	"github.com/joe/fileknight/internal/config"
	"github.com/joe/fileknight/internal/i18n"
	"github.com/joe/fileknight/internal/tui"
)

// testingT is the part of *testing.T and GinkgoT() the helpers need.
type testingT interface {
	Helper()
	TempDir() string
	Fatalf(format string, args ...any)
}

var fixedNow = time.Date(2025, 12, 23, 10, 11, 12, 0, time.UTC)

// newForm writes a config into a temp dir, lets edit adjust it first, and
// returns the form together with the config path.
func newForm(t testingT, edit func(doc *config.Document)) (tui.Model, string) {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.json")

	doc := config.DefaultDocument(fixedNow)
	if edit != nil {
		edit(doc)
	}

	err := doc.Save(configPath)
	if err != nil {
		t.Fatalf("save config: %v", err)
	}

	doc, err = config.Load(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	strs, err := i18n.NewLoader("").Load(i18n.DefaultLanguage)
	if err != nil {
		t.Fatalf("load strings: %v", err)
	}

	runner := backup.NewRunner(zerolog.Nop())
	runner.SetClock(func() time.Time { return fixedNow })

	return tui.New(cli.Session{
		ConfigPath: configPath,
		Document:   doc,
		Strings:    strs,
		Runner:     runner,
		Now:        func() time.Time { return fixedNow },
	}), configPath
}

func reload(t testingT, configPath string) *config.Document {
	t.Helper()

	doc, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}

	return doc
}

func writeFile(t testingT, path, content string) {
	t.Helper()

	err := os.MkdirAll(filepath.Dir(path), 0o750)
	if err == nil {
		err = os.WriteFile(path, []byte(content), 0o600)
	}

	if err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func update(m tui.Model, msg tea.Msg) tui.Model {
	next, _ := m.Update(msg)
	return next.(tui.Model) //nolint:forcetypeassert // Update always returns Model
}

func press(m tui.Model, keyType tea.KeyType) tui.Model {
	return update(m, tea.KeyMsg{Type: keyType})
}

func space(m tui.Model) tui.Model {
	return update(m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
}

func typeText(m tui.Model, text string) tui.Model {
	for _, r := range text {
		m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	return m
}

func focusOn(m tui.Model, field tui.Field) tui.Model {
	for range int(tui.FieldEntries) + 1 {
		if m.Focus() == field {
			return m
		}

		m = press(m, tea.KeyTab)
	}

	return m
}

// drain executes cmd and every command that follows from it, feeding the
// resulting messages back into the form.
func drain(m tui.Model, cmd tea.Cmd) tui.Model {
	queue := []tea.Cmd{cmd}

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		if next == nil {
			continue
		}

		msg := next()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}

		if msg == nil {
			continue
		}

		model, follow := m.Update(msg)
		m = model.(tui.Model) //nolint:forcetypeassert // Update always returns Model
		queue = append(queue, follow)
	}

	return m
}

func runBackup(m tui.Model) tui.Model {
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	return drain(next.(tui.Model), cmd) //nolint:forcetypeassert // Update always returns Model
}
