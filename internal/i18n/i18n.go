// Package i18n loads the flat key/value string tables used by the CLI and
// the terminal form.
package i18n

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/text/language"
)

// Exported constants.
const (
	DefaultLanguage    = "en"
	PortugueseLanguage = "pt-BR"
	// Auto is the config value that asks for detection
	Auto = "auto"
)

// Exported variables.
var (
	ErrNoTranslations = errors.New("no translation file found")
)

//go:embed locales/*.json
var embedded embed.FS

// localeVars are consulted in POSIX precedence order.
//
//nolint:gochecknoglobals // Read-only lookup order
var localeVars = []string{"LC_ALL", "LC_MESSAGES", "LANG"}

// DetectLanguage picks a language code from the locale environment:
// PortugueseLanguage for any Portuguese locale, DefaultLanguage otherwise.
func DetectLanguage(getenv func(string) string) string {
	for _, name := range localeVars {
		value := getenv(name)
		if value == "" {
			continue
		}

		tag, err := language.Parse(posixToBCP47(value))
		if err != nil {
			return DefaultLanguage
		}

		base, _ := tag.Base()
		if base.String() == "pt" {
			return PortugueseLanguage
		}

		return DefaultLanguage
	}

	return DefaultLanguage
}

// Resolve returns the language to load for a config setting: detected
// when the setting is blank or "auto", the setting itself otherwise.
func Resolve(setting string, getenv func(string) string) string {
	setting = strings.TrimSpace(setting)
	if setting == "" || strings.EqualFold(setting, Auto) {
		return DetectLanguage(getenv)
	}

	return setting
}

// posixToBCP47 turns "pt_BR.UTF-8@euro" into "pt-BR".
func posixToBCP47(locale string) string {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}

	return strings.ReplaceAll(locale, "_", "-")
}

// Strings is a loaded string table
type Strings map[string]string

// T returns the string for key, or key itself when it has no translation.
func (s Strings) T(key string) string {
	if value, ok := s[key]; ok {
		return value
	}

	return key
}

// Tf formats the string for key with args.
func (s Strings) Tf(key string, args ...any) string {
	return fmt.Sprintf(s.T(key), args...)
}

// Loader reads string tables named <code>.json from a filesystem
type Loader struct {
	fsys fs.FS
}

// NewLoader returns a loader over dir, or over the built-in tables when
// dir is empty.
func NewLoader(dir string) *Loader {
	if dir == "" {
		sub, _ := fs.Sub(embedded, "locales") //nolint:errcheck // Static embedded path
		return NewLoaderFS(sub)
	}

	return NewLoaderFS(os.DirFS(dir))
}

// NewLoaderFS returns a loader reading tables from fsys
func NewLoaderFS(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys}
}

// Load returns the table for code, falling back to DefaultLanguage when
// there is no file for code. The _meta key is dropped and non-string
// values are kept as their JSON text.
func (l *Loader) Load(code string) (Strings, error) {
	data, err := fs.ReadFile(l.fsys, code+".json")
	if errors.Is(err, fs.ErrNotExist) {
		data, err = fs.ReadFile(l.fsys, DefaultLanguage+".json")
	}

	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w for %q", ErrNoTranslations, code)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read translations for %q: %w", code, err)
	}

	var raw map[string]json.RawMessage

	err = json.Unmarshal(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse translations for %q: %w", code, err)
	}

	delete(raw, "_meta")

	strs := make(Strings, len(raw))
	for key, value := range raw {
		strs[key] = text(value)
	}

	return strs, nil
}

func text(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	return string(bytes.TrimSpace(raw))
}
