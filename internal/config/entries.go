package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joe/fileknight/pkg/filesystem"
)

// Mode selects how an entry's source is written into the destination
type Mode string

const (
	// ModeMirror replaces the previous backup with a fresh copy
	ModeMirror Mode = "mirror"
	// ModeCopy merges the source over the previous backup
	ModeCopy Mode = "copy"
)

// String returns the string representation of Mode
func (m Mode) String() string {
	return string(m)
}

// ParseMode parses a mode name, ignoring case and surrounding space
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeMirror:
		return ModeMirror, nil
	case ModeCopy:
		return ModeCopy, nil
	default:
		return ModeMirror, fmt.Errorf("invalid mode: %q (valid: mirror, copy)", s) //nolint:err113 // Parse error carries the input
	}
}

// NormalizeMode returns the mode named by s, repairing anything
// unrecognised (including blank) to ModeMirror.
func NormalizeMode(s string) Mode {
	mode, err := ParseMode(s)
	if err != nil {
		return ModeMirror
	}

	return mode
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}

	*m = parsed

	return nil
}

// Entry is a validated backup unit
type Entry struct {
	Name    string
	Source  string
	Mode    Mode
	Exclude []string
}

// RawEntry is an entry as stored in the config file, before validation.
type RawEntry struct {
	Name    string   `json:"name"`
	Source  string   `json:"source"`
	Mode    string   `json:"mode"`
	Exclude []string `json:"exclude,omitempty"`
}

// UnmarshalJSON accepts scalar values of any JSON type for name, source
// and mode, storing their text. Null counts as empty.
func (e *RawEntry) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err //nolint:wrapcheck // Surfaced through Load with context
	}

	*e = RawEntry{
		Name:   scalarText(fields["name"]),
		Source: scalarText(fields["source"]),
		Mode:   scalarText(fields["mode"]),
	}

	if raw, ok := fields["exclude"]; ok {
		var patterns []string
		if err := json.Unmarshal(raw, &patterns); err == nil {
			e.Exclude = patterns
		}
	}

	return nil
}

// scalarText renders a JSON value as text: strings unquoted, null and
// missing values empty, anything else as its JSON literal.
func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	return string(raw)
}

// ValidEntries returns the usable entries in file order. Names and
// sources are trimmed and entries missing either are dropped. Modes are
// repaired to mirror when unrecognised, and sources are expanded to
// absolute paths. Fails with ErrInvalidConfig if entries is not a list or
// nothing usable remains.
func (d *Document) ValidEntries() ([]Entry, error) {
	if d.entriesMalformed {
		return nil, fmt.Errorf("%w: entries must be a list", ErrInvalidConfig)
	}

	valid := make([]Entry, 0, len(d.Entries))

	for _, raw := range d.Entries {
		name := strings.TrimSpace(raw.Name)
		source := strings.TrimSpace(raw.Source)

		if name == "" || source == "" {
			continue
		}

		valid = append(valid, Entry{
			Name:    name,
			Source:  filesystem.ExpandPath(source),
			Mode:    NormalizeMode(raw.Mode),
			Exclude: raw.Exclude,
		})
	}

	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: no valid entries found", ErrInvalidConfig)
	}

	return valid, nil
}
