package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Exported constants.
const (
	// LanguageAuto asks for the language to be detected from the OS locale
	LanguageAuto = "auto"
	// DefaultDirPermissions is used for directories created next to the config
	DefaultDirPermissions = 0o750
)

// Exported variables.
var (
	ErrConfigMissing    = errors.New("config file not found")
	ErrInvalidConfig    = errors.New("invalid config")
	ErrImportValidation = errors.New("import rejected")
	ErrIncompleteEntry  = errors.New("entry needs a name and a source")
)

// Document is the in-memory form of the config file. It is edited through
// its methods and written back with an explicit Save.
type Document struct {
	// Meta is kept byte-for-byte unless replaced with SetMeta
	Meta            json.RawMessage
	Language        string
	DryRun          bool
	DestinationRoot string
	Entries         []RawEntry

	entriesMalformed bool
	rawEntries       json.RawMessage
}

// documentFile is the on-disk layout; field order is the key order written.
type documentFile struct {
	Meta            json.RawMessage `json:"_meta,omitempty"`
	Language        string          `json:"language"`
	DryRun          bool            `json:"dry_run"`
	DestinationRoot string          `json:"destination_root"`
	Entries         any             `json:"entries"`
}

// documentInput decodes the file with entries left raw for item-wise checks.
type documentInput struct {
	Meta            json.RawMessage `json:"_meta"`
	Language        string          `json:"language"`
	DryRun          bool            `json:"dry_run"`
	DestinationRoot string          `json:"destination_root"`
	Entries         json.RawMessage `json:"entries"`
}

// NewDocument returns a document holding the default value of every field.
func NewDocument() *Document {
	return &Document{
		Language: LanguageAuto,
		Entries:  []RawEntry{},
	}
}

// Load reads the config file at path. Returns ErrConfigMissing if the file
// does not exist and ErrInvalidConfig if it is not a JSON object.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path) // #nosec G304 - config path is chosen by the user
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrConfigMissing, path)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	doc := NewDocument()

	err = json.Unmarshal(data, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}

	return doc, nil
}

// UnmarshalJSON decodes the config file layout. Missing fields keep their
// defaults. Entry items that are not objects are dropped; an entries value
// that is not a list is remembered so ValidEntries can report it.
func (d *Document) UnmarshalJSON(data []byte) error {
	file := documentInput{
		Language: d.Language,
	}

	err := json.Unmarshal(data, &file)
	if err != nil {
		return err //nolint:wrapcheck // Load adds the path
	}

	d.Meta = file.Meta
	d.Language = file.Language
	d.DryRun = file.DryRun
	d.DestinationRoot = file.DestinationRoot
	d.Entries = []RawEntry{}
	d.entriesMalformed = false
	d.rawEntries = nil

	entries := bytes.TrimSpace(file.Entries)
	if len(entries) == 0 || string(entries) == "null" {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(entries, &items); err != nil {
		d.entriesMalformed = true
		d.rawEntries = entries

		return nil //nolint:nilerr // Reported by ValidEntries
	}

	for _, item := range items {
		trimmed := bytes.TrimSpace(item)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			continue
		}

		var entry RawEntry
		if err := json.Unmarshal(trimmed, &entry); err != nil {
			return err //nolint:wrapcheck // Load adds the path
		}

		d.Entries = append(d.Entries, entry)
	}

	return nil
}

// Save writes the document to path as two-space indented JSON. The file
// is replaced atomically; parent directories are created.
func (d *Document) Save(path string) error {
	file := documentFile{
		Meta:            d.Meta,
		Language:        d.Language,
		DryRun:          d.DryRun,
		DestinationRoot: d.DestinationRoot,
		Entries:         d.Entries,
	}

	if d.entriesMalformed {
		file.Entries = d.rawEntries
	} else if d.Entries == nil {
		file.Entries = []RawEntry{}
	}

	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")

	err := encoder.Encode(file)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return writeFileAtomic(path, buf.Bytes())
}

// AddOrUpdateEntry replaces the entry with the same name, or appends a new
// one. Exclude patterns of an updated entry are kept.
func (d *Document) AddOrUpdateEntry(name, source string, mode Mode) error {
	name = strings.TrimSpace(name)
	source = strings.TrimSpace(source)

	if name == "" || source == "" {
		return ErrIncompleteEntry
	}

	mode = NormalizeMode(string(mode))

	for i := range d.Entries {
		if strings.TrimSpace(d.Entries[i].Name) == name {
			d.Entries[i].Name = name
			d.Entries[i].Source = source
			d.Entries[i].Mode = string(mode)

			return nil
		}
	}

	d.ensureEntryList()
	d.Entries = append(d.Entries, RawEntry{Name: name, Source: source, Mode: string(mode)})

	return nil
}

// RemoveEntry deletes every entry called name and reports whether any was found.
func (d *Document) RemoveEntry(name string) bool {
	name = strings.TrimSpace(name)
	kept := d.Entries[:0]
	removed := false

	for _, entry := range d.Entries {
		if strings.TrimSpace(entry.Name) == name {
			removed = true
			continue
		}

		kept = append(kept, entry)
	}

	d.Entries = kept

	return removed
}

// EntryByName returns the stored entry called name.
func (d *Document) EntryByName(name string) (RawEntry, bool) {
	name = strings.TrimSpace(name)

	for _, entry := range d.Entries {
		if strings.TrimSpace(entry.Name) == name {
			return entry, true
		}
	}

	return RawEntry{}, false
}

// EntryNames returns the names of the stored entries, in order.
func (d *Document) EntryNames() []string {
	names := make([]string, 0, len(d.Entries))
	for _, entry := range d.Entries {
		names = append(names, strings.TrimSpace(entry.Name))
	}

	return names
}

// SetDestinationRoot sets the folder that receives one subfolder per entry.
func (d *Document) SetDestinationRoot(root string) {
	d.DestinationRoot = strings.TrimSpace(root)
}

// SetDryRun sets the dry-run default.
func (d *Document) SetDryRun(dryRun bool) {
	d.DryRun = dryRun
}

// SetMeta replaces the metadata block. The value must be valid JSON.
func (d *Document) SetMeta(meta json.RawMessage) error {
	if !json.Valid(meta) {
		return fmt.Errorf("%w: _meta is not valid JSON", ErrInvalidConfig)
	}

	d.Meta = append(json.RawMessage(nil), meta...)

	return nil
}

// ensureEntryList drops an unusable entries value before the first edit.
func (d *Document) ensureEntryList() {
	if d.entriesMalformed {
		d.entriesMalformed = false
		d.rawEntries = nil
		d.Entries = []RawEntry{}
	}
}

// writeFileAtomic writes data to a temporary file beside path and renames
// it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	err := os.MkdirAll(dir, DefaultDirPermissions)
	if err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}

	tmpName := tmp.Name()

	defer func() {
		_ = os.Remove(tmpName)
	}()

	_, err = tmp.Write(data)
	if err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}

	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}

	err = os.Rename(tmpName, path)
	if err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}
