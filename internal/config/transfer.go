package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joe/fileknight/pkg/fileops"
)

// Exported constants.
const (
	// DefaultDestinationRoot is written into a freshly created config
	DefaultDestinationRoot = "~/Desktop/FileKnight"
	// MetaTimeLayout stamps _meta.created_at
	MetaTimeLayout = "2006-01-02 15:04:05"
	// ExportTimeLayout names exported config files
	ExportTimeLayout = "20060102_150405"
	// ExportPrefix starts every exported config file name
	ExportPrefix = "fileknight_config_"
)

// Meta is the metadata block written into a new config file
type Meta struct {
	File      string `json:"file"`
	Path      string `json:"path"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at"`
}

// DefaultDocument returns the template written on first run, stamped with now.
func DefaultDocument(now time.Time) *Document {
	meta, _ := json.Marshal(Meta{ //nolint:errchkjson // Plain strings always encode
		File:      ConfigFileName,
		Path:      "/" + AppName + "/" + ConfigFileName,
		CreatedBy: "@jonathaxs",
		CreatedAt: now.Format(MetaTimeLayout),
	})

	doc := NewDocument()
	doc.Meta = meta
	doc.DestinationRoot = DefaultDestinationRoot
	doc.Entries = []RawEntry{{
		Name:   "Example Entry",
		Source: "~/Desktop/ExampleSource",
		Mode:   string(ModeMirror),
	}}

	return doc
}

// WriteDefault writes the default template to path, creating parent directories.
func WriteDefault(path string, now time.Time) error {
	return DefaultDocument(now).Save(path)
}

// ExportFileName returns the file name used for an export made at now.
func ExportFileName(now time.Time) string {
	return ExportPrefix + now.Format(ExportTimeLayout) + ".json"
}

// Export copies the config file into dir under a timestamped name and
// returns the new file's path. dir is created if needed.
func Export(configPath, dir string, now time.Time) (string, error) {
	_, err := os.Stat(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrConfigMissing, configPath)
	}

	err = os.MkdirAll(dir, DefaultDirPermissions)
	if err != nil {
		return "", fmt.Errorf("failed to create export directory %s: %w", dir, err)
	}

	target := filepath.Join(dir, ExportFileName(now))

	_, err = fileops.NewRealFileOps().CopyFile(configPath, target)
	if err != nil {
		return "", fmt.Errorf("failed to export config: %w", err)
	}

	return target, nil
}

// Import replaces the config file with src. src must be an existing
// regular file with a .json extension holding a JSON object.
func Import(src, configPath string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("%w: file not found: %s", ErrImportValidation, src)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: not a regular file: %s", ErrImportValidation, src)
	}

	if !strings.EqualFold(filepath.Ext(src), ".json") {
		return fmt.Errorf("%w: expected a .json file: %s", ErrImportValidation, src)
	}

	data, err := os.ReadFile(src) // #nosec G304 - import path is chosen by the user
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}

	var object map[string]json.RawMessage

	err = json.Unmarshal(data, &object)
	if err != nil || object == nil {
		return fmt.Errorf("%w: not a JSON object: %s", ErrImportValidation, src)
	}

	_, err = fileops.NewRealFileOps().CopyFile(src, configPath)
	if err != nil {
		return fmt.Errorf("failed to import config: %w", err)
	}

	return nil
}

// LoadOrCreate loads the config at path, writing the default template
// first when the file does not exist. created reports whether it did.
func LoadOrCreate(path string, now time.Time) (*Document, bool, error) {
	doc, err := Load(path)
	if !errors.Is(err, ErrConfigMissing) {
		return doc, false, err
	}

	err = WriteDefault(path, now)
	if err != nil {
		return nil, false, err
	}

	doc, err = Load(path)

	return doc, true, err
}
