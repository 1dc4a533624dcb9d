// Package config handles command-line argument parsing and the JSON
// document that describes what to back up.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alexflint/go-arg"
)

// Exported variables.
var (
	ErrConflictingFlags = errors.New("--dry-run and --run cannot be used together")
	// ErrHelp and ErrVersion report that help or version text was written
	// and the program should exit successfully.
	ErrHelp    = arg.ErrHelp
	ErrVersion = arg.ErrVersion
)

const exportFlag = "--export-config"

// Args holds the command-line arguments
type Args struct {
	DryRun       bool   `arg:"--dry-run" help:"Simulate the backup without touching the filesystem"`
	Run          bool   `arg:"--run" help:"Perform the backup even if the config sets dry_run"`
	ExportConfig string `arg:"--export-config" placeholder:"DIR" help:"Export the config to DIR (default: your downloads folder) and exit"`
	ImportConfig string `arg:"--import-config" placeholder:"FILE" help:"Replace the config with FILE (.json) and exit"`
	ConfigPath   string `arg:"-c,--config,env:FILEKNIGHT_CONFIG" placeholder:"FILE" help:"Config file location"`
	LocalesDir   string `arg:"--locales-dir,env:FILEKNIGHT_LOCALES" placeholder:"DIR" help:"Load translations from DIR instead of the built-in ones"`
	Interactive  bool   `arg:"-i,--interactive" help:"Edit entries and run backups in a terminal form"`
	Verbose      bool   `arg:"-v,--verbose" help:"Log progress to stderr"`
}

// Description returns the program description for go-arg
func (Args) Description() string {
	return "FileKnight backs up the files and folders listed in its config"
}

// Version returns the version string for go-arg
func (Args) Version() string {
	return "fileknight 1.0.0"
}

// DryRunOverride returns the caller's dry-run choice, or nil when neither
// --dry-run nor --run was given and the config value applies.
func (a *Args) DryRunOverride() *bool {
	switch {
	case a.DryRun:
		v := true
		return &v
	case a.Run:
		v := false
		return &v
	default:
		return nil
	}
}

// Parse parses argv (without the program name). Help, version and usage
// errors are written to out. Returns ErrHelp or ErrVersion after writing
// those texts.
func Parse(argv []string, out io.Writer) (*Args, error) {
	args := &Args{
		ConfigPath: DefaultConfigPath(),
	}

	parser, err := arg.NewParser(arg.Config{Program: "fileknight"}, args)
	if err != nil {
		return nil, fmt.Errorf("failed to build argument parser: %w", err)
	}

	err = parser.Parse(expandBareExport(argv, DefaultExportDir()))

	switch {
	case errors.Is(err, arg.ErrHelp):
		parser.WriteHelp(out)
		return nil, ErrHelp
	case errors.Is(err, arg.ErrVersion):
		_, _ = fmt.Fprintln(out, args.Version())
		return nil, ErrVersion
	case err != nil:
		parser.WriteUsage(out)
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	return PostProcessArgs(args)
}

// PostProcessArgs applies checks go-arg cannot express
func PostProcessArgs(args *Args) (*Args, error) {
	if args.DryRun && args.Run {
		return nil, ErrConflictingFlags
	}

	return args, nil
}

// expandBareExport gives a value-less --export-config the default directory.
// go-arg has no optional-value flags, so the value is filled in beforehand.
func expandBareExport(argv []string, defaultDir string) []string {
	out := make([]string, 0, len(argv)+1)

	for i, a := range argv {
		out = append(out, a)

		if a == "--" {
			return append(out, argv[i+1:]...)
		}

		if a != exportFlag {
			continue
		}

		if i+1 == len(argv) || strings.HasPrefix(argv[i+1], "-") {
			out = append(out, defaultDir)
		}
	}

	return out
}
