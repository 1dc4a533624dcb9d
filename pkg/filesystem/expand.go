package filesystem

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

// unexported variables.
var (
	// unixReferencePattern matches $VAR and ${VAR}
	//nolint:gochecknoglobals // Compiled once, shared by all expansions
	unixReferencePattern = regexp.MustCompile(`\$\{([^{}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)
	// windowsReferencePattern also matches %VAR%, which is literal text elsewhere
	//nolint:gochecknoglobals // Compiled once, shared by all expansions
	windowsReferencePattern = regexp.MustCompile(`\$\{([^{}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)|%([A-Za-z_][A-Za-z0-9_()]*)%`)
)

// ExpandPath resolves environment references and home shorthand in a
// configured path and returns it as an absolute path. SFTP URLs are
// returned unchanged.
func ExpandPath(raw string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}

	return ExpandPathWith(raw, os.LookupEnv, home)
}

// ExpandPathWith is ExpandPath with explicit environment lookup and home
// directory. Environment references ($VAR, ${VAR}, and %VAR% on Windows) are
// expanded first, then a leading ~. Unset variables are left exactly as written.
func ExpandPathWith(raw string, lookup func(string) (string, bool), home string) string {
	if raw == "" || IsRemote(raw) {
		return raw
	}

	expanded := expandEnv(raw, lookup, runtime.GOOS == "windows")
	expanded = expandHome(expanded, home)

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return filepath.Clean(expanded)
	}

	return abs
}

// expandEnv replaces set environment references in raw. %VAR% forms are
// only recognised when windows is set.
func expandEnv(raw string, lookup func(string) (string, bool), windows bool) string {
	pattern := unixReferencePattern
	if windows {
		pattern = windowsReferencePattern
	}

	return pattern.ReplaceAllStringFunc(raw, func(ref string) string {
		name := strings.Join(pattern.FindStringSubmatch(ref)[1:], "")
		if value, ok := lookup(name); ok {
			return value
		}

		return ref
	})
}

// expandHome replaces a bare ~ or a leading ~/ with home. ~user forms are
// left alone.
func expandHome(p, home string) string {
	if home == "" || !strings.HasPrefix(p, "~") {
		return p
	}

	if p == "~" {
		return home
	}

	if p[1] == '/' || p[1] == filepath.Separator {
		return filepath.Join(home, p[2:])
	}

	return p
}
