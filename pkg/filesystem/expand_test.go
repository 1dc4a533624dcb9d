//nolint:varnamelen // Test files use idiomatic short variable names (t, tt, etc.)
package filesystem_test

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/joe/fileknight/pkg/filesystem"
)

func TestExpandPathWith(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"BACKUP":      "/mnt/backup",
		"USERPROFILE": "/home/joe",
		"EMPTY":       "",
	}
	lookup := func(name string) (string, bool) {
		value, ok := env[name]
		return value, ok
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain absolute", "/srv/data", "/srv/data"},
		{"dollar var", "$BACKUP/docs", "/mnt/backup/docs"},
		{"braced var", "${BACKUP}/docs", "/mnt/backup/docs"},
		{"unset var passes through", "/x/$NOPE/y", "/x/$NOPE/y"},
		{"unset braced var passes through", "/x/${NOPE}/y", "/x/${NOPE}/y"},
		{"set but empty", "/x$EMPTY/y", "/x/y"},
		{"bare tilde", "~", "/home/joe"},
		{"tilde slash", "~/Desktop/FileKnight", "/home/joe/Desktop/FileKnight"},
		{"tilde user left alone", "/a/~bob", "/a/~bob"},
		{"sftp untouched", "sftp://joe@nas/backups", "sftp://joe@nas/backups"},
		{"empty stays empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := filesystem.ExpandPathWith(tt.input, lookup, "/home/joe")
			if got != tt.want {
				t.Errorf("ExpandPathWith(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandPathWith_PercentVarIsLiteralOutsideWindows(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("%VAR% is an environment reference on Windows")
	}

	lookup := func(string) (string, bool) { return "/home/joe", true }

	got := filesystem.ExpandPathWith("/srv/%HOME%/backups", lookup, "/home/joe")
	if got != "/srv/%HOME%/backups" {
		t.Errorf("expected %%HOME%% to stay literal, got %q", got)
	}
}

func TestExpandPathWith_EnvExpandsBeforeHome(t *testing.T) {
	t.Parallel()

	lookup := func(name string) (string, bool) {
		if name == "TILDE" {
			return "~", true
		}

		return "", false
	}

	got := filesystem.ExpandPathWith("$TILDE/docs", lookup, "/home/joe")
	if got != filepath.Join("/home/joe", "docs") {
		t.Errorf("expected env expansion to feed home expansion, got %q", got)
	}
}

func TestExpandPathWith_RelativeBecomesAbsolute(t *testing.T) {
	t.Parallel()

	got := filesystem.ExpandPathWith("relative/dir", func(string) (string, bool) { return "", false }, "/home/joe")
	if !filepath.IsAbs(got) {
		t.Errorf("expected absolute path, got %q", got)
	}
}
