//nolint:varnamelen,testpackage // Test files use idiomatic short variable names
package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers
)

func collect(t *testing.T, scanner FileScanner) map[string]FileInfo {
	t.Helper()

	seen := make(map[string]FileInfo)

	for {
		info, ok := scanner.Next()
		if !ok {
			break
		}

		if _, dup := seen[info.RelativePath]; dup {
			t.Errorf("entry %s yielded twice", info.RelativePath)
		}

		seen[info.RelativePath] = info
	}

	return seen
}

func TestRealFileScanner_YieldsEveryEntryOnce(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tmpDir := t.TempDir()
	g.Expect(os.MkdirAll(filepath.Join(tmpDir, "subdir", "deep"), 0o755)).To(Succeed())

	for _, name := range []string{"a.txt", "subdir/b.txt", "subdir/deep/c.txt"} {
		g.Expect(os.WriteFile(filepath.Join(tmpDir, filepath.FromSlash(name)), []byte(name), 0o644)).To(Succeed())
	}

	scanner := newRealFileScanner(tmpDir)
	seen := collect(t, scanner)

	g.Expect(scanner.Err()).ShouldNot(HaveOccurred())
	g.Expect(seen).To(HaveLen(5))
	g.Expect(seen).To(HaveKey("subdir/deep/c.txt"), "relative paths are slash separated")
	g.Expect(seen["subdir"].IsDir).To(BeTrue())
	g.Expect(seen["a.txt"].Size).To(Equal(int64(len("a.txt"))))
	g.Expect(seen).NotTo(HaveKey("."), "root is not yielded")
}

func TestRealFileScanner_ReportsSymlinks(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tmpDir := t.TempDir()
	g.Expect(os.WriteFile(filepath.Join(tmpDir, "target.txt"), []byte("x"), 0o644)).To(Succeed())

	if err := os.Symlink(filepath.Join(tmpDir, "target.txt"), filepath.Join(tmpDir, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	seen := collect(t, newRealFileScanner(tmpDir))

	g.Expect(seen["link.txt"].IsSymlink()).To(BeTrue())
	g.Expect(seen["target.txt"].IsSymlink()).To(BeFalse())
}

func TestRealFileScanner_SymlinkedRootIsFollowed(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tmpDir := t.TempDir()
	realDir := filepath.Join(tmpDir, "real")
	g.Expect(os.MkdirAll(realDir, 0o755)).To(Succeed())
	g.Expect(os.WriteFile(filepath.Join(realDir, "f.txt"), []byte("x"), 0o644)).To(Succeed())

	link := filepath.Join(tmpDir, "link")
	if err := os.Symlink(realDir, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	seen := collect(t, newRealFileScanner(link))

	g.Expect(seen).To(HaveKey("f.txt"))
}

func TestRealFileScanner_MissingRootIsError(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	scanner := newRealFileScanner(filepath.Join(t.TempDir(), "missing"))

	_, ok := scanner.Next()
	g.Expect(ok).To(BeFalse())
	g.Expect(scanner.Err()).Should(HaveOccurred())
}

func TestRelativePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		root, target, want string
		wantErr            bool
	}{
		{"/srv/backups", "/srv/backups/Docs/a.txt", "Docs/a.txt", false},
		{"/", "/etc/hosts", "etc/hosts", false},
		{".", "Docs/a.txt", "Docs/a.txt", false},
		{"/srv/backups", "/srv/backups", ".", false},
		{"/srv/backups", "/srv/backupsX/a", "", true},
	}

	for _, tt := range tests {
		got, err := relativePath(tt.root, tt.target)
		if (err != nil) != tt.wantErr {
			t.Errorf("relativePath(%q, %q) error = %v, wantErr %v", tt.root, tt.target, err, tt.wantErr)
			continue
		}

		if got != tt.want {
			t.Errorf("relativePath(%q, %q) = %q, want %q", tt.root, tt.target, got, tt.want)
		}
	}
}
