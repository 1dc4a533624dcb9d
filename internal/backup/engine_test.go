//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package backup_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers
	"github.com/rs/zerolog"

	"github.com/joe/fileknight/internal/backup"
	"github.com/joe/fileknight/internal/config"
	"github.com/joe/fileknight/pkg/filesystem"
	"github.com/joe/fileknight/pkg/filesystem/sftptest"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}

	return string(data)
}

func newMockEngine() (*backup.Engine, *filesystem.MockFileSystem, *filesystem.MockFileSystem) {
	srcFS := filesystem.NewMockFileSystem()
	dstFS := filesystem.NewMockFileSystem()

	return backup.NewEngineWithFS(srcFS, dstFS, zerolog.Nop()), srcFS, dstFS
}

func TestEngine_Destination(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	engine, _, _ := newMockEngine()

	dstDir, dstItem := engine.Destination(config.Entry{Name: "Docs", Source: "/home/u/src/"}, "/backup")
	g.Expect(dstDir).To(Equal("/backup/Docs"))
	g.Expect(dstItem).To(Equal("/backup/Docs/src"))
}

func TestEngine_DryRunTouchesNothing(t *testing.T) {
	t.Parallel()

	for _, mode := range []config.Mode{config.ModeMirror, config.ModeCopy} {
		t.Run(string(mode), func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			engine, srcFS, dstFS := newMockEngine()
			srcFS.AddFile("/src/a.txt", []byte("a"), time.Now())
			dstFS.AddFile("/dst/Docs/src/stale.txt", []byte("old"), time.Now())

			before := dstFS.Mutations()

			dst, err := engine.Copy(config.Entry{Name: "Docs", Source: "/src", Mode: mode}, "/dst", true)
			g.Expect(err).ShouldNot(HaveOccurred())
			g.Expect(dst).To(Equal("/dst/Docs/src"))
			g.Expect(dstFS.Mutations()).To(Equal(before))
			g.Expect(srcFS.Mutations()).To(BeEmpty())
			g.Expect(dstFS.Exists("/dst/Docs/src/stale.txt")).To(BeTrue())
			g.Expect(dstFS.Exists("/dst/Docs/src/a.txt")).To(BeFalse())
		})
	}
}

func TestEngine_DryRunStillChecksSource(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	engine, _, dstFS := newMockEngine()

	_, err := engine.Copy(config.Entry{Name: "Docs", Source: "/missing", Mode: config.ModeMirror}, "/dst", true)
	g.Expect(err).Should(MatchError(backup.ErrSourceNotFound))
	g.Expect(dstFS.Mutations()).To(BeEmpty())
}

func TestEngine_MirrorReplacesPreviousCopy(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	root := filepath.Join(dir, "dst")

	writeFile(t, filepath.Join(src, "a.txt"), "a1")
	writeFile(t, filepath.Join(src, "sub", "b.txt"), "b1")

	engine := backup.NewEngine(filesystem.NewRealFileSystem(), zerolog.Nop())
	entry := config.Entry{Name: "Docs", Source: src, Mode: config.ModeMirror}

	_, err := engine.Copy(entry, root, false)
	g.Expect(err).ShouldNot(HaveOccurred())

	// Change the source: rewrite a.txt, drop sub/b.txt, add c.txt
	writeFile(t, filepath.Join(src, "a.txt"), "a2")
	g.Expect(os.RemoveAll(filepath.Join(src, "sub"))).To(Succeed())
	writeFile(t, filepath.Join(src, "c.txt"), "c")

	dst, err := engine.Copy(entry, root, false)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(dst).To(Equal(filepath.Join(root, "Docs", "src")))

	g.Expect(listTree(t, dst)).To(Equal([]string{"a.txt", "c.txt"}))
	g.Expect(readFile(t, filepath.Join(dst, "a.txt"))).To(Equal("a2"))
}

func TestEngine_MirrorFollowsLinkedDirectory(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	root := filepath.Join(dir, "dst")

	writeFile(t, filepath.Join(src, "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "shared", "notes.txt"), "n")
	g.Expect(os.Symlink(filepath.Join("..", "shared"), filepath.Join(src, "linked"))).To(Succeed())

	engine := backup.NewEngine(filesystem.NewRealFileSystem(), zerolog.Nop())

	result, err := engine.CopyEntry(config.Entry{Name: "Docs", Source: src, Mode: config.ModeMirror}, root, false)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(result.Files).To(Equal(2))
	g.Expect(result.Skipped).To(BeZero())

	g.Expect(listTree(t, result.Destination)).To(Equal([]string{"a.txt", "linked", "linked/notes.txt"}))
	g.Expect(readFile(t, filepath.Join(root, "Docs", "src", "linked", "notes.txt"))).To(Equal("n"))
}

func TestEngine_MirrorToSFTPDestination(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	src := filepath.Join(t.TempDir(), "src")
	writeFile(t, filepath.Join(src, "a.txt"), "a1")
	writeFile(t, filepath.Join(src, "sub", "b.txt"), "b1")

	remote := filesystem.NewSFTPFileSystemFromClient(sftptest.NewClient(t))
	engine := backup.NewEngine(remote, zerolog.Nop())
	entry := config.Entry{Name: "Docs", Source: src, Mode: config.ModeMirror}

	_, err := engine.CopyEntry(entry, "/backups", false)
	g.Expect(err).ShouldNot(HaveOccurred())

	// A second run replaces the remote copy
	g.Expect(os.RemoveAll(filepath.Join(src, "sub"))).To(Succeed())
	writeFile(t, filepath.Join(src, "c.txt"), "c")

	result, err := engine.CopyEntry(entry, "/backups", false)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(result.Destination).To(Equal("/backups/Docs/src"))
	g.Expect(result.Files).To(Equal(2))

	var remoteFiles []string

	scanner := remote.Scan(result.Destination)

	for {
		info, ok := scanner.Next()
		if !ok {
			break
		}

		remoteFiles = append(remoteFiles, info.RelativePath)
	}

	g.Expect(scanner.Err()).ShouldNot(HaveOccurred())
	g.Expect(remoteFiles).To(ConsistOf("a.txt", "c.txt"))
}

// strayWriterFS leaves an extra file next to every file it creates.
type strayWriterFS struct {
	*filesystem.MockFileSystem
}

func (fs strayWriterFS) Create(name string) (filesystem.File, error) {
	fs.AddFile(name+".orig", []byte("stray"), time.Now())
	return fs.MockFileSystem.Create(name)
}

func TestEngine_MirrorVerificationCatchesExtraFiles(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	srcFS := filesystem.NewMockFileSystem()
	srcFS.AddFile("/src/a.txt", []byte("a"), time.Now())

	engine := backup.NewEngineWithFS(srcFS, strayWriterFS{filesystem.NewMockFileSystem()}, zerolog.Nop())

	_, err := engine.Copy(config.Entry{Name: "Docs", Source: "/src", Mode: config.ModeMirror}, "/dst", false)
	g.Expect(err).Should(MatchError(backup.ErrVerifyFailed))
}

func TestEngine_CopyMergesIntoExisting(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	root := filepath.Join(dir, "dst")
	item := filepath.Join(root, "Docs", "src")

	writeFile(t, filepath.Join(src, "a.txt"), "new a")
	writeFile(t, filepath.Join(src, "sub", "b.txt"), "b")
	writeFile(t, filepath.Join(item, "a.txt"), "old a")
	writeFile(t, filepath.Join(item, "only-in-dest.txt"), "keep me")

	engine := backup.NewEngine(filesystem.NewRealFileSystem(), zerolog.Nop())

	_, err := engine.Copy(config.Entry{Name: "Docs", Source: src, Mode: config.ModeCopy}, root, false)
	g.Expect(err).ShouldNot(HaveOccurred())

	g.Expect(listTree(t, item)).To(Equal([]string{"a.txt", "only-in-dest.txt", "sub", "sub/b.txt"}))
	g.Expect(readFile(t, filepath.Join(item, "a.txt"))).To(Equal("new a"))
	g.Expect(readFile(t, filepath.Join(item, "only-in-dest.txt"))).To(Equal("keep me"))
}

func TestEngine_CopyModeFreshDestination(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	engine, srcFS, dstFS := newMockEngine()
	srcFS.AddFile("/src/a.txt", []byte("a"), time.Now())
	srcFS.AddFile("/src/deep/b.txt", []byte("b"), time.Now())

	result, err := engine.CopyEntry(config.Entry{Name: "Docs", Source: "/src", Mode: config.ModeCopy}, "/dst", false)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(result.Files).To(Equal(2))
	g.Expect(result.Bytes).To(Equal(int64(2)))
	g.Expect(dstFS.ListFiles()).To(ContainElements("/dst/Docs/src/a.txt", "/dst/Docs/src/deep/b.txt"))
}

func TestEngine_FileSource(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "notes.txt")
	root := filepath.Join(dir, "dst")
	modTime := time.Date(2021, 7, 8, 9, 10, 11, 0, time.UTC)

	writeFile(t, src, "v1")
	g.Expect(os.Chtimes(src, modTime, modTime)).To(Succeed())

	engine := backup.NewEngine(filesystem.NewRealFileSystem(), zerolog.Nop())

	for _, mode := range []config.Mode{config.ModeMirror, config.ModeCopy} {
		dst, err := engine.Copy(config.Entry{Name: "Notes", Source: src, Mode: mode}, root, false)
		g.Expect(err).ShouldNot(HaveOccurred())
		g.Expect(dst).To(Equal(filepath.Join(root, "Notes", "notes.txt")))
		g.Expect(readFile(t, dst)).To(Equal("v1"))

		info, err := os.Stat(dst)
		g.Expect(err).ShouldNot(HaveOccurred())
		g.Expect(info.ModTime().Equal(modTime)).To(BeTrue())
	}
}

func TestEngine_MissingSource(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	dir := t.TempDir()
	root := filepath.Join(dir, "dst")

	engine := backup.NewEngine(filesystem.NewRealFileSystem(), zerolog.Nop())

	_, err := engine.Copy(config.Entry{Name: "Gone", Source: filepath.Join(dir, "missing"), Mode: config.ModeMirror}, root, false)
	g.Expect(err).Should(MatchError(backup.ErrSourceNotFound))

	_, statErr := os.Stat(root)
	g.Expect(os.IsNotExist(statErr)).To(BeTrue())
}

func TestEngine_ExcludePatterns(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	engine, srcFS, dstFS := newMockEngine()
	now := time.Now()
	srcFS.AddFile("/src/keep.txt", []byte("k"), now)
	srcFS.AddFile("/src/scratch.TMP", []byte("t"), now)
	srcFS.AddFile("/src/cache/blob", []byte("c"), now)
	srcFS.AddFile("/src/sub/more.tmp", []byte("m"), now)

	var skipped []string

	engine.SetSkipFunc(func(_ config.Entry, rel, _ string) {
		skipped = append(skipped, rel)
	})

	_, err := engine.Copy(config.Entry{
		Name:    "Docs",
		Source:  "/src",
		Mode:    config.ModeMirror,
		Exclude: []string{"**/*.tmp", "cache"},
	}, "/dst", false)
	g.Expect(err).ShouldNot(HaveOccurred())

	g.Expect(skipped).To(ConsistOf("cache", "scratch.TMP", "sub/more.tmp"))
	g.Expect(dstFS.Exists("/dst/Docs/src/keep.txt")).To(BeTrue())
	g.Expect(dstFS.Exists("/dst/Docs/src/cache")).To(BeFalse())
	g.Expect(dstFS.Exists("/dst/Docs/src/scratch.TMP")).To(BeFalse())
	g.Expect(dstFS.Exists("/dst/Docs/src/sub/more.tmp")).To(BeFalse())
}

func TestEngine_InvalidExcludePattern(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	engine, srcFS, _ := newMockEngine()
	srcFS.AddFile("/src/a.txt", []byte("a"), time.Now())

	_, err := engine.Copy(config.Entry{Name: "Docs", Source: "/src", Mode: config.ModeCopy, Exclude: []string{"[unclosed"}}, "/dst", false)
	g.Expect(err).Should(MatchError(backup.ErrInvalidPattern))
}

func TestEngine_InvalidExcludePatternFailsBeforeWriting(t *testing.T) {
	t.Parallel()

	for _, dryRun := range []bool{true, false} {
		t.Run(fmt.Sprintf("dryRun=%v", dryRun), func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			engine, srcFS, dstFS := newMockEngine()
			srcFS.AddFile("/src/a.txt", []byte("a"), time.Now())

			entry := config.Entry{Name: "Docs", Source: "/src", Mode: config.ModeMirror, Exclude: []string{"[abc"}}

			_, err := engine.Copy(entry, "/dst", dryRun)
			g.Expect(err).Should(MatchError(backup.ErrInvalidPattern))
			g.Expect(dstFS.Exists("/dst/Docs")).To(BeFalse())
			g.Expect(dstFS.Mutations()).To(BeEmpty())
		})
	}
}

func TestStrategyFor(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(backup.StrategyFor(config.ModeMirror)).To(Equal(backup.Mirror))
	g.Expect(backup.StrategyFor(config.ModeCopy)).To(Equal(backup.Merge))
	g.Expect(backup.StrategyFor("bogus")).To(Equal(backup.Mirror))
	g.Expect(backup.Merge.Name()).To(Equal("copy"))
}

// listTree returns every path below root, slash separated and sorted.
func listTree(t *testing.T, root string) []string {
	t.Helper()

	var paths []string

	err := filepath.Walk(root, func(p string, _ os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if p != root {
			rel, _ := filepath.Rel(root, p)
			paths = append(paths, filepath.ToSlash(rel))
		}

		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}

	return paths
}
