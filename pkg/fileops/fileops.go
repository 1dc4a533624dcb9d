// Package fileops provides metadata-preserving copy primitives for files and
// directory trees, over the filesystem abstraction.
package fileops

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/joe/fileknight/pkg/filesystem"
)

// Exported constants.
const (
	// BufferSize is the size of the buffer used for file copy operations (64KB)
	BufferSize = 64 * 1024
	// DefaultDirPermissions is the default permission mode for created directories
	DefaultDirPermissions = 0o750
)

// Skip reasons reported through SkipCallback.
const (
	SkipExcluded    = "excluded"
	SkipLinkCycle   = "symlink cycle"
	SkipSpecialFile = "not a regular file"
)

// Exported variables.
var (
	ErrNotDirectory = errors.New("not a directory")
)

// CopyStats contains information about a single file copy
type CopyStats struct {
	BytesCopied int64
}

// TreeStats summarises a tree copy or merge
type TreeStats struct {
	Files       int
	Directories int
	BytesCopied int64
	Skipped     int
}

// Filter decides which paths below a tree root take part in a copy.
// Paths are relative to the root and slash separated.
type Filter interface {
	ShouldInclude(relativePath string) bool
}

// SkipCallback is called for every entry left out of a tree copy.
type SkipCallback func(relativePath string, reason string)

// TreeOptions tunes CopyTree and MergeTree. The zero value copies everything.
type TreeOptions struct {
	Filter Filter
	OnSkip SkipCallback
}

// FileOps performs copies from a source filesystem to a destination filesystem.
type FileOps struct {
	SourceFS filesystem.FileSystem
	DestFS   filesystem.FileSystem
}

// NewFileOps creates a FileOps copying from sourceFS to destFS.
func NewFileOps(sourceFS, destFS filesystem.FileSystem) *FileOps {
	return &FileOps{
		SourceFS: sourceFS,
		DestFS:   destFS,
	}
}

// NewRealFileOps creates a FileOps that copies between local paths.
func NewRealFileOps() *FileOps {
	local := filesystem.NewRealFileSystem()
	return NewFileOps(local, local)
}

// CopyFile copies src over dst, preserving permission bits and modification
// time. The destination's parent directory is created when missing. A
// partially written destination is removed on failure.
func (fo *FileOps) CopyFile(src, dst string) (*CopyStats, error) {
	stats := &CopyStats{}

	sourceFile, err := fo.SourceFS.Open(src)
	if err != nil {
		return stats, fmt.Errorf("failed to open source file %s: %w", src, err)
	}

	defer func() {
		_ = sourceFile.Close()
	}()

	sourceInfo, err := sourceFile.Stat()
	if err != nil {
		return stats, fmt.Errorf("failed to stat source file %s: %w", src, err)
	}

	dstDir := parentDir(fo.DestFS, dst)

	err = fo.DestFS.MkdirAll(dstDir, DefaultDirPermissions)
	if err != nil {
		return stats, fmt.Errorf("failed to create destination directory %s: %w", dstDir, err)
	}

	destFile, err := fo.DestFS.Create(dst)
	if err != nil {
		return stats, fmt.Errorf("failed to create destination file %s: %w", dst, err)
	}

	copyCompleted := false

	defer func() {
		if !copyCompleted {
			_ = destFile.Close()
			_ = fo.DestFS.Remove(dst)
		}
	}()

	written, err := io.CopyBuffer(writerOnly{destFile}, readerOnly{sourceFile}, make([]byte, BufferSize))
	stats.BytesCopied = written

	if err != nil {
		return stats, fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}

	// Close before touching metadata; network filesystems reset times on close
	err = destFile.Close()
	if err != nil {
		return stats, fmt.Errorf("failed to close destination file %s: %w", dst, err)
	}

	copyCompleted = true

	return stats, fo.copyMetadata(dst, sourceInfo)
}

// CopyTree copies the directory src to dst, which should not exist yet.
// Directory permissions and times are applied once their contents are in
// place, so read-only source directories copy cleanly.
func (fo *FileOps) CopyTree(src, dst string, opts TreeOptions) (*TreeStats, error) {
	return fo.walkTree(src, dst, opts, true)
}

// MergeTree overlays the directory src onto dst. Missing directories are
// created, files present in src are overwritten, and anything that exists
// only in dst is left untouched.
func (fo *FileOps) MergeTree(src, dst string, opts TreeOptions) (*TreeStats, error) {
	return fo.walkTree(src, dst, opts, false)
}

// pendingDir remembers a created directory whose metadata is applied last.
type pendingDir struct {
	path string
	info os.FileInfo
}

// treeCopy is the state of one CopyTree or MergeTree call. Symlinked
// directories are followed; active holds the real paths of every directory
// being copied so a link back into one of them is reported instead of
// recursed into.
type treeCopy struct {
	fo           *FileOps
	opts         TreeOptions
	stats        *TreeStats
	preserveDirs bool
	pending      []pendingDir
	active       []string
}

func (fo *FileOps) walkTree(src, dst string, opts TreeOptions, preserveDirs bool) (*TreeStats, error) {
	stats := &TreeStats{}

	rootInfo, err := fo.SourceFS.Stat(src)
	if err != nil {
		return stats, fmt.Errorf("failed to stat source directory %s: %w", src, err)
	}

	if !rootInfo.IsDir() {
		return stats, fmt.Errorf("%s: %w", src, ErrNotDirectory)
	}

	err = fo.DestFS.MkdirAll(dst, DefaultDirPermissions)
	if err != nil {
		return stats, fmt.Errorf("failed to create destination directory %s: %w", dst, err)
	}

	tc := &treeCopy{
		fo:           fo,
		opts:         opts,
		stats:        stats,
		preserveDirs: preserveDirs,
		pending:      []pendingDir{{path: dst, info: rootInfo}},
		active:       []string{fo.realPath(src)},
	}

	err = tc.copyDir(src, dst, "")
	if err != nil {
		return stats, err
	}

	if !preserveDirs {
		return stats, nil
	}

	// Deepest first, so setting a parent's time is not undone by its children
	for i := len(tc.pending) - 1; i >= 0; i-- {
		if err := fo.copyMetadata(tc.pending[i].path, tc.pending[i].info); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// copyDir copies the contents of src into dst. prefix is the position of
// src inside the tree being copied and is prepended to every path handed
// to the filter and the skip callback.
//
//nolint:cyclop // One pass over the directory handles every entry kind
func (tc *treeCopy) copyDir(src, dst, prefix string) error {
	fo := tc.fo
	skipped := newPrefixSet()
	scanner := fo.SourceFS.Scan(src)

	for {
		entry, ok := scanner.Next()
		if !ok {
			break
		}

		rel := entry.RelativePath

		if skipped.covers(rel) {
			continue
		}

		treeRel := path.Join(prefix, rel)

		if tc.opts.Filter != nil && !tc.opts.Filter.ShouldInclude(treeRel) {
			if entry.IsDir {
				skipped.add(rel)
			}

			tc.skip(treeRel, SkipExcluded)

			continue
		}

		srcPath := fo.SourceFS.Join(src, rel)
		dstPath := fo.DestFS.Join(dst, rel)

		info, err := fo.resolveEntry(srcPath, entry)
		if err != nil {
			return err
		}

		switch {
		case info.IsDir() && entry.IsSymlink():
			err = tc.followLink(srcPath, dstPath, treeRel, info)
		case info.IsDir():
			err = tc.addDir(dstPath, info)
		case info.Mode().IsRegular():
			err = tc.copyFile(srcPath, dstPath)
		default:
			tc.skip(treeRel, SkipSpecialFile)
		}

		if err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan %s: %w", src, err)
	}

	return nil
}

// followLink copies the directory a symlink points at as a plain directory,
// unless the target contains the link or another directory in progress.
func (tc *treeCopy) followLink(srcPath, dstPath, treeRel string, info os.FileInfo) error {
	target := tc.fo.realPath(srcPath)
	parent := tc.fo.realPath(parentDir(tc.fo.SourceFS, srcPath))

	if within(parent, target) {
		tc.skip(treeRel, SkipLinkCycle)
		return nil
	}

	for _, dir := range tc.active {
		if within(dir, target) {
			tc.skip(treeRel, SkipLinkCycle)
			return nil
		}
	}

	err := tc.addDir(dstPath, info)
	if err != nil {
		return err
	}

	depth := len(tc.active)
	tc.active = append(tc.active, parent, target)

	err = tc.copyDir(srcPath, dstPath, treeRel)
	tc.active = tc.active[:depth]

	return err
}

func (tc *treeCopy) addDir(dstPath string, info os.FileInfo) error {
	err := tc.fo.DestFS.MkdirAll(dstPath, DefaultDirPermissions)
	if err != nil {
		return fmt.Errorf("failed to create destination directory %s: %w", dstPath, err)
	}

	tc.stats.Directories++

	if tc.preserveDirs {
		tc.pending = append(tc.pending, pendingDir{path: dstPath, info: info})
	}

	return nil
}

func (tc *treeCopy) copyFile(srcPath, dstPath string) error {
	copyStats, err := tc.fo.CopyFile(srcPath, dstPath)
	if err != nil {
		return err
	}

	tc.stats.Files++
	tc.stats.BytesCopied += copyStats.BytesCopied

	return nil
}

func (tc *treeCopy) skip(rel, reason string) {
	tc.stats.Skipped++

	if tc.opts.OnSkip != nil {
		tc.opts.OnSkip(rel, reason)
	}
}

// copyMetadata applies the permission bits and modification time of info to dst.
func (fo *FileOps) copyMetadata(dst string, info os.FileInfo) error {
	err := fo.DestFS.Chmod(dst, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to preserve permissions for %s: %w", dst, err)
	}

	err = fo.DestFS.Chtimes(dst, info.ModTime(), info.ModTime())
	if err != nil {
		return fmt.Errorf("failed to preserve modification time for %s: %w", dst, err)
	}

	return nil
}

// resolveEntry returns the info to act on, following symlinks in the source.
func (fo *FileOps) resolveEntry(srcPath string, entry filesystem.FileInfo) (os.FileInfo, error) {
	info, err := fo.SourceFS.Stat(srcPath)
	if err != nil {
		if entry.IsSymlink() {
			return nil, fmt.Errorf("broken symlink %s: %w", srcPath, err)
		}

		return nil, fmt.Errorf("failed to stat %s: %w", srcPath, err)
	}

	return info, nil
}

// realPath resolves every symlink in p on the local filesystem. Other
// backends have no links to resolve.
func (fo *FileOps) realPath(p string) string {
	if _, ok := fo.SourceFS.(*filesystem.RealFileSystem); !ok {
		return path.Clean(p)
	}

	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		return filepath.Clean(p)
	}

	return resolved
}

// parentDir returns the directory holding p on fs.
func parentDir(fs filesystem.FileSystem, p string) string {
	if _, ok := fs.(*filesystem.RealFileSystem); ok {
		return filepath.Dir(p)
	}

	return path.Dir(p)
}

// readerOnly and writerOnly hide ReadFrom/WriteTo so CopyBuffer uses our buffer.
type readerOnly struct{ io.Reader }

type writerOnly struct{ io.Writer }
