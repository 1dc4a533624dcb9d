package filesystem

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/kr/fs"
	"github.com/pkg/sftp"
)

// walkScanner implements FileScanner over a kr/fs walker. Local trees are
// walked with fs.Walk and remote ones with the SFTP client's walker, which
// is the same type backed by the remote filesystem.
type walkScanner struct {
	root    string
	start   func(root string) (*fs.Walker, string)
	rel     func(root, target string) (string, error)
	files   []FileInfo
	index   int
	err     error
	scanned bool
}

// newRealFileScanner creates a scanner for a local directory. The walker
// does not follow symlinks, so a symlinked root is resolved first.
func newRealFileScanner(root string) *walkScanner {
	return &walkScanner{
		root: root,
		start: func(root string) (*fs.Walker, string) {
			if resolved, err := filepath.EvalSymlinks(root); err == nil {
				root = resolved
			}

			return fs.Walk(root), root
		},
		rel: func(root, target string) (string, error) {
			rel, err := filepath.Rel(root, target)
			if err != nil {
				return "", fmt.Errorf("failed to get relative path for %s: %w", target, err)
			}

			return filepath.ToSlash(rel), nil
		},
		files: make([]FileInfo, 0),
		index: -1,
	}
}

// newSFTPScanner creates a scanner for a directory on an SFTP server.
func newSFTPScanner(client *sftp.Client, root string) *walkScanner {
	return &walkScanner{
		root: path.Clean(root),
		start: func(root string) (*fs.Walker, string) {
			return client.Walk(root), root
		},
		rel:   relativePath,
		files: make([]FileInfo, 0),
		index: -1,
	}
}

// Err returns any error that occurred during scanning.
func (s *walkScanner) Err() error {
	return s.err
}

// Next advances to the next file and returns its info.
func (s *walkScanner) Next() (FileInfo, bool) {
	// Scan on first call
	if !s.scanned {
		s.scan()
		s.scanned = true
	}

	if s.err != nil {
		return FileInfo{}, false
	}

	s.index++
	if s.index >= len(s.files) {
		return FileInfo{}, false
	}

	return s.files[s.index], true
}

// scan walks the tree and collects every entry below the root in lexical order.
func (s *walkScanner) scan() {
	walker, root := s.start(s.root)

	for walker.Step() {
		if err := walker.Err(); err != nil { //nolint:noinlineerr // Inline error check is idiomatic for walker error handling
			s.err = fmt.Errorf("error scanning directory %s: %w", s.root, err)
			return
		}

		relPath, err := s.rel(root, walker.Path())
		if err != nil {
			s.err = err
			return
		}

		if relPath == "." {
			continue
		}

		stat := walker.Stat()
		s.files = append(s.files, FileInfo{
			RelativePath: relPath,
			Size:         stat.Size(),
			ModTime:      stat.ModTime(),
			Mode:         stat.Mode(),
			IsDir:        stat.IsDir(),
		})
	}
}

// relativePath computes the slash separated path from root to target on a
// remote server, where paths always use forward slashes.
func relativePath(root, target string) (string, error) {
	root = path.Clean(root)
	target = path.Clean(target)

	if target == root {
		return ".", nil
	}

	if root == "." {
		return target, nil
	}

	prefix := root
	if prefix != "/" {
		prefix += "/"
	}

	if !strings.HasPrefix(target, prefix) {
		return "", fmt.Errorf("target %s is not under root %s", target, root) //nolint:err113 // Path validation error with actual paths
	}

	return strings.TrimPrefix(target, prefix), nil
}
