package filesystem

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockFileSystem is an in-memory filesystem implementation for testing.
// Paths are slash separated, as on an SFTP server.
type MockFileSystem struct {
	mu        sync.RWMutex
	files     map[string]*mockFile
	mutations []string
}

// mockFile represents a file in the mock filesystem.
type mockFile struct {
	data    []byte
	modTime time.Time
	isDir   bool
	perm    os.FileMode
}

// mockFileInfo implements os.FileInfo for mock files.
type mockFileInfo struct {
	name    string
	size    int64
	modTime time.Time
	isDir   bool
	perm    os.FileMode
}

func (fi *mockFileInfo) Name() string       { return fi.name }
func (fi *mockFileInfo) Size() int64        { return fi.size }
func (fi *mockFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *mockFileInfo) IsDir() bool        { return fi.isDir }
func (fi *mockFileInfo) Sys() interface{}   { return nil }

func (fi *mockFileInfo) Mode() os.FileMode {
	if fi.isDir {
		return fi.perm | os.ModeDir
	}

	return fi.perm
}

// mockFileHandle implements the File interface for reading/writing.
type mockFileHandle struct {
	fs     *MockFileSystem
	path   string
	reader *bytes.Reader
	writer *bytes.Buffer
	closed bool
}

func (f *mockFileHandle) Read(p []byte) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	if f.reader == nil {
		return 0, io.EOF
	}
	return f.reader.Read(p)
}

func (f *mockFileHandle) Write(p []byte) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	if f.writer == nil {
		return 0, fmt.Errorf("write %s: file opened read-only", f.path)
	}
	return f.writer.Write(p)
}

func (f *mockFileHandle) Close() error {
	if f.closed {
		return os.ErrClosed
	}
	f.closed = true

	if f.writer != nil {
		f.fs.mu.Lock()
		defer f.fs.mu.Unlock()

		if file, exists := f.fs.files[f.path]; exists {
			file.data = f.writer.Bytes()
		}
	}

	return nil
}

func (f *mockFileHandle) Stat() (os.FileInfo, error) {
	if f.closed {
		return nil, os.ErrClosed
	}

	return f.fs.Stat(f.path)
}

// NewMockFileSystem creates a new in-memory filesystem.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		files: make(map[string]*mockFile),
	}
}

// Chmod changes the permission bits of a path.
func (fs *MockFileSystem) Chmod(name string, mode os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	file, exists := fs.files[clean(name)]
	if !exists {
		return &os.PathError{Op: "chmod", Path: name, Err: os.ErrNotExist}
	}

	file.perm = mode.Perm()
	fs.record("chmod", name)

	return nil
}

// Chtimes changes the access and modification times of a file.
func (fs *MockFileSystem) Chtimes(name string, _, mtime time.Time) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	file, exists := fs.files[clean(name)]
	if !exists {
		return &os.PathError{Op: "chtimes", Path: name, Err: os.ErrNotExist}
	}

	file.modTime = mtime
	fs.record("chtimes", name)

	return nil
}

// Create creates or truncates a file for writing. The parent must exist.
func (fs *MockFileSystem) Create(name string) (File, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	name = clean(name)

	parent, exists := fs.files[path.Dir(name)]
	if path.Dir(name) != "/" && path.Dir(name) != "." && (!exists || !parent.isDir) {
		return nil, &os.PathError{Op: "create", Path: name, Err: os.ErrNotExist}
	}

	fs.files[name] = &mockFile{
		data:    []byte{},
		modTime: time.Now(),
		perm:    0o644, //nolint:mnd // Default file permissions
	}
	fs.record("create", name)

	return &mockFileHandle{
		fs:     fs,
		path:   name,
		writer: &bytes.Buffer{},
	}, nil
}

// Join joins path elements with forward slashes.
func (fs *MockFileSystem) Join(elem ...string) string {
	return path.Join(elem...)
}

// MkdirAll creates a directory and all necessary parents.
func (fs *MockFileSystem) MkdirAll(name string, perm os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.mkdirAllLocked(clean(name), perm)
}

// Open opens a file for reading.
func (fs *MockFileSystem) Open(name string) (File, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	file, exists := fs.files[clean(name)]
	if !exists {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}

	if file.isDir {
		return nil, fmt.Errorf("open %s: is a directory", name) //nolint:err113 // Mirrors the os error text
	}

	return &mockFileHandle{
		fs:     fs,
		path:   clean(name),
		reader: bytes.NewReader(file.data),
	}, nil
}

// Remove removes a file or empty directory.
func (fs *MockFileSystem) Remove(name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	name = clean(name)

	file, exists := fs.files[name]
	if !exists {
		return &os.PathError{Op: "remove", Path: name, Err: os.ErrNotExist}
	}

	if file.isDir {
		for p := range fs.files {
			if strings.HasPrefix(p, name+"/") {
				return fmt.Errorf("remove %s: directory not empty", name) //nolint:err113 // Mirrors the os error text
			}
		}
	}

	delete(fs.files, name)
	fs.record("remove", name)

	return nil
}

// RemoveAll removes a path and everything below it. Missing paths are not an error.
func (fs *MockFileSystem) RemoveAll(name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	name = clean(name)

	for p := range fs.files {
		if p == name || strings.HasPrefix(p, name+"/") {
			delete(fs.files, p)
		}
	}

	fs.record("removeall", name)

	return nil
}

// Scan returns an iterator over all entries below root, in lexical order.
func (fs *MockFileSystem) Scan(root string) FileScanner {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	root = clean(root)
	scanner := &mockFileScanner{index: -1}

	rootFile, exists := fs.files[root]
	if !exists || !rootFile.isDir {
		scanner.err = &os.PathError{Op: "scan", Path: root, Err: os.ErrNotExist}
		return scanner
	}

	for p, file := range fs.files {
		if !strings.HasPrefix(p, root+"/") {
			continue
		}

		info := FileInfo{
			RelativePath: strings.TrimPrefix(p, root+"/"),
			Size:         int64(len(file.data)),
			ModTime:      file.modTime,
			Mode:         file.perm,
			IsDir:        file.isDir,
		}
		if file.isDir {
			info.Mode |= os.ModeDir
		}

		scanner.files = append(scanner.files, info)
	}

	sort.Slice(scanner.files, func(i, j int) bool {
		return scanner.files[i].RelativePath < scanner.files[j].RelativePath
	})

	return scanner
}

// Stat returns file information.
func (fs *MockFileSystem) Stat(name string) (os.FileInfo, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	file, exists := fs.files[clean(name)]
	if !exists {
		return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
	}

	return &mockFileInfo{
		name:    path.Base(name),
		size:    int64(len(file.data)),
		modTime: file.modTime,
		isDir:   file.isDir,
		perm:    file.perm,
	}, nil
}

// Helper methods for testing. They seed state without recording mutations.

// AddDir adds a directory (and its parents) to the mock filesystem.
func (fs *MockFileSystem) AddDir(name string, modTime time.Time) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	name = clean(name)
	seen := len(fs.mutations)

	_ = fs.mkdirAllLocked(name, 0o755) //nolint:mnd // Default directory permissions
	if dir, ok := fs.files[name]; ok {
		dir.modTime = modTime
	}

	fs.mutations = fs.mutations[:seen]
}

// AddFile adds a file to the mock filesystem with the given content and modtime.
func (fs *MockFileSystem) AddFile(name string, content []byte, modTime time.Time) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	name = clean(name)
	seen := len(fs.mutations)

	_ = fs.mkdirAllLocked(path.Dir(name), 0o755) //nolint:mnd // Default directory permissions
	fs.mutations = fs.mutations[:seen]

	fs.files[name] = &mockFile{
		data:    append([]byte(nil), content...),
		modTime: modTime,
		perm:    0o644, //nolint:mnd // Default file permissions
	}
}

// Exists checks if a path exists in the mock filesystem.
func (fs *MockFileSystem) Exists(name string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	_, exists := fs.files[clean(name)]

	return exists
}

// GetFile retrieves a file's content from the mock filesystem.
func (fs *MockFileSystem) GetFile(name string) ([]byte, time.Time, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	file, exists := fs.files[clean(name)]
	if !exists {
		return nil, time.Time{}, os.ErrNotExist
	}

	if file.isDir {
		return nil, time.Time{}, fmt.Errorf("%s is a directory", name) //nolint:err113 // Test helper
	}

	return append([]byte(nil), file.data...), file.modTime, nil
}

// ListFiles returns all paths in the mock filesystem, sorted.
func (fs *MockFileSystem) ListFiles() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	paths := make([]string, 0, len(fs.files))
	for p := range fs.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	return paths
}

// Mutations returns every mutating call made through the FileSystem
// interface, as "op path" strings, in call order.
func (fs *MockFileSystem) Mutations() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return append([]string(nil), fs.mutations...)
}

// mkdirAllLocked is the internal implementation that assumes the lock is held.
func (fs *MockFileSystem) mkdirAllLocked(name string, perm os.FileMode) error {
	if name == "." || name == "/" {
		return nil
	}

	if err := fs.mkdirAllLocked(path.Dir(name), perm); err != nil {
		return err
	}

	if existing, exists := fs.files[name]; exists {
		if !existing.isDir {
			return fmt.Errorf("mkdir %s: not a directory", name) //nolint:err113 // Mirrors the os error text
		}

		return nil
	}

	fs.files[name] = &mockFile{
		modTime: time.Now(),
		isDir:   true,
		perm:    perm.Perm(),
	}
	fs.record("mkdir", name)

	return nil
}

// record appends to the mutation journal; the lock must be held.
func (fs *MockFileSystem) record(op, name string) {
	fs.mutations = append(fs.mutations, op+" "+name)
}

func clean(name string) string {
	return path.Clean(name)
}

// mockFileScanner iterates a precomputed listing.
type mockFileScanner struct {
	files []FileInfo
	index int
	err   error
}

func (s *mockFileScanner) Err() error {
	return s.err
}

func (s *mockFileScanner) Next() (FileInfo, bool) {
	if s.err != nil {
		return FileInfo{}, false
	}

	s.index++
	if s.index >= len(s.files) {
		return FileInfo{}, false
	}

	return s.files[s.index], true
}
