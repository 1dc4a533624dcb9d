package filesystem

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/pkg/sftp"
)

// SFTPFileSystem implements FileSystem for SFTP connections.
// Backups run sequentially, so a single client is shared by all calls.
type SFTPFileSystem struct {
	client *sftp.Client
}

// NewSFTPFileSystem creates a new SFTP filesystem using an established connection.
func NewSFTPFileSystem(conn *SFTPConnection) *SFTPFileSystem {
	return NewSFTPFileSystemFromClient(conn.Client())
}

// NewSFTPFileSystemFromClient wraps an SFTP client whose lifetime the caller manages.
func NewSFTPFileSystemFromClient(client *sftp.Client) *SFTPFileSystem {
	return &SFTPFileSystem{client: client}
}

// Chmod changes the permission bits of a remote file.
func (fs *SFTPFileSystem) Chmod(name string, mode os.FileMode) error {
	err := fs.client.Chmod(name, mode)
	if err != nil {
		return fmt.Errorf("failed to change mode for remote file %s: %w", name, err)
	}

	return nil
}

// Chtimes changes the access and modification times of a remote file.
func (fs *SFTPFileSystem) Chtimes(name string, atime, mtime time.Time) error {
	err := fs.client.Chtimes(name, atime, mtime)
	if err != nil {
		return fmt.Errorf("failed to change times for remote file %s: %w", name, err)
	}

	return nil
}

// Create creates a remote file for writing, truncating existing content.
func (fs *SFTPFileSystem) Create(name string) (File, error) {
	file, err := fs.client.Create(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote file %s: %w", name, err)
	}

	return newSFTPFile(file, name), nil
}

// Join joins path elements with forward slashes.
func (fs *SFTPFileSystem) Join(elem ...string) string {
	return path.Join(elem...)
}

// MkdirAll creates a remote directory and all necessary parents.
func (fs *SFTPFileSystem) MkdirAll(name string, _ os.FileMode) error {
	// SFTP applies the server umask; modes are set afterwards with Chmod
	err := fs.client.MkdirAll(name)
	if err != nil {
		return fmt.Errorf("failed to create remote directory %s: %w", name, err)
	}

	return nil
}

// Open opens a remote file for reading.
func (fs *SFTPFileSystem) Open(name string) (File, error) {
	file, err := fs.client.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote file %s: %w", name, err)
	}

	return newSFTPFile(file, name), nil
}

// Remove removes a remote file or empty directory.
func (fs *SFTPFileSystem) Remove(name string) error {
	err := fs.client.Remove(name)
	if err != nil {
		return fmt.Errorf("failed to remove remote file %s: %w", name, err)
	}

	return nil
}

// RemoveAll removes a remote tree.
func (fs *SFTPFileSystem) RemoveAll(name string) error {
	err := fs.client.RemoveAll(name)
	if err != nil {
		return fmt.Errorf("failed to remove remote tree %s: %w", name, err)
	}

	return nil
}

// Scan returns an iterator over all entries in a remote directory tree.
func (fs *SFTPFileSystem) Scan(root string) FileScanner {
	return newSFTPScanner(fs.client, root)
}

// Stat returns file information for a remote file.
func (fs *SFTPFileSystem) Stat(name string) (os.FileInfo, error) {
	info, err := fs.client.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("failed to stat remote file %s: %w", name, err)
	}

	return info, nil
}
