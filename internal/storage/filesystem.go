package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fleveque/icon-service/internal/icon"
)

// ErrFileNotFound is returned by FileSystem.Read for an icon that was never saved.
var ErrFileNotFound = errors.New("icon file not found")

// hostReplacer keeps a host usable as a single directory name ("127.0.0.1:8080" → "127.0.0.1_8080").
var hostReplacer = strings.NewReplacer(":", "_", "/", "_", `\`, "_", "..", "_")

// FileSystem stores saved icon files on disk at {baseDir}/{host}/{W}x{H}.{ext}.
// Saving the same host and size again overwrites the file.
type FileSystem struct {
	baseDir string
}

// NewFileSystem creates a new FileSystem storage, ensuring the base directory exists.
func NewFileSystem(baseDir string) (*FileSystem, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating icon directory: %w", err)
	}
	return &FileSystem{baseDir: baseDir}, nil
}

// HostDir returns the directory holding a host's icons.
func (fs *FileSystem) HostDir(host string) string {
	return filepath.Join(fs.baseDir, hostReplacer.Replace(strings.ToLower(host)))
}

// IconPath returns the path of a host's icon of the given size and extension.
func (fs *FileSystem) IconPath(host string, size icon.Dimensions, ext string) string {
	return filepath.Join(fs.HostDir(host), size.String()+"."+ext)
}

// Read returns the bytes of a saved icon.
func (fs *FileSystem) Read(host string, size icon.Dimensions, ext string) ([]byte, error) {
	data, err := os.ReadFile(fs.IconPath(host, size, ext))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s/%s.%s", ErrFileNotFound, host, size, ext)
		}
		return nil, fmt.Errorf("reading icon file: %w", err)
	}
	return data, nil
}

// Write saves an icon, creating the host directory if needed, and returns its path.
func (fs *FileSystem) Write(host string, size icon.Dimensions, ext string, data []byte) (string, error) {
	if err := os.MkdirAll(fs.HostDir(host), 0755); err != nil {
		return "", fmt.Errorf("creating host directory: %w", err)
	}

	path := fs.IconPath(host, size, ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing icon file: %w", err)
	}
	return path, nil
}

// Exists checks if an icon file exists on disk.
func (fs *FileSystem) Exists(host string, size icon.Dimensions, ext string) bool {
	_, err := os.Stat(fs.IconPath(host, size, ext))
	return err == nil
}

// List returns the file names saved for host, sorted. A host with nothing saved has none.
func (fs *FileSystem) List(host string) ([]string, error) {
	entries, err := os.ReadDir(fs.HostDir(host))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing icons for %s: %w", host, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// DeleteHost removes all saved icons for a host.
func (fs *FileSystem) DeleteHost(host string) error {
	return os.RemoveAll(fs.HostDir(host))
}
