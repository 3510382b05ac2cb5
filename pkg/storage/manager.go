package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

const (
	// maxPathLength bounds the full destination path in bytes
	maxPathLength = 255
	// suffixReserve leaves room for a " (nnn)" collision suffix
	suffixReserve = 6
	fallbackName  = "image"
)

// Manager creates collision-free destination files under a base directory
type Manager struct {
	baseDir string
	mu      sync.Mutex
}

// NewManager creates a new storage manager
func NewManager(baseDir string) (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{baseDir: baseDir}, nil
}

// BaseDir returns the output directory path
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// Folder resolves folder against the base directory. Empty means the base
// directory itself, relative paths must stay inside it and absolute paths
// are used as given.
func (m *Manager) Folder(folder string) (string, error) {
	switch {
	case folder == "":
		return m.baseDir, nil
	case filepath.IsAbs(folder):
		return folder, nil
	case !filepath.IsLocal(folder):
		return "", fmt.Errorf("folder %q is outside %s", folder, m.baseDir)
	}
	return filepath.Join(m.baseDir, folder), nil
}

// CreateValidFile reserves an empty file for filename.ext inside folder,
// resolved by Folder. Invalid characters are replaced, overlong names are
// truncated and an existing file gets a " (n)" suffix before the extension.
func (m *Manager) CreateValidFile(folder, filename, ext string) (string, error) {
	folder, err := m.Folder(folder)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	ext = SanitizeFilename(strings.TrimPrefix(ext, "."))
	if ext != "" {
		ext = "." + ext
	}
	name := SanitizeFilename(filename)
	if name == "" {
		name = fallbackName
	}
	budget := maxPathLength - len(folder) - 1 - len(ext) - suffixReserve
	name = truncateBytes(name, budget)

	m.mu.Lock()
	defer m.mu.Unlock()

	for n := 0; ; n++ {
		candidate := name
		if n > 0 {
			candidate = fmt.Sprintf("%s (%d)", name, n)
		}
		path := filepath.Join(folder, candidate+ext)

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			return path, f.Close()
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("failed to create file: %w", err)
		}
	}
}

// Write replaces the contents of path with r through a temp file and an
// atomic rename. It refuses to replace a directory.
func (m *Manager) Write(path string, r io.Reader) (int64, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return 0, fmt.Errorf("destination %s is a directory", path)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return n, fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return n, fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return n, fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return n, nil
}

// Remove deletes path, ignoring a file that is already gone
func (m *Manager) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// MoveToSubfolder moves path into subfolder next to it and returns the new path
func (m *Manager) MoveToSubfolder(path, subfolder string) (string, error) {
	dir := filepath.Join(filepath.Dir(path), subfolder)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create subfolder: %w", err)
	}

	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	m.mu.Lock()
	defer m.mu.Unlock()

	for n := 0; ; n++ {
		candidate := name
		if n > 0 {
			candidate = fmt.Sprintf("%s (%d)", name, n)
		}
		target := filepath.Join(dir, candidate+ext)
		if _, err := os.Lstat(target); err == nil {
			continue
		}
		if err := os.Rename(path, target); err != nil {
			return "", fmt.Errorf("failed to move file: %w", err)
		}
		return target, nil
	}
}

// SanitizeFilename replaces characters that are invalid on common
// filesystems and trims trailing dots and spaces
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case strings.ContainsRune(`<>:"/\|?*`, r), unicode.IsControl(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimRight(b.String(), ". ")
}

func truncateBytes(s string, limit int) string {
	if limit < 1 {
		limit = 1
	}
	if len(s) <= limit {
		return s
	}
	s = s[:limit]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
