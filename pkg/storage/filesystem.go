package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage keeps uploaded originals on disk, one directory per owning record.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("storage base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Save copies r to <base>/<owner>/<filename> and returns the stored path relative to base.
func (s *LocalStorage) Save(owner, filename string, r io.Reader) (string, error) {
	owner = sanitize(owner)
	filename = sanitize(filename)
	if owner == "" || filename == "" {
		return "", fmt.Errorf("owner and filename are required")
	}

	rel := filepath.Join(owner, filename)
	dir := filepath.Join(s.baseDir, owner)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("prepare storage directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write stored file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close stored file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.baseDir, rel)); err != nil {
		return "", fmt.Errorf("finalise stored file: %w", err)
	}
	return rel, nil
}

// Open returns a read-only handle for a path previously returned by Save.
func (s *LocalStorage) Open(rel string) (*os.File, error) {
	f, err := os.Open(s.resolve(rel))
	if err != nil {
		return nil, fmt.Errorf("open stored file: %w", err)
	}
	return f, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(rel string) error {
	if err := os.Remove(s.resolve(rel)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete stored file: %w", err)
	}
	return nil
}

func (s *LocalStorage) resolve(rel string) string {
	return filepath.Join(s.baseDir, filepath.Clean("/"+rel))
}

// sanitize keeps a single path element, dropping separators and parent references.
func sanitize(name string) string {
	name = filepath.Base(strings.TrimSpace(strings.ReplaceAll(name, "\\", "/")))
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	return name
}
