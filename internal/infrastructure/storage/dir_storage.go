package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var _ ObjectStorage = (*DirStorage)(nil)

// DirStorage stores objects as files below a root directory. Keys map to
// relative paths.
type DirStorage struct {
	root string
}

// NewDirStorage creates the root directory if needed.
func NewDirStorage(root string) (*DirStorage, error) {
	if root == "" {
		return nil, errors.New("storage directory is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &DirStorage{root: abs}, nil
}

func (d *DirStorage) path(key string) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}
	p := filepath.Join(d.root, filepath.FromSlash(key))
	if p != d.root && !strings.HasPrefix(p, d.root+string(filepath.Separator)) {
		return "", fmt.Errorf("storage key %q escapes the storage directory", key)
	}
	return p, nil
}

// Upload writes data to the file for key. The content type is ignored.
func (d *DirStorage) Upload(_ context.Context, key string, data []byte, _ string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

// ObjectExists reports whether the file for key exists.
func (d *DirStorage) ObjectExists(_ context.Context, key string) (bool, error) {
	p, err := d.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// DeleteObject removes the file for key. Missing files are not an error.
func (d *DirStorage) DeleteObject(_ context.Context, key string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Location returns the absolute file path for key.
func (d *DirStorage) Location(_ context.Context, key string) (string, error) {
	return d.path(key)
}
