package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// StoredFile is the result of persisting an upload or a generated document.
type StoredFile struct {
	Name string // original/display name
	Path string // on-disk location
	URL  string // public URL served under the upload prefix
	Size int64
}

// LocalStorage writes files below a base directory and exposes them under a
// public URL prefix.
type LocalStorage struct {
	baseDir      string
	publicPrefix string
}

func NewLocalStorage(baseDir, publicPrefix string) (*LocalStorage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", baseDir, err)
	}
	return &LocalStorage{baseDir: baseDir, publicPrefix: strings.TrimRight(publicPrefix, "/")}, nil
}

// BaseDir is the directory served as static files.
func (s *LocalStorage) BaseDir() string { return s.baseDir }

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Save copies r into a new uniquely-named file.
func (s *LocalStorage) Save(ctx context.Context, name string, r io.Reader) (StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return StoredFile{}, err
	}
	clean := unsafeChars.ReplaceAllString(filepath.Base(name), "_")
	if clean == "" || clean == "." {
		clean = "archivo"
	}
	diskName := uuid.NewString()[:8] + "-" + clean
	full := filepath.Join(s.baseDir, diskName)

	f, err := os.Create(full)
	if err != nil {
		return StoredFile{}, fmt.Errorf("storage: create %s: %w", diskName, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(full)
		return StoredFile{}, fmt.Errorf("storage: write %s: %w", diskName, err)
	}
	return StoredFile{Name: name, Path: full, URL: path.Join(s.publicPrefix, diskName), Size: n}, nil
}

// Remove deletes a stored file. A missing file is not an error.
func (s *LocalStorage) Remove(p string) error {
	if p == "" {
		return nil
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
