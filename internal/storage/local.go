// Package storage keeps uploaded photo files on the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// AllowedExtensions are the accepted photo formats, lower case without dot.
var AllowedExtensions = []string{"png", "jpg", "jpeg", "heic", "heif"}

var (
	// ErrUnsupportedType rejects uploads with an extension outside AllowedExtensions.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTooLarge rejects uploads above the configured limit.
	ErrTooLarge = errors.New("file too large")
	// ErrInvalidName rejects names that would escape the upload folder.
	ErrInvalidName = errors.New("invalid file name")
)

// LocalStore writes files under a single directory with generated names.
type LocalStore struct {
	root    string
	maxSize int64
}

// NewLocalStore creates root if needed. maxSize <= 0 disables the size check.
func NewLocalStore(root string, maxSize int64) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload folder: %w", err)
	}
	return &LocalStore{root: root, maxSize: maxSize}, nil
}

// Root returns the upload folder.
func (s *LocalStore) Root() string { return s.root }

// Allowed reports whether originalName carries an accepted extension.
func Allowed(originalName string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(originalName)), ".")
	for _, a := range AllowedExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

// Save copies r into a new file named after a fresh UUID plus the original
// extension and returns the stored name.
func (s *LocalStore) Save(originalName string, r io.Reader) (string, error) {
	if !Allowed(originalName) {
		return "", ErrUnsupportedType
	}
	name := uuid.NewString() + strings.ToLower(filepath.Ext(originalName))
	path := filepath.Join(s.root, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	n, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && s.maxSize > 0 && n > s.maxSize {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return name, nil
}

// Path resolves a stored name to its absolute location.
func (s *LocalStore) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	return filepath.Join(s.root, name), nil
}

// Open returns a reader for a stored file.
func (s *LocalStore) Open(name string) (io.ReadCloser, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete removes a stored file. A missing file is not an error.
func (s *LocalStore) Delete(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Ping reports whether the upload folder is still a reachable directory.
func (s *LocalStore) Ping(_ context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.root)
	}
	return nil
}
