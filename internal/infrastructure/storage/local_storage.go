package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	catalogapp "github.com/storefront/backend/internal/application/catalog"
)

// Ensure LocalImageStorage implements ImageStorage
var _ catalogapp.ImageStorage = (*LocalImageStorage)(nil)

// LocalImageStorage stores product images on the local filesystem.
// Suitable for development and single-instance deployments
type LocalImageStorage struct {
	dir       string
	publicURL string
}

// NewLocalImageStorage creates the storage directory if needed and
// returns a LocalImageStorage rooted at it
func NewLocalImageStorage(dir, publicURL string) (*LocalImageStorage, error) {
	if dir == "" {
		return nil, errors.New("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalImageStorage{
		dir:       dir,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

// Dir returns the root directory images are written to
func (s *LocalImageStorage) Dir() string {
	return s.dir
}

// Put writes an image under the given key and returns its public URL
func (s *LocalImageStorage) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create storage subdirectory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, body); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return s.publicURL + "/" + key, nil
}

// Delete removes an image file. Deleting a missing key is not an error
func (s *LocalImageStorage) Delete(ctx context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists checks whether an image file is present
func (s *LocalImageStorage) Exists(ctx context.Context, key string) (bool, error) {
	path, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// resolve maps a key to a filesystem path, rejecting traversal outside
// the storage root
func (s *LocalImageStorage) resolve(key string) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}

	path := filepath.Join(s.dir, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", errors.New("invalid storage key")
	}
	return path, nil
}
