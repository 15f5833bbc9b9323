// Package persistence provides the durable record store for package data.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/trackd/backend/internal/domain/tracking"
	"go.uber.org/zap"
)

// Ensure FileStore implements the repository contract
var _ tracking.PackageRepository = (*FileStore)(nil)

// FileStore holds the full package record set as a single pretty-printed JSON
// document on disk. Writes replace the document atomically (temp file +
// rename) so a crash mid-write never leaves a truncated document behind.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates a FileStore backed by the document at path
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{
		path:   path,
		logger: logger,
	}
}

// LoadAll returns every stored package in store order. An absent document is
// an empty store, not an error. A read or parse failure returns the empty set
// together with the error so the caller can log the degraded path.
func (s *FileStore) LoadAll(ctx context.Context) ([]tracking.Package, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []tracking.Package{}, nil
		}
		return []tracking.Package{}, fmt.Errorf("reading record store: %w", err)
	}

	var packages []tracking.Package
	if err := json.Unmarshal(data, &packages); err != nil {
		return []tracking.Package{}, fmt.Errorf("parsing record store: %w", err)
	}
	if packages == nil {
		packages = []tracking.Package{}
	}
	return packages, nil
}

// SaveAll overwrites the entire document with the given record set
func (s *FileStore) SaveAll(ctx context.Context, packages []tracking.Package) error {
	if packages == nil {
		packages = []tracking.Package{}
	}
	data, err := json.MarshalIndent(packages, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing record store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating record store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".packages-*.json")
	if err != nil {
		return fmt.Errorf("creating record store temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing record store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing record store temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing record store: %w", err)
	}
	return nil
}

// Seed writes the given records when the backing document does not exist yet.
// An existing document, even an empty one, is left untouched.
func (s *FileStore) Seed(ctx context.Context, packages []tracking.Package) error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking record store: %w", err)
	}

	s.logger.Info("seeding record store", zap.String("path", s.path), zap.Int("records", len(packages)))
	return s.SaveAll(ctx, packages)
}
