// Package storage provides image store implementations for package photos.
package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	trackingapp "github.com/trackd/backend/internal/application/tracking"
)

// Ensure LocalImageStore implements ImageStore
var _ trackingapp.ImageStore = (*LocalImageStore)(nil)

// LocalImageStore writes uploaded images to a directory on the local disk.
// Stored paths are relative URLs under publicPrefix so the HTTP layer can
// serve them as static files.
type LocalImageStore struct {
	uploadDir    string
	publicPrefix string
	logger       *zap.Logger
	now          func() time.Time
}

// NewLocalImageStore creates a local-disk image store rooted at uploadDir.
func NewLocalImageStore(uploadDir, publicPrefix string, logger *zap.Logger) *LocalImageStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalImageStore{
		uploadDir:    uploadDir,
		publicPrefix: strings.Trim(publicPrefix, "/"),
		logger:       logger,
		now:          time.Now,
	}
}

// Save writes data under the upload directory and returns the public path
// to store on the package record.
func (s *LocalImageStore) Save(ctx context.Context, data []byte, originalName string) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	name := fmt.Sprintf("%d-%s", s.now().UnixMilli(), sanitizeFilename(originalName))
	dest := filepath.Join(s.uploadDir, name)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("write image %s: %w", name, err)
	}

	s.logger.Debug("Image stored",
		zap.String("file", name),
		zap.Int("bytes", len(data)))
	return path.Join(s.publicPrefix, name), nil
}

// Delete removes a previously stored image. Unmanaged paths are ignored.
func (s *LocalImageStore) Delete(ctx context.Context, storedPath string) error {
	if !s.Managed(storedPath) {
		return nil
	}
	name := strings.TrimPrefix(strings.TrimPrefix(storedPath, s.publicPrefix), "/")
	// Uploaded names never contain separators; refuse anything that does.
	if name == "" || strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("refusing to delete %q: not an uploaded image", storedPath)
	}
	if err := os.Remove(filepath.Join(s.uploadDir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete image %s: %w", name, err)
	}
	return nil
}

// Managed reports whether storedPath points into this store.
func (s *LocalImageStore) Managed(storedPath string) bool {
	return strings.HasPrefix(storedPath, s.publicPrefix+"/")
}

// sanitizeFilename strips path components and characters that are unsafe
// in a URL segment, keeping the extension intact.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		out = "upload"
	}
	return out
}
