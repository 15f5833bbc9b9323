package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLocalStore(t *testing.T) (*LocalImageStore, string) {
	t.Helper()
	dir := t.TempDir()
	store := NewLocalImageStore(dir, "uploads", zap.NewNop())
	store.now = func() time.Time { return time.UnixMilli(1714560000000) }
	return store, dir
}

func TestLocalSave(t *testing.T) {
	store, dir := newLocalStore(t)

	stored, err := store.Save(context.Background(), []byte("image-bytes"), "My Photo.png")

	require.NoError(t, err)
	assert.Equal(t, "uploads/1714560000000-My_Photo.png", stored)

	data, err := os.ReadFile(filepath.Join(dir, "1714560000000-My_Photo.png"))
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))
}

func TestLocalSaveCreatesUploadDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	store := NewLocalImageStore(dir, "uploads", zap.NewNop())

	_, err := store.Save(context.Background(), []byte("x"), "a.jpg")

	require.NoError(t, err)
}

func TestLocalSaveStripsPathComponents(t *testing.T) {
	store, dir := newLocalStore(t)

	stored, err := store.Save(context.Background(), []byte("x"), "../../etc/passwd")

	require.NoError(t, err)
	assert.Equal(t, "uploads/1714560000000-passwd", stored)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, strings.Contains(entries[0].Name(), ".."))
}

func TestLocalDelete(t *testing.T) {
	store, dir := newLocalStore(t)
	stored, err := store.Save(context.Background(), []byte("x"), "a.png")
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), stored))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalDeleteIgnoresUnmanagedPaths(t *testing.T) {
	store, _ := newLocalStore(t)

	assert.NoError(t, store.Delete(context.Background(), "https://example.com/photo.png"))
	assert.NoError(t, store.Delete(context.Background(), "assets/placeholder.svg"))
}

func TestLocalDeleteMissingFile(t *testing.T) {
	store, _ := newLocalStore(t)

	assert.NoError(t, store.Delete(context.Background(), "uploads/gone.png"))
}

func TestLocalDeleteRejectsTraversal(t *testing.T) {
	store, _ := newLocalStore(t)

	err := store.Delete(context.Background(), "uploads/../secret.txt")
	assert.Error(t, err)
}

func TestLocalManaged(t *testing.T) {
	store, _ := newLocalStore(t)

	assert.True(t, store.Managed("uploads/123-a.png"))
	assert.False(t, store.Managed("assets/placeholder.svg"))
	assert.False(t, store.Managed("https://example.com/a.png"))
	assert.False(t, store.Managed("uploadsx/a.png"))
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"photo.png":        "photo.png",
		"My Photo (1).jpg": "My_Photo__1_.jpg",
		"..":               "upload",
		"":                 "upload",
		"a/b/c.png":        "c.png",
		"über.png":         "_ber.png",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeFilename(in), "input %q", in)
	}
}
