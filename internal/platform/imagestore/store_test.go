package imagestore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Smallest valid PNG: signature plus IHDR header bytes are enough for sniffing.
var pngBytes = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, 0x89,
}

func newStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir(), "http://localhost:8080/")
	require.NoError(t, err)
	return s
}

func TestLocalStore_SaveAndDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	url, err := s.Save(ctx, FolderCovers, bytes.NewReader(pngBytes), 1024)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:8080/uploads/covers/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	p, err := s.localPath(url)
	require.NoError(t, err)
	_, err = os.Stat(p)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, url))
	_, err = os.Stat(p)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Delete(ctx, url), "deleting twice is fine")
}

func TestLocalStore_RejectsNonImages(t *testing.T) {
	s := newStore(t)
	_, err := s.Save(context.Background(), FolderCovers, strings.NewReader("just some text"), 1024)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestLocalStore_RejectsLargeFiles(t *testing.T) {
	s := newStore(t)
	_, err := s.Save(context.Background(), FolderAvatars, bytes.NewReader(pngBytes), 10)
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, _ := os.ReadDir(filepath.Join(s.Root, FolderAvatars))
	assert.Empty(t, entries)
}

func TestLocalStore_DeleteForeignURL(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Delete(ctx, "https://cdn.example.com/uploads/covers/a.png"), ErrForeignURL)
	assert.ErrorIs(t, s.Delete(ctx, "http://localhost:8080/uploads/../../etc/passwd"), ErrForeignURL)
	assert.ErrorIs(t, s.Delete(ctx, "http://localhost:8080/uploads/a.png"), ErrForeignURL)
}

func TestLocalStore_InvalidFolder(t *testing.T) {
	s := newStore(t)
	_, err := s.Save(context.Background(), "../x", bytes.NewReader(pngBytes), 1024)
	assert.Error(t, err)
}

func TestAllowedExtension(t *testing.T) {
	assert.True(t, AllowedExtension("cover.JPEG"))
	assert.True(t, AllowedExtension("a.webp"))
	assert.False(t, AllowedExtension("a.bmp"))
	assert.False(t, AllowedExtension("noext"))
}

func TestLocalStore_Owns(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)

	for url, want := range map[string]bool{
		"http://localhost:8080/uploads/avatars/a.png":       true,
		"http://localhost:8080/uploads/covers/b.jpg":        true,
		"http://localhost:8080/uploads/covers/../avatars/a": false,
		"http://localhost:8080/uploads/a.png":               false,
		"https://covers.openlibrary.org/b/id/1-L.jpg":       false,
		"/uploads/avatars/a.png":                            false,
	} {
		assert.Equal(t, want, s.Owns(url), url)
	}
}
