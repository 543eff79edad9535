// Package imagestore keeps uploaded cover images and profile pictures.
package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrTooLarge        = errors.New("image exceeds size limit")
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrForeignURL      = errors.New("url does not belong to this store")
)

// Folders used by the API.
const (
	FolderCovers   = "covers"
	FolderAvatars  = "avatars"
	publicPrefix   = "/uploads/"
	maxFolderDepth = 1
)

var allowedTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var allowedExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

// AllowedExtension reports whether filename carries an accepted image extension.
func AllowedExtension(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Store saves images and hands back public URLs.
type Store interface {
	Save(ctx context.Context, folder string, r io.Reader, maxBytes int64) (string, error)
	Delete(ctx context.Context, url string) error
}

// LocalStore writes images below Root and serves them from BaseURL/uploads/.
type LocalStore struct {
	Root    string
	BaseURL string
}

func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Save(ctx context.Context, folder string, r io.Reader, maxBytes int64) (string, error) {
	if strings.ContainsAny(folder, `/\.`) || folder == "" {
		return "", fmt.Errorf("invalid folder %q", folder)
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return "", ErrTooLarge
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	mtype := mimetype.Detect(data)
	ext, ok := allowedTypes[mtype.String()]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mtype.String())
	}

	dir := filepath.Join(s.Root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}
	name := uuid.NewString() + ext
	if err := writeFile(filepath.Join(dir, name), data); err != nil {
		return "", err
	}

	return s.BaseURL + publicPrefix + path.Join(folder, name), nil
}

func writeFile(p string, data []byte) error {
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("store image: %w", err)
	}
	return nil
}

// Delete removes the file behind url. Missing files are not an error.
func (s *LocalStore) Delete(_ context.Context, url string) error {
	p, err := s.localPath(url)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

// Owns reports whether url points at a file served from this store.
func (s *LocalStore) Owns(url string) bool {
	_, err := s.localPath(url)
	return err == nil
}

func (s *LocalStore) localPath(url string) (string, error) {
	rel, ok := strings.CutPrefix(url, s.BaseURL+publicPrefix)
	if !ok {
		return "", ErrForeignURL
	}
	clean := path.Clean("/" + rel)[1:]
	if clean != rel || strings.Count(clean, "/") != maxFolderDepth {
		return "", ErrForeignURL
	}
	return filepath.Join(s.Root, filepath.FromSlash(clean)), nil
}
