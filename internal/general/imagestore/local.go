package imagestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"valet/internal/ports"
)

// URLPrefix is where the booking service serves stored images.
const URLPrefix = "/uploads/"

var (
	ErrNotImage = errors.New("only jpeg, png, gif and webp images are allowed")
	ErrTooLarge = errors.New("image exceeds size limit")
	ErrEmpty    = errors.New("image is empty")
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// Local keeps vehicle photos on the local disk.
type Local struct {
	dir      string
	maxBytes int64
}

var _ ports.ImageStore = (*Local)(nil)

// NewLocal creates dir if needed. maxBytes <= 0 disables the size check.
func NewLocal(dir string, maxBytes int64) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &Local{dir: dir, maxBytes: maxBytes}, nil
}

// Dir is the directory served under URLPrefix.
func (l *Local) Dir() string {
	return l.dir
}

// Save stores data under a fresh name and returns its public reference.
func (l *Local) Save(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if l.maxBytes > 0 && int64(len(data)) > l.maxBytes {
		return "", ErrTooLarge
	}

	ext, err := extensionFor(filename, contentType)
	if err != nil {
		return "", err
	}

	name := "car-" + uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(l.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return URLPrefix + name, nil
}

// extensionFor requires both the declared type and the file extension to be images.
func extensionFor(filename, contentType string) (string, error) {
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	typeExt, ok := allowedTypes[mediaType]
	if !ok {
		return "", ErrNotImage
	}
	ext := strings.ToLower(path.Ext(filename))
	if !allowedExt[ext] {
		return "", ErrNotImage
	}
	return typeExt, nil
}
