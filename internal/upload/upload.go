// Package upload stores user-submitted event images on local disk and
// exposes them under a public URL path.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yaksh9737/event-manager/pkg/config"
)

var (
	// ErrNotAnImage is returned when the uploaded part is not an image
	ErrNotAnImage = errors.New("uploaded file must be an image")
	// ErrTooLarge is returned when the uploaded file exceeds the size limit
	ErrTooLarge = errors.New("uploaded file exceeds the size limit")
)

// LocalStore saves uploads under a directory on local disk
type LocalStore struct {
	dir        string
	publicPath string
	maxSize    int64
}

// NewLocalStore creates the upload directory if needed and returns a store
func NewLocalStore(cfg *config.UploadConfig) (*LocalStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{
		dir:        cfg.Dir,
		publicPath: strings.TrimSuffix(cfg.PublicPath, "/"),
		maxSize:    cfg.MaxSizeMB * 1024 * 1024,
	}, nil
}

// Dir returns the directory uploads are written to
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save writes the uploaded image to disk and returns its public URL path.
// Only image/* content types are accepted.
func (s *LocalStore) Save(file *multipart.FileHeader) (string, error) {
	if s.maxSize > 0 && file.Size > s.maxSize {
		return "", ErrTooLarge
	}
	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrNotAnImage
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	ext := filepath.Ext(file.Filename)
	name := fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), uuid.New().String(), ext)

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}

	return s.publicPath + "/" + name, nil
}
