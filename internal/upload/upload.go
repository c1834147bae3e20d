// Package upload stores project images submitted from the admin panel.
package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNotImage is returned when the content is not an accepted image type.
	ErrNotImage = errors.New("file is not a supported image")
	// ErrTooLarge is returned when the content exceeds the size limit.
	ErrTooLarge = errors.New("file is too large")
)

// allowed maps accepted MIME types to the extension used on disk.
var allowed = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store writes uploaded images into a directory.
type Store struct {
	dir      string
	maxBytes int64
	logger   *zap.Logger
}

// NewStore returns a Store writing into dir, creating it if needed.
func NewStore(dir string, maxBytes int64, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes, logger: logger.Named("upload")}, nil
}

// Dir returns the directory images are written to.
func (s *Store) Dir() string {
	return s.dir
}

// MaxBytes returns the size limit for one image.
func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// Save sniffs r, rejects anything that is not an accepted image and writes
// it under a random name. It returns the stored file name.
func (s *Store) Save(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrTooLarge
	}

	mtype := mimetype.Detect(data)
	ext, ok := allowed[mtype.String()]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotImage, mtype.String())
	}

	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}

	s.logger.Info("image stored", zap.String("name", name), zap.String("type", mtype.String()), zap.Int("bytes", len(data)))
	return name, nil
}
