package vfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ImageOption is a functional option for configuring Create and Open.
type ImageOption func(*Image) error

// WithImagePath creates (or truncates) the image file at the given path
// and uses it as the backend. Parent directories are created as needed.
func WithImagePath(imagePath string) ImageOption {
	return func(img *Image) error {
		dir := filepath.Dir(imagePath)
		if dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating directory for image %q: %w", imagePath, err)
			}
		}

		f, err := os.OpenFile(imagePath, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("opening image file %q: %w", imagePath, err)
		}

		img.imagePath = imagePath
		img.backend = &fileBackend{f: f}
		return nil
	}
}

// WithExistingImagePath opens an existing image file read/write and uses
// it as the backend.
func WithExistingImagePath(imagePath string) ImageOption {
	return func(img *Image) error {
		f, err := os.OpenFile(imagePath, os.O_RDWR, 0o644)
		if err != nil {
			return fmt.Errorf("opening image file %q: %w", imagePath, err)
		}

		img.imagePath = imagePath
		img.backend = &fileBackend{f: f}
		return nil
	}
}

// WithSize sets the image size in bytes for Create. The size is rounded up
// to whole blocks.
func WithSize(sizeBytes uint64) ImageOption {
	return func(img *Image) error {
		if sizeBytes == 0 {
			return errors.New("image size must be > 0")
		}
		img.sizeBytes = sizeBytes
		return nil
	}
}

// WithMemoryBackend uses an in-memory image instead of a file. Used for
// testing.
func WithMemoryBackend() ImageOption {
	return func(img *Image) error {
		img.backend = &memoryBackend{}
		return nil
	}
}
