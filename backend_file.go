package vfs

import (
	"fmt"
	"os"
)

// diskBackend abstracts I/O operations for different storage backends.
// The core filesystem logic is written against this interface so it can
// operate on any random-access store (files, in-memory buffers).
type diskBackend interface {
	readAt(p []byte, off int64) error
	writeAt(p []byte, off int64) error
	truncate(size int64) error
	sync() error
	close() error
}

// fileBackend implements diskBackend using a regular file on disk.
// Provides random access read/write operations for image files.
type fileBackend struct {
	f *os.File
}

var _ diskBackend = (*fileBackend)(nil)

func (fb *fileBackend) readAt(p []byte, off int64) error {
	_, err := fb.f.ReadAt(p, off)
	if err != nil {
		return fmt.Errorf("disk read error: %w", err)
	}

	return nil
}

func (fb *fileBackend) writeAt(p []byte, off int64) error {
	_, err := fb.f.WriteAt(p, off)
	if err != nil {
		return fmt.Errorf("disk write error: %w", err)
	}

	return nil
}

func (fb *fileBackend) truncate(size int64) error {
	if err := fb.f.Truncate(size); err != nil {
		return fmt.Errorf("disk truncate error: %w", err)
	}

	return nil
}

func (fb *fileBackend) sync() error {
	if err := fb.f.Sync(); err != nil {
		return fmt.Errorf("disk sync error: %w", err)
	}

	return nil
}

func (fb *fileBackend) close() error {
	if err := fb.f.Close(); err != nil {
		return fmt.Errorf("disk close error: %w", err)
	}

	return nil
}
