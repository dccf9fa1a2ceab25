package vfs

import (
	"errors"
	"fmt"
)

// Image provides the public API for a single-file virtual filesystem.
// It wraps the internal core with a storage backend and exposes namespace
// operations over absolute paths. An Image exclusively owns its backend
// from Create/Open until Close.
type Image struct {
	core    *core
	backend diskBackend

	imagePath string
	sizeBytes uint64
}

// Create formats a new image with the provided options. The backend
// (WithImagePath or WithMemoryBackend) and size (WithSize) must be
// specified. Returns a mounted Image rooted at an empty "/".
//
// Example:
//
//	img, err := vfs.Create(vfs.WithImagePath("disk.img"), vfs.WithSize(1<<20))
//	if err != nil {
//	    return err
//	}
//	defer img.Close()
func Create(opts ...ImageOption) (*Image, error) {
	img := &Image{}
	for _, opt := range opts {
		if err := opt(img); err != nil {
			return nil, err
		}
	}

	if img.backend == nil {
		return nil, errors.New("image backend is required: use WithImagePath")
	}
	if img.sizeBytes == 0 {
		return nil, errors.New("image size is required: use WithSize")
	}

	core, err := formatImage(img.backend, img.sizeBytes)
	if err != nil {
		_ = img.backend.close()
		return nil, fmt.Errorf("create image: %w", err)
	}

	img.core = core

	return img, nil
}

// Open mounts an existing image for modification. The superblock is
// validated by magic and the allocation bitmap loaded into memory, so
// subsequent allocations cannot corrupt existing data.
//
// Example:
//
//	img, err := vfs.Open(vfs.WithExistingImagePath("disk.img"))
//	if err != nil {
//	    return err
//	}
//	defer img.Close()
func Open(opts ...ImageOption) (*Image, error) {
	img := &Image{}
	for _, opt := range opts {
		if err := opt(img); err != nil {
			return nil, err
		}
	}

	if img.backend == nil {
		return nil, errors.New("image backend is required: use WithExistingImagePath")
	}

	core, err := mountImage(img.backend)
	if err != nil {
		_ = img.backend.close()
		return nil, fmt.Errorf("open image: %w", err)
	}

	img.core = core

	return img, nil
}

// CreateDirectory creates a new directory at the given absolute path.
// The new directory is initialized with "." and ".." entries.
func (img *Image) CreateDirectory(path string) error {
	return img.core.createDirectory(path)
}

// RemoveDirectory removes an empty directory and releases its inode and
// data blocks. Removing a non-empty directory or the root fails.
func (img *Image) RemoveDirectory(path string) error {
	return img.core.removeDirectory(path)
}

// CreateHardLink binds linkPath as an additional name for target's inode.
func (img *Image) CreateHardLink(target, linkPath string) error {
	return img.core.createHardLink(target, linkPath)
}

// RemoveFile unlinks one name. When the last name of an inode is removed,
// the inode and all its data blocks are reclaimed.
func (img *Image) RemoveFile(path string) error {
	return img.core.removeFile(path)
}

// CopyFromSystem copies a host file into the image at virtPath.
// On any failure during the copy, everything the new file had allocated
// is released.
func (img *Image) CopyFromSystem(sysPath, virtPath string) error {
	return img.core.copyFromSystem(sysPath, virtPath)
}

// CopyToSystem copies a regular file out of the image into a host file.
func (img *Image) CopyToSystem(virtPath, sysPath string) error {
	return img.core.copyToSystem(virtPath, sysPath)
}

// AppendToFile appends n deterministic pattern bytes ('A' + i mod 26) to a
// regular file.
func (img *Image) AppendToFile(path string, n uint32) error {
	return img.core.appendToFile(path, n)
}

// TruncateFile removes n bytes from the end of a regular file. It is an
// error for n to exceed the file size.
func (img *Image) TruncateFile(path string, n uint32) error {
	return img.core.truncateFile(path, n)
}

// ListDirectory returns the entries of a directory, excluding "." and
// "..", in directory scan order.
func (img *Image) ListDirectory(path string) ([]DirListEntry, error) {
	return img.core.listDirectory(path)
}

// Stat resolves a path and reports its inode number, type, size, and link
// count.
func (img *Image) Stat(path string) (FileInfo, error) {
	return img.core.stat(path)
}

// DiskUsage returns the used and total block counts of the image.
func (img *Image) DiskUsage() (used, total uint32) {
	return img.core.diskUsage()
}

// Save flushes the image to durable storage.
func (img *Image) Save() error {
	if err := img.backend.sync(); err != nil {
		return fmt.Errorf("failed to sync image: %w", err)
	}

	return nil
}

// Close releases the underlying backend. It is an error to use the Image
// afterwards.
func (img *Image) Close() error {
	return img.backend.close()
}
