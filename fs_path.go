package vfs

import (
	"fmt"
	"strings"
)

// normalizePath makes a path absolute: a leading "/" is prepended when
// absent and exactly one trailing "/" is stripped, except for the root
// itself.
func normalizePath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if p != "/" && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}

	return p
}

// splitPath returns the components of a normalized path, dropping empties.
func splitPath(p string) []string {
	var components []string
	for _, part := range strings.Split(p, "/") {
		if part != "" {
			components = append(components, part)
		}
	}

	return components
}

// splitParent splits a normalized path into its parent directory and the
// final component. The root has no final component.
func splitParent(p string) (parent, name string) {
	p = normalizePath(p)
	if p == "/" {
		return "/", ""
	}

	idx := strings.LastIndex(p, "/")
	if idx == 0 {
		return "/", p[1:]
	}

	return p[:idx], p[idx+1:]
}

// resolvePath walks the given path from the root directory, component by
// component, and returns the inode number of the leaf. Every intermediate
// component must be a directory; directory content lives in direct blocks
// only, so that is all the walk consults. "." and ".." resolve through
// their literal entries.
func (c *core) resolvePath(p string) (uint32, error) {
	current := uint32(RootInode)

	for _, component := range splitPath(normalizePath(p)) {
		ino, err := c.readInode(current)
		if err != nil {
			return 0, err
		}

		if ino.Mode != FileTypeDirectory {
			return 0, fmt.Errorf("%q: %w", p, ErrNotADirectory)
		}

		next, err := c.findDirEntry(ino, component)
		if err != nil {
			return 0, err
		}
		if next == 0 {
			return 0, fmt.Errorf("%q: %w", p, ErrNotFound)
		}

		current = next
	}

	return current, nil
}

// resolveDir resolves a path and requires the result to be a directory.
// Returns the inode number together with the decoded inode.
func (c *core) resolveDir(p string) (uint32, *inode, error) {
	inodeNum, err := c.resolvePath(p)
	if err != nil {
		return 0, nil, err
	}

	ino, err := c.readInode(inodeNum)
	if err != nil {
		return 0, nil, err
	}
	if ino.Mode != FileTypeDirectory {
		return 0, nil, fmt.Errorf("%q: %w", p, ErrNotADirectory)
	}

	return inodeNum, ino, nil
}

// resolveFile resolves a path and requires the result to be a regular file.
func (c *core) resolveFile(p string) (uint32, *inode, error) {
	inodeNum, err := c.resolvePath(p)
	if err != nil {
		return 0, nil, err
	}

	ino, err := c.readInode(inodeNum)
	if err != nil {
		return 0, nil, err
	}
	if ino.Mode != FileTypeRegular {
		return 0, nil, fmt.Errorf("%q: %w", p, ErrNotAFile)
	}

	return inodeNum, ino, nil
}
