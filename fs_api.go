package vfs

import (
	"fmt"
	"io"
	"os"
)

// ============================================================================
// Namespace operations
// ============================================================================

// createDirectory creates a new directory at the given path. The parent
// must exist and be a directory, and the final component must not already
// exist. The new directory starts with one data block holding "." and "..".
func (c *core) createDirectory(path string) error {
	parentPath, name := splitParent(path)
	if name == "" {
		return fmt.Errorf("mkdir %q: missing directory name", path)
	}
	if len(name) > direntNameCap {
		return fmt.Errorf("mkdir %q: name longer than %d bytes", path, direntNameCap)
	}

	parentNum, parentIno, err := c.resolveDir(parentPath)
	if err != nil {
		return fmt.Errorf("mkdir %q: %w", path, err)
	}

	existing, err := c.findDirEntry(parentIno, name)
	if err != nil {
		return fmt.Errorf("mkdir %q: %w", path, err)
	}
	if existing != 0 {
		return fmt.Errorf("mkdir %q: %w", path, ErrExists)
	}

	dataBlock, err := c.allocateBlock()
	if err != nil {
		return fmt.Errorf("mkdir %q: %w", path, err)
	}

	inodeNum, err := c.allocateInode()
	if err != nil {
		c.freeBlock(dataBlock)
		return fmt.Errorf("mkdir %q: %w", path, err)
	}

	if err := c.dev.writeBlock(dataBlock, newDirBlock(inodeNum, parentNum)); err != nil {
		return fmt.Errorf("mkdir %q: %w", path, err)
	}

	ino := &inode{
		Mode:       FileTypeDirectory,
		LinksCount: 1,
	}
	ino.Blocks[0] = dataBlock

	if err := c.writeInode(inodeNum, ino); err != nil {
		return fmt.Errorf("mkdir %q: %w", path, err)
	}

	if err := c.addDirEntry(parentNum, dirEntry{
		Inode:    inodeNum,
		FileType: FileTypeDirectory,
		Name:     []byte(name),
	}); err != nil {
		// The directory never became reachable; release it again.
		c.freeInode(inodeNum)
		return fmt.Errorf("mkdir %q: %w", path, err)
	}

	return nil
}

// removeDirectory removes an empty directory: the entry is tombstoned in
// the parent, then the inode and its data blocks are released.
func (c *core) removeDirectory(path string) error {
	if normalizePath(path) == "/" {
		return fmt.Errorf("rmdir %q: cannot remove root directory", path)
	}

	inodeNum, ino, err := c.resolveDir(path)
	if err != nil {
		return fmt.Errorf("rmdir %q: %w", path, err)
	}

	empty, err := c.isDirEmpty(ino)
	if err != nil {
		return fmt.Errorf("rmdir %q: %w", path, err)
	}
	if !empty {
		return fmt.Errorf("rmdir %q: %w", path, ErrNotEmpty)
	}

	parentPath, name := splitParent(path)
	_, parentIno, err := c.resolveDir(parentPath)
	if err != nil {
		return fmt.Errorf("rmdir %q: %w", path, err)
	}

	removed, err := c.removeDirEntry(parentIno, name)
	if err != nil {
		return fmt.Errorf("rmdir %q: %w", path, err)
	}
	if removed == 0 {
		return fmt.Errorf("rmdir %q: %w", path, ErrNotFound)
	}

	if err := c.freeInode(inodeNum); err != nil {
		return fmt.Errorf("rmdir %q: %w", path, err)
	}

	return nil
}

// createHardLink binds a new name to the target's inode and bumps its link
// count. The target may be of any type, directories included; a directory
// link creates a cycle the resolver cannot detect.
func (c *core) createHardLink(target, linkPath string) error {
	targetNum, err := c.resolvePath(target)
	if err != nil {
		return fmt.Errorf("link %q: %w", target, err)
	}

	targetIno, err := c.readInode(targetNum)
	if err != nil {
		return fmt.Errorf("link %q: %w", target, err)
	}

	parentPath, name := splitParent(linkPath)
	if name == "" {
		return fmt.Errorf("link %q: missing link name", linkPath)
	}
	if len(name) > direntNameCap {
		return fmt.Errorf("link %q: name longer than %d bytes", linkPath, direntNameCap)
	}

	parentNum, parentIno, err := c.resolveDir(parentPath)
	if err != nil {
		return fmt.Errorf("link %q: %w", linkPath, err)
	}

	existing, err := c.findDirEntry(parentIno, name)
	if err != nil {
		return fmt.Errorf("link %q: %w", linkPath, err)
	}
	if existing != 0 {
		return fmt.Errorf("link %q: %w", linkPath, ErrExists)
	}

	if err := c.addDirEntry(parentNum, dirEntry{
		Inode:    targetNum,
		FileType: uint8(targetIno.Mode),
		Name:     []byte(name),
	}); err != nil {
		return fmt.Errorf("link %q: %w", linkPath, err)
	}

	if err := c.incrementLinkCount(targetNum); err != nil {
		return fmt.Errorf("link %q: %w", linkPath, err)
	}

	return nil
}

// removeFile removes one name of a file. The link count drops by one and
// the inode, along with all its data blocks, is released when the last
// name is gone.
func (c *core) removeFile(path string) error {
	if normalizePath(path) == "/" {
		return fmt.Errorf("rm %q: cannot remove root directory", path)
	}

	inodeNum, err := c.resolvePath(path)
	if err != nil {
		return fmt.Errorf("rm %q: %w", path, err)
	}

	parentPath, name := splitParent(path)
	_, parentIno, err := c.resolveDir(parentPath)
	if err != nil {
		return fmt.Errorf("rm %q: %w", path, err)
	}

	removed, err := c.removeDirEntry(parentIno, name)
	if err != nil {
		return fmt.Errorf("rm %q: %w", path, err)
	}
	if removed == 0 {
		return fmt.Errorf("rm %q: %w", path, ErrNotFound)
	}

	links, err := c.decrementLinkCount(inodeNum)
	if err != nil {
		return fmt.Errorf("rm %q: %w", path, err)
	}

	if links == 0 {
		if err := c.freeInode(inodeNum); err != nil {
			return fmt.Errorf("rm %q: %w", path, err)
		}
	}

	return nil
}

// copyFromSystem ingests a host file into the image as a new regular file.
// Data is laid into direct blocks first, then through a freshly allocated
// indirect block. Any failure during the copy releases everything the new
// file had acquired; the image is left as if the call never happened.
func (c *core) copyFromSystem(sysPath, virtPath string) error {
	f, err := os.Open(sysPath)
	if err != nil {
		return fmt.Errorf("copyfrom %q: %w", sysPath, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("copyfrom %q: %w", sysPath, err)
	}

	length := fi.Size()
	if length > maxFileSize {
		return fmt.Errorf("copyfrom %q: %d bytes: %w", sysPath, length, ErrTooLarge)
	}

	parentPath, name := splitParent(virtPath)
	if name == "" {
		return fmt.Errorf("copyfrom %q: missing file name", virtPath)
	}
	if len(name) > direntNameCap {
		return fmt.Errorf("copyfrom %q: name longer than %d bytes", virtPath, direntNameCap)
	}

	parentNum, parentIno, err := c.resolveDir(parentPath)
	if err != nil {
		return fmt.Errorf("copyfrom %q: %w", virtPath, err)
	}

	existing, err := c.findDirEntry(parentIno, name)
	if err != nil {
		return fmt.Errorf("copyfrom %q: %w", virtPath, err)
	}
	if existing != 0 {
		return fmt.Errorf("copyfrom %q: %w", virtPath, ErrExists)
	}

	inodeNum, err := c.allocateInode()
	if err != nil {
		return fmt.Errorf("copyfrom %q: %w", virtPath, err)
	}

	// Claim the inode before the copy so a cleanup pass can release it.
	ino := &inode{
		Mode:       FileTypeRegular,
		LinksCount: 1,
	}
	if err := c.writeInode(inodeNum, ino); err != nil {
		return fmt.Errorf("copyfrom %q: %w", virtPath, err)
	}

	cleanup := func(cause error) error {
		// Record whatever pointers the copy established, then release
		// the inode and all its blocks in one pass.
		c.writeInode(inodeNum, ino)
		c.freeInode(inodeNum)
		return fmt.Errorf("copyfrom %q: %w", virtPath, cause)
	}

	chunk := make([]byte, blockSize)
	remaining := length
	for index := uint32(0); remaining > 0; index++ {
		n := int64(blockSize)
		if remaining < n {
			n = remaining
		}

		if _, err := io.ReadFull(f, chunk[:n]); err != nil {
			return cleanup(err)
		}

		blockNum, err := c.extendFile(ino, index)
		if err != nil {
			return cleanup(err)
		}

		block := make([]byte, blockSize)
		copy(block, chunk[:n])
		if err := c.dev.writeBlock(blockNum, block); err != nil {
			return cleanup(err)
		}

		remaining -= n
	}

	ino.Size = uint32(length)
	if err := c.writeInode(inodeNum, ino); err != nil {
		return cleanup(err)
	}

	if err := c.addDirEntry(parentNum, dirEntry{
		Inode:    inodeNum,
		FileType: FileTypeRegular,
		Name:     []byte(name),
	}); err != nil {
		return cleanup(err)
	}

	return nil
}

// copyToSystem extracts a regular file from the image into a host file,
// streaming direct blocks first, then the indirect block. The final block
// is cut to the byte length recorded in the inode.
func (c *core) copyToSystem(virtPath, sysPath string) error {
	_, ino, err := c.resolveFile(virtPath)
	if err != nil {
		return fmt.Errorf("copyto %q: %w", virtPath, err)
	}

	out, err := os.Create(sysPath)
	if err != nil {
		return fmt.Errorf("copyto %q: %w", virtPath, err)
	}

	remaining := ino.Size
	for index := uint32(0); remaining > 0; index++ {
		blockNum, err := c.blockForIndex(ino, index)
		if err != nil {
			out.Close()
			return fmt.Errorf("copyto %q: %w", virtPath, err)
		}
		if blockNum == 0 {
			out.Close()
			return fmt.Errorf("copyto %q: unmapped block %d in file of size %d", virtPath, index, ino.Size)
		}

		block, err := c.dev.readBlock(blockNum)
		if err != nil {
			out.Close()
			return fmt.Errorf("copyto %q: %w", virtPath, err)
		}

		n := uint32(blockSize)
		if remaining < n {
			n = remaining
		}

		if _, err := out.Write(block[:n]); err != nil {
			out.Close()
			return fmt.Errorf("copyto %q: %w", virtPath, err)
		}

		remaining -= n
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("copyto %q: %w", virtPath, err)
	}

	return nil
}

// appendToFile appends n pattern bytes to a regular file. Byte i of the
// appended run is 'A' + (i mod 26). The final partial block is filled
// first, then the file grows block by block.
func (c *core) appendToFile(path string, n uint32) error {
	inodeNum, ino, err := c.resolveFile(path)
	if err != nil {
		return fmt.Errorf("append %q: %w", path, err)
	}

	if n == 0 {
		return nil
	}
	if uint64(ino.Size)+uint64(n) > maxFileSize {
		return fmt.Errorf("append %q: %w", path, ErrTooLarge)
	}

	pattern := make([]byte, n)
	for i := range pattern {
		pattern[i] = 'A' + byte(i%26)
	}

	written := uint32(0)

	// Fill the tail of the last partial block, if any.
	if tail := ino.Size % blockSize; tail != 0 {
		blockNum, err := c.blockForIndex(ino, ino.Size/blockSize)
		if err != nil {
			return fmt.Errorf("append %q: %w", path, err)
		}

		block, err := c.dev.readBlock(blockNum)
		if err != nil {
			return fmt.Errorf("append %q: %w", path, err)
		}

		fill := blockSize - tail
		if n < fill {
			fill = n
		}

		copy(block[tail:], pattern[:fill])
		if err := c.dev.writeBlock(blockNum, block); err != nil {
			return fmt.Errorf("append %q: %w", path, err)
		}

		written = fill
	}

	for index := blockCount(ino.Size); written < n; index++ {
		blockNum, err := c.extendFile(ino, index)
		if err != nil {
			c.writeInode(inodeNum, ino) // keep recorded pointers referenced
			return fmt.Errorf("append %q: %w", path, err)
		}

		fill := n - written
		if fill > blockSize {
			fill = blockSize
		}

		block := make([]byte, blockSize)
		copy(block, pattern[written:written+fill])
		if err := c.dev.writeBlock(blockNum, block); err != nil {
			c.writeInode(inodeNum, ino)
			return fmt.Errorf("append %q: %w", path, err)
		}

		written += fill
	}

	ino.Size += n
	if err := c.writeInode(inodeNum, ino); err != nil {
		return fmt.Errorf("append %q: %w", path, err)
	}

	return nil
}

// truncateFile removes n bytes from the end of a regular file. Blocks that
// fall entirely beyond the new size are released; trailing bytes inside the
// surviving last block are ignored on extract.
func (c *core) truncateFile(path string, n uint32) error {
	inodeNum, ino, err := c.resolveFile(path)
	if err != nil {
		return fmt.Errorf("truncate %q: %w", path, err)
	}

	if n > ino.Size {
		return fmt.Errorf("truncate %q: %d bytes exceeds file size %d", path, n, ino.Size)
	}

	newSize := ino.Size - n
	if err := c.shrinkFile(ino, blockCount(ino.Size), blockCount(newSize)); err != nil {
		return fmt.Errorf("truncate %q: %w", path, err)
	}

	ino.Size = newSize
	if err := c.writeInode(inodeNum, ino); err != nil {
		return fmt.Errorf("truncate %q: %w", path, err)
	}

	return nil
}

// listDirectory returns the live entries of a directory except "." and
// "..", in the order encountered scanning its direct blocks.
func (c *core) listDirectory(path string) ([]DirListEntry, error) {
	_, dir, err := c.resolveDir(path)
	if err != nil {
		return nil, fmt.Errorf("ls %q: %w", path, err)
	}

	var entries []DirListEntry

	err = c.forEachEntry(dir, func(_ uint32, _ int, e dirEntry) (bool, error) {
		if e.Inode == 0 {
			return true, nil
		}
		name := string(e.Name)
		if name == "." || name == ".." {
			return true, nil
		}

		ino, err := c.readInode(e.Inode)
		if err != nil {
			return false, err
		}

		entries = append(entries, DirListEntry{
			Name:     name,
			Inode:    e.Inode,
			FileType: e.FileType,
			Size:     ino.Size,
		})
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("ls %q: %w", path, err)
	}

	return entries, nil
}

// stat resolves a path and reports the inode behind it.
func (c *core) stat(path string) (FileInfo, error) {
	inodeNum, err := c.resolvePath(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat %q: %w", path, err)
	}

	ino, err := c.readInode(inodeNum)
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat %q: %w", path, err)
	}

	return FileInfo{
		Inode:      inodeNum,
		FileType:   uint8(ino.Mode),
		Size:       ino.Size,
		LinksCount: ino.LinksCount,
	}, nil
}

// diskUsage returns the used and total block counts.
func (c *core) diskUsage() (used, total uint32) {
	return c.sb.BlocksCount - c.sb.FreeBlocksCount, c.sb.BlocksCount
}
