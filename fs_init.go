package vfs

import (
	"fmt"
)

// formatImage initializes a blank image on the backend: zeroed blocks, a
// valid superblock, a bitmap with all metadata blocks pre-marked used, a
// zeroed inode table, and the root directory at inode 1.
func formatImage(backend diskBackend, sizeBytes uint64) (*core, error) {
	layout, err := CalculateLayout(sizeBytes)
	if err != nil {
		return nil, err
	}

	// Size the image to whole blocks, zero-filled.
	if err := backend.truncate(layout.BlockOffset(layout.TotalBlocks)); err != nil {
		return nil, fmt.Errorf("failed to size image: %w", err)
	}

	c := newCore(backend, layout)
	c.sb = superblock{
		Magic:           fsMagic,
		BlockSize:       blockSize,
		BlocksCount:     layout.TotalBlocks,
		FreeBlocksCount: layout.TotalBlocks - layout.ReservedBlocks(),
		InodesCount:     layout.InodesCount,
		FreeInodesCount: layout.InodesCount - 1, // root is live from the start
		FirstDataBlock:  layout.FirstDataBlock,
		FirstInodeBlock: firstInodeBlockNum,
		BitmapBlock:     bitmapBlockNum,
	}

	// Superblock, bitmap, and inode table are permanently used.
	for i := uint32(0); i < layout.ReservedBlocks(); i++ {
		c.bitmap[i/8] |= 1 << (i % 8)
	}

	for i := uint32(0); i < layout.InodeTableBlocks; i++ {
		if err := c.dev.zeroBlock(firstInodeBlockNum + i); err != nil {
			return nil, fmt.Errorf("failed to zero inode table: %w", err)
		}
	}

	if err := c.flushAllocState(); err != nil {
		return nil, err
	}

	if err := c.createRootDirectory(); err != nil {
		return nil, err
	}

	return c, nil
}

// createRootDirectory allocates the root's data block, writes its "." and
// ".." entries (both pointing at inode 1), and persists inode 1 as a live
// directory.
func (c *core) createRootDirectory() error {
	rootBlock, err := c.allocateBlock()
	if err != nil {
		return fmt.Errorf("failed to allocate root directory block: %w", err)
	}

	if err := c.dev.writeBlock(rootBlock, newDirBlock(RootInode, RootInode)); err != nil {
		return fmt.Errorf("failed to write root directory block: %w", err)
	}

	root := &inode{
		Mode:       FileTypeDirectory,
		LinksCount: 1,
	}
	root.Blocks[0] = rootBlock

	if err := c.writeInode(RootInode, root); err != nil {
		return fmt.Errorf("failed to write root inode: %w", err)
	}

	return nil
}

// mountImage loads an existing image: the superblock is read and validated
// by magic, the geometry reconstructed, and the bitmap pulled into memory.
func mountImage(backend diskBackend) (*core, error) {
	sb, err := readSuperblock(backend)
	if err != nil {
		return nil, err
	}

	if sb.Magic != fsMagic {
		return nil, fmt.Errorf("magic 0x%08X: %w", sb.Magic, ErrBadMagic)
	}

	c := newCore(backend, layoutFromSuperblock(sb))
	c.sb = *sb

	if err := c.loadBitmap(); err != nil {
		return nil, err
	}

	return c, nil
}
