package vfs

import (
	"fmt"
)

// allocateBlock returns the first free block in ascending index order,
// marks it used, and persists the bitmap and superblock. The reserved
// blocks are pre-marked used at format time and are never returned.
func (c *core) allocateBlock() (uint32, error) {
	for i := uint32(0); i < c.sb.BlocksCount; i++ {
		if c.bitmap[i/8]&(1<<(i%8)) != 0 {
			continue
		}

		c.bitmap[i/8] |= 1 << (i % 8)
		c.sb.FreeBlocksCount--

		if err := c.flushAllocState(); err != nil {
			return 0, fmt.Errorf("failed to persist allocation of block %d: %w", i, err)
		}

		return i, nil
	}

	return 0, ErrOutOfBlocks
}

// freeBlock clears the bit for the given block and persists the bitmap and
// superblock. Out-of-range or already-free blocks are ignored.
func (c *core) freeBlock(blockNum uint32) error {
	if blockNum >= c.sb.BlocksCount || !c.blockInUse(blockNum) {
		return nil
	}

	c.bitmap[blockNum/8] &^= 1 << (blockNum % 8) // Clear the bit
	c.sb.FreeBlocksCount++

	if err := c.flushAllocState(); err != nil {
		return fmt.Errorf("failed to persist free of block %d: %w", blockNum, err)
	}

	return nil
}

// allocateInode scans the inode table for the first inode with a zero link
// count and returns its number. There is no inode bitmap: links_count == 0
// is the free marker, and the caller claims the inode by writing it back
// with a nonzero link count.
func (c *core) allocateInode() (uint32, error) {
	for k := uint32(1); k <= c.sb.InodesCount; k++ {
		ino, err := c.readInode(k)
		if err != nil {
			return 0, fmt.Errorf("failed to scan inode %d: %w", k, err)
		}

		if ino.LinksCount != 0 {
			continue
		}

		c.sb.FreeInodesCount--
		if err := c.writeSuperblock(); err != nil {
			return 0, fmt.Errorf("failed to persist allocation of inode %d: %w", k, err)
		}

		return k, nil
	}

	return 0, ErrOutOfInodes
}

// freeInode releases every data block the inode owns (direct pointers,
// indirect slots, and the indirect block itself), zeroes the record on
// disk, and bumps the free-inode counter.
func (c *core) freeInode(inodeNum uint32) error {
	ino, err := c.readInode(inodeNum)
	if err != nil {
		return fmt.Errorf("failed to read inode %d for free: %w", inodeNum, err)
	}

	for i := 0; i < directBlocks; i++ {
		if ino.Blocks[i] == 0 {
			continue
		}
		if err := c.freeBlock(ino.Blocks[i]); err != nil {
			return err
		}
	}

	if ino.Blocks[directBlocks] != 0 {
		if err := c.freeIndirect(ino.Blocks[directBlocks]); err != nil {
			return err
		}
	}

	if err := c.writeInode(inodeNum, &inode{}); err != nil {
		return fmt.Errorf("failed to clear inode %d: %w", inodeNum, err)
	}

	c.sb.FreeInodesCount++
	if err := c.writeSuperblock(); err != nil {
		return fmt.Errorf("failed to persist free of inode %d: %w", inodeNum, err)
	}

	return nil
}

// freeIndirect releases every block referenced from the given indirect
// block, then the indirect block itself.
func (c *core) freeIndirect(indirectBlock uint32) error {
	slots, err := c.readIndirect(indirectBlock)
	if err != nil {
		return err
	}

	for _, blockNum := range slots {
		if blockNum == 0 {
			continue
		}
		if err := c.freeBlock(blockNum); err != nil {
			return err
		}
	}

	return c.freeBlock(indirectBlock)
}
