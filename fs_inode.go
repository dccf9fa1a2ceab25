package vfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// ============================================================================
// Inode table
// ============================================================================

// readInode reads the 128-byte inode record with the given 1-based number
// from its inode-table block.
func (c *core) readInode(inodeNum uint32) (*inode, error) {
	if inodeNum < 1 || inodeNum > c.sb.InodesCount {
		return nil, fmt.Errorf("invalid inode number %d", inodeNum)
	}

	block, err := c.dev.readBlock(c.layout.InodeBlock(inodeNum))
	if err != nil {
		return nil, fmt.Errorf("failed to read inode %d: %w", inodeNum, err)
	}

	off := c.layout.InodeBlockOffset(inodeNum)

	ino := &inode{}
	if err := binary.Read(bytes.NewReader(block[off:off+inodeSize]), binary.LittleEndian, ino); err != nil {
		return nil, fmt.Errorf("failed to decode inode %d: %w", inodeNum, err)
	}

	return ino, nil
}

// writeInode encodes the inode record into its slot of the inode-table
// block, leaving the 31 sibling records in the block untouched.
func (c *core) writeInode(inodeNum uint32, ino *inode) error {
	if inodeNum < 1 || inodeNum > c.sb.InodesCount {
		return fmt.Errorf("invalid inode number %d", inodeNum)
	}

	blockNum := c.layout.InodeBlock(inodeNum)
	block, err := c.dev.readBlock(blockNum)
	if err != nil {
		return fmt.Errorf("failed to read inode block for inode %d: %w", inodeNum, err)
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, ino); err != nil {
		return fmt.Errorf("failed to encode inode %d: %w", inodeNum, err)
	}

	copy(block[c.layout.InodeBlockOffset(inodeNum):], buf.Bytes())

	if err := c.dev.writeBlock(blockNum, block); err != nil {
		return fmt.Errorf("failed to write inode %d: %w", inodeNum, err)
	}

	return nil
}

// incrementLinkCount increases the hard link count of the given inode.
func (c *core) incrementLinkCount(inodeNum uint32) error {
	ino, err := c.readInode(inodeNum)
	if err != nil {
		return fmt.Errorf("failed to read inode for link count increment: %w", err)
	}

	ino.LinksCount++
	if err := c.writeInode(inodeNum, ino); err != nil {
		return fmt.Errorf("failed to write inode after incrementing link count: %w", err)
	}

	return nil
}

// decrementLinkCount decreases the hard link count of the given inode and
// returns the new count.
func (c *core) decrementLinkCount(inodeNum uint32) (uint32, error) {
	ino, err := c.readInode(inodeNum)
	if err != nil {
		return 0, fmt.Errorf("failed to read inode for link count decrement: %w", err)
	}

	if ino.LinksCount > 0 {
		ino.LinksCount--
	}

	if err := c.writeInode(inodeNum, ino); err != nil {
		return 0, fmt.Errorf("failed to write inode after decrementing link count: %w", err)
	}

	return ino.LinksCount, nil
}

// ============================================================================
// File addressing: direct + single-indirect pointers
// ============================================================================

// readIndirect reads an indirect block and decodes it as an array of 1024
// little-endian block pointers.
func (c *core) readIndirect(indirectBlock uint32) ([]uint32, error) {
	block, err := c.dev.readBlock(indirectBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to read indirect block %d: %w", indirectBlock, err)
	}

	slots := make([]uint32, indirectPointers)
	for i := range slots {
		slots[i] = binary.LittleEndian.Uint32(block[i*4:])
	}

	return slots, nil
}

// writeIndirectSlot updates one pointer inside an indirect block.
func (c *core) writeIndirectSlot(indirectBlock uint32, slot int, blockNum uint32) error {
	block, err := c.dev.readBlock(indirectBlock)
	if err != nil {
		return fmt.Errorf("failed to read indirect block %d: %w", indirectBlock, err)
	}

	binary.LittleEndian.PutUint32(block[slot*4:], blockNum)

	if err := c.dev.writeBlock(indirectBlock, block); err != nil {
		return fmt.Errorf("failed to write indirect block %d: %w", indirectBlock, err)
	}

	return nil
}

// blockForIndex maps a file-relative block index to its disk block.
// Returns 0 for an unmapped index.
func (c *core) blockForIndex(ino *inode, index uint32) (uint32, error) {
	if index < directBlocks {
		return ino.Blocks[index], nil
	}
	if index >= maxFileBlocks || ino.Blocks[directBlocks] == 0 {
		return 0, nil
	}

	slots, err := c.readIndirect(ino.Blocks[directBlocks])
	if err != nil {
		return 0, err
	}

	return slots[index-directBlocks], nil
}

// blockCount returns how many logical blocks the inode's payload spans.
func blockCount(size uint32) uint32 {
	return (size + blockSize - 1) / blockSize
}

// extendFile allocates a data block for logical index `index` and records
// it in the in-memory inode: directly for index < 12, via the indirect
// block otherwise. Crossing into index 12 also allocates the indirect block,
// right after the data block. The caller persists the inode; indirect-block updates are written
// immediately. Returns the new data block number.
func (c *core) extendFile(ino *inode, index uint32) (uint32, error) {
	if index >= maxFileBlocks {
		return 0, ErrTooLarge
	}

	dataBlock, err := c.allocateBlock()
	if err != nil {
		return 0, err
	}

	if index < directBlocks {
		ino.Blocks[index] = dataBlock
		return dataBlock, nil
	}

	if ino.Blocks[directBlocks] == 0 {
		indirectBlock, err := c.allocateBlock()
		if err != nil {
			c.freeBlock(dataBlock)
			return 0, err
		}
		if err := c.dev.zeroBlock(indirectBlock); err != nil {
			c.freeBlock(indirectBlock)
			c.freeBlock(dataBlock)
			return 0, err
		}
		ino.Blocks[directBlocks] = indirectBlock
	}

	if err := c.writeIndirectSlot(ino.Blocks[directBlocks], int(index-directBlocks), dataBlock); err != nil {
		c.freeBlock(dataBlock)
		return 0, err
	}

	return dataBlock, nil
}

// shrinkFile releases every data block at logical index >= newBlocks and
// clears the now-unused pointers in the in-memory inode. If the shrink
// drops the file to 12 blocks or fewer, the indirect block itself is
// released and Blocks[12] cleared. The caller persists the inode.
func (c *core) shrinkFile(ino *inode, oldBlocks, newBlocks uint32) error {
	if newBlocks >= oldBlocks {
		return nil
	}

	for j := newBlocks; j < oldBlocks && j < directBlocks; j++ {
		if ino.Blocks[j] == 0 {
			continue
		}
		if err := c.freeBlock(ino.Blocks[j]); err != nil {
			return err
		}
		ino.Blocks[j] = 0
	}

	if ino.Blocks[directBlocks] == 0 {
		return nil
	}

	if oldBlocks > directBlocks {
		slots, err := c.readIndirect(ino.Blocks[directBlocks])
		if err != nil {
			return err
		}

		firstFreed := uint32(0)
		if newBlocks > directBlocks {
			firstFreed = newBlocks - directBlocks
		}

		for s := firstFreed; s < oldBlocks-directBlocks; s++ {
			if slots[s] == 0 {
				continue
			}
			if err := c.freeBlock(slots[s]); err != nil {
				return err
			}
			if err := c.writeIndirectSlot(ino.Blocks[directBlocks], int(s), 0); err != nil {
				return err
			}
		}
	}

	if newBlocks <= directBlocks {
		if err := c.freeBlock(ino.Blocks[directBlocks]); err != nil {
			return err
		}
		ino.Blocks[directBlocks] = 0
	}

	return nil
}
