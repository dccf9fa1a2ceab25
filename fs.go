package vfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// core holds the state of one mounted filesystem: the block device, the
// geometry, and in-memory mirrors of the superblock and the allocation
// bitmap. Both mirrors are written back to disk after every allocate/free
// so that a subsequent mount observes a coherent pair.
type core struct {
	dev    *blockDevice
	layout *Layout
	sb     superblock
	bitmap []byte
}

func newCore(backend diskBackend, layout *Layout) *core {
	return &core{
		dev:    &blockDevice{backend: backend, layout: layout},
		layout: layout,
		bitmap: make([]byte, blockSize),
	}
}

// ============================================================================
// Superblock
// ============================================================================

// readSuperblock reads and decodes the 36-byte superblock from the start of
// the backend, without assuming anything else about the image. Used at mount
// time before the geometry is known.
func readSuperblock(backend diskBackend) (*superblock, error) {
	buf := make([]byte, binary.Size(superblock{}))
	if err := backend.readAt(buf, 0); err != nil {
		return nil, fmt.Errorf("failed to read superblock: %w", err)
	}

	sb := &superblock{}
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, sb); err != nil {
		return nil, fmt.Errorf("failed to decode superblock: %w", err)
	}

	return sb, nil
}

// writeSuperblock encodes the in-memory superblock into block 0.
// The remainder of the block stays zero.
func (c *core) writeSuperblock() error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &c.sb); err != nil {
		return fmt.Errorf("failed to encode superblock: %w", err)
	}

	block := make([]byte, blockSize)
	copy(block, buf.Bytes())

	if err := c.dev.writeBlock(superblockBlockNum, block); err != nil {
		return fmt.Errorf("failed to write superblock: %w", err)
	}

	return nil
}

// ============================================================================
// Bitmap
// ============================================================================

// loadBitmap reads the allocation bitmap from block 1 into memory.
func (c *core) loadBitmap() error {
	block, err := c.dev.readBlock(bitmapBlockNum)
	if err != nil {
		return fmt.Errorf("failed to load bitmap: %w", err)
	}

	c.bitmap = block

	return nil
}

// writeBitmap persists the in-memory bitmap to block 1.
func (c *core) writeBitmap() error {
	if err := c.dev.writeBlock(bitmapBlockNum, c.bitmap); err != nil {
		return fmt.Errorf("failed to write bitmap: %w", err)
	}

	return nil
}

// flushAllocState writes the bitmap block and the superblock together.
// Every allocate/free goes through this so the free counters and the bit
// vector never diverge on disk.
func (c *core) flushAllocState() error {
	if err := c.writeBitmap(); err != nil {
		return err
	}

	return c.writeSuperblock()
}

func (c *core) blockInUse(blockNum uint32) bool {
	return c.bitmap[blockNum/8]&(1<<(blockNum%8)) != 0
}
