package vfs

import (
	"fmt"
)

// blockDevice provides whole-block random-access I/O over a diskBackend.
// Reads and writes past the end of the image fail; the image never grows
// after format.
type blockDevice struct {
	backend diskBackend
	layout  *Layout
}

// readBlock reads the full 4096-byte block at the given index.
func (d *blockDevice) readBlock(blockNum uint32) ([]byte, error) {
	if blockNum >= d.layout.TotalBlocks {
		return nil, fmt.Errorf("read past end of image: block %d of %d", blockNum, d.layout.TotalBlocks)
	}

	buf := make([]byte, blockSize)
	if err := d.backend.readAt(buf, d.layout.BlockOffset(blockNum)); err != nil {
		return nil, fmt.Errorf("failed to read block %d: %w", blockNum, err)
	}

	return buf, nil
}

// writeBlock writes a full 4096-byte block at the given index.
func (d *blockDevice) writeBlock(blockNum uint32, data []byte) error {
	if blockNum >= d.layout.TotalBlocks {
		return fmt.Errorf("write past end of image: block %d of %d", blockNum, d.layout.TotalBlocks)
	}
	if len(data) != blockSize {
		return fmt.Errorf("short block write: %d bytes for block %d", len(data), blockNum)
	}

	if err := d.backend.writeAt(data, d.layout.BlockOffset(blockNum)); err != nil {
		return fmt.Errorf("failed to write block %d: %w", blockNum, err)
	}

	return nil
}

// zeroBlock overwrites the given block with zeros.
func (d *blockDevice) zeroBlock(blockNum uint32) error {
	return d.writeBlock(blockNum, make([]byte, blockSize))
}
