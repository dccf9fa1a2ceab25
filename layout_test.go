package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateLayout(t *testing.T) {
	tests := []struct {
		name        string
		sizeBytes   uint64
		totalBlocks uint32
		inodes      uint32
		tableBlocks uint32
		firstData   uint32
	}{
		{
			name:        "one MiB",
			sizeBytes:   1 << 20,
			totalBlocks: 256,
			inodes:      64,
			tableBlocks: 2,
			firstData:   4,
		},
		{
			name:        "rounds up to whole blocks",
			sizeBytes:   1<<20 + 1,
			totalBlocks: 257,
			inodes:      64,
			tableBlocks: 2,
			firstData:   4,
		},
		{
			name:        "eight MiB",
			sizeBytes:   8 << 20,
			totalBlocks: 2048,
			inodes:      512,
			tableBlocks: 16,
			firstData:   18,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := CalculateLayout(tt.sizeBytes)
			require.NoError(t, err)

			assert.Equal(t, tt.totalBlocks, l.TotalBlocks)
			assert.Equal(t, tt.inodes, l.InodesCount)
			assert.Equal(t, tt.tableBlocks, l.InodeTableBlocks)
			assert.Equal(t, tt.firstData, l.FirstDataBlock)
			assert.Equal(t, 2+tt.tableBlocks, l.ReservedBlocks())
		})
	}
}

func TestCalculateLayoutRejectsDegenerateSizes(t *testing.T) {
	_, err := CalculateLayout(blockSize) // one block, no inodes
	assert.Error(t, err)

	_, err = CalculateLayout(3 * blockSize) // three blocks, still no inodes
	assert.Error(t, err)

	_, err = CalculateLayout(uint64(maxImageBlocks+1) * blockSize)
	assert.Error(t, err, "bitmap cannot track more than %d blocks", maxImageBlocks)
}

func TestInodeTablePositions(t *testing.T) {
	l, err := CalculateLayout(1 << 20)
	require.NoError(t, err)

	// Inodes are packed 32 per block, 1-based.
	assert.Equal(t, uint32(2), l.InodeBlock(1))
	assert.Equal(t, 0, l.InodeBlockOffset(1))
	assert.Equal(t, uint32(2), l.InodeBlock(32))
	assert.Equal(t, 31*inodeSize, l.InodeBlockOffset(32))
	assert.Equal(t, uint32(3), l.InodeBlock(33))
	assert.Equal(t, 0, l.InodeBlockOffset(33))
}
