package vfs

import (
	"fmt"
)

// Layout contains pre-calculated image layout parameters. Block 0 holds the
// superblock, block 1 the allocation bitmap, blocks 2..2+InodeTableBlocks-1
// the packed inode table, and everything from FirstDataBlock on is the data
// region. The geometry is fixed at format time and never changes.
type Layout struct {
	TotalBlocks      uint32
	InodesCount      uint32
	InodeTableBlocks uint32
	FirstDataBlock   uint32
}

// CalculateLayout computes the image layout for the requested size in bytes.
// The block count is the size rounded up to whole blocks; the inode count is
// one inode per four blocks, matching the classical data-to-metadata ratio.
func CalculateLayout(sizeBytes uint64) (*Layout, error) {
	totalBlocks := uint32((sizeBytes + blockSize - 1) / blockSize)
	if totalBlocks > maxImageBlocks {
		return nil, fmt.Errorf("image too large: %d blocks, bitmap block holds at most %d", totalBlocks, maxImageBlocks)
	}

	inodesCount := totalBlocks / 4
	if inodesCount < 1 {
		return nil, fmt.Errorf("image too small: %d bytes yields no inodes", sizeBytes)
	}

	inodeTableBlocks := (inodesCount*inodeSize + blockSize - 1) / blockSize
	firstDataBlock := firstInodeBlockNum + inodeTableBlocks

	// Room for the root directory's data block at minimum.
	if firstDataBlock+1 > totalBlocks {
		return nil, fmt.Errorf("image too small: %d blocks leaves no data region", totalBlocks)
	}

	return &Layout{
		TotalBlocks:      totalBlocks,
		InodesCount:      inodesCount,
		InodeTableBlocks: inodeTableBlocks,
		FirstDataBlock:   firstDataBlock,
	}, nil
}

// layoutFromSuperblock reconstructs the layout of a mounted image from its
// superblock fields.
func layoutFromSuperblock(sb *superblock) *Layout {
	return &Layout{
		TotalBlocks:      sb.BlocksCount,
		InodesCount:      sb.InodesCount,
		InodeTableBlocks: sb.FirstDataBlock - sb.FirstInodeBlock,
		FirstDataBlock:   sb.FirstDataBlock,
	}
}

// BlockOffset returns the absolute byte offset for a given block number.
func (l *Layout) BlockOffset(blockNum uint32) int64 {
	return int64(blockNum) * blockSize
}

// InodeBlock returns the inode-table block holding the given inode.
// Inode numbers start from 1; inode k lives in block
// firstInodeBlockNum + (k-1)/inodesPerBlock.
func (l *Layout) InodeBlock(inodeNum uint32) uint32 {
	if inodeNum < 1 {
		panic(fmt.Sprintf("invalid inode number: %d", inodeNum)) // This should never happen in normal operation
	}

	return firstInodeBlockNum + (inodeNum-1)/inodesPerBlock
}

// InodeBlockOffset returns the byte offset of the given inode within its
// inode-table block.
func (l *Layout) InodeBlockOffset(inodeNum uint32) int {
	return int((inodeNum - 1) % inodesPerBlock * inodeSize)
}

// ReservedBlocks returns the number of blocks permanently held by metadata:
// the superblock, the bitmap block, and the inode table.
func (l *Layout) ReservedBlocks() uint32 {
	return 2 + l.InodeTableBlocks
}

// String returns a human-readable description of the image layout.
func (l *Layout) String() string {
	return fmt.Sprintf(`Image Layout:
  Total blocks: %d
  Inodes: %d
  Inode table blocks: %d
  First data block: %d`,
		l.TotalBlocks,
		l.InodesCount,
		l.InodeTableBlocks,
		l.FirstDataBlock)
}
