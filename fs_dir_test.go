package vfs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirEntryCodec(t *testing.T) {
	buf := make([]byte, direntSize)
	encodeDirEntry(buf, dirEntry{
		Inode:    7,
		RecLen:   direntSize,
		NameLen:  5,
		FileType: FileTypeRegular,
		Name:     []byte("hello"),
	})

	e := decodeDirEntry(buf)
	assert.Equal(t, uint32(7), e.Inode)
	assert.Equal(t, uint16(direntSize), e.RecLen)
	assert.Equal(t, uint8(5), e.NameLen)
	assert.Equal(t, uint8(FileTypeRegular), e.FileType)
	assert.Equal(t, []byte("hello"), e.Name)
}

func TestNewDirBlockReservedEntries(t *testing.T) {
	block := newDirBlock(5, 3)

	dot := decodeDirEntry(block)
	assert.Equal(t, uint32(5), dot.Inode)
	assert.Equal(t, uint8(1), dot.NameLen)
	assert.Equal(t, []byte("."), dot.Name)
	assert.Equal(t, uint16(direntSize), dot.RecLen)

	dotdot := decodeDirEntry(block[direntSize:])
	assert.Equal(t, uint32(3), dotdot.Inode)
	assert.Equal(t, uint8(2), dotdot.NameLen)
	assert.Equal(t, []byte(".."), dotdot.Name)
	assert.Equal(t, uint16(direntSize), dotdot.RecLen)

	// The rest of the block is unformatted tail.
	tail := decodeDirEntry(block[2*direntSize:])
	assert.Equal(t, uint32(0), tail.Inode)
	assert.Equal(t, uint16(0), tail.RecLen)
}

func TestAddAndFindDirEntry(t *testing.T) {
	c := newTestCore(t)

	require.NoError(t, c.addDirEntry(RootInode, dirEntry{
		Inode:    2,
		FileType: FileTypeRegular,
		Name:     []byte("f"),
	}))

	root, err := c.readInode(RootInode)
	require.NoError(t, err)

	got, err := c.findDirEntry(root, "f")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), got)

	missing, err := c.findDirEntry(root, "g")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), missing)

	// Names match on exact bytes, not prefixes.
	prefix, err := c.findDirEntry(root, "fo")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), prefix)
}

func TestRemoveDirEntryLeavesReusableTombstone(t *testing.T) {
	c := newTestCore(t)

	require.NoError(t, c.addDirEntry(RootInode, dirEntry{Inode: 2, FileType: FileTypeRegular, Name: []byte("a")}))
	require.NoError(t, c.addDirEntry(RootInode, dirEntry{Inode: 3, FileType: FileTypeRegular, Name: []byte("b")}))

	root, err := c.readInode(RootInode)
	require.NoError(t, err)

	removed, err := c.removeDirEntry(root, "a")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), removed)

	// The slot holds a tombstone: inode zeroed, rec_len intact.
	block, err := c.dev.readBlock(root.Blocks[0])
	require.NoError(t, err)
	slot := decodeDirEntry(block[2*direntSize:])
	assert.Equal(t, uint32(0), slot.Inode)
	assert.Equal(t, uint16(direntSize), slot.RecLen)

	// The next insert reuses the tombstone rather than the tail.
	require.NoError(t, c.addDirEntry(RootInode, dirEntry{Inode: 4, FileType: FileTypeRegular, Name: []byte("c")}))
	block, err = c.dev.readBlock(root.Blocks[0])
	require.NoError(t, err)
	slot = decodeDirEntry(block[2*direntSize:])
	assert.Equal(t, uint32(4), slot.Inode)
	assert.Equal(t, []byte("c"), slot.Name)
}

func TestDirectoryGrowsIntoDirectBlocks(t *testing.T) {
	c := newTestCoreSized(t, 8<<20)

	// The first block holds ".", "..", and 13 more records; the 14th
	// insert must allocate a second directory block.
	for i := 0; i < direntsPerBlock-2+1; i++ {
		require.NoError(t, c.addDirEntry(RootInode, dirEntry{
			Inode:    2,
			FileType: FileTypeRegular,
			Name:     []byte(fmt.Sprintf("f%03d", i)),
		}))
	}

	root, err := c.readInode(RootInode)
	require.NoError(t, err)
	assert.NotZero(t, root.Blocks[1])

	got, err := c.findDirEntry(root, fmt.Sprintf("f%03d", direntsPerBlock-2))
	require.NoError(t, err)
	assert.Equal(t, uint32(2), got)
}

func TestDirectoryRejectsOverlongName(t *testing.T) {
	c := newTestCore(t)

	longName := make([]byte, direntNameCap+1)
	for i := range longName {
		longName[i] = 'x'
	}

	err := c.addDirEntry(RootInode, dirEntry{Inode: 2, FileType: FileTypeRegular, Name: longName})
	assert.Error(t, err)
}

func TestIsDirEmpty(t *testing.T) {
	c := newTestCore(t)

	root, err := c.readInode(RootInode)
	require.NoError(t, err)

	empty, err := c.isDirEmpty(root)
	require.NoError(t, err)
	assert.True(t, empty, "a directory holding only . and .. is empty")

	require.NoError(t, c.addDirEntry(RootInode, dirEntry{Inode: 2, FileType: FileTypeRegular, Name: []byte("f")}))
	empty, err = c.isDirEmpty(root)
	require.NoError(t, err)
	assert.False(t, empty)

	// Tombstones do not count as content.
	_, err = c.removeDirEntry(root, "f")
	require.NoError(t, err)
	empty, err = c.isDirEmpty(root)
	require.NoError(t, err)
	assert.True(t, empty)
}
