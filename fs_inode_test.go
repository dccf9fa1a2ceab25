package vfs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendPattern(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = 'A' + byte(i%26)
	}
	return p
}

func TestInodeRoundTrip(t *testing.T) {
	c := newTestCore(t)

	want := &inode{Mode: FileTypeRegular, Size: 4242, LinksCount: 3}
	want.Blocks[0] = 17
	want.Blocks[directBlocks] = 99

	require.NoError(t, c.writeInode(7, want))

	got, err := c.readInode(7)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Neighbors in the same inode block are untouched.
	root, err := c.readInode(RootInode)
	require.NoError(t, err)
	assert.Equal(t, uint32(FileTypeDirectory), root.Mode)
}

func TestFileStaysDirectAtTwelveBlocks(t *testing.T) {
	c := newTestCoreSized(t, 8<<20)
	writeTestFile(t, c, "/f", nil)

	usedBefore, _ := c.diskUsage()

	require.NoError(t, c.appendToFile("/f", directBlocks*blockSize))

	_, ino, err := c.resolveFile("/f")
	require.NoError(t, err)
	assert.Equal(t, uint32(directBlocks*blockSize), ino.Size)
	for i := 0; i < directBlocks; i++ {
		assert.NotZero(t, ino.Blocks[i], "direct pointer %d", i)
	}
	assert.Zero(t, ino.Blocks[directBlocks], "a 12-block file uses no indirect block")

	usedAfter, _ := c.diskUsage()
	assert.Equal(t, usedBefore+directBlocks, usedAfter)
}

func TestFileCrossesIntoIndirectBlock(t *testing.T) {
	c := newTestCoreSized(t, 8<<20)
	writeTestFile(t, c, "/f", make([]byte, directBlocks*blockSize))

	usedBefore, _ := c.diskUsage()

	// One more byte needs one data block plus the indirect block itself.
	require.NoError(t, c.appendToFile("/f", 1))

	_, ino, err := c.resolveFile("/f")
	require.NoError(t, err)
	require.NotZero(t, ino.Blocks[directBlocks])

	slots, err := c.readIndirect(ino.Blocks[directBlocks])
	require.NoError(t, err)
	assert.NotZero(t, slots[0])
	assert.Zero(t, slots[1])

	usedAfter, _ := c.diskUsage()
	assert.Equal(t, usedBefore+2, usedAfter)

	// Shrinking back below twelve blocks releases the indirect block too.
	require.NoError(t, c.truncateFile("/f", 1))
	_, ino, err = c.resolveFile("/f")
	require.NoError(t, err)
	assert.Zero(t, ino.Blocks[directBlocks])

	usedFinal, _ := c.diskUsage()
	assert.Equal(t, usedBefore, usedFinal)
}

func TestAppendFillsPartialBlockFirst(t *testing.T) {
	c := newTestCore(t)
	writeTestFile(t, c, "/f", []byte("Hello, world!"))

	usedBefore, _ := c.diskUsage()

	require.NoError(t, c.appendToFile("/f", blockSize))

	_, ino, err := c.resolveFile("/f")
	require.NoError(t, err)
	assert.Equal(t, uint32(13+blockSize), ino.Size)

	// 13 payload bytes + 4083 pattern bytes fill block 0; the remaining
	// 13 pattern bytes spill into exactly one new block.
	usedAfter, _ := c.diskUsage()
	assert.Equal(t, usedBefore+1, usedAfter)

	want := append([]byte("Hello, world!"), appendPattern(blockSize)...)
	assert.True(t, bytes.Equal(want, readTestFile(t, c, "/f")))
}

func TestAppendThenTruncateRestoresFile(t *testing.T) {
	c := newTestCore(t)
	payload := []byte("Hello, world!")
	writeTestFile(t, c, "/f", payload)

	usedBefore, _ := c.diskUsage()

	require.NoError(t, c.appendToFile("/f", 4096))
	require.NoError(t, c.truncateFile("/f", 4096))

	_, ino, err := c.resolveFile("/f")
	require.NoError(t, err)
	assert.Equal(t, uint32(len(payload)), ino.Size)

	usedAfter, _ := c.diskUsage()
	assert.Equal(t, usedBefore, usedAfter)

	assert.Equal(t, payload, readTestFile(t, c, "/f"))
}

func TestTruncateToZeroReleasesEverything(t *testing.T) {
	c := newTestCore(t)
	writeTestFile(t, c, "/f", []byte("Hello, world!"))

	_, ino, err := c.resolveFile("/f")
	require.NoError(t, err)

	require.NoError(t, c.truncateFile("/f", ino.Size))

	_, ino, err = c.resolveFile("/f")
	require.NoError(t, err)
	assert.Zero(t, ino.Size)
	assert.Zero(t, ino.Blocks[0])

	// Truncating past the size is refused, not clamped.
	assert.Error(t, c.truncateFile("/f", 1))
}

func TestAppendBeyondMaxFileSizeFails(t *testing.T) {
	c := newTestCoreSized(t, 8<<20)
	writeTestFile(t, c, "/f", nil)

	require.NoError(t, c.appendToFile("/f", maxFileSize))

	_, ino, err := c.resolveFile("/f")
	require.NoError(t, err)
	assert.Equal(t, uint32(maxFileSize), ino.Size)

	err = c.appendToFile("/f", 1)
	assert.ErrorIs(t, err, ErrTooLarge)
}
