// Package vfs implements a single-file virtual filesystem image in pure Go.
// An entire directory tree is stored inside one host file, laid out as a
// fixed-size block device: a superblock, a block-allocation bitmap, a packed
// inode table, and a pool of data blocks. Files are addressed through twelve
// direct block pointers plus one single-indirect block, in the manner of
// classical Unix on-disk formats.
//
// The main entry points are Create in image.go, which formats a blank image,
// and Open, which mounts an existing one. The returned Image exposes
// POSIX-flavored operations (CreateDirectory, CopyFromSystem, CreateHardLink,
// TruncateFile, ...) over absolute paths rooted at "/".
//
// Example usage:
//
//	img, err := vfs.Create(vfs.WithImagePath("disk.img"), vfs.WithSize(1<<20))
//	if err != nil {
//		panic(err)
//	}
//	defer img.Close()
//
//	img.CreateDirectory("/etc")
//	img.CopyFromSystem("hosts", "/etc/hosts")
package vfs

const (
	// Block geometry
	blockSize      = 4096
	inodeSize      = 128
	inodesPerBlock = blockSize / inodeSize

	// File addressing: twelve direct pointers, then one single-indirect
	// block holding blockSize/4 further pointers.
	directBlocks     = 12
	indirectPointers = blockSize / 4
	maxFileBlocks    = directBlocks + indirectPointers
	maxFileSize      = maxFileBlocks * blockSize

	// Magic number identifying a formatted image ("MSFS")
	fsMagic = 0x4D534653

	// Fixed block positions
	superblockBlockNum = 0
	bitmapBlockNum     = 1
	firstInodeBlockNum = 2

	// The bitmap occupies block 1 only, which caps the image at
	// blockSize*8 blocks (128 MiB).
	maxImageBlocks = blockSize * 8

	// Directory entry geometry. Entries are fixed-size packed records:
	// inode (4) + rec_len (2) + name_len (1) + file_type (1) + name (256).
	direntSize      = 264
	direntNameCap   = 255
	direntsPerBlock = blockSize / direntSize

	// RootInode is the inode number of the root directory. Inode numbers
	// are 1-based; 0 is the null sentinel.
	RootInode = 1
)

// File type tags stored in an inode's Mode field and in directory entries.
const (
	FileTypeNone      = 0
	FileTypeRegular   = 1
	FileTypeDirectory = 2
	FileTypeSymlink   = 3 // reserved; no operation creates symlinks
)

// ============================================================================
// On-disk structures
// ============================================================================

// superblock is the fixed 36-byte image header at the start of block 0.
// All fields are little-endian uint32. The free counts mirror the bitmap
// and the inode table: FreeBlocksCount equals the number of zero bits in
// the bitmap, FreeInodesCount the number of inodes with LinksCount == 0.
type superblock struct {
	Magic           uint32
	BlockSize       uint32
	BlocksCount     uint32
	FreeBlocksCount uint32
	InodesCount     uint32
	FreeInodesCount uint32
	FirstDataBlock  uint32
	FirstInodeBlock uint32
	BitmapBlock     uint32
}

// inode is the fixed 128-byte record describing one file or directory.
// Blocks[0..11] are direct data-block pointers; Blocks[12] is the
// single-indirect block pointer. A pointer value of 0 means unallocated.
// LinksCount == 0 marks the inode itself as free.
type inode struct {
	Mode       uint32
	Size       uint32
	LinksCount uint32
	Blocks     [directBlocks + 1]uint32
	Reserved   [inodeSize - 12 - 4*(directBlocks+1)]byte
}

// dirEntry is the logical form of one directory record. On disk each record
// occupies exactly direntSize bytes; Name holds only the live name bytes
// (at most direntNameCap). Inode == 0 marks the slot as a tombstone when
// RecLen != 0, or as the unformatted tail of the block when RecLen == 0.
type dirEntry struct {
	Inode    uint32
	RecLen   uint16
	NameLen  uint8
	FileType uint8
	Name     []byte
}

// DirListEntry is one row of a directory listing as returned by
// ListDirectory: the entry name, the referenced inode number, and that
// inode's type and size.
type DirListEntry struct {
	Name     string
	Inode    uint32
	FileType uint8
	Size     uint32
}

// FileInfo describes a resolved path as returned by Stat.
type FileInfo struct {
	Inode      uint32
	FileType   uint8
	Size       uint32
	LinksCount uint32
}
