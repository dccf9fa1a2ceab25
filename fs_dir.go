package vfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Directory blocks hold fixed-stride 264-byte records. Every live record is
// written with RecLen = direntSize, including "." and "..". A record with
// Inode == 0 and RecLen != 0 is a tombstone that may be reused; Inode == 0
// and RecLen == 0 marks the unformatted tail of the block. Directories use
// only the twelve direct blocks of their inode.

// encodeDirEntry packs a directory record into buf, which must be at least
// direntSize bytes.
func encodeDirEntry(buf []byte, e dirEntry) {
	binary.LittleEndian.PutUint32(buf[0:], e.Inode)
	binary.LittleEndian.PutUint16(buf[4:], e.RecLen)
	buf[6] = e.NameLen
	buf[7] = e.FileType

	nameField := buf[8 : 8+direntNameCap+1]
	for i := range nameField {
		nameField[i] = 0
	}
	copy(nameField, e.Name)
}

// decodeDirEntry unpacks the directory record at the start of buf.
func decodeDirEntry(buf []byte) dirEntry {
	e := dirEntry{
		Inode:    binary.LittleEndian.Uint32(buf[0:]),
		RecLen:   binary.LittleEndian.Uint16(buf[4:]),
		NameLen:  buf[6],
		FileType: buf[7],
	}
	e.Name = buf[8 : 8+int(e.NameLen)]

	return e
}

// newDirBlock builds a fresh directory block containing the two reserved
// entries "." and "..".
func newDirBlock(self, parent uint32) []byte {
	block := make([]byte, blockSize)

	encodeDirEntry(block[0:], dirEntry{
		Inode:    self,
		RecLen:   direntSize,
		NameLen:  1,
		FileType: FileTypeDirectory,
		Name:     []byte("."),
	})
	encodeDirEntry(block[direntSize:], dirEntry{
		Inode:    parent,
		RecLen:   direntSize,
		NameLen:  2,
		FileType: FileTypeDirectory,
		Name:     []byte(".."),
	})

	return block
}

// forEachEntry walks every formatted record in the directory's direct
// blocks in scan order, tombstones included, calling fn with the block
// number, the byte offset of the record, and the decoded record. Iteration
// stops early when fn returns false.
func (c *core) forEachEntry(dir *inode, fn func(blockNum uint32, off int, e dirEntry) (bool, error)) error {
	for i := 0; i < directBlocks; i++ {
		if dir.Blocks[i] == 0 {
			continue
		}

		block, err := c.dev.readBlock(dir.Blocks[i])
		if err != nil {
			return fmt.Errorf("failed to read directory block %d: %w", dir.Blocks[i], err)
		}

		for off := 0; off+direntSize <= blockSize; off += direntSize {
			e := decodeDirEntry(block[off:])
			if e.Inode == 0 && e.RecLen == 0 {
				break // unformatted tail
			}

			cont, err := fn(dir.Blocks[i], off, e)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
	}

	return nil
}

// findDirEntry looks up a name in the directory by exact byte equality and
// returns the referenced inode number, or 0 when the name is absent.
func (c *core) findDirEntry(dir *inode, name string) (uint32, error) {
	var found uint32

	err := c.forEachEntry(dir, func(_ uint32, _ int, e dirEntry) (bool, error) {
		if e.Inode != 0 && int(e.NameLen) == len(name) && bytes.Equal(e.Name, []byte(name)) {
			found = e.Inode
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return 0, err
	}

	return found, nil
}

// addDirEntry inserts a record into the directory identified by dirInodeNum.
// The first reusable slot wins: a tombstone or the unformatted tail of an
// existing block. When every allocated block is full a fresh block is
// allocated into the next free direct pointer; a directory that has
// exhausted all twelve direct blocks rejects the insert.
func (c *core) addDirEntry(dirInodeNum uint32, e dirEntry) error {
	if len(e.Name) == 0 || len(e.Name) > direntNameCap {
		return fmt.Errorf("invalid entry name length %d", len(e.Name))
	}

	e.RecLen = direntSize
	e.NameLen = uint8(len(e.Name))

	dir, err := c.readInode(dirInodeNum)
	if err != nil {
		return fmt.Errorf("failed to read directory inode %d: %w", dirInodeNum, err)
	}

	for i := 0; i < directBlocks; i++ {
		if dir.Blocks[i] == 0 {
			continue
		}

		block, err := c.dev.readBlock(dir.Blocks[i])
		if err != nil {
			return fmt.Errorf("failed to read directory block %d: %w", dir.Blocks[i], err)
		}

		for off := 0; off+direntSize <= blockSize; off += direntSize {
			slot := decodeDirEntry(block[off:])
			if slot.Inode != 0 {
				continue
			}

			// Tombstone or unformatted tail, either way the slot is free.
			encodeDirEntry(block[off:], e)
			if err := c.dev.writeBlock(dir.Blocks[i], block); err != nil {
				return fmt.Errorf("failed to write directory block %d: %w", dir.Blocks[i], err)
			}

			return nil
		}
	}

	// All allocated blocks are full; grow into the next direct slot.
	for i := 0; i < directBlocks; i++ {
		if dir.Blocks[i] != 0 {
			continue
		}

		newBlock, err := c.allocateBlock()
		if err != nil {
			return err
		}

		block := make([]byte, blockSize)
		encodeDirEntry(block[0:], e)
		if err := c.dev.writeBlock(newBlock, block); err != nil {
			return fmt.Errorf("failed to write directory block %d: %w", newBlock, err)
		}

		dir.Blocks[i] = newBlock
		if err := c.writeInode(dirInodeNum, dir); err != nil {
			return fmt.Errorf("failed to update directory inode %d: %w", dirInodeNum, err)
		}

		return nil
	}

	return fmt.Errorf("directory full: %w", ErrTooLarge)
}

// removeDirEntry tombstones the record with the given name: the inode field
// is zeroed in place and RecLen left intact so the slot can be reused.
// Returns the inode number the removed entry referenced, or 0 when the name
// was not present.
func (c *core) removeDirEntry(dir *inode, name string) (uint32, error) {
	var removed uint32

	err := c.forEachEntry(dir, func(blockNum uint32, off int, e dirEntry) (bool, error) {
		if e.Inode == 0 || int(e.NameLen) != len(name) || !bytes.Equal(e.Name, []byte(name)) {
			return true, nil
		}

		block, err := c.dev.readBlock(blockNum)
		if err != nil {
			return false, err
		}

		binary.LittleEndian.PutUint32(block[off:], 0)
		if err := c.dev.writeBlock(blockNum, block); err != nil {
			return false, err
		}

		removed = e.Inode
		return false, nil
	})
	if err != nil {
		return 0, err
	}

	return removed, nil
}

// isDirEmpty reports whether every live entry of the directory is "." or
// "..".
func (c *core) isDirEmpty(dir *inode) (bool, error) {
	empty := true

	err := c.forEachEntry(dir, func(_ uint32, _ int, e dirEntry) (bool, error) {
		if e.Inode == 0 {
			return true, nil
		}
		if bytes.Equal(e.Name, []byte(".")) || bytes.Equal(e.Name, []byte("..")) {
			return true, nil
		}

		empty = false
		return false, nil
	})
	if err != nil {
		return false, err
	}

	return empty, nil
}
