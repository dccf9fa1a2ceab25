package vfs

import "fmt"

// memoryBackend implements diskBackend using an in-memory byte slice.
// Used for testing to avoid file I/O overhead.
type memoryBackend struct {
	data []byte
}

var _ diskBackend = (*memoryBackend)(nil)

func (m *memoryBackend) truncate(size int64) error {
	m.data = make([]byte, size)
	return nil
}

func (m *memoryBackend) readAt(p []byte, off int64) error {
	if off < 0 || off+int64(len(p)) > int64(len(m.data)) {
		return fmt.Errorf("disk read error: offset %d out of range (size %d)", off, len(m.data))
	}
	copy(p, m.data[off:])
	return nil
}

func (m *memoryBackend) writeAt(p []byte, off int64) error {
	if off < 0 || off+int64(len(p)) > int64(len(m.data)) {
		return fmt.Errorf("disk write error: offset %d out of range (size %d)", off, len(m.data))
	}
	copy(m.data[off:], p)
	return nil
}

func (m *memoryBackend) sync() error {
	return nil
}

func (m *memoryBackend) close() error {
	return nil
}
