package vfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestCore formats a 1 MiB in-memory image and returns its core.
func newTestCore(t *testing.T) *core {
	t.Helper()
	return newTestCoreSized(t, 1<<20)
}

func newTestCoreSized(t *testing.T, sizeBytes uint64) *core {
	t.Helper()

	c, err := formatImage(&memoryBackend{}, sizeBytes)
	require.NoError(t, err, "failed to format test image")

	return c
}

// writeTestFile ingests the given bytes into the image at virtPath by way
// of a temporary host file.
func writeTestFile(t *testing.T, c *core, virtPath string, data []byte) {
	t.Helper()

	hostPath := filepath.Join(t.TempDir(), "in.bin")
	require.NoError(t, os.WriteFile(hostPath, data, 0o644))
	require.NoError(t, c.copyFromSystem(hostPath, virtPath))
}

// readTestFile extracts virtPath into a temporary host file and returns
// its bytes.
func readTestFile(t *testing.T, c *core, virtPath string) []byte {
	t.Helper()

	hostPath := filepath.Join(t.TempDir(), "out.bin")
	require.NoError(t, c.copyToSystem(virtPath, hostPath))

	data, err := os.ReadFile(hostPath)
	require.NoError(t, err)

	return data
}

// countFreeBits returns the number of zero bits the bitmap holds for the
// image's blocks.
func countFreeBits(c *core) uint32 {
	var free uint32
	for i := uint32(0); i < c.sb.BlocksCount; i++ {
		if !c.blockInUse(i) {
			free++
		}
	}
	return free
}
