//go:build unix

package cog

import (
	"os"

	"golang.org/x/sys/unix"
)

// mapFile memory-maps f read-only. f can be closed after mapping.
func mapFile(f *os.File, size int) ([]byte, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	// Tiles are read roughly in file order.
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	return data, nil
}

// unmapFile releases a mapping created by mapFile.
func unmapFile(data []byte) error {
	return unix.Munmap(data)
}
