//go:build unix

package image

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// mapFile maps f read-only and shared, so every process loading the same
// image shares its pages.
//
// On Unix systems this uses mmap(2). The returned release function unmaps
// the region; the file itself may be closed as soon as mapFile returns.
func mapFile(f *os.File) ([]byte, func([]byte) error, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}

	size := info.Size()
	if size < HeaderSizeBytes {
		return nil, nil, ErrTruncated
	}
	if int64(int(size)) != size {
		return nil, nil, errors.New("image too large to map")
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}

	return data, unix.Munmap, nil
}
