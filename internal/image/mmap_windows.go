//go:build windows

package image

import (
	"io"
	"os"
)

// mapFile reads the whole image into memory.
//
// On Windows the image is read rather than mapped, so the process keeps its
// own copy. The release function is a no-op.
func mapFile(f *os.File) ([]byte, func([]byte) error, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, err
	}
	if len(data) < HeaderSizeBytes {
		return nil, nil, ErrTruncated
	}

	return data, func([]byte) error { return nil }, nil
}
