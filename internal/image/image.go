// Package image loads prespecialization images: a fixed container header
// followed by a payload whose pointers are offsets from the start of the
// image at the target's pointer width.
package image

import (
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/0xRadioAc7iv/go-prespec/internal/layout"
)

// Image is a loaded, read-only image. The bytes returned by Bytes stay valid
// until Close; nothing in this module ever writes to them.
type Image struct {
	header *Header
	data   []byte
	path   string

	closeOnce sync.Once
	release   func([]byte) error
}

// Parse validates data as an image and wraps it without copying.
func Parse(data []byte) (*Image, error) {
	h, err := DecodeHeaderFromBytes(data)
	if err != nil {
		return nil, err
	}

	if !ValidateCRC(data[HeaderSizeBytes:], h.Checksum) {
		return nil, ErrChecksumMismatch
	}

	return &Image{header: h, data: data}, nil
}

// Open maps the image at path read-only.
func Open(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, release, err := mapFile(f)
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", path, err)
	}

	img, err := Parse(data)
	if err != nil {
		_ = release(data)
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	img.path = path
	img.release = release
	return img, nil
}

func (img *Image) Header() Header {
	return *img.header
}

func (img *Image) Layout() layout.Layout {
	return img.header.Layout()
}

// Symbol returns the address of the directory header, or null when the
// image does not export one.
func (img *Image) Symbol() layout.Pointer {
	return layout.Pointer(img.header.Symbol)
}

// Bytes returns the whole image, header included, so that payload pointers
// index it directly.
func (img *Image) Bytes() []byte {
	return img.data
}

func (img *Image) Path() string {
	return img.path
}

// Close releases the mapping. Lookups against the image after Close are not
// allowed.
func (img *Image) Close() error {
	var err error
	img.closeOnce.Do(func() {
		if img.release != nil {
			err = img.release(img.data)
		}
	})
	return err
}

// Seal writes the container header into the first HeaderSizeBytes of buf,
// which the caller must have reserved, and checksums the rest.
func Seal(buf []byte, l layout.Layout, symbol layout.Pointer) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if len(buf) < HeaderSizeBytes {
		return ErrTruncated
	}
	if uint64(len(buf)) > math.MaxUint32 {
		return fmt.Errorf("image of %d bytes exceeds the 4GiB container limit", len(buf))
	}

	h := &Header{
		Magic:            Magic,
		ContainerVersion: ContainerVersion,
		PointerSize:      uint8(l.PointerSize),
		ByteOrder:        uint8(l.Order),
		Checksum:         CalculateCRC(buf[HeaderSizeBytes:]),
		Symbol:           uint64(symbol),
		Size:             uint32(len(buf)),
	}

	encoded, err := EncodeHeaderToBytes(h)
	if err != nil {
		return err
	}

	copy(buf, encoded)
	return nil
}
