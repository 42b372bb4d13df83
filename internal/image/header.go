package image

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/0xRadioAc7iv/go-prespec/internal/layout"
)

// Magic identifies a prespecialization image.
var Magic = [4]byte{'P', 'S', 'P', 'I'}

// ContainerVersion is the version of the container header itself, not of
// the prespecialization data it carries.
const ContainerVersion uint16 = 1

// Magic (4) + ContainerVersion (2) + PointerSize (1) + ByteOrder (1) +
// Flags (4) + Checksum (4) + Reserved (4) + Symbol (8) + Size (4)
const HeaderSizeBytes = 32

var ErrBadMagic = errors.New("not a prespecialization image")
var ErrContainerVersion = errors.New("unsupported image container version")
var ErrTruncated = errors.New("image truncated")
var ErrChecksumMismatch = errors.New("image checksum mismatch")

// Header is the fixed container header at offset 0 of every image. It is
// always little endian; the Layout it carries applies to the payload.
type Header struct {
	Magic            [4]byte
	ContainerVersion uint16
	PointerSize      uint8
	ByteOrder        uint8
	Flags            uint32
	Checksum         uint32 // CRC32 of every byte after the header
	Reserved         uint32
	Symbol           uint64 // offset of the directory header, 0 if absent
	Size             uint32 // total image size including the header
}

func (h *Header) Layout() layout.Layout {
	return layout.Layout{PointerSize: int(h.PointerSize), Order: layout.Order(h.ByteOrder)}
}

// EncodeHeaderToBytes serializes h into its 32-byte on-disk form.
func EncodeHeaderToBytes(h *Header) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.Grow(HeaderSizeBytes)

	if err := binary.Write(buf, binary.LittleEndian, h); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DecodeHeaderFromBytes parses and validates the container header at the
// start of data. It does not verify the checksum.
func DecodeHeaderFromBytes(data []byte) (*Header, error) {
	if len(data) < HeaderSizeBytes {
		return nil, ErrTruncated
	}

	h := &Header{}
	if err := binary.Read(bytes.NewReader(data[:HeaderSizeBytes]), binary.LittleEndian, h); err != nil {
		return nil, err
	}

	if h.Magic != Magic {
		return nil, ErrBadMagic
	}
	if h.ContainerVersion != ContainerVersion {
		return nil, fmt.Errorf("%w: %d", ErrContainerVersion, h.ContainerVersion)
	}
	if err := h.Layout().Validate(); err != nil {
		return nil, err
	}
	if uint64(h.Size) != uint64(len(data)) {
		return nil, fmt.Errorf("%w: header says %d bytes, have %d", ErrTruncated, h.Size, len(data))
	}

	return h, nil
}
