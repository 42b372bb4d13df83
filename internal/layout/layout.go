package layout

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/bits"
)

// Pointer is an image-relative address at the target's pointer width.
// Offset 0 is never a valid object, so the zero Pointer is null.
type Pointer uint64

const Null Pointer = 0

func (p Pointer) IsNull() bool {
	return p == Null
}

func (p Pointer) String() string {
	return fmt.Sprintf("0x%x", uint64(p))
}

// Order identifies the target byte order as stored in an image header.
type Order uint8

const (
	LittleEndian Order = 0
	BigEndian    Order = 1
)

var ErrPointerSize = errors.New("unsupported pointer size")
var ErrByteOrder = errors.New("unsupported byte order")
var ErrOutOfBounds = errors.New("read out of bounds")
var ErrPointerOverflow = errors.New("pointer does not fit target width")

// Layout describes how a target process lays out pointer fields.
//
// Images are produced by a toolchain that may not share the consumer's
// pointer width, so every pointer field is decoded through a Layout rather
// than through the host's native representation.
type Layout struct {
	PointerSize int   // 4 or 8
	Order       Order // byte order of every multi-byte field
}

// Layout32 and Layout64 are the two little-endian layouts in common use.
var (
	Layout32 = Layout{PointerSize: 4, Order: LittleEndian}
	Layout64 = Layout{PointerSize: 8, Order: LittleEndian}
)

// Host returns the layout of the running process.
func Host() Layout {
	l := Layout{PointerSize: bits.UintSize / 8, Order: LittleEndian}
	if binary.NativeEndian.Uint16([]byte{0, 1}) == 1 {
		l.Order = BigEndian
	}
	return l
}

func (l Layout) Validate() error {
	if l.PointerSize != 4 && l.PointerSize != 8 {
		return fmt.Errorf("%w: %d", ErrPointerSize, l.PointerSize)
	}
	if l.Order != LittleEndian && l.Order != BigEndian {
		return fmt.Errorf("%w: %d", ErrByteOrder, l.Order)
	}
	return nil
}

func (l Layout) ByteOrder() binary.ByteOrder {
	if l.Order == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Align rounds off up to the next multiple of the pointer size.
func (l Layout) Align(off uint64) uint64 {
	size := uint64(l.PointerSize)
	return (off + size - 1) &^ (size - 1)
}

func (l Layout) String() string {
	order := "little"
	if l.Order == BigEndian {
		order = "big"
	}
	return fmt.Sprintf("%d-bit %s-endian", l.PointerSize*8, order)
}

// Uint32 reads a 32-bit field at off.
func (l Layout) Uint32(b []byte, off uint64) (uint32, bool) {
	if !inBounds(b, off, 4) {
		return 0, false
	}
	return l.ByteOrder().Uint32(b[off:]), true
}

// Uint64 reads a 64-bit field at off.
func (l Layout) Uint64(b []byte, off uint64) (uint64, bool) {
	if !inBounds(b, off, 8) {
		return 0, false
	}
	return l.ByteOrder().Uint64(b[off:]), true
}

// Pointer reads a target-width pointer field at off.
func (l Layout) Pointer(b []byte, off uint64) (Pointer, bool) {
	if l.PointerSize == 4 {
		v, ok := l.Uint32(b, off)
		return Pointer(v), ok
	}
	v, ok := l.Uint64(b, off)
	return Pointer(v), ok
}

func (l Layout) PutUint32(b []byte, off uint64, v uint32) error {
	if !inBounds(b, off, 4) {
		return ErrOutOfBounds
	}
	l.ByteOrder().PutUint32(b[off:], v)
	return nil
}

func (l Layout) PutUint64(b []byte, off uint64, v uint64) error {
	if !inBounds(b, off, 8) {
		return ErrOutOfBounds
	}
	l.ByteOrder().PutUint64(b[off:], v)
	return nil
}

// PutPointer writes p at off, failing when p does not fit a 32-bit target.
func (l Layout) PutPointer(b []byte, off uint64, p Pointer) error {
	if l.PointerSize == 4 {
		if uint64(p) > math.MaxUint32 {
			return fmt.Errorf("%w: %s", ErrPointerOverflow, p)
		}
		return l.PutUint32(b, off, uint32(p))
	}
	return l.PutUint64(b, off, uint64(p))
}

func inBounds(b []byte, off, n uint64) bool {
	return off <= uint64(len(b)) && n <= uint64(len(b))-off
}
