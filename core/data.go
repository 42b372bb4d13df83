package core

import (
	"errors"
	"fmt"

	"github.com/0xRadioAc7iv/go-prespec/internal/image"
	"github.com/0xRadioAc7iv/go-prespec/internal/layout"
	"github.com/0xRadioAc7iv/go-prespec/internal/stringmap"
)

var ErrNoSymbol = errors.New("image does not export " + TopLevelSymbolName)
var ErrHeaderOutOfBounds = errors.New("directory header outside image")
var ErrMajorVersion = errors.New("incompatible major version")

// HeaderSize returns the encoded size of a directory header of the given
// minor version for l.
//
//	<majorVersion:uint32><minorVersion:uint32><metadataMap:pointer>
//	<disabledProcesses:pointer>            (minor >= 1)
func HeaderSize(l layout.Layout, minor uint32) uint64 {
	size := 8 + uint64(l.PointerSize)
	if minor >= MinorVersionDisabledProcesses {
		size += uint64(l.PointerSize)
	}
	return size
}

// Data is a read-only view of the directory header exported by an image.
//
// Fields added by a minor version newer than the one this view was read
// with are left null; the consumer never looks past the fields it knows.
type Data struct {
	MajorVersion uint32
	MinorVersion uint32

	MetadataMapPtr       layout.Pointer
	DisabledProcessesPtr layout.Pointer

	image       *image.Image
	metadataMap stringmap.Map
}

// ReadVersion returns the version pair of the directory header in img
// without interpreting anything else.
func ReadVersion(img *image.Image) (major, minor uint32, err error) {
	sym := img.Symbol()
	if sym.IsNull() {
		return 0, 0, ErrNoSymbol
	}

	l := img.Layout()
	major, ok := l.Uint32(img.Bytes(), uint64(sym))
	if !ok {
		return 0, 0, ErrHeaderOutOfBounds
	}
	minor, ok = l.Uint32(img.Bytes(), uint64(sym)+4)
	if !ok {
		return 0, 0, ErrHeaderOutOfBounds
	}

	return major, minor, nil
}

// ReadData reads the directory header in img as a consumer built for
// expectedMajor.knownMinor would. A major mismatch is an error and nothing
// past the version pair is read.
func ReadData(img *image.Image, expectedMajor, knownMinor uint32) (*Data, error) {
	major, minor, err := ReadVersion(img)
	if err != nil {
		return nil, err
	}
	if major != expectedMajor {
		return nil, fmt.Errorf("%w: image has %d, expected %d", ErrMajorVersion, major, expectedMajor)
	}

	readMinor := min(minor, knownMinor)
	l := img.Layout()
	b := img.Bytes()
	base := uint64(img.Symbol())

	if base+HeaderSize(l, readMinor) > uint64(len(b)) {
		return nil, ErrHeaderOutOfBounds
	}

	d := &Data{MajorVersion: major, MinorVersion: minor, image: img}
	d.MetadataMapPtr, _ = l.Pointer(b, base+8)
	if readMinor >= MinorVersionDisabledProcesses {
		d.DisabledProcessesPtr, _ = l.Pointer(b, base+8+uint64(l.PointerSize))
	}
	d.metadataMap = stringmap.View(b, l, d.MetadataMapPtr)

	return d, nil
}

func (d *Data) Image() *image.Image {
	return d.image
}

// MetadataMap returns the string-keyed metadata map.
func (d *Data) MetadataMap() stringmap.Map {
	return d.metadataMap
}

// DisabledProcesses returns the process names the producer disabled
// prespecializations for. The table is a null-terminated array of string
// pointers.
func (d *Data) DisabledProcesses() []string {
	var names []string
	d.rangeDisabled(func(name string) bool {
		names = append(names, name)
		return true
	})
	return names
}

// IsProcessDisabled reports whether name appears in the disabled table.
func (d *Data) IsProcessDisabled(name string) bool {
	found := false
	d.rangeDisabled(func(n string) bool {
		found = n == name
		return !found
	})
	return found
}

func (d *Data) rangeDisabled(fn func(string) bool) {
	if d.DisabledProcessesPtr.IsNull() {
		return
	}

	l := d.image.Layout()
	b := d.image.Bytes()
	for off := uint64(d.DisabledProcessesPtr); ; off += uint64(l.PointerSize) {
		p, ok := l.Pointer(b, off)
		if !ok || p.IsNull() {
			return
		}

		name, ok := stringmap.CString(b, p)
		if !ok {
			return
		}
		if !fn(name) {
			return
		}
	}
}
