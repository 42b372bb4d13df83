package stringmap

import (
	"bytes"
	"strings"

	"github.com/0xRadioAc7iv/go-prespec/internal/layout"
)

// ArraySizeBytes is the width of the slot count that precedes the slots.
// It is 8 bytes on every target.
const ArraySizeBytes = 8

// SlotSize returns the size of one {key, value} slot for l.
func SlotSize(l layout.Layout) uint64 {
	return 2 * uint64(l.PointerSize)
}

// TableSize returns the encoded size of a map with n slots.
func TableSize(l layout.Layout, n uint64) uint64 {
	return ArraySizeBytes + n*SlotSize(l)
}

// Map is a read-only view over a prebuilt string-keyed hash table living
// inside an image. The encoded form is:
//
//	<arraySize:uint64><slot 0>...<slot arraySize-1>
//	slot := <key:pointer><value:pointer>
//
// Keys are pointers to NUL-terminated strings in the same image. A null key
// pointer marks an empty slot. Map never validates the table up front and
// never writes to it; a malformed table degrades to misses.
type Map struct {
	image  []byte
	layout layout.Layout
	base   uint64
	size   uint64
}

// View returns the map whose header starts at p inside image. A header that
// falls outside image yields an empty map.
func View(image []byte, l layout.Layout, p layout.Pointer) Map {
	m := Map{image: image, layout: l, base: uint64(p)}
	if p.IsNull() {
		return m
	}

	size, ok := l.Uint64(image, m.base)
	if !ok {
		return m
	}

	// Clamp the slot count to what the image can actually hold so probing
	// never walks past the end of the mapping.
	room := (uint64(len(image)) - m.base - ArraySizeBytes) / SlotSize(l)
	if size > room {
		size = room
	}

	m.size = size
	return m
}

// Size returns the number of slots, occupied or not.
func (m Map) Size() uint64 {
	return m.size
}

// Lookup returns the value stored for key.
//
// Probing starts at Hash(key) % Size and steps linearly, wrapping at the end
// of the slot array. It stops at the first empty slot or after Size probes,
// whichever comes first.
func (m Map) Lookup(key string) (layout.Pointer, bool) {
	if key == "" || strings.IndexByte(key, 0) >= 0 || m.size == 0 {
		return layout.Null, false
	}

	start := Hash(key) % m.size
	for i := uint64(0); i < m.size; i++ {
		idx := start + i
		if idx >= m.size {
			idx -= m.size
		}

		k, v, ok := m.slot(idx)
		if !ok || k.IsNull() {
			return layout.Null, false
		}

		if m.keyEquals(k, key) {
			if v.IsNull() {
				return layout.Null, false
			}
			return v, true
		}
	}

	return layout.Null, false
}

// Len counts occupied slots. It walks the whole table and is meant for
// tooling, not for the lookup path.
func (m Map) Len() int {
	n := 0
	m.Range(func(string, layout.Pointer) bool {
		n++
		return true
	})
	return n
}

// Range calls fn for every occupied slot in slot order until fn returns
// false. Slots whose key cannot be read are skipped.
func (m Map) Range(fn func(key string, value layout.Pointer) bool) {
	for idx := uint64(0); idx < m.size; idx++ {
		k, v, ok := m.slot(idx)
		if !ok || k.IsNull() {
			continue
		}

		key, ok := m.cstring(k)
		if !ok {
			continue
		}

		if !fn(key, v) {
			return
		}
	}
}

func (m Map) slot(idx uint64) (key, value layout.Pointer, ok bool) {
	off := m.base + ArraySizeBytes + idx*SlotSize(m.layout)

	key, ok = m.layout.Pointer(m.image, off)
	if !ok {
		return layout.Null, layout.Null, false
	}

	value, ok = m.layout.Pointer(m.image, off+uint64(m.layout.PointerSize))
	return key, value, ok
}

// keyEquals compares the NUL-terminated string at p with key without
// allocating.
func (m Map) keyEquals(p layout.Pointer, key string) bool {
	off := uint64(p)
	end := off + uint64(len(key))
	if off >= uint64(len(m.image)) || end >= uint64(len(m.image)) || end < off {
		return false
	}

	return m.image[end] == 0 && string(m.image[off:end]) == key
}

func (m Map) cstring(p layout.Pointer) (string, bool) {
	off := uint64(p)
	if off >= uint64(len(m.image)) {
		return "", false
	}

	n := bytes.IndexByte(m.image[off:], 0)
	if n < 0 {
		return "", false
	}

	return string(m.image[off : off+uint64(n)]), true
}

// CString reads the NUL-terminated string at p inside image.
func CString(image []byte, p layout.Pointer) (string, bool) {
	if p.IsNull() {
		return "", false
	}
	return Map{image: image}.cstring(p)
}
