package stringmap

import (
	"errors"
	"fmt"

	"github.com/0xRadioAc7iv/go-prespec/internal/layout"
)

var ErrTableFull = errors.New("string map has no free slot")
var ErrDuplicateKey = errors.New("duplicate key")
var ErrEmptyKey = errors.New("empty key")
var ErrNullValue = errors.New("null value pointer")

// Entry is one key/value pair placed by a producer. KeyPtr must point at
// the NUL-terminated copy of Key already laid out in the image.
type Entry struct {
	Key    string
	KeyPtr layout.Pointer
	Value  layout.Pointer
}

// SlotCount returns the number of slots a producer allocates for n keys.
// There is always at least one more slot than keys, so every probe sequence
// reaches an empty slot.
func SlotCount(n int) uint64 {
	return uint64(n + n/3 + 1)
}

// Encode writes a map with size slots at off in buf, placing entries with
// the same probe sequence Lookup follows. buf must already hold the key
// strings the entries point to and have room for TableSize(l, size) bytes
// at off.
func Encode(buf []byte, l layout.Layout, off, size uint64, entries []Entry) error {
	if uint64(len(entries)) > size {
		return fmt.Errorf("%w: %d entries, %d slots", ErrTableFull, len(entries), size)
	}

	end := off + TableSize(l, size)
	if off > uint64(len(buf)) || end > uint64(len(buf)) {
		return layout.ErrOutOfBounds
	}

	if err := l.PutUint64(buf, off, size); err != nil {
		return err
	}
	clear(buf[off+ArraySizeBytes : end])

	used := make([]bool, size)
	seen := make(map[string]struct{}, len(entries))
	slotSize := SlotSize(l)

	for _, e := range entries {
		if e.Key == "" || e.KeyPtr.IsNull() {
			return ErrEmptyKey
		}
		if e.Value.IsNull() {
			return fmt.Errorf("%w for key %q", ErrNullValue, e.Key)
		}
		if _, ok := seen[e.Key]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateKey, e.Key)
		}
		seen[e.Key] = struct{}{}

		idx := Hash(e.Key) % size
		for used[idx] {
			idx++
			if idx == size {
				idx = 0
			}
		}
		used[idx] = true

		slotOff := off + ArraySizeBytes + idx*slotSize
		if err := l.PutPointer(buf, slotOff, e.KeyPtr); err != nil {
			return err
		}
		if err := l.PutPointer(buf, slotOff+uint64(l.PointerSize), e.Value); err != nil {
			return err
		}
	}

	return nil
}
