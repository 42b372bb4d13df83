package stringmap

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xRadioAc7iv/go-prespec/internal/layout"
)

// buildTable lays out keys as NUL-terminated strings after a one-pointer
// guard, then encodes a map of the given slot count after them. Each key's
// value is 0x1000 plus its index.
func buildTable(t *testing.T, l layout.Layout, size uint64, keys ...string) ([]byte, layout.Pointer) {
	t.Helper()

	off := uint64(l.PointerSize)
	strs := make([]byte, 0)
	entries := make([]Entry, 0, len(keys))
	for i, k := range keys {
		entries = append(entries, Entry{
			Key:    k,
			KeyPtr: layout.Pointer(off + uint64(len(strs))),
			Value:  layout.Pointer(0x1000 + i),
		})
		strs = append(strs, k...)
		strs = append(strs, 0)
	}

	mapOff := l.Align(off + uint64(len(strs)))
	buf := make([]byte, mapOff+TableSize(l, size))
	copy(buf[off:], strs)

	require.NoError(t, Encode(buf, l, mapOff, size, entries))
	return buf, layout.Pointer(mapOff)
}

func TestLookupRoundTrip(t *testing.T) {
	for _, l := range []layout.Layout{layout.Layout32, layout.Layout64, {PointerSize: 8, Order: layout.BigEndian}} {
		t.Run(l.String(), func(t *testing.T) {
			keys := make([]string, 0, 200)
			for i := 0; i < 200; i++ {
				keys = append(keys, fmt.Sprintf("Array<Type%03d>", i))
			}

			buf, p := buildTable(t, l, SlotCount(len(keys)), keys...)
			m := View(buf, l, p)

			require.Equal(t, SlotCount(len(keys)), m.Size())
			for i, k := range keys {
				v, ok := m.Lookup(k)
				require.True(t, ok, "key %q", k)
				assert.Equal(t, layout.Pointer(0x1000+i), v)
			}
			assert.Equal(t, len(keys), m.Len())
		})
	}
}

func TestLookupMiss(t *testing.T) {
	buf, p := buildTable(t, layout.Layout64, SlotCount(2), "Foo<Int>", "Bar<String>")
	m := View(buf, layout.Layout64, p)

	tests := []struct {
		name string
		key  string
	}{
		{"absent key", "Baz<Int>"},
		{"prefix of stored key", "Foo<In"},
		{"stored key with suffix", "Foo<Int>>"},
		{"empty key", ""},
		{"embedded NUL", "Foo<Int>\x00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := m.Lookup(tt.key)
			assert.False(t, ok)
			assert.True(t, v.IsNull())
		})
	}
}

func TestLookupCollidingKeys(t *testing.T) {
	// Three keys in four slots: most lookup chains pass through foreign
	// keys, so only string comparison can tell them apart.
	keys := []string{"A<Int>", "B<Int>", "C<Int>"}
	buf, p := buildTable(t, layout.Layout64, 4, keys...)
	m := View(buf, layout.Layout64, p)

	for i, k := range keys {
		v, ok := m.Lookup(k)
		require.True(t, ok)
		assert.Equal(t, layout.Pointer(0x1000+i), v)
	}

	// Find a key that lands in the same start slot as a stored key and is
	// still absent.
	target := Hash(keys[0]) % 4
	for i := 0; ; i++ {
		candidate := fmt.Sprintf("Z%d<Int>", i)
		if Hash(candidate)%4 != target {
			continue
		}
		_, ok := m.Lookup(candidate)
		assert.False(t, ok)
		break
	}
}

func TestLookupFullTableTerminates(t *testing.T) {
	// A table with no empty slot is not something a producer emits, but a
	// lookup against it must still stop after one pass.
	keys := []string{"A<Int>", "B<Int>", "C<Int>"}
	buf, p := buildTable(t, layout.Layout64, uint64(len(keys)), keys...)
	m := View(buf, layout.Layout64, p)

	for _, k := range keys {
		_, ok := m.Lookup(k)
		assert.True(t, ok)
	}

	_, ok := m.Lookup("Missing<Int>")
	assert.False(t, ok)
}

func TestViewDegenerateTables(t *testing.T) {
	t.Run("null pointer", func(t *testing.T) {
		m := View([]byte{1, 2, 3}, layout.Layout64, layout.Null)
		_, ok := m.Lookup("Foo<Int>")
		assert.False(t, ok)
		assert.Zero(t, m.Size())
	})

	t.Run("pointer past end", func(t *testing.T) {
		m := View(make([]byte, 16), layout.Layout64, 64)
		_, ok := m.Lookup("Foo<Int>")
		assert.False(t, ok)
	})

	t.Run("zero slots", func(t *testing.T) {
		buf := make([]byte, 16)
		m := View(buf, layout.Layout64, 8)
		_, ok := m.Lookup("Foo<Int>")
		assert.False(t, ok)
		assert.Zero(t, m.Len())
	})

	t.Run("slot count larger than image", func(t *testing.T) {
		buf, p := buildTable(t, layout.Layout64, SlotCount(1), "Foo<Int>")
		require.NoError(t, layout.Layout64.PutUint64(buf, uint64(p), 1<<40))

		m := View(buf, layout.Layout64, p)
		assert.Equal(t, SlotCount(1), m.Size())
	})

	t.Run("key pointer outside image", func(t *testing.T) {
		buf, p := buildTable(t, layout.Layout64, 1, "Foo<Int>")
		slot := uint64(p) + ArraySizeBytes
		require.NoError(t, layout.Layout64.PutPointer(buf, slot, 1<<20))

		m := View(buf, layout.Layout64, p)
		_, ok := m.Lookup("Foo<Int>")
		assert.False(t, ok)
		assert.Zero(t, m.Len())
	})
}

func TestRangeStopsEarly(t *testing.T) {
	buf, p := buildTable(t, layout.Layout64, SlotCount(3), "A<Int>", "B<Int>", "C<Int>")
	m := View(buf, layout.Layout64, p)

	visited := 0
	m.Range(func(string, layout.Pointer) bool {
		visited++
		return false
	})
	assert.Equal(t, 1, visited)
}

func TestEncodeErrors(t *testing.T) {
	l := layout.Layout64
	buf := make([]byte, 256)

	tests := []struct {
		name    string
		size    uint64
		entries []Entry
		wantErr error
	}{
		{
			name:    "too many entries",
			size:    1,
			entries: []Entry{{Key: "a", KeyPtr: 8, Value: 1}, {Key: "b", KeyPtr: 10, Value: 2}},
			wantErr: ErrTableFull,
		},
		{
			name:    "duplicate key",
			size:    4,
			entries: []Entry{{Key: "a", KeyPtr: 8, Value: 1}, {Key: "a", KeyPtr: 10, Value: 2}},
			wantErr: ErrDuplicateKey,
		},
		{
			name:    "empty key",
			size:    4,
			entries: []Entry{{Key: "", KeyPtr: 8, Value: 1}},
			wantErr: ErrEmptyKey,
		},
		{
			name:    "null value",
			size:    4,
			entries: []Entry{{Key: "a", KeyPtr: 8, Value: layout.Null}},
			wantErr: ErrNullValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Encode(buf, l, 128, tt.size, tt.entries)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("buffer too small", func(t *testing.T) {
		err := Encode(make([]byte, 16), l, 8, 4, nil)
		assert.ErrorIs(t, err, layout.ErrOutOfBounds)
	})
}

func TestHashIsFNV1a(t *testing.T) {
	// Reference values of 64-bit FNV-1a.
	assert.Equal(t, uint64(0xcbf29ce484222325), Hash(""))
	assert.Equal(t, uint64(0xaf63dc4c8601ec8c), Hash("a"))
	assert.Equal(t, uint64(0x85944171f73967e8), Hash("foobar"))
}
