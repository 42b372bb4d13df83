package builder

import (
	"sort"
	"strings"
)

// Entry is one prespecialized metadata record queued for a table.
//
// Metadata is opaque to the table: it is copied into the image verbatim and
// consumers only ever see its address.
type Entry struct {
	Key      string // Canonical instantiation key
	Metadata []byte // Record bytes, copied as is
}

// Entries is the producer-side set of records keyed by canonical key. It
// plays the part of an index that is only ever written before the table is
// frozen.
type Entries map[string]Entry

// Sorted returns the entries ordered by key, so the same set always
// produces the same image.
func (e Entries) Sorted() []Entry {
	out := make([]Entry, 0, len(e))
	for _, entry := range e {
		out = append(out, entry)
	}

	sort.Slice(out, func(i, j int) bool {
		return strings.Compare(out[i].Key, out[j].Key) < 0
	})

	return out
}
