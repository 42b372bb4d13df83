// Package builder produces prespecialization images offline.
//
// An image built here is laid out as
//
//	container header | directory header | strings | metadata records |
//	metadata map | disabled process table
//
// with every pointer stored as an offset from the start of the image at the
// requested target layout.
package builder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/0xRadioAc7iv/go-prespec/core"
	"github.com/0xRadioAc7iv/go-prespec/internal/image"
	"github.com/0xRadioAc7iv/go-prespec/internal/layout"
	"github.com/0xRadioAc7iv/go-prespec/internal/lock"
	"github.com/0xRadioAc7iv/go-prespec/internal/stringmap"
)

var ErrEmptyKey = errors.New("empty key")
var ErrKeyContainsNUL = errors.New("key contains NUL")
var ErrDuplicateKey = errors.New("duplicate key")
var ErrEmptyMetadata = errors.New("metadata record is empty")
var ErrEmptyProcessName = errors.New("empty process name")

type Builder struct {
	layout   layout.Layout
	major    uint32
	minor    uint32
	entries  Entries
	disabled []string
}

type Option func(*Builder)

// WithLayout sets the layout of the target process. It defaults to the
// host layout.
func WithLayout(l layout.Layout) Option {
	return func(b *Builder) {
		b.layout = l
	}
}

// WithVersion sets the directory version written into the header. It
// defaults to the current version.
func WithVersion(major, minor uint32) Option {
	return func(b *Builder) {
		b.major = major
		b.minor = minor
	}
}

func New(opts ...Option) *Builder {
	b := &Builder{
		layout:  layout.Host(),
		major:   core.CurrentMajorVersion,
		minor:   core.CurrentMinorVersion,
		entries: make(Entries),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Add queues a metadata record under key.
func (b *Builder) Add(key string, metadata []byte) error {
	if err := validateString(key); err != nil {
		return err
	}
	if len(metadata) == 0 {
		return fmt.Errorf("%w for key %q", ErrEmptyMetadata, key)
	}
	if _, ok := b.entries[key]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}

	b.entries[key] = Entry{Key: key, Metadata: append([]byte(nil), metadata...)}
	return nil
}

// DisableProcess lists a process that must ignore this image. Directory
// versions before minor 1 have no room for the list, so it is dropped
// there.
func (b *Builder) DisableProcess(name string) error {
	if name == "" {
		return ErrEmptyProcessName
	}
	if strings.IndexByte(name, 0) >= 0 {
		return fmt.Errorf("%w: process %q", ErrKeyContainsNUL, name)
	}

	b.disabled = append(b.disabled, name)
	return nil
}

func (b *Builder) Len() int {
	return len(b.entries)
}

// Build lays out the image.
func (b *Builder) Build() ([]byte, error) {
	l := b.layout
	if err := l.Validate(); err != nil {
		return nil, err
	}

	entries := b.entries.Sorted()
	disabled := b.disabled
	if b.minor < core.MinorVersionDisabledProcesses {
		disabled = nil
	}

	// Pass 1: assign offsets.
	dirOff := l.Align(image.HeaderSizeBytes)
	off := dirOff + core.HeaderSize(l, b.minor)

	keyOffs := make([]uint64, len(entries))
	for i, e := range entries {
		keyOffs[i] = off
		off += uint64(len(e.Key)) + 1
	}

	procOffs := make([]uint64, len(disabled))
	for i, name := range disabled {
		procOffs[i] = off
		off += uint64(len(name)) + 1
	}

	recOffs := make([]uint64, len(entries))
	for i, e := range entries {
		off = l.Align(off)
		recOffs[i] = off
		off += uint64(len(e.Metadata))
	}

	slots := stringmap.SlotCount(len(entries))
	mapOff := (off + 7) &^ 7
	off = mapOff + stringmap.TableSize(l, slots)

	var procTableOff uint64
	if len(disabled) > 0 {
		off = l.Align(off)
		procTableOff = off
		off += uint64(len(disabled)+1) * uint64(l.PointerSize)
	}

	// Pass 2: write.
	buf := make([]byte, off)

	if err := l.PutUint32(buf, dirOff, b.major); err != nil {
		return nil, err
	}
	if err := l.PutUint32(buf, dirOff+4, b.minor); err != nil {
		return nil, err
	}
	if err := l.PutPointer(buf, dirOff+8, layout.Pointer(mapOff)); err != nil {
		return nil, err
	}
	if b.minor >= core.MinorVersionDisabledProcesses {
		if err := l.PutPointer(buf, dirOff+8+uint64(l.PointerSize), layout.Pointer(procTableOff)); err != nil {
			return nil, err
		}
	}

	mapEntries := make([]stringmap.Entry, len(entries))
	for i, e := range entries {
		copy(buf[keyOffs[i]:], e.Key)
		copy(buf[recOffs[i]:], e.Metadata)
		mapEntries[i] = stringmap.Entry{
			Key:    e.Key,
			KeyPtr: layout.Pointer(keyOffs[i]),
			Value:  layout.Pointer(recOffs[i]),
		}
	}

	if err := stringmap.Encode(buf, l, mapOff, slots, mapEntries); err != nil {
		return nil, err
	}

	for i, name := range disabled {
		copy(buf[procOffs[i]:], name)
		slot := procTableOff + uint64(i)*uint64(l.PointerSize)
		if err := l.PutPointer(buf, slot, layout.Pointer(procOffs[i])); err != nil {
			return nil, err
		}
	}

	if err := image.Seal(buf, l, layout.Pointer(dirOff)); err != nil {
		return nil, err
	}

	return buf, nil
}

// WriteFile builds the image and atomically replaces path with it. The
// destination directory is locked for the duration of the write so that
// concurrent builds into it fail instead of interleaving.
func (b *Builder) WriteFile(path string) error {
	data, err := b.Build()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	l, err := lock.Acquire(dir)
	if err != nil {
		return err
	}
	defer l.Release()

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// 0 (special bit - ignored), 6 (rw- - owner), 4 (r-- - group), 4 (r-- - others)
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

func validateString(s string) error {
	if s == "" {
		return ErrEmptyKey
	}
	if strings.IndexByte(s, 0) >= 0 {
		return fmt.Errorf("%w: %q", ErrKeyContainsNUL, s)
	}
	return nil
}
