package core

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/0xRadioAc7iv/go-prespec/internal/layout"
	"github.com/0xRadioAc7iv/go-prespec/internal/mangle"
)

// KeyEncoder renders a generic instantiation into the key space the
// producer built the table with.
type KeyEncoder interface {
	Encode(desc mangle.Descriptor, args []mangle.Type) (string, error)
}

// Directory answers whether a prebuilt metadata record exists for a generic
// instantiation.
//
// The image is located lazily, on the first call to Data, Metadata or
// LookupKey, and exactly once; concurrent first calls all observe the same
// result. Every failure to produce an answer (no image, incompatible major
// version, disabled process, unencodable key, key absent) is reported the
// same way, as a miss.
type Directory struct {
	locator       Locator
	encoder       KeyEncoder
	expectedMajor uint32
	knownMinor    uint32
	enabled       bool
	processName   string

	discoverOnce sync.Once
	data         *Data
}

type Option func(*Directory)

func WithLocator(l Locator) Option {
	return func(d *Directory) {
		d.locator = l
	}
}

func WithEncoder(e KeyEncoder) Option {
	return func(d *Directory) {
		d.encoder = e
	}
}

// WithVersion sets the directory version this consumer was built for.
func WithVersion(major, minor uint32) Option {
	return func(d *Directory) {
		d.expectedMajor = major
		d.knownMinor = minor
	}
}

func WithEnabled(enabled bool) Option {
	return func(d *Directory) {
		d.enabled = enabled
	}
}

// WithProcessName overrides the name matched against the disabled process
// table. It defaults to the base name of os.Args[0].
func WithProcessName(name string) Option {
	return func(d *Directory) {
		d.processName = name
	}
}

func NewDirectory(opts ...Option) *Directory {
	d := &Directory{
		locator:       EnvLocator{},
		encoder:       mangle.Canonical{},
		expectedMajor: CurrentMajorVersion,
		knownMinor:    CurrentMinorVersion,
		enabled:       true,
	}
	if len(os.Args) > 0 {
		d.processName = filepath.Base(os.Args[0])
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Data returns the directory header, or false when this process has no
// usable prespecialization data.
func (d *Directory) Data() (*Data, bool) {
	d.discoverOnce.Do(d.discover)
	return d.data, d.data != nil
}

// Metadata returns the prebuilt metadata record for desc instantiated with
// args, or false when the caller must build the metadata itself.
func (d *Directory) Metadata(desc mangle.Descriptor, args []mangle.Type) (layout.Pointer, bool) {
	data, ok := d.Data()
	if !ok {
		return layout.Null, false
	}

	key, err := d.encoder.Encode(desc, args)
	if err != nil {
		return layout.Null, false
	}

	return data.MetadataMap().Lookup(key)
}

// LookupKey looks up an already encoded key.
func (d *Directory) LookupKey(key string) (layout.Pointer, bool) {
	data, ok := d.Data()
	if !ok {
		return layout.Null, false
	}
	return data.MetadataMap().Lookup(key)
}

// Close releases the located image. It must only be called once nothing
// can look up through d any more.
func (d *Directory) Close() error {
	d.discoverOnce.Do(func() {})
	if d.data == nil {
		return nil
	}
	return d.data.Image().Close()
}

func (d *Directory) discover() {
	log := Logger()

	if !d.enabled {
		log.Debug("prespecializations disabled")
		return
	}

	img, err := d.locator.Locate()
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Debug("no prespecialization image")
		} else {
			log.Warn("failed to locate prespecialization image", zap.Error(err))
		}
		return
	}
	if img == nil {
		log.Debug("no prespecialization image")
		return
	}

	data, err := ReadData(img, d.expectedMajor, d.knownMinor)
	if err != nil {
		log.Warn("ignoring prespecialization image",
			zap.String("image", img.Path()),
			zap.Error(err))
		_ = img.Close()
		return
	}

	if data.IsProcessDisabled(d.processName) {
		log.Info("prespecializations disabled for process",
			zap.String("process", d.processName))
		_ = img.Close()
		return
	}

	log.Info("loaded prespecialization image",
		zap.String("image", img.Path()),
		zap.Uint32("major", data.MajorVersion),
		zap.Uint32("minor", data.MinorVersion),
		zap.Uint64("slots", data.MetadataMap().Size()),
		zap.Stringer("layout", img.Layout()))

	d.data = data
}

// NewEnvDirectory returns a directory configured from the environment: the
// image named by PRESPEC_IMAGE, switched off when PRESPEC_ENABLE parses as
// false. The environment is read now; opts apply on top.
func NewEnvDirectory(opts ...Option) *Directory {
	return NewDirectory(append([]Option{WithEnabled(enabledFromEnv())}, opts...)...)
}

var defaultDirectory = sync.OnceValue(func() *Directory {
	return NewEnvDirectory()
})

// Default returns the process-wide directory built by NewEnvDirectory on
// first use.
func Default() *Directory {
	return defaultDirectory()
}

// GetData returns the process-wide directory header.
func GetData() (*Data, bool) {
	return Default().Data()
}

// GetMetadata consults the process-wide directory.
func GetMetadata(desc mangle.Descriptor, args []mangle.Type) (layout.Pointer, bool) {
	return Default().Metadata(desc, args)
}

func enabledFromEnv() bool {
	v, ok := os.LookupEnv(EnvEnable)
	if !ok || v == "" {
		return true
	}

	enabled, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return enabled
}
