package core

import (
	"errors"
	"os"

	"github.com/0xRadioAc7iv/go-prespec/internal/image"
)

// ErrNotFound is returned by a Locator when the process has no
// prespecialization image. It is the normal state, not a failure.
var ErrNotFound = errors.New("no prespecialization image")

// Locator finds the image exporting the directory header. A Directory calls
// Locate at most once.
type Locator interface {
	Locate() (*image.Image, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func() (*image.Image, error)

func (f LocatorFunc) Locate() (*image.Image, error) {
	return f()
}

// FileLocator maps the image at Path.
type FileLocator struct {
	Path string
}

func (fl FileLocator) Locate() (*image.Image, error) {
	if fl.Path == "" {
		return nil, ErrNotFound
	}

	img, err := image.Open(fl.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return img, err
}

// EnvLocator maps the image named by the PRESPEC_IMAGE environment variable.
type EnvLocator struct{}

func (EnvLocator) Locate() (*image.Image, error) {
	return FileLocator{Path: os.Getenv(EnvImagePath)}.Locate()
}

// StaticLocator serves an image already in memory, for example one embedded
// in the binary.
type StaticLocator struct {
	Data []byte
}

func (sl StaticLocator) Locate() (*image.Image, error) {
	if len(sl.Data) == 0 {
		return nil, ErrNotFound
	}
	return image.Parse(sl.Data)
}
