package builder

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/0xRadioAc7iv/go-prespec/core"
	"github.com/0xRadioAc7iv/go-prespec/internal/layout"
	"github.com/0xRadioAc7iv/go-prespec/internal/mangle"
)

// Manifest describes an image to build. A manifest looks like:
//
//	major: 1
//	minor: 1
//	pointer_size: 8
//	byte_order: little
//	disabled_processes: [legacy-daemon]
//	entries:
//	  - key: Foo<Int>
//	    metadata: "raw bytes"
//	  - key: Dictionary<String, Int>
//	    metadata_hex: "deadbeef"
//
// Omitted fields take the current version and the host layout.
type Manifest struct {
	Major             *uint32         `yaml:"major"`
	Minor             *uint32         `yaml:"minor"`
	PointerSize       int             `yaml:"pointer_size"`
	ByteOrder         string          `yaml:"byte_order"`
	DisabledProcesses []string        `yaml:"disabled_processes"`
	Entries           []ManifestEntry `yaml:"entries"`
}

type ManifestEntry struct {
	Key         string `yaml:"key"`
	Metadata    string `yaml:"metadata,omitempty"`
	MetadataHex string `yaml:"metadata_hex,omitempty"`
}

func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseManifest(f)
}

func ParseManifest(r io.Reader) (*Manifest, error) {
	m := &Manifest{}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	return m, nil
}

// Layout resolves the manifest's target layout.
func (m *Manifest) Layout() (layout.Layout, error) {
	l := layout.Host()
	if m.PointerSize != 0 {
		l.PointerSize = m.PointerSize
	}

	switch m.ByteOrder {
	case "":
	case "little":
		l.Order = layout.LittleEndian
	case "big":
		l.Order = layout.BigEndian
	default:
		return layout.Layout{}, fmt.Errorf("%w: %q", layout.ErrByteOrder, m.ByteOrder)
	}

	return l, l.Validate()
}

// Builder returns a builder loaded with every entry of the manifest. Keys
// are normalised to canonical spacing, so "Pair<Int,String>" and
// "Pair<Int, String>" name the same entry.
func (m *Manifest) Builder() (*Builder, error) {
	l, err := m.Layout()
	if err != nil {
		return nil, err
	}

	major, minor := core.CurrentMajorVersion, core.CurrentMinorVersion
	if m.Major != nil {
		major = *m.Major
	}
	if m.Minor != nil {
		minor = *m.Minor
	}

	b := New(WithLayout(l), WithVersion(major, minor))

	for _, name := range m.DisabledProcesses {
		if err := b.DisableProcess(name); err != nil {
			return nil, err
		}
	}

	for i, e := range m.Entries {
		t, err := mangle.Parse(e.Key)
		if err != nil {
			return nil, fmt.Errorf("entry %d: key %q: %w", i, e.Key, err)
		}

		metadata := []byte(e.Metadata)
		if e.MetadataHex != "" {
			if e.Metadata != "" {
				return nil, fmt.Errorf("entry %d: both metadata and metadata_hex set", i)
			}
			metadata, err = hex.DecodeString(e.MetadataHex)
			if err != nil {
				return nil, fmt.Errorf("entry %d: metadata_hex: %w", i, err)
			}
		}

		if err := b.Add(t.String(), metadata); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}

	return b, nil
}
