package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `
pointer_size: 8
byte_order: little
disabled_processes: [legacy-daemon]
entries:
  - key: Foo<Int>
    metadata: "record A"
  - key: Bar<String>
    metadata_hex: "cafe"
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

func TestBuildInfoLookupList(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "table.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(testManifest), 0644))
	img := filepath.Join(dir, "table.pspi")

	out, err := run(t, "build", manifest, "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, img, strings.TrimSpace(out))

	_, err = run(t, "build", manifest, "--log-level", "error")
	assert.Error(t, err, "existing output without --force")

	out, err = run(t, "info", "--image", img, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "version:   1.1")
	assert.Contains(t, out, "64-bit little-endian")
	assert.Contains(t, out, "2 entries")
	assert.Contains(t, out, "disabled:  legacy-daemon")

	out, err = run(t, "lookup", "--image", img, "--log-level", "error", "Foo< Int >", "Baz<Int>")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Foo< Int >\t0x"), lines[0])
	assert.Equal(t, "Baz<Int>\tnil", lines[1])

	out, err = run(t, "list", "--image", img, "--log-level", "error")
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "\tBar<String>"))
	assert.True(t, strings.HasSuffix(lines[1], "\tFoo<Int>"))
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "directory format 1.1")
}
