package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// Indicates if the given path exists or not (works for both files and directories)
func PathExists(filepath string) bool {
	_, err := os.Stat(filepath)
	return err == nil
}

// ReplaceExt swaps the extension of path for ext, which includes the dot.
func ReplaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
