//go:build windows

package lock

import (
	"errors"
	"fmt"
	"os"
)

// acquire creates the lock file exclusively. An existing file means another
// build holds the lock; release removes it again.
func acquire(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, lockedError(path)
		}
		return nil, fmt.Errorf("create lock file: %w", err)
	}

	return f, nil
}

func release(f *os.File) error {
	name := f.Name()
	closeErr := f.Close()
	return errors.Join(closeErr, os.Remove(name))
}
