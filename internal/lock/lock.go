// Package lock guards an output directory against concurrent image builds.
//
// A build holds the lock from before its temporary file is created until
// the finished image has been renamed into place, so two builds targeting
// the same directory cannot interleave their renames.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileName is the lock file created inside a locked output directory.
const FileName = ".prespec-build.lock"

var ErrLocked = errors.New("output directory locked by another image build")

// Lock is a held build lock. The lock file records the pid of the holder.
type Lock struct {
	f    *os.File
	path string
}

// Acquire takes the build lock for dir without blocking. It fails with an
// error wrapping ErrLocked when another build holds it.
func Acquire(dir string) (*Lock, error) {
	path := filepath.Join(dir, FileName)

	f, err := acquire(path)
	if err != nil {
		return nil, err
	}

	// The pid is informational; a build that cannot record it still holds
	// the lock.
	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}

	return &Lock{f: f, path: path}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release gives the lock up. Releasing twice is a no-op.
func (l *Lock) Release() error {
	if l.f == nil {
		return nil
	}
	err := release(l.f)
	l.f = nil
	return err
}

// lockedError reports who holds the lock at path, when the lock file says.
func lockedError(path string) error {
	b, err := os.ReadFile(path)
	if pid := strings.TrimSpace(string(b)); err == nil && pid != "" {
		return fmt.Errorf("%w: %s (held by pid %s)", ErrLocked, path, pid)
	}
	return fmt.Errorf("%w: %s", ErrLocked, path)
}
