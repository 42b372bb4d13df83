package server

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	logger atomic.Pointer[zap.Logger]
	nop    = zap.NewNop()
)

// Logger returns the server package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return nop
}

// SetLogger configures the server package's logger. A nil logger restores
// the no-op default. It is safe to call while the package is in use.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}
