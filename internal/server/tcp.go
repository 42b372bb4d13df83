package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"go.uber.org/zap"
)

// maxPortProbes bounds how far Listen walks past a busy port.
const maxPortProbes = 64

// Listen opens a TCP listener on host:port. When the port is taken the next
// one up is tried, so the returned listener's address may differ from the
// requested port.
func Listen(host string, port int) (net.Listener, error) {
	var lastErr error

	for i := 0; i < maxPortProbes; i++ {
		addr := net.JoinHostPort(host, fmt.Sprint(port+i))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("no free port in [%d, %d): %w", port, port+maxPortProbes, lastErr)
}

// Serve accepts connections on ln until ctx is cancelled and runs handler
// for each one on its own goroutine. It returns nil on a graceful shutdown.
func Serve(ctx context.Context, ln net.Listener, handler func(conn net.Conn)) error {
	log := Logger()

	// When ctx is cancelled, close listener
	stop := context.AfterFunc(ctx, func() {
		ln.Close()
	})
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			// Accept fails once the listener is closed.
			select {
			case <-ctx.Done():
				return nil // graceful shutdown
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Warn("error accepting connection", zap.Error(err))
			continue
		}

		log.Debug("accepted connection", zap.Stringer("remote", conn.RemoteAddr()))
		go handler(conn)
	}
}
