package core

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/0xRadioAc7iv/go-prespec/internal/layout"
	"github.com/0xRadioAc7iv/go-prespec/internal/mangle"
	"github.com/0xRadioAc7iv/go-prespec/internal/protocol"
	"github.com/0xRadioAc7iv/go-prespec/internal/server"
)

const (
	DefaultReadBytes = 16
	MaxReadBytes     = 4096
)

// Service answers lookup requests for a Directory over TCP.
//
// The service does not own the directory: callers close it after Stop.
type Service struct {
	Directory    *Directory
	ListenerHost string
	ListenerPort int

	listener     net.Listener
	serverCancel context.CancelFunc
	serverDone   chan struct{}

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
	connWg sync.WaitGroup
}

func (s *Service) Start() error {
	log := Logger()

	if s.Directory == nil {
		s.Directory = Default()
	}

	ln, err := server.Listen(s.ListenerHost, s.ListenerPort)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.conns = make(map[net.Conn]struct{})

	ctx, cancel := context.WithCancel(context.Background())
	s.serverCancel = cancel
	s.serverDone = make(chan struct{})

	go func() {
		defer close(s.serverDone)
		if err := server.Serve(ctx, ln, s.commandHandler); err != nil {
			log.Error("lookup server stopped abruptly", zap.Error(err))
		}
	}()

	log.Info("lookup server listening", zap.Stringer("addr", ln.Addr()))
	return nil
}

// Addr returns the address the service is bound to, or nil before Start.
func (s *Service) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and every open connection, and waits for their
// handlers to return.
func (s *Service) Stop() {
	if s.serverCancel == nil {
		return
	}
	s.serverCancel()
	<-s.serverDone

	s.connMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connMu.Unlock()

	s.connWg.Wait()
	s.serverCancel = nil
}

func (s *Service) track(conn net.Conn) bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	select {
	case <-s.serverDone:
		return false
	default:
	}
	s.conns[conn] = struct{}{}
	s.connWg.Add(1)
	return true
}

func (s *Service) untrack(conn net.Conn) {
	s.connMu.Lock()
	delete(s.conns, conn)
	s.connMu.Unlock()
	s.connWg.Done()
}

func (s *Service) commandHandler(conn net.Conn) {
	defer conn.Close()

	if !s.track(conn) {
		return
	}
	defer s.untrack(conn)

	for {
		command, err := protocol.DecodeCommand(conn)
		if err != nil {
			Logger().Debug("client disconnected", zap.Stringer("remote", conn.RemoteAddr()))
			return
		}

		s.reply(conn, s.handleCommand(command))
	}
}

func (s *Service) handleCommand(command *protocol.Command) string {
	switch strings.ToLower(command.Cmd) {
	case "ping":
		return "PONG!"
	case "lookup":
		return s.handleCommandLookup(command.Key)
	case "resolve":
		return s.handleCommandResolve(command.Key)
	case "exists":
		return s.handleCommandExists(command.Key)
	case "read":
		return s.handleCommandRead(command.Key, command.Arg)
	case "count":
		return s.handleCommandCount()
	case "list":
		return s.handleCommandList()
	case "info":
		return s.handleCommandInfo()
	case "help":
		return strings.TrimSpace(helpString)
	default:
		return "Invalid Command"
	}
}

func (s *Service) handleCommandLookup(key string) string {
	p, ok := s.Directory.LookupKey(key)
	if !ok {
		return "nil"
	}
	return p.String()
}

func (s *Service) handleCommandResolve(expr string) string {
	t, err := mangle.Parse(expr)
	if err != nil {
		return "Invalid Type Expression"
	}

	desc := mangle.Descriptor{Name: t.Name, Arity: len(t.Args)}
	p, ok := s.Directory.Metadata(desc, t.Args)
	if !ok {
		return "nil"
	}
	return p.String()
}

func (s *Service) handleCommandExists(key string) string {
	_, ok := s.Directory.LookupKey(key)
	return strconv.FormatBool(ok)
}

func (s *Service) handleCommandRead(key, count string) string {
	n := DefaultReadBytes
	if count != "" {
		v, err := strconv.Atoi(count)
		if err != nil || v <= 0 || v > MaxReadBytes {
			return fmt.Sprintf("Invalid Byte Count (1-%d)", MaxReadBytes)
		}
		n = v
	}

	p, ok := s.Directory.LookupKey(key)
	if !ok {
		return "nil"
	}
	data, _ := s.Directory.Data()
	return hex.EncodeToString(recordBytes(data.Image().Bytes(), p, n))
}

// recordBytes returns up to n bytes at p, clamped to the end of the image.
func recordBytes(image []byte, p layout.Pointer, n int) []byte {
	start := uint64(p)
	if start >= uint64(len(image)) {
		return nil
	}
	end := min(start+uint64(n), uint64(len(image)))
	return image[start:end]
}

func (s *Service) handleCommandCount() string {
	data, ok := s.Directory.Data()
	if !ok {
		return "0"
	}
	return strconv.Itoa(data.MetadataMap().Len())
}

func (s *Service) handleCommandList() string {
	data, ok := s.Directory.Data()
	if !ok {
		return "nil"
	}

	var keys []string
	data.MetadataMap().Range(func(key string, _ layout.Pointer) bool {
		keys = append(keys, key)
		return true
	})
	if len(keys) == 0 {
		return "nil"
	}
	slices.Sort(keys)

	return "----- KEYS START -----\n" + strings.Join(keys, "\n") + "\n----- KEYS END -----"
}

func (s *Service) handleCommandInfo() string {
	data, ok := s.Directory.Data()
	if !ok {
		return "nil"
	}

	img := data.Image()
	lines := []string{
		fmt.Sprintf("version: %d.%d", data.MajorVersion, data.MinorVersion),
		fmt.Sprintf("layout: %s", img.Layout()),
		fmt.Sprintf("image: %s", img.Path()),
		fmt.Sprintf("slots: %d", data.MetadataMap().Size()),
		fmt.Sprintf("entries: %d", data.MetadataMap().Len()),
	}
	if disabled := data.DisabledProcesses(); len(disabled) > 0 {
		lines = append(lines, "disabled: "+strings.Join(disabled, ", "))
	}

	return strings.Join(lines, "\n")
}

// ResponseTooLarge replaces a response that cannot be framed.
const ResponseTooLarge = "Response Too Large"

func (s *Service) reply(conn net.Conn, msg string) {
	encodedResponse, err := protocol.EncodeResponse(msg)
	if err != nil {
		Logger().Error("error encoding response", zap.Int("bytes", len(msg)), zap.Error(err))

		// The client is blocked on a frame, so it must get one or lose
		// the connection.
		encodedResponse, err = protocol.EncodeResponse(ResponseTooLarge)
		if err != nil {
			conn.Close()
			return
		}
	}

	if _, err := conn.Write(encodedResponse); err != nil {
		Logger().Debug("client disconnected", zap.Error(err))
	}
}

const helpString = `
Available Commands:

PING
  Check if the server is alive.
  Response: PONG!

LOOKUP <key>
  Look up an encoded metadata key, e.g. Foo<Int>.
  Response: record address | nil

RESOLVE <type>
  Parse a type expression, re-encode it canonically and look it up.
  Response: record address | nil

EXISTS <key>
  Check if a prebuilt record exists for the key.
  Response: true | false

READ <key> [bytes]
  Dump the first bytes of the record as hex (default 16).
  Response: hex | nil

COUNT
  Return the number of prebuilt records.
  Response: integer

LIST
  List all keys in the metadata map.
  Response: list of keys | nil

INFO
  Describe the loaded image.
  Response: image details | nil

HELP (cli only)
  Show this help message.

EXIT (cli only)
  Close the client connection.
`
