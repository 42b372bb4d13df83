package prespec

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/0xRadioAc7iv/go-prespec/internal"
	"github.com/0xRadioAc7iv/go-prespec/internal/protocol"
)

const nilResponse = "nil"

const (
	listStart = "----- KEYS START -----"
	listEnd   = "----- KEYS END -----"
)

// ErrUnexpectedResponse is returned when the server answers with something
// the typed helpers cannot interpret.
var ErrUnexpectedResponse = errors.New("unexpected server response")

// Client is a connection to a lookup server. It is safe for concurrent use;
// requests are serialized over the one connection.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
}

func Connect(opts ...Option) (*Client, error) {
	return ConnectContext(context.Background(), opts...)
}

func ConnectContext(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := internal.DefaultConfig()

	for _, opt := range opts {
		opt(cfg)
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	return &Client{conn: conn}, nil
}

func (c *Client) Ping() (string, error) {
	return c.sendCommand("ping", "", "")
}

// Lookup returns the record address the server holds for an encoded key.
func (c *Client) Lookup(key string) (uint64, bool, error) {
	res, err := c.sendCommand("lookup", key, "")
	if err != nil {
		return 0, false, err
	}
	return parseAddress(res)
}

// Resolve asks the server to parse expr as a type expression and look up
// its canonical encoding.
func (c *Client) Resolve(expr string) (uint64, bool, error) {
	res, err := c.sendCommand("resolve", expr, "")
	if err != nil {
		return 0, false, err
	}
	return parseAddress(res)
}

func (c *Client) Exists(key string) (bool, error) {
	res, err := c.sendCommand("exists", key, "")
	if err != nil {
		return false, err
	}

	ok, err := strconv.ParseBool(res)
	if err != nil {
		return false, fmt.Errorf("%w: %q", ErrUnexpectedResponse, res)
	}
	return ok, nil
}

// Read returns up to n bytes of the record stored for key. A zero n lets
// the server pick its default.
func (c *Client) Read(key string, n int) ([]byte, bool, error) {
	arg := ""
	if n > 0 {
		arg = strconv.Itoa(n)
	}

	res, err := c.sendCommand("read", key, arg)
	if err != nil {
		return nil, false, err
	}
	if res == nilResponse {
		return nil, false, nil
	}

	b, err := hex.DecodeString(res)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %q", ErrUnexpectedResponse, res)
	}
	return b, true, nil
}

func (c *Client) Count() (int, error) {
	res, err := c.sendCommand("count", "", "")
	if err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(res)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnexpectedResponse, res)
	}
	return n, nil
}

func (c *Client) List() ([]string, error) {
	res, err := c.sendCommand("list", "", "")
	if err != nil {
		return nil, err
	}
	if res == nilResponse {
		return nil, nil
	}

	lines := strings.Split(res, "\n")
	if len(lines) < 2 || lines[0] != listStart || lines[len(lines)-1] != listEnd {
		return nil, fmt.Errorf("%w: malformed key list", ErrUnexpectedResponse)
	}
	return lines[1 : len(lines)-1], nil
}

func (c *Client) Info() (string, error) {
	return c.sendCommand("info", "", "")
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Execute sends a raw command and returns the server's response verbatim.
func (c *Client) Execute(cmd, key, arg string) (string, error) {
	return c.sendCommand(cmd, key, arg)
}

func (c *Client) sendCommand(cmd, key, arg string) (string, error) {
	payload, err := protocol.EncodeCommand(cmd, key, arg)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.conn.Write(payload); err != nil {
		return "", err
	}

	return protocol.DecodeResponse(c.conn)
}

func parseAddress(res string) (uint64, bool, error) {
	if res == nilResponse {
		return 0, false, nil
	}

	hexDigits, found := strings.CutPrefix(res, "0x")
	if !found {
		return 0, false, fmt.Errorf("%w: %q", ErrUnexpectedResponse, res)
	}
	addr, err := strconv.ParseUint(hexDigits, 16, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %q", ErrUnexpectedResponse, res)
	}
	return addr, true, nil
}
