package protocol_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/0xRadioAc7iv/go-prespec/internal/protocol"
)

func TestEncodeDecodeCommand(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
		key  string
		arg  string
	}{
		{"LOOKUP command", "lookup", "Foo<Int>", ""},
		{"READ command", "read", "Bar<String>", "32"},
		{"COUNT command", "count", "", ""},
		{"empty key and argument", "ping", "", ""},
		{"expression with spaces", "resolve", "Dictionary<String, Array<Int>>", ""},
		{"unicode key", "lookup", "Box<🚀🔥>", ""},
		{"large key", "lookup", string(make([]byte, 1024)), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server := net.Pipe()
			defer client.Close()
			defer server.Close()

			payload, err := protocol.EncodeCommand(tt.cmd, tt.key, tt.arg)
			if err != nil {
				t.Fatalf("EncodeCommand failed: %v", err)
			}

			go func() {
				_, _ = client.Write(payload)
			}()

			cmd, err := protocol.DecodeCommand(server)
			if err != nil {
				t.Fatalf("DecodeCommand failed: %v", err)
			}

			if cmd.Cmd != tt.cmd {
				t.Errorf("Cmd mismatch: got %q, want %q", cmd.Cmd, tt.cmd)
			}
			if cmd.Key != tt.key {
				t.Errorf("Key mismatch: got %q, want %q", cmd.Key, tt.key)
			}
			if cmd.Arg != tt.arg {
				t.Errorf("Arg mismatch: got %q, want %q", cmd.Arg, tt.arg)
			}
		})
	}
}

func TestDecodeCommand_TruncatedPayload(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	payload, err := protocol.EncodeCommand("read", "Foo<Int>", "16")
	if err != nil {
		t.Fatalf("EncodeCommand failed: %v", err)
	}

	// Write only part of the payload
	go func() {
		_, _ = client.Write(payload[:len(payload)/2])
		client.Close()
	}()

	if _, err := protocol.DecodeCommand(server); err == nil {
		t.Fatalf("expected error on truncated payload, got nil")
	}
}

func TestDecodeCommand_BlocksUntilComplete(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	payload, err := protocol.EncodeCommand("lookup", "Foo<Int>", "")
	if err != nil {
		t.Fatalf("EncodeCommand failed: %v", err)
	}

	done := make(chan struct{})

	go func() {
		_, _ = protocol.DecodeCommand(server)
		close(done)
	}()

	// Ensure decoder is blocked
	select {
	case <-done:
		t.Fatal("DecodeCommand returned early")
	case <-time.After(50 * time.Millisecond):
	}

	_, _ = client.Write(payload)

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("DecodeCommand did not return after full payload")
	}
}

func TestEncodeCommand_RejectsLongCommand(t *testing.T) {
	if _, err := protocol.EncodeCommand(strings.Repeat("x", 256), "", ""); !errors.Is(err, protocol.ErrCommandTooLong) {
		t.Fatalf("expected ErrCommandTooLong, got %v", err)
	}
}

func TestDecodeCommand_RejectsOversizedField(t *testing.T) {
	// cmd_len 4, key_len just past the limit, arg_len 0.
	frame := []byte{4}
	frame = binary.BigEndian.AppendUint32(frame, protocol.MaxFieldSize+1)
	frame = binary.BigEndian.AppendUint32(frame, 0)

	if _, err := protocol.DecodeCommand(bytes.NewReader(frame)); !errors.Is(err, protocol.ErrFieldTooLarge) {
		t.Fatalf("expected ErrFieldTooLarge, got %v", err)
	}
}
