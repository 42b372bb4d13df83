package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFieldSize caps a single key, argument or response payload on the wire.
const MaxFieldSize = 16 << 20

var ErrCommandTooLong = errors.New("command name longer than 255 bytes")
var ErrFieldTooLarge = errors.New("frame field exceeds maximum size")

// Command represents a decoded client request received by the lookup server.
//
// A Command consists of a command name (Cmd), an optional key, and an
// optional argument. The meaning of Key and Arg depends on the command: for
// LOOKUP the key is an encoded metadata key, for RESOLVE it is a type
// expression, and for READ the argument is a byte count.
type Command struct {
	Cmd string // Command name (e.g. "lookup", "count")
	Key string // Key argument (may be empty)
	Arg string // Extra argument (may be empty)
}

// EncodeCommand serializes a client command into its wire format.
//
// The command is encoded as:
//
//	<cmd_len:uint8><key_len:uint32><arg_len:uint32><cmd><key><arg>
//
// All integer fields are encoded using big-endian byte order.
func EncodeCommand(cmd, key, arg string) ([]byte, error) {
	if len(cmd) > 0xff {
		return nil, ErrCommandTooLong
	}
	if len(key) > MaxFieldSize || len(arg) > MaxFieldSize {
		return nil, ErrFieldTooLarge
	}

	buf := &bytes.Buffer{}
	buf.Grow(9 + len(cmd) + len(key) + len(arg))

	buf.WriteByte(uint8(len(cmd)))
	if err := binary.Write(buf, binary.BigEndian, uint32(len(key))); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, uint32(len(arg))); err != nil {
		return nil, err
	}

	buf.WriteString(cmd)
	buf.WriteString(key)
	buf.WriteString(arg)

	return buf.Bytes(), nil
}

// DecodeCommand reads and decodes a command from r.
//
// It blocks until the full command has been read or an error occurs.
// Length fields larger than MaxFieldSize are rejected before any payload
// is allocated.
func DecodeCommand(r io.Reader) (*Command, error) {
	var cmdLen uint8
	var keyLen uint32
	var argLen uint32

	if err := binary.Read(r, binary.BigEndian, &cmdLen); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &keyLen); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &argLen); err != nil {
		return nil, err
	}
	if keyLen > MaxFieldSize || argLen > MaxFieldSize {
		return nil, fmt.Errorf("%w: key %d, arg %d", ErrFieldTooLarge, keyLen, argLen)
	}

	payload := make([]byte, int(cmdLen)+int(keyLen)+int(argLen))
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}

	keyEnd := int(cmdLen) + int(keyLen)
	return &Command{
		Cmd: string(payload[:cmdLen]),
		Key: string(payload[cmdLen:keyEnd]),
		Arg: string(payload[keyEnd:]),
	}, nil
}
