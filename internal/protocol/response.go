package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// EncodeResponse frames resp as <len:uint32><resp>, big-endian.
func EncodeResponse(resp string) ([]byte, error) {
	if len(resp) > MaxFieldSize {
		return nil, ErrFieldTooLarge
	}

	buf := &bytes.Buffer{}
	buf.Grow(4 + len(resp))

	if err := binary.Write(buf, binary.BigEndian, uint32(len(resp))); err != nil {
		return nil, err
	}

	buf.WriteString(resp)

	return buf.Bytes(), nil
}

func DecodeResponse(r io.Reader) (string, error) {
	var respLen uint32

	if err := binary.Read(r, binary.BigEndian, &respLen); err != nil {
		return "", err
	}
	if respLen > MaxFieldSize {
		return "", fmt.Errorf("%w: response %d", ErrFieldTooLarge, respLen)
	}

	buf := make([]byte, respLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}

	return string(buf), nil
}
