package protocol

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Replies with a fixed meaning.
const (
	ReplyOK     = "ok"
	ReplyNil    = "nil"
	ReplyPong   = "PONG!"
	ErrorPrefix = "ERR "
	ReplyTrue   = "true"
	ReplyFalse  = "false"
)

// EncodeResponse serializes a reply as <len:uint32><bytes>, big-endian.
func EncodeResponse(resp string) ([]byte, error) {
	respB := []byte(resp)

	buf := &bytes.Buffer{}

	if err := binary.Write(buf, binary.BigEndian, uint32(len(respB))); err != nil {
		return nil, err
	}

	buf.Write(respB)

	return buf.Bytes(), nil
}

// DecodeResponse reads one reply written by EncodeResponse.
func DecodeResponse(conn io.Reader) (string, error) {
	var respLen uint32

	if err := binary.Read(conn, binary.BigEndian, &respLen); err != nil {
		return "", err
	}

	if respLen > MaxValLen {
		return "", ErrFrameTooLarge
	}

	buf := make([]byte, respLen)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return "", err
	}

	return string(buf), nil
}
