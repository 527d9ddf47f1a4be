package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// Upper bounds on decoded lengths, so a corrupt header cannot make the
// server allocate gigabytes.
const (
	MaxKeyLen = 64 * 1024
	MaxValLen = 16 * 1024 * 1024
)

var (
	ErrCommandTooLong = errors.New("command name longer than 255 bytes")
	ErrFrameTooLarge  = errors.New("frame exceeds size limits")
)

// Command represents a decoded client command received by the slotkv server.
//
// A Command consists of a command name (Cmd), an optional key, an optional
// value and an optional TTL. The meaning of Key, Val and TTL depends on the
// command type (e.g. CREATE, READ, DELETE).
type Command struct {
	Cmd string // Command name (e.g. "create", "read", "delete")
	Key string // Key argument (may be empty)
	Val string // Value argument, a JSON object (may be empty)
	TTL uint32 // Time to live in seconds, 0 for none
}

// EncodeCommand serializes a client command into its wire format.
//
// The command is encoded as:
//
//	<cmd_len:uint8><key_len:uint32><val_len:uint32><ttl:uint32><cmd><key><val>
//
// All integer fields are encoded using big-endian byte order.
// The command name length is limited to 255 bytes.
//
// The returned byte slice is suitable for writing directly to a TCP
// connection.
func EncodeCommand(cmd, key, val string, ttl uint32) ([]byte, error) {
	cmdB := []byte(cmd)
	keyB := []byte(key)
	valB := []byte(val)

	if len(cmdB) > math.MaxUint8 {
		return nil, ErrCommandTooLong
	}

	buf := &bytes.Buffer{}

	buf.WriteByte(uint8(len(cmdB)))
	if err := binary.Write(buf, binary.BigEndian, uint32(len(keyB))); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, uint32(len(valB))); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, ttl); err != nil {
		return nil, err
	}

	buf.Write(cmdB)
	buf.Write(keyB)
	buf.Write(valB)

	return buf.Bytes(), nil
}

// DecodeCommand reads and decodes a command from a connection.
//
// It first reads the length-prefixed header fields, then reads the
// command name, key, and value payloads in sequence.
//
// DecodeCommand blocks until the full command has been read or an
// error occurs. A successfully decoded Command is returned on success.
func DecodeCommand(conn io.Reader) (*Command, error) {
	var cmdLen uint8
	var keyLen uint32
	var valLen uint32
	var ttl uint32

	// Read lengths
	if err := binary.Read(conn, binary.BigEndian, &cmdLen); err != nil {
		return nil, err
	}
	if err := binary.Read(conn, binary.BigEndian, &keyLen); err != nil {
		return nil, err
	}
	if err := binary.Read(conn, binary.BigEndian, &valLen); err != nil {
		return nil, err
	}
	if err := binary.Read(conn, binary.BigEndian, &ttl); err != nil {
		return nil, err
	}
	if keyLen > MaxKeyLen || valLen > MaxValLen {
		return nil, ErrFrameTooLarge
	}

	// Read payload
	cmdB := make([]byte, cmdLen)
	keyB := make([]byte, keyLen)
	valB := make([]byte, valLen)

	if _, err := io.ReadFull(conn, cmdB); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(conn, keyB); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(conn, valB); err != nil {
		return nil, err
	}

	return &Command{
		Cmd: string(cmdB),
		Key: string(keyB),
		Val: string(valB),
		TTL: ttl,
	}, nil
}
