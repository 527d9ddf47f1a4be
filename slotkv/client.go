package slotkv

import (
	"errors"
	"fmt"
	"math"
	"net"
	"strings"
	"time"

	"github.com/0xRadioAc7iv/go-slotkv/internal/config"
	"github.com/0xRadioAc7iv/go-slotkv/internal/protocol"
)

// ErrServer wraps "ERR ..." replies from the server.
var ErrServer = errors.New("server error")

type Client struct {
	conn net.Conn
}

func Connect(opts ...Option) (*Client, error) {
	cfg := config.DefaultClientConfig()

	for _, opt := range opts {
		opt(cfg)
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))

	conn, err := net.DialTimeout("tcp", addr, cfg.DialTimeout)
	if err != nil {
		return nil, err
	}

	return &Client{conn: conn}, nil
}

func (c *Client) Ping() (string, error) {
	return c.sendCommand("ping", "", "", 0)
}

// Create stores a JSON object under a new key. A zero ttl never expires.
func (c *Client) Create(key, value string, ttl time.Duration) (string, error) {
	secs, err := ttlSeconds(ttl)
	if err != nil {
		return "", err
	}
	return c.sendCommand("create", key, value, secs)
}

// Read returns the stored JSON object, or "nil" for a missing key.
func (c *Client) Read(key string) (string, error) {
	return c.sendCommand("read", key, "", 0)
}

func (c *Client) Update(key, value string, ttl time.Duration) (string, error) {
	secs, err := ttlSeconds(ttl)
	if err != nil {
		return "", err
	}
	return c.sendCommand("update", key, value, secs)
}

func (c *Client) Delete(key string) (string, error) {
	return c.sendCommand("delete", key, "", 0)
}

func (c *Client) Count() (string, error) {
	return c.sendCommand("count", "", "", 0)
}

func (c *Client) Exists(key string) (string, error) {
	return c.sendCommand("exists", key, "", 0)
}

func (c *Client) List() (string, error) {
	return c.sendCommand("list", "", "", 0)
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Execute sends a raw command. Server-side errors come back as the reply
// text, not as an error, so a REPL can print them.
func (c *Client) Execute(cmd, key, value string, ttl time.Duration) (string, error) {
	secs, err := ttlSeconds(ttl)
	if err != nil {
		return "", err
	}

	payload, err := protocol.EncodeCommand(cmd, key, value, secs)
	if err != nil {
		return "", err
	}
	return c.roundTrip(payload)
}

func (c *Client) sendCommand(cmd, key, value string, ttl uint32) (string, error) {
	payload, err := protocol.EncodeCommand(cmd, key, value, ttl)
	if err != nil {
		return "", err
	}

	response, err := c.roundTrip(payload)
	if err != nil {
		return "", err
	}

	if msg, ok := strings.CutPrefix(response, protocol.ErrorPrefix); ok {
		return response, fmt.Errorf("%w: %s", ErrServer, msg)
	}
	return response, nil
}

func (c *Client) roundTrip(payload []byte) (string, error) {
	if _, err := c.conn.Write(payload); err != nil {
		return "", err
	}
	return protocol.DecodeResponse(c.conn)
}

func ttlSeconds(ttl time.Duration) (uint32, error) {
	if ttl < 0 {
		return 0, fmt.Errorf("negative ttl %v", ttl)
	}
	secs := int64(ttl / time.Second)
	if secs > math.MaxUint32 {
		return 0, fmt.Errorf("ttl %v too large", ttl)
	}
	return uint32(secs), nil
}
