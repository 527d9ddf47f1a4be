package slotkv

import (
	"time"

	"github.com/0xRadioAc7iv/go-slotkv/internal/config"
)

type Option func(*config.ClientConfig)

func WithHost(host string) Option {
	return func(c *config.ClientConfig) {
		c.Host = host
	}
}

func WithPort(port int) Option {
	return func(c *config.ClientConfig) {
		c.Port = port
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(c *config.ClientConfig) {
		c.DialTimeout = d
	}
}
