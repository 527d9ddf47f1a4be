package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"go.uber.org/zap"
)

// Config describes where the TCP server listens.
type Config struct {
	Host string
	Port int

	// MaxPortProbes bounds how many ports above Port are tried when the
	// port is taken. Zero means only Port is tried.
	MaxPortProbes int

	Logger *zap.Logger

	// OnListen, if set, is called with the bound address before the
	// first connection is accepted.
	OnListen func(addr net.Addr)
}

// Starts the TCP Server. It blocks until ctx is cancelled.
func Start(ctx context.Context, cfg Config, handler func(conn net.Conn)) error {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	ln, err := listen(cfg)
	if err != nil {
		return err
	}

	log.Info("server listening", zap.String("addr", ln.Addr().String()))
	if cfg.OnListen != nil {
		cfg.OnListen(ln.Addr())
	}

	// When ctx is cancelled, close listener
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	// Accept Loop
	for {
		conn, err := ln.Accept()
		if err != nil {
			// When ln.Close() is called, Accept() returns an error.
			// This is how we break out of the loop cleanly.
			select {
			case <-ctx.Done():
				return nil // graceful shutdown
			default:
				log.Warn("error accepting connection", zap.Error(err))
				continue
			}
		}

		go handler(conn)
	}
}

// listen binds Host:Port, moving up one port at a time while the port is
// in use.
func listen(cfg Config) (net.Listener, error) {
	port := cfg.Port

	for attempt := 0; ; attempt++ {
		addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", port))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) || attempt >= cfg.MaxPortProbes || port == 0 {
			return nil, err
		}
		port++
	}
}
