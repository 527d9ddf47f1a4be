// Package logging builds the zap loggers used by the slotkv binaries.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production JSON logger at the given level together with
// the handle that changes its level at runtime.
func New(level string) (*zap.Logger, zap.AtomicLevel, error) {
	atom := zap.NewAtomicLevel()
	if err := SetLevel(atom, level); err != nil {
		return nil, atom, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = atom
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, atom, err
	}
	return logger, atom, nil
}

// NewConsole is the human readable variant used by the interactive CLI.
func NewConsole(level string) (*zap.Logger, error) {
	atom := zap.NewAtomicLevel()
	if err := SetLevel(atom, level); err != nil {
		return nil, err
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = atom
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// SetLevel parses level ("debug", "info", "warn", "error") into atom.
func SetLevel(atom zap.AtomicLevel, level string) error {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return fmt.Errorf("unknown log level %q", level)
	}
	atom.SetLevel(l)
	return nil
}
