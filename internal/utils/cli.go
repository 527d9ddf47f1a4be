package utils

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/0xRadioAc7iv/go-slotkv/internal/config"
	"github.com/0xRadioAc7iv/go-slotkv/internal/ttl"
)

const OneMegabyte = 1024 * 1024

// ServerInputs are the command-line settings of the server binary.
// Overrides holds only the flags that were given explicitly, keyed by
// config key, so they win over the config file without masking it.
type ServerInputs struct {
	ConfigPath string
	Overrides  map[string]any
}

func HandleCLIInputs(args []string) (*ServerInputs, error) {
	fs := flag.NewFlagSet("slotkv", flag.ContinueOnError)

	configPath := fs.String("config", "", "Path to a YAML config file")
	dir := fs.String("dir", config.DefaultStorageDir, "Directory holding the value and metadata files")
	name := fs.String("name", "", "Value file name (default: generated)")
	valueSize := fs.Int("value-size", config.DefaultValueSize, "Fixed slot width in bytes")
	maxFileSizeMB := fs.Int("max-file-size", config.DefaultMaxFileSize/OneMegabyte, "Max value file size (in MB)")
	metaFormat := fs.String("meta-format", config.DefaultMetaFormat, "Metadata file format: json or yaml")
	serializeReads := fs.Bool("serialize-reads", false, "Make reads wait for in-flight writes")
	host := fs.String("host", config.DefaultHost, "Host for the TCP server")
	port := fs.Int("port", config.DefaultPort, "Port to use for the TCP Server")
	syncInterval := fs.Duration("sync", config.DefaultSyncInterval, "Interval between checkpoints (0 disables)")
	logLevel := fs.String("log-level", config.DefaultLogLevel, "debug, info, warn or error")
	metricsAddr := fs.String("metrics", "", "Address for the Prometheus /metrics endpoint (empty disables)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	values := map[string]func() any{
		"dir":             func() any { return *dir },
		"name":            func() any { return *name },
		"value-size":      func() any { return *valueSize },
		"max-file-size":   func() any { return int64(*maxFileSizeMB) * OneMegabyte },
		"meta-format":     func() any { return *metaFormat },
		"serialize-reads": func() any { return *serializeReads },
		"host":            func() any { return *host },
		"port":            func() any { return *port },
		"sync":            func() any { return *syncInterval },
		"log-level":       func() any { return *logLevel },
		"metrics":         func() any { return *metricsAddr },
	}
	keys := map[string]string{
		"dir":             config.KeyStorageDir,
		"name":            config.KeyStorageName,
		"value-size":      config.KeyStorageValueSize,
		"max-file-size":   config.KeyStorageMaxFileSize,
		"meta-format":     config.KeyStorageMetaFormat,
		"serialize-reads": config.KeyStorageSerialize,
		"host":            config.KeyServerHost,
		"port":            config.KeyServerPort,
		"sync":            config.KeyServerSyncInterval,
		"log-level":       config.KeyLogLevel,
		"metrics":         config.KeyMetricsAddr,
	}

	inputs := &ServerInputs{ConfigPath: *configPath, Overrides: make(map[string]any)}
	fs.Visit(func(f *flag.Flag) {
		if get, ok := values[f.Name]; ok {
			inputs.Overrides[keys[f.Name]] = get()
		}
	})

	return inputs, nil
}

var ErrEmptyLine = errors.New("empty command")

// SplitStringIntoCommandAndArguments splits a REPL line with shell quoting
// rules into command, key, value and an optional trailing TTL, so JSON
// values can be written inside single quotes:
//
//	create user '{"name": "Ann"}' 30s
func SplitStringIntoCommandAndArguments(line string) (cmd, key, value string, d time.Duration, err error) {
	parts, err := shellquote.Split(line)
	if err != nil {
		return "", "", "", 0, err
	}

	switch len(parts) {
	case 0:
		return "", "", "", 0, ErrEmptyLine
	case 4:
		d, err = ttl.Parse(parts[3])
		if err != nil {
			return "", "", "", 0, err
		}
		fallthrough
	case 3:
		value = parts[2]
		fallthrough
	case 2:
		key = parts[1]
		fallthrough
	case 1:
		cmd = parts[0]
	default:
		return "", "", "", 0, fmt.Errorf("too many arguments: got %d, want at most 4", len(parts))
	}

	return cmd, key, value, d, nil
}
