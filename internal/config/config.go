// Package config loads slotkv settings from defaults, an optional YAML
// file and SLOTKV_* environment variables, in increasing priority.
// Command-line flags are applied on top with Loader.Set.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 9999
	DefaultDialTimeout  = 5 * time.Second
	DefaultSyncInterval = 15 * time.Second
	DefaultPortProbes   = 16

	DefaultStorageDir  = "./storage"
	DefaultValueSize   = 1024
	DefaultMaxFileSize = 1024 * 1024 * 1024
	DefaultTimeFormat  = "2006-01-02 15:04:05.000000"
	DefaultMetaFormat  = "json"
	DefaultLogLevel    = "info"
)

// Keys understood by Loader.Set and the config file.
const (
	KeyStorageDir         = "storage.dir"
	KeyStorageName        = "storage.name"
	KeyStorageValueSize   = "storage.value_size"
	KeyStorageMaxFileSize = "storage.max_file_size"
	KeyStorageTimeFormat  = "storage.time_format"
	KeyStorageMetaFormat  = "storage.meta_format"
	KeyStorageSerialize   = "storage.serialize_reads"
	KeyServerHost         = "server.host"
	KeyServerPort         = "server.port"
	KeyServerPortProbes   = "server.port_probes"
	KeyServerSyncInterval = "server.sync_interval"
	KeyLogLevel           = "log.level"
	KeyMetricsAddr        = "metrics.addr"
)

type StorageConfig struct {
	Dir            string `mapstructure:"dir" validate:"required"`
	Name           string `mapstructure:"name" validate:"omitempty,excludesall=/\\"`
	ValueSize      int64  `mapstructure:"value_size" validate:"gt=1"`
	MaxFileSize    int64  `mapstructure:"max_file_size" validate:"gtefield=ValueSize"`
	TimeFormat     string `mapstructure:"time_format" validate:"required"`
	MetaFormat     string `mapstructure:"meta_format" validate:"oneof=json yaml"`
	SerializeReads bool   `mapstructure:"serialize_reads"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host" validate:"required"`
	Port         int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	PortProbes   int           `mapstructure:"port_probes" validate:"gte=0"`
	SyncInterval time.Duration `mapstructure:"sync_interval" validate:"gte=0"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}

type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ClientConfig is what a client needs to reach a server.
type ClientConfig struct {
	Host        string
	Port        int
	DialTimeout time.Duration
}

func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Host:        DefaultHost,
		Port:        DefaultPort,
		DialTimeout: DefaultDialTimeout,
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	validateOnce.Do(func() { validate = validator.New() })

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed '%s' (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Loader wraps a viper instance holding the layered settings.
type Loader struct {
	v *viper.Viper
}

// NewLoader builds a loader with defaults and env overrides. If path is
// not empty the file is read as well and a read failure is returned.
func NewLoader(path string) (*Loader, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SLOTKV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	return &Loader{v: v}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyStorageDir, DefaultStorageDir)
	v.SetDefault(KeyStorageName, "")
	v.SetDefault(KeyStorageValueSize, DefaultValueSize)
	v.SetDefault(KeyStorageMaxFileSize, DefaultMaxFileSize)
	v.SetDefault(KeyStorageTimeFormat, DefaultTimeFormat)
	v.SetDefault(KeyStorageMetaFormat, DefaultMetaFormat)
	v.SetDefault(KeyStorageSerialize, false)
	v.SetDefault(KeyServerHost, DefaultHost)
	v.SetDefault(KeyServerPort, DefaultPort)
	v.SetDefault(KeyServerPortProbes, DefaultPortProbes)
	v.SetDefault(KeyServerSyncInterval, DefaultSyncInterval)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyMetricsAddr, "")
}

// Set overrides key, taking priority over the file and the environment.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// Config decodes and validates the current settings.
func (l *Loader) Config() (*Config, error) {
	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Storage.MetaFormat = strings.ToLower(cfg.Storage.MetaFormat)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watch calls onChange with the reloaded config whenever the config file
// changes. Reloads that fail validation are reported through onError and
// otherwise ignored. Watch does nothing when no file was loaded.
func (l *Loader) Watch(onChange func(*Config), onError func(error)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.Config()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
}
