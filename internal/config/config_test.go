package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	l, err := NewLoader("")
	require.NoError(t, err)

	cfg, err := l.Config()
	require.NoError(t, err)

	assert.Equal(t, DefaultStorageDir, cfg.Storage.Dir)
	assert.EqualValues(t, DefaultValueSize, cfg.Storage.ValueSize)
	assert.EqualValues(t, DefaultMaxFileSize, cfg.Storage.MaxFileSize)
	assert.Equal(t, DefaultTimeFormat, cfg.Storage.TimeFormat)
	assert.Equal(t, "json", cfg.Storage.MetaFormat)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultSyncInterval, cfg.Server.SyncInterval)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slotkv.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  dir: /var/lib/slotkv
  name: users
  value_size: 256
  max_file_size: 4096
  meta_format: YAML
server:
  port: 7000
  sync_interval: 2s
log:
  level: DEBUG
`), 0644))

	l, err := NewLoader(path)
	require.NoError(t, err)

	l.Set(KeyServerPort, 7100)

	cfg, err := l.Config()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/slotkv", cfg.Storage.Dir)
	assert.Equal(t, "users", cfg.Storage.Name)
	assert.EqualValues(t, 256, cfg.Storage.ValueSize)
	assert.EqualValues(t, 4096, cfg.Storage.MaxFileSize)
	assert.Equal(t, "yaml", cfg.Storage.MetaFormat)
	assert.Equal(t, 7100, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Server.SyncInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SLOTKV_STORAGE_VALUE_SIZE", "512")

	l, err := NewLoader("")
	require.NoError(t, err)

	cfg, err := l.Config()
	require.NoError(t, err)
	assert.EqualValues(t, 512, cfg.Storage.ValueSize)
}

func TestValidationRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"max file smaller than a slot", KeyStorageMaxFileSize, 10},
		{"unknown meta format", KeyStorageMetaFormat, "xml"},
		{"port out of range", KeyServerPort, 70000},
		{"unknown log level", KeyLogLevel, "loud"},
		{"name with separator", KeyStorageName, "a/b"},
		{"bad metrics address", KeyMetricsAddr, "not an address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLoader("")
			require.NoError(t, err)

			l.Set(tt.key, tt.value)

			_, err = l.Config()
			assert.Error(t, err)
		})
	}
}

func TestMissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slotkv.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0644))

	l, err := NewLoader(path)
	require.NoError(t, err)

	changed := make(chan *Config, 4)
	l.Watch(func(c *Config) { changed <- c }, nil)

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changed:
			if c.Log.Level == "debug" {
				return
			}
		case <-deadline:
			t.Fatal("config change was not observed")
		}
	}
}
