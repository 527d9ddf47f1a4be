package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetaInfoExpiry(t *testing.T) {
	m := MetaInfo{Key: "k", TTL: 10 * time.Second, CreatedAt: epoch}

	at, ok := m.ExpiryAt()
	require.True(t, ok)
	assert.Equal(t, epoch.Add(10*time.Second), at)

	assert.False(t, m.ExpiredAt(epoch.Add(10*time.Second)))
	assert.True(t, m.ExpiredAt(epoch.Add(11*time.Second)))

	forever := MetaInfo{Key: "f", CreatedAt: epoch}
	_, ok = forever.ExpiryAt()
	assert.False(t, ok)
	assert.False(t, forever.ExpiredAt(epoch.Add(1000*time.Hour)))
}

func TestMetaInfoLessByCreation(t *testing.T) {
	older := MetaInfo{CreatedAt: epoch}
	newer := MetaInfo{CreatedAt: epoch.Add(time.Millisecond)}

	assert.True(t, older.Less(newer))
	assert.False(t, newer.Less(older))
	assert.False(t, older.Less(older))
}

func TestMetaRecordRoundTrip(t *testing.T) {
	created := time.Date(2019, 5, 26, 13, 45, 7, 123456000, time.UTC)

	for _, m := range []MetaInfo{
		{Key: "k", Offset: 2048, TTL: 90 * time.Second, CreatedAt: created},
		{Key: "forever", Offset: 0, CreatedAt: created},
	} {
		rec := m.ToRecord(DefaultTimeFormat)
		assert.Equal(t, "2019-05-26 13:45:07.123456", rec.CreatedAt)
		assert.Equal(t, m.HasTTL(), rec.TTL != nil)

		got, err := MetaInfoFromRecord(m.Key, rec, DefaultTimeFormat)
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}

func TestMetaInfoFromRecordRejectsBadFields(t *testing.T) {
	bad := "soon"
	cases := map[string]MetaRecord{
		"created_at": {Offset: 0, CreatedAt: "yesterday"},
		"ttl":        {Offset: 0, TTL: &bad, CreatedAt: "2019-05-26 00:00:00.000000"},
		"offset":     {Offset: -16, CreatedAt: "2019-05-26 00:00:00.000000"},
	}

	for name, rec := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := MetaInfoFromRecord("k", rec, DefaultTimeFormat)
			assert.ErrorIs(t, err, ErrCorruptMeta)
		})
	}
}

func TestMetaInfoFromRecordFillsKey(t *testing.T) {
	got, err := MetaInfoFromRecord("from-map", MetaRecord{CreatedAt: "2019-05-26 00:00:00.000000"}, DefaultTimeFormat)
	require.NoError(t, err)
	assert.Equal(t, "from-map", got.Key)
}

func TestMetaFileName(t *testing.T) {
	assert.Equal(t, ".store_meta", MetaFileName("store"))
	assert.Equal(t, ".store_meta", MetaFileName(".store"))
}

func TestCodecFor(t *testing.T) {
	for format, want := range map[string]MetaCodec{
		"":     JSONCodec{},
		"json": JSONCodec{},
		"YAML": YAMLCodec{},
		"yml":  YAMLCodec{},
	} {
		got, err := CodecFor(format)
		require.NoError(t, err)
		assert.IsType(t, want, got)
	}

	_, err := CodecFor("toml")
	assert.Error(t, err)
}

func TestMetaFileRoundTrip(t *testing.T) {
	index := map[string]MetaInfo{
		"a": {Key: "a", Offset: 0, TTL: time.Hour, CreatedAt: epoch},
		"b": {Key: "b", Offset: 64, CreatedAt: epoch.Add(time.Second)},
	}

	for _, codec := range []MetaCodec{JSONCodec{}, YAMLCodec{}} {
		path := filepath.Join(t.TempDir(), ".store_meta")

		require.NoError(t, writeMetaFile(path, codec, DefaultTimeFormat, index))

		loaded, err := loadMetaFile(path, codec, DefaultTimeFormat)
		require.NoError(t, err)
		require.Len(t, loaded, len(index))
		for k, m := range index {
			assert.Equal(t, m, *loaded[k])
		}

		matches, err := filepath.Glob(path + ".tmp-*")
		require.NoError(t, err)
		assert.Empty(t, matches, "temp files are renamed away")
	}
}

func TestLoadMetaFileMissingOrEmpty(t *testing.T) {
	dir := t.TempDir()

	index, err := loadMetaFile(filepath.Join(dir, "missing"), JSONCodec{}, DefaultTimeFormat)
	require.NoError(t, err)
	assert.Empty(t, index)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o644))
	index, err = loadMetaFile(empty, JSONCodec{}, DefaultTimeFormat)
	require.NoError(t, err)
	assert.Empty(t, index)
}

func TestLoadMetaFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := loadMetaFile(path, JSONCodec{}, DefaultTimeFormat)
	assert.ErrorIs(t, err, ErrCorruptMeta)
}

func TestTTLFromValue(t *testing.T) {
	cases := []struct {
		name  string
		value Value
		want  time.Duration
	}{
		{"missing", Value{"a": 1}, 0},
		{"float", Value{"ttl": float64(30)}, 30 * time.Second},
		{"int", Value{"ttl": 5}, 5 * time.Second},
		{"string seconds", Value{"ttl": "12"}, 12 * time.Second},
		{"string duration", Value{"ttl": "2m"}, 2 * time.Minute},
		{"negative", Value{"ttl": -3}, 0},
		{"garbage", Value{"ttl": "later"}, 0},
		{"wrong type", Value{"ttl": []any{1}}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TTLFromValue(tc.value))
		})
	}
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue([]byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, Value{"a": float64(1)}, v)

	v, err = ParseValue([]byte(`null`))
	require.NoError(t, err)
	assert.Equal(t, Value{}, v)

	_, err = ParseValue([]byte(`[1,2]`))
	assert.Error(t, err)
}
