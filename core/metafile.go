package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/0xRadioAc7iv/go-slotkv/internal/ttl"
)

// MetaRecord is the textual form of a MetaInfo inside a metadata file.
type MetaRecord struct {
	Key       string  `json:"key" yaml:"key"`
	Offset    int64   `json:"offset" yaml:"offset"`
	TTL       *string `json:"ttl" yaml:"ttl"`
	CreatedAt string  `json:"created_at" yaml:"created_at"`
}

// ToRecord renders m with its creation time in timeFormat.
func (m MetaInfo) ToRecord(timeFormat string) MetaRecord {
	rec := MetaRecord{
		Key:       m.Key,
		Offset:    m.Offset,
		CreatedAt: m.CreatedAt.UTC().Format(timeFormat),
	}
	if m.HasTTL() {
		s := ttl.Format(m.TTL)
		rec.TTL = &s
	}
	return rec
}

// MetaInfoFromRecord parses a record written by ToRecord. An empty Key in
// the record is filled from key, the map key it was stored under.
func MetaInfoFromRecord(key string, rec MetaRecord, timeFormat string) (MetaInfo, error) {
	if rec.Key == "" {
		rec.Key = key
	}

	createdAt, err := time.ParseInLocation(timeFormat, rec.CreatedAt, time.UTC)
	if err != nil {
		return MetaInfo{}, fmt.Errorf("%w: key %q: created_at: %v", ErrCorruptMeta, key, err)
	}

	meta := MetaInfo{Key: rec.Key, Offset: rec.Offset, CreatedAt: createdAt}

	if rec.TTL != nil && *rec.TTL != "" {
		d, err := ttl.Parse(*rec.TTL)
		if err != nil {
			return MetaInfo{}, fmt.Errorf("%w: key %q: %v", ErrCorruptMeta, key, err)
		}
		meta.TTL = d
	}

	if rec.Offset < 0 {
		return MetaInfo{}, fmt.Errorf("%w: key %q: negative offset %d", ErrCorruptMeta, key, rec.Offset)
	}

	return meta, nil
}

// MetaCodec turns the whole key -> record map into bytes and back.
type MetaCodec interface {
	Marshal(records map[string]MetaRecord) ([]byte, error)
	Unmarshal(data []byte) (map[string]MetaRecord, error)
}

type JSONCodec struct{}

func (JSONCodec) Marshal(records map[string]MetaRecord) ([]byte, error) {
	return json.MarshalIndent(records, "", "  ")
}

func (JSONCodec) Unmarshal(data []byte) (map[string]MetaRecord, error) {
	records := make(map[string]MetaRecord)
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

type YAMLCodec struct{}

func (YAMLCodec) Marshal(records map[string]MetaRecord) ([]byte, error) {
	return yaml.Marshal(records)
}

func (YAMLCodec) Unmarshal(data []byte) (map[string]MetaRecord, error) {
	records := make(map[string]MetaRecord)
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// CodecFor maps a configured format name to its codec.
func CodecFor(format string) (MetaCodec, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return JSONCodec{}, nil
	case "yaml", "yml":
		return YAMLCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown metadata format %q", format)
	}
}

// MetaFileName returns the metadata file name for a value file name:
// ".<name>_meta", or "<name>_meta" when name is already hidden.
func MetaFileName(name string) string {
	if strings.HasPrefix(name, ".") {
		return name + MetaFileSuffix
	}
	return "." + name + MetaFileSuffix
}

// loadMetaFile reads the index from path. A missing file yields an empty
// index; any other failure is returned.
func loadMetaFile(path string, codec MetaCodec, timeFormat string) (map[string]*MetaInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*MetaInfo), nil
		}
		return nil, err
	}

	index := make(map[string]*MetaInfo)
	if len(strings.TrimSpace(string(data))) == 0 {
		return index, nil
	}

	records, err := codec.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptMeta, err)
	}

	for key, rec := range records {
		meta, err := MetaInfoFromRecord(key, rec, timeFormat)
		if err != nil {
			return nil, err
		}
		index[key] = &meta
	}

	return index, nil
}

// writeMetaFile rewrites path wholesale. The new contents go to a temp
// file in the same directory which is then renamed over path.
func writeMetaFile(path string, codec MetaCodec, timeFormat string, index map[string]MetaInfo) error {
	records := make(map[string]MetaRecord, len(index))
	for key, meta := range index {
		records[key] = meta.ToRecord(timeFormat)
	}

	data, err := codec.Marshal(records)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}
