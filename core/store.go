package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/0xRadioAc7iv/go-slotkv/internal/lock"
	"github.com/0xRadioAc7iv/go-slotkv/internal/record"
	"github.com/0xRadioAc7iv/go-slotkv/internal/validate"
)

// Value is what a key stores: a JSON object.
type Value map[string]any

// Options configure a Store. Zero fields take the package defaults.
//
// ValueSize and TimeFormat must stay the same for the lifetime of a store
// on disk; reopening with a different ValueSize is reported as a corrupt
// metadata file.
type Options struct {
	Dir         string
	Name        string // value file name inside Dir
	ValueSize   int    // fixed slot width in bytes
	MaxFileSize int64  // ceiling on value file growth
	TimeFormat  string // layout for created_at in the metadata file
	MetaFormat  string // "json" or "yaml"

	// SerializeReads makes Read wait for in-flight writers. By default
	// reads only lock the index, and a read racing a rewrite of the same
	// slot may observe a torn record.
	SerializeReads bool

	Now        func() time.Time
	Logger     *zap.Logger
	Registerer prometheus.Registerer
}

func (o Options) withDefaults() Options {
	if o.Dir == "" {
		o.Dir = DefaultStorageDir
	}
	if o.Name == "" {
		o.Name = DefaultNamePrefix + uuid.NewString()
	}
	if o.ValueSize == 0 {
		o.ValueSize = DefaultValueSize
	}
	if o.MaxFileSize == 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	if o.TimeFormat == "" {
		o.TimeFormat = DefaultTimeFormat
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

func (o Options) check() error {
	if o.ValueSize <= 0 {
		return fmt.Errorf("value size must be positive, got %d", o.ValueSize)
	}
	if o.MaxFileSize < int64(o.ValueSize) {
		return fmt.Errorf("max file size %d is smaller than one slot (%d)", o.MaxFileSize, o.ValueSize)
	}
	if strings.ContainsAny(o.Name, `/\`) {
		return fmt.Errorf("store name %q must not contain path separators", o.Name)
	}
	return nil
}

// Store is a fixed-slot key-value store over a value file and a metadata
// file. Open starts a session and Close ends it; the metadata file is only
// guaranteed to match the value file after Close or Sync.
//
// Create, Update and Delete are serialized by one lock for the whole store.
// Read does not take it unless Options.SerializeReads is set.
type Store struct {
	opts      Options
	limits    validate.Limits
	codec     MetaCodec
	valuePath string
	metaPath  string

	lockFile  *os.File
	valueFile *os.File

	writeMu sync.RWMutex // writers hold it exclusively; see SerializeReads
	indexMu sync.RWMutex // guards the allocator's index against readers
	alloc   *SlotAllocator
	size    int64 // end of the value file, slot aligned; guarded by writeMu

	closed  atomic.Bool
	metrics *Metrics
	log     *zap.Logger
}

// Open starts a session on the store described by opts. The value file is
// created if missing and the index is loaded from the metadata file. Any
// failure here is returned and leaves nothing open.
func Open(opts Options) (*Store, error) {
	opts = opts.withDefaults()
	if err := opts.check(); err != nil {
		return nil, err
	}

	codec, err := CodecFor(opts.MetaFormat)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.Dir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	s := &Store{
		opts: opts,
		limits: validate.Limits{
			MaxKeySize:  MaxKeySize,
			ValueSize:   opts.ValueSize,
			MaxFileSize: opts.MaxFileSize,
		},
		codec:     codec,
		valuePath: filepath.Join(opts.Dir, opts.Name),
		metaPath:  filepath.Join(opts.Dir, MetaFileName(opts.Name)),
		metrics:   NewMetrics(opts.Registerer, opts.Name),
		log:       opts.Logger.With(zap.String("store", opts.Name)),
	}

	lockPath := filepath.Join(opts.Dir, "."+strings.TrimPrefix(opts.Name, ".")+LockFileSuffix)
	s.lockFile, err = lock.Acquire(lockPath)
	if err != nil {
		return nil, err
	}

	if err := s.openFiles(); err != nil {
		s.release()
		return nil, err
	}

	s.log.Info("store opened",
		zap.String("path", s.valuePath),
		zap.Int("keys", s.alloc.Len()),
		zap.Int("free_slots", len(s.alloc.freeSlots)),
		zap.Int64("size", s.size),
	)
	s.updateGauges()

	return s, nil
}

func (s *Store) openFiles() error {
	f, err := os.OpenFile(s.valuePath, os.O_CREATE|os.O_RDWR, filePerm)
	if err != nil {
		return fmt.Errorf("opening value file: %w", err)
	}
	s.valueFile = f

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("reading value file size: %w", err)
	}

	width := int64(s.opts.ValueSize)
	s.size = info.Size()
	if rem := s.size % width; rem != 0 {
		s.log.Warn("value file ends in a partial slot", zap.Int64("size", s.size))
		s.size += width - rem
	}

	index, err := loadMetaFile(s.metaPath, s.codec, s.opts.TimeFormat)
	if err != nil {
		return fmt.Errorf("loading metadata %s: %w", s.metaPath, err)
	}
	if err := checkIndex(index, width); err != nil {
		return fmt.Errorf("loading metadata %s: %w", s.metaPath, err)
	}

	s.alloc = NewSlotAllocator(index, s.opts.ValueSize, s.opts.Now)
	return nil
}

// checkIndex rejects indexes whose offsets are not slot aligned or are
// shared by two keys.
func checkIndex(index map[string]*MetaInfo, width int64) error {
	owners := make(map[int64]string, len(index))
	for key, meta := range index {
		if meta.Offset%width != 0 {
			return fmt.Errorf("%w: key %q at offset %d is not a multiple of slot width %d",
				ErrCorruptMeta, key, meta.Offset, width)
		}
		if other, dup := owners[meta.Offset]; dup {
			return fmt.Errorf("%w: keys %q and %q share offset %d", ErrCorruptMeta, key, other, meta.Offset)
		}
		owners[meta.Offset] = key
	}
	return nil
}

// WithStore opens a store, runs fn and closes the store whatever fn does.
// Errors from fn and from Close are both returned.
func WithStore(opts Options, fn func(*Store) error) (err error) {
	s, err := Open(opts)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Close())
	}()

	return fn(s)
}

// Create stores value under key, which must not exist yet.
//
// A ttl of zero falls back to a numeric "ttl" member of value, in seconds.
// Validation failures come back as *ValidationError and write nothing.
func (s *Store) Create(key string, value Value, ttl time.Duration) (err error) {
	defer func() { s.metrics.observe("create", err) }()

	payload, ttl, err := s.prepare(value, ttl)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.Load() {
		return ErrStoreClosed
	}
	if _, ok := s.alloc.Read(key); ok {
		return fmt.Errorf("%w: %q", ErrKeyExists, key)
	}

	now := s.opts.Now()
	offset := s.alloc.nextOffsetAt(s.size, now)

	if violations := validate.All(s.limits, key, payload, offset); len(violations) > 0 {
		s.log.Warn("create rejected", zap.String("key", key), zap.Errors("violations", violations))
		return &ValidationError{Violations: violations}
	}

	if err := s.commit(payload, offset); err != nil {
		return err
	}

	s.indexMu.Lock()
	committed, source := s.alloc.createAt(key, s.size, ttl, now)
	s.indexMu.Unlock()

	s.grow(committed)
	s.metrics.Allocations.WithLabelValues(string(source)).Inc()
	s.updateGauges()

	s.log.Debug("created",
		zap.String("key", key),
		zap.Int64("offset", committed),
		zap.String("source", string(source)),
		zap.Duration("ttl", ttl),
	)
	return nil
}

// Read returns the value stored under key, or ErrKeyNotFound.
func (s *Store) Read(key string) (Value, error) {
	raw, err := s.ReadRaw(key)
	if err != nil {
		return nil, err
	}

	value, err := ParseValue(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding value of %q: %w", key, err)
	}
	return value, nil
}

// ReadRaw returns the serialized value stored under key with its padding
// stripped.
func (s *Store) ReadRaw(key string) (raw []byte, err error) {
	defer func() { s.metrics.observe("read", err) }()

	if s.opts.SerializeReads {
		s.writeMu.RLock()
		defer s.writeMu.RUnlock()
	}
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	s.indexMu.RLock()
	meta, ok := s.alloc.Read(key)
	s.indexMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}

	buf := make([]byte, s.opts.ValueSize)
	n, err := s.valueFile.ReadAt(buf, meta.Offset)
	if err != nil && !(errors.Is(err, io.EOF) && n == len(buf)) {
		return nil, fmt.Errorf("reading slot at %d: %w", meta.Offset, err)
	}

	return record.DecodeSlot(buf, s.opts.ValueSize)
}

// Update rewrites the value of an existing key in place and replaces its
// metadata, ttl included. The ttl fallback is the same as for Create.
func (s *Store) Update(key string, value Value, ttl time.Duration) (err error) {
	defer func() { s.metrics.observe("update", err) }()

	payload, ttl, err := s.prepare(value, ttl)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.Load() {
		return ErrStoreClosed
	}

	meta, ok := s.alloc.Read(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}

	if violations := validate.All(s.limits, key, payload, meta.Offset); len(violations) > 0 {
		s.log.Warn("update rejected", zap.String("key", key), zap.Errors("violations", violations))
		return &ValidationError{Violations: violations}
	}

	if err := s.commit(payload, meta.Offset); err != nil {
		return err
	}

	s.indexMu.Lock()
	s.alloc.Update(key, meta.Offset, ttl)
	s.indexMu.Unlock()

	s.log.Debug("updated", zap.String("key", key), zap.Int64("offset", meta.Offset), zap.Duration("ttl", ttl))
	return nil
}

// Delete drops key and frees its slot. It reports whether key was live.
// The slot bytes are left as they are until the slot is reused.
func (s *Store) Delete(key string) (removed bool, err error) {
	defer func() { s.metrics.observe("delete", err) }()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.Load() {
		return false, ErrStoreClosed
	}

	s.indexMu.Lock()
	meta, ok := s.alloc.Delete(key)
	s.indexMu.Unlock()

	if ok {
		s.updateGauges()
		s.log.Debug("deleted", zap.String("key", key), zap.Int64("offset", meta.Offset))
	}
	return ok, nil
}

// Meta returns the placement of key.
func (s *Store) Meta(key string) (MetaInfo, bool) {
	s.indexMu.RLock()
	defer s.indexMu.RUnlock()

	return s.alloc.Read(key)
}

func (s *Store) Exists(key string) bool {
	_, ok := s.Meta(key)
	return ok
}

func (s *Store) Len() int {
	s.indexMu.RLock()
	defer s.indexMu.RUnlock()

	return s.alloc.Len()
}

// Keys returns the live keys in ascending order.
func (s *Store) Keys() []string {
	s.indexMu.RLock()
	defer s.indexMu.RUnlock()

	return s.alloc.Keys()
}

// FreeSlots returns the free list in reuse order.
func (s *Store) FreeSlots() []int64 {
	s.writeMu.RLock()
	defer s.writeMu.RUnlock()

	return s.alloc.FreeSlots()
}

func (s *Store) Name() string {
	return s.opts.Name
}

// Path returns the value file path.
func (s *Store) Path() string {
	return s.valuePath
}

// MetaPath returns the metadata file path.
func (s *Store) MetaPath() string {
	return s.metaPath
}

// Sync flushes the value file and rewrites the metadata file from the
// current index.
func (s *Store) Sync() (err error) {
	defer func() { s.metrics.observe("sync", err) }()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.Load() {
		return ErrStoreClosed
	}
	return s.checkpoint()
}

func (s *Store) checkpoint() error {
	if err := s.valueFile.Sync(); err != nil {
		return fmt.Errorf("syncing value file: %w", err)
	}
	if err := writeMetaFile(s.metaPath, s.codec, s.opts.TimeFormat, s.alloc.Index()); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	return nil
}

// Close ends the session: the metadata file is rewritten from the index
// and every file handle is released, even when the rewrite fails.
func (s *Store) Close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.Swap(true) {
		return ErrStoreClosed
	}

	err := s.checkpoint()
	if err != nil {
		s.log.Error("checkpoint on close failed", zap.Error(err))
	}
	err = errors.Join(err, s.release())

	s.log.Info("store closed", zap.Int("keys", s.alloc.Len()))
	return err
}

func (s *Store) release() error {
	var errs []error

	if s.valueFile != nil {
		errs = append(errs, s.valueFile.Close())
	}
	if s.lockFile != nil {
		errs = append(errs, lock.Release(s.lockFile))
	}

	return errors.Join(errs...)
}

// commit writes payload into the slot at offset, padded to the slot width.
func (s *Store) commit(payload []byte, offset int64) error {
	slot, err := record.EncodeSlot(payload, s.opts.ValueSize)
	if err != nil {
		return err
	}

	if _, err := s.valueFile.WriteAt(slot, offset); err != nil {
		return fmt.Errorf("writing slot at %d: %w", offset, err)
	}
	return nil
}

func (s *Store) prepare(value Value, ttl time.Duration) ([]byte, time.Duration, error) {
	if value == nil {
		value = Value{}
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return nil, 0, fmt.Errorf("encoding value: %w", err)
	}

	if ttl <= 0 {
		ttl = TTLFromValue(value)
	}
	return payload, ttl, nil
}

func (s *Store) grow(offset int64) {
	if end := offset + int64(s.opts.ValueSize); end > s.size {
		s.size = end
	}
}

func (s *Store) updateGauges() {
	s.metrics.LiveKeys.Set(float64(s.alloc.Len()))
	s.metrics.FreeSlots.Set(float64(len(s.alloc.freeSlots)))
	s.metrics.ValueFileSize.Set(float64(s.size))
}
