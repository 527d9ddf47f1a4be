// Package validate holds the size checks applied before a slot is written.
// Each check is independent; All runs every one of them so a caller sees
// the full list of violations at once.
package validate

import (
	"errors"
	"fmt"
)

var (
	ErrKeyTooLarge   = errors.New("key too large")
	ErrValueTooLarge = errors.New("value too large")
	ErrFileFull      = errors.New("value file is full")
)

// Limits are the sizes a single write is checked against.
type Limits struct {
	MaxKeySize  int   // keys must be strictly shorter, in UTF-8 bytes
	ValueSize   int   // serialized values must be strictly shorter
	MaxFileSize int64 // the slot must end at or before this offset
}

// KeySize reports whether key is strictly shorter than max UTF-8 bytes.
func KeySize(key string, max int) error {
	if n := len(key); n >= max {
		return fmt.Errorf("%w: %d bytes, must be less than %d", ErrKeyTooLarge, n, max)
	}
	return nil
}

// ValueSize reports whether a serialized value fits in a slot of the
// given width with at least one byte of padding.
func ValueSize(serialized []byte, slotWidth int) error {
	if n := len(serialized); n >= slotWidth {
		return fmt.Errorf("%w: %d bytes, must be less than %d", ErrValueTooLarge, n, slotWidth)
	}
	return nil
}

// FileSize reports whether a slot written at offset stays within maxFileSize.
func FileSize(offset int64, slotWidth int, maxFileSize int64) error {
	if limit := maxFileSize - int64(slotWidth); offset > limit {
		return fmt.Errorf("%w: offset %d exceeds %d", ErrFileFull, offset, limit)
	}
	return nil
}

// All runs every check and returns the violations in key, value, file order.
// A nil result means the write may proceed.
func All(l Limits, key string, serialized []byte, offset int64) []error {
	var violations []error

	if err := KeySize(key, l.MaxKeySize); err != nil {
		violations = append(violations, err)
	}
	if err := ValueSize(serialized, l.ValueSize); err != nil {
		violations = append(violations, err)
	}
	if err := FileSize(offset, l.ValueSize, l.MaxFileSize); err != nil {
		violations = append(violations, err)
	}

	return violations
}
