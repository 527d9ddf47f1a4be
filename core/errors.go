package core

import (
	"errors"
	"strings"
)

var (
	ErrKeyNotFound = errors.New("key not found")
	ErrKeyExists   = errors.New("key already exists")
	ErrStoreClosed = errors.New("store is closed")
	ErrCorruptMeta = errors.New("metadata file is corrupt")
)

// ValidationError lists every constraint a create or update violated.
// No state was changed when one is returned.
type ValidationError struct {
	Violations []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() []error {
	return e.Violations
}
