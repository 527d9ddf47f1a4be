package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var limits = Limits{MaxKeySize: 32, ValueSize: 64, MaxFileSize: 640}

func TestKeySize(t *testing.T) {
	assert.NoError(t, KeySize(strings.Repeat("k", 31), 32))
	assert.ErrorIs(t, KeySize(strings.Repeat("k", 32), 32), ErrKeyTooLarge)

	// 11 three-byte runes are 33 bytes even though only 11 characters.
	assert.ErrorIs(t, KeySize(strings.Repeat("語", 11), 32), ErrKeyTooLarge)
	assert.NoError(t, KeySize(strings.Repeat("語", 10), 32))
}

func TestValueSize(t *testing.T) {
	assert.NoError(t, ValueSize(make([]byte, 63), 64))
	assert.ErrorIs(t, ValueSize(make([]byte, 64), 64), ErrValueTooLarge)
}

func TestFileSize(t *testing.T) {
	assert.NoError(t, FileSize(0, 64, 640))
	assert.NoError(t, FileSize(576, 64, 640))
	assert.ErrorIs(t, FileSize(640, 64, 640), ErrFileFull)
}

func TestAllReportsEveryViolation(t *testing.T) {
	violations := All(limits, strings.Repeat("k", 40), make([]byte, 100), 1000)
	require.Len(t, violations, 3)

	assert.True(t, errors.Is(violations[0], ErrKeyTooLarge))
	assert.True(t, errors.Is(violations[1], ErrValueTooLarge))
	assert.True(t, errors.Is(violations[2], ErrFileFull))
}

func TestAllPasses(t *testing.T) {
	assert.Empty(t, All(limits, "key", []byte(`{"a":1}`), 64))
}
