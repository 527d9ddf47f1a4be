package record

import (
	"bytes"
	"errors"
	"fmt"
)

// PadByte fills the unused head of every slot.
const PadByte = '0'

var (
	ErrPayloadTooLarge = errors.New("payload does not fit in slot")
	ErrShortSlot       = errors.New("slot shorter than slot width")
	ErrInvalidWidth    = errors.New("slot width must be positive")
)

// EncodeSlot left-pads payload with PadByte to exactly width bytes.
//
// The payload must be strictly shorter than width, so every written slot
// starts with at least one pad byte. A payload whose first byte is PadByte
// cannot be told apart from padding on the way back; callers store JSON
// objects, which always start with '{'.
func EncodeSlot(payload []byte, width int) ([]byte, error) {
	if width <= 0 {
		return nil, ErrInvalidWidth
	}
	if len(payload) >= width {
		return nil, fmt.Errorf("%w: %d bytes, slot width %d", ErrPayloadTooLarge, len(payload), width)
	}

	slot := make([]byte, width)
	pad := width - len(payload)
	for i := 0; i < pad; i++ {
		slot[i] = PadByte
	}
	copy(slot[pad:], payload)

	return slot, nil
}

// DecodeSlot strips the leading pad bytes from a slot read back from disk.
func DecodeSlot(slot []byte, width int) ([]byte, error) {
	if width <= 0 {
		return nil, ErrInvalidWidth
	}
	if len(slot) < width {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrShortSlot, len(slot), width)
	}

	return bytes.TrimLeft(slot[:width], string(PadByte)), nil
}
