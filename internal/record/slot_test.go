package record

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeDecodeSlot(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		width   int
	}{
		{"small object", `{"a":1}`, 16},
		{"one byte of padding", `{"name":"go"}`, 14},
		{"empty object", `{}`, 64},
		{"unicode", `{"emoji":"🚀"}`, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, err := EncodeSlot([]byte(tt.payload), tt.width)
			if err != nil {
				t.Fatalf("unexpected encode error: %v", err)
			}
			if len(slot) != tt.width {
				t.Fatalf("slot length mismatch: got %d, want %d", len(slot), tt.width)
			}

			decoded, err := DecodeSlot(slot, tt.width)
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if !bytes.Equal(decoded, []byte(tt.payload)) {
				t.Errorf("payload mismatch: got %q, want %q", decoded, tt.payload)
			}
		})
	}
}

func TestEncodedSlotLayout(t *testing.T) {
	slot, err := EncodeSlot([]byte("{}"), 6)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	if string(slot) != "0000{}" {
		t.Fatalf("unexpected layout: %q", slot)
	}
}

func TestEncodeRejectsPayloadThatFillsSlot(t *testing.T) {
	payload := []byte("{1234}")

	if _, err := EncodeSlot(payload, len(payload)); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	if _, err := EncodeSlot(payload, len(payload)-1); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestDecodeErrorsOnTruncatedSlot(t *testing.T) {
	slot, _ := EncodeSlot([]byte(`{"k":"v"}`), 32)

	for i := 0; i < len(slot); i++ {
		if _, err := DecodeSlot(slot[:i], 32); err == nil {
			t.Fatalf("expected error when decoding truncated slot of length %d, got nil", i)
		}
	}
}

func TestInvalidWidth(t *testing.T) {
	if _, err := EncodeSlot(nil, 0); !errors.Is(err, ErrInvalidWidth) {
		t.Fatalf("expected ErrInvalidWidth, got %v", err)
	}
	if _, err := DecodeSlot(nil, -1); !errors.Is(err, ErrInvalidWidth) {
		t.Fatalf("expected ErrInvalidWidth, got %v", err)
	}
}
