package core

import (
	"encoding/json"
	"time"

	"github.com/0xRadioAc7iv/go-slotkv/internal/ttl"
)

// TTLFromValue reads a "ttl" member of value. Numbers are seconds and
// strings go through the ttl parser; anything else, or a missing member,
// means no TTL.
func TTLFromValue(value Value) time.Duration {
	raw, ok := value["ttl"]
	if !ok {
		return 0
	}

	var secs float64
	switch v := raw.(type) {
	case float64:
		secs = v
	case float32:
		secs = float64(v)
	case int:
		secs = float64(v)
	case int64:
		secs = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		secs = f
	case string:
		d, err := ttl.Parse(v)
		if err != nil {
			return 0
		}
		return d
	default:
		return 0
	}

	if secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// ParseValue decodes a serialized JSON object.
func ParseValue(raw []byte) (Value, error) {
	var value Value
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	if value == nil {
		value = Value{}
	}
	return value, nil
}
