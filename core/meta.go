package core

import "time"

// MetaInfo places one key in the value file.
//
// A MetaInfo is never patched: create and update build a fresh one, and the
// allocator swaps it into the index.
type MetaInfo struct {
	Key       string        // Key this entry belongs to
	Offset    int64         // Slot start, a multiple of the slot width
	TTL       time.Duration // Zero means the key never expires
	CreatedAt time.Time     // Set when the entry was allocated or replaced
}

func (m MetaInfo) HasTTL() bool {
	return m.TTL > 0
}

// ExpiryAt returns CreatedAt + TTL. ok is false for keys without a TTL.
func (m MetaInfo) ExpiryAt() (at time.Time, ok bool) {
	if !m.HasTTL() {
		return time.Time{}, false
	}
	return m.CreatedAt.Add(m.TTL), true
}

// ExpiredAt reports whether the entry's expiry time is strictly before now.
func (m MetaInfo) ExpiredAt(now time.Time) bool {
	at, ok := m.ExpiryAt()
	return ok && now.After(at)
}

// Less orders entries by creation time. It only breaks ties between
// entries that expire at the same instant.
func (m MetaInfo) Less(other MetaInfo) bool {
	return m.CreatedAt.Before(other.CreatedAt)
}
