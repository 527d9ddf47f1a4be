package core

import (
	"container/heap"
	"slices"
	"time"
)

// SlotSource says where an allocated slot came from.
type SlotSource string

const (
	SourceFree    SlotSource = "free"    // explicitly freed by a delete or found as a gap
	SourceExpired SlotSource = "expired" // reclaimed from a key whose TTL had passed
	SourceAppend  SlotSource = "append"  // the caller's fallback, usually end of file
)

// SlotAllocator maps keys to fixed-width slots in a value file.
//
// It keeps three structures in lockstep:
//   - index: the live key -> MetaInfo mapping
//   - freeSlots: offsets with no live key, reused oldest first
//   - expiry: a min-heap of TTL-bearing entries ordered by expiry time
//
// Expired keys are only reclaimed when a later Create needs a slot; nothing
// sweeps them in the background. SlotAllocator is not safe for concurrent
// use. Store serializes access to it.
type SlotAllocator struct {
	slotWidth int64
	now       func() time.Time

	index     map[string]*MetaInfo
	freeSlots []int64
	expiry    expiryHeap
}

// NewSlotAllocator takes ownership of index, typically loaded from a
// metadata file, and rebuilds the expiry heap and free list from it.
// A nil now defaults to time.Now.
func NewSlotAllocator(index map[string]*MetaInfo, slotWidth int, now func() time.Time) *SlotAllocator {
	if index == nil {
		index = make(map[string]*MetaInfo)
	}
	if now == nil {
		now = time.Now
	}

	a := &SlotAllocator{
		slotWidth: int64(slotWidth),
		now:       now,
		index:     index,
	}
	a.preprocess()

	return a
}

// preprocess rebuilds the expiry heap and recovers the holes left between
// live slots by deletes from an earlier session.
func (a *SlotAllocator) preprocess() {
	a.expiry = buildExpiryHeap(a.index)

	offsets := make([]int64, 0, len(a.index))
	for _, meta := range a.index {
		offsets = append(offsets, meta.Offset)
	}
	slices.Sort(offsets)

	a.freeSlots = a.freeSlots[:0]
	for i := 1; i < len(offsets); i++ {
		lo, hi := offsets[i-1], offsets[i]
		for gap := lo + a.slotWidth; gap < hi; gap += a.slotWidth {
			a.freeSlots = append(a.freeSlots, gap)
		}
	}
}

// Create picks a slot for key and commits a new MetaInfo there.
//
// Precedence: the oldest free slot, then the slot of the soonest-expiring
// key if its expiry is strictly in the past, then fallback. A key that was
// already live is replaced and its old slot goes onto the free list.
func (a *SlotAllocator) Create(key string, fallback int64, ttl time.Duration) (int64, SlotSource) {
	return a.createAt(key, fallback, ttl, a.now())
}

func (a *SlotAllocator) createAt(key string, fallback int64, ttl time.Duration, now time.Time) (int64, SlotSource) {
	offset, source := a.pick(fallback, now, true)

	meta := newMeta(key, offset, ttl, now)
	if prev, ok := a.index[key]; ok && prev.Offset != offset {
		a.freeSlots = append(a.freeSlots, prev.Offset)
	}
	a.index[key] = meta

	if at, ok := meta.ExpiryAt(); ok {
		heap.Push(&a.expiry, expiryEntry{at: at, meta: meta})
	}

	return offset, source
}

// NextOffset reports the offset Create would choose right now without
// committing anything.
func (a *SlotAllocator) NextOffset(fallback int64) int64 {
	return a.nextOffsetAt(fallback, a.now())
}

func (a *SlotAllocator) nextOffsetAt(fallback int64, now time.Time) int64 {
	offset, _ := a.pick(fallback, now, false)
	return offset
}

func (a *SlotAllocator) pick(fallback int64, now time.Time, commit bool) (int64, SlotSource) {
	if len(a.freeSlots) > 0 {
		offset := a.freeSlots[0]
		if commit {
			a.freeSlots = a.freeSlots[1:]
		}
		return offset, SourceFree
	}

	a.dropStaleExpiry()

	if top, ok := a.expiry.peek(); ok && now.After(top.at) {
		if commit {
			heap.Pop(&a.expiry)
			delete(a.index, top.meta.Key)
		}
		return top.meta.Offset, SourceExpired
	}

	return fallback, SourceAppend
}

// dropStaleExpiry discards heap entries whose key has since been replaced
// or removed, so the minimum always describes a live key.
func (a *SlotAllocator) dropStaleExpiry() {
	for {
		top, ok := a.expiry.peek()
		if !ok || a.index[top.meta.Key] == top.meta {
			return
		}
		heap.Pop(&a.expiry)
	}
}

// Read looks key up in the index.
func (a *SlotAllocator) Read(key string) (MetaInfo, bool) {
	meta, ok := a.index[key]
	if !ok {
		return MetaInfo{}, false
	}
	return *meta, true
}

// Update replaces key's MetaInfo with a fresh one at offset and rebuilds
// the expiry heap from the whole index.
func (a *SlotAllocator) Update(key string, offset int64, ttl time.Duration) MetaInfo {
	meta := newMeta(key, offset, ttl, a.now())
	a.index[key] = meta
	a.expiry = buildExpiryHeap(a.index)

	return *meta
}

// Delete removes key, frees its slot and rebuilds the expiry heap.
func (a *SlotAllocator) Delete(key string) (MetaInfo, bool) {
	meta, ok := a.index[key]
	if !ok {
		return MetaInfo{}, false
	}

	delete(a.index, key)
	a.freeSlots = append(a.freeSlots, meta.Offset)
	a.expiry = buildExpiryHeap(a.index)

	return *meta, true
}

func (a *SlotAllocator) Len() int {
	return len(a.index)
}

// Keys returns the live keys in ascending order.
func (a *SlotAllocator) Keys() []string {
	var keys []string
	for k := range a.index {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// FreeSlots returns a copy of the free list in reuse order.
func (a *SlotAllocator) FreeSlots() []int64 {
	return slices.Clone(a.freeSlots)
}

// Index returns a copy of the live index.
func (a *SlotAllocator) Index() map[string]MetaInfo {
	out := make(map[string]MetaInfo, len(a.index))
	for k, meta := range a.index {
		out[k] = *meta
	}
	return out
}

func newMeta(key string, offset int64, ttl time.Duration, now time.Time) *MetaInfo {
	if ttl < 0 {
		ttl = 0
	}
	return &MetaInfo{
		Key:       key,
		Offset:    offset,
		TTL:       ttl.Truncate(time.Second),
		CreatedAt: now.UTC().Truncate(time.Microsecond),
	}
}
