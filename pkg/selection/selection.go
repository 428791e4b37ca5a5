// Package selection tracks which resources are selected in each collection.
//
// Every collection owns one bucket: an ordered set of resource keys plus an
// anchor, the key acted on last, which range and step operations start from.
// Buckets are replaced whole on every mutation so readers holding a snapshot
// never observe a partial update.
package selection

import (
	"sync"
)

// Entry identifies one selected resource.
type Entry struct {
	CollectionID string `json:"collection_id"`
	Key          string `json:"key"`
}

// Layout describes the display order used to flatten the buckets.
type Layout struct {
	// Order lists collection ids in registration order.
	Order []string
	// Keys maps a collection id to its resource keys in display order.
	Keys map[string][]string
}

type bucket struct {
	keys   []string
	member map[string]struct{}
	anchor string
}

func (b *bucket) clone() *bucket {
	nb := &bucket{
		keys:   make([]string, len(b.keys)),
		member: make(map[string]struct{}, len(b.member)),
		anchor: b.anchor,
	}
	copy(nb.keys, b.keys)
	for k := range b.member {
		nb.member[k] = struct{}{}
	}
	return nb
}

func (b *bucket) has(key string) bool {
	_, ok := b.member[key]
	return ok
}

func (b *bucket) add(key string) {
	if b.has(key) {
		return
	}
	b.member[key] = struct{}{}
	b.keys = append(b.keys, key)
}

func (b *bucket) remove(key string) {
	if !b.has(key) {
		return
	}
	delete(b.member, key)
	for i, k := range b.keys {
		if k == key {
			b.keys = append(b.keys[:i:i], b.keys[i+1:]...)
			break
		}
	}
}

func newBucket() *bucket {
	return &bucket{member: make(map[string]struct{})}
}

// Model holds one bucket per collection id. It is safe for concurrent use.
type Model struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
}

// New creates an empty selection model.
func New() *Model {
	return &Model{buckets: make(map[string]*bucket)}
}

// mutate runs fn against a copy of the collection's bucket and swaps it in.
func (m *Model) mutate(collectionID string, fn func(b *bucket)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var b *bucket
	if cur, ok := m.buckets[collectionID]; ok {
		b = cur.clone()
	} else {
		b = newBucket()
	}
	fn(b)
	m.buckets[collectionID] = b
}

// Toggle flips membership of key and makes it the anchor.
func (m *Model) Toggle(collectionID, key string) {
	m.mutate(collectionID, func(b *bucket) {
		if b.has(key) {
			b.remove(key)
		} else {
			b.add(key)
		}
		b.anchor = key
	})
}

// Replace clears the bucket, selects key alone and makes it the anchor.
func (m *Model) Replace(collectionID, key string) {
	m.mutate(collectionID, func(b *bucket) {
		*b = *newBucket()
		b.add(key)
		b.anchor = key
	})
}

// RangeSelect adds every key between the anchor and key, inclusive, using
// ordered as the display order. It never removes keys. Without a usable
// anchor it behaves like Replace.
func (m *Model) RangeSelect(collectionID, key string, ordered []string) {
	m.mutate(collectionID, func(b *bucket) {
		a, k := indexOf(ordered, b.anchor), indexOf(ordered, key)
		if b.anchor == "" || a < 0 || k < 0 {
			*b = *newBucket()
			b.add(key)
			b.anchor = key
			return
		}
		lo, hi := a, k
		if lo > hi {
			lo, hi = hi, lo
		}
		for _, rk := range ordered[lo : hi+1] {
			b.add(rk)
		}
		b.anchor = key
	})
}

// StepMove moves from the key `from` by delta positions in ordered. Without
// extend the stepped-to key replaces the selection; with extend its
// membership is toggled and the rest of the bucket is kept. The anchor moves
// only when the step lands. A step outside ordered, or from an unknown key,
// leaves the state unchanged and returns false.
func (m *Model) StepMove(collectionID string, ordered []string, from string, delta int, extend bool) (string, bool) {
	i := indexOf(ordered, from)
	if i < 0 {
		return "", false
	}
	j := i + delta
	if j < 0 || j >= len(ordered) {
		return "", false
	}
	to := ordered[j]
	if extend {
		m.Toggle(collectionID, to)
	} else {
		m.Replace(collectionID, to)
	}
	return to, true
}

// Remove drops key from the bucket without touching the anchor.
func (m *Model) Remove(collectionID, key string) {
	m.mu.RLock()
	b, ok := m.buckets[collectionID]
	present := ok && b.has(key)
	m.mu.RUnlock()
	if !present {
		return
	}
	m.mutate(collectionID, func(b *bucket) { b.remove(key) })
}

// Clear empties the bucket and its anchor.
func (m *Model) Clear(collectionID string) {
	m.mutate(collectionID, func(b *bucket) { *b = *newBucket() })
}

// Prune removes keys that are not in valid. A pruned anchor is cleared.
// It returns the number of keys removed.
func (m *Model) Prune(collectionID string, valid []string) int {
	keep := make(map[string]struct{}, len(valid))
	for _, k := range valid {
		keep[k] = struct{}{}
	}
	removed := 0
	m.mutate(collectionID, func(b *bucket) {
		for _, k := range append([]string(nil), b.keys...) {
			if _, ok := keep[k]; !ok {
				b.remove(k)
				removed++
			}
		}
		if _, ok := keep[b.anchor]; !ok {
			b.anchor = ""
		}
	})
	return removed
}

// Discard deletes the bucket for a closed collection.
func (m *Model) Discard(collectionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.buckets, collectionID)
}

// Selected returns the bucket's keys in the order they were added.
func (m *Model) Selected(collectionID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.buckets[collectionID]
	if !ok {
		return nil
	}
	out := make([]string, len(b.keys))
	copy(out, b.keys)
	return out
}

// IsSelected reports whether key is in the collection's bucket.
func (m *Model) IsSelected(collectionID, key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.buckets[collectionID]
	return ok && b.has(key)
}

// Anchor returns the collection's anchor key, or "" when unset.
func (m *Model) Anchor(collectionID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.buckets[collectionID]; ok {
		return b.anchor
	}
	return ""
}

// Count returns the size of one bucket.
func (m *Model) Count(collectionID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.buckets[collectionID]; ok {
		return len(b.keys)
	}
	return 0
}

// Total returns the number of selected keys across all buckets.
func (m *Model) Total() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, b := range m.buckets {
		n += len(b.keys)
	}
	return n
}

// Aggregate flattens the buckets into one sequence: collections in
// layout.Order, and within each collection the keys in display order.
// Keys a bucket holds that are missing from the layout are skipped.
func (m *Model) Aggregate(layout Layout) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Entry
	for _, id := range layout.Order {
		b, ok := m.buckets[id]
		if !ok || len(b.keys) == 0 {
			continue
		}
		for _, key := range layout.Keys[id] {
			if b.has(key) {
				out = append(out, Entry{CollectionID: id, Key: key})
			}
		}
	}
	return out
}

// Snapshot returns a copy of every non-empty bucket.
func (m *Model) Snapshot() map[string][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]string, len(m.buckets))
	for id, b := range m.buckets {
		if len(b.keys) == 0 {
			continue
		}
		keys := make([]string, len(b.keys))
		copy(keys, b.keys)
		out[id] = keys
	}
	return out
}

func indexOf(keys []string, key string) int {
	if key == "" {
		return -1
	}
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}
