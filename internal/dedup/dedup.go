// Package dedup implements the two deduplication strategies the pipeline
// worker uses: a per-symbol monotonic update-id check, and a fixed-size
// UUID table for venues whose trade ids are not monotonic integers.
package dedup

import "github.com/cespare/xxhash/v2"

// Monotonic rejects any id less than or equal to the last accepted id for
// a given key (symbol). A single instance is scoped to one (stream,
// record-kind) pair; the worker owns one per record kind.
type Monotonic struct {
	last map[string]uint64
}

// NewMonotonic returns an empty monotonic deduplicator.
func NewMonotonic() *Monotonic {
	return &Monotonic{last: make(map[string]uint64)}
}

// CheckAndUpdate returns true and stores id iff id > the last accepted id
// for key; otherwise it returns false and leaves state unchanged.
func (m *Monotonic) CheckAndUpdate(key string, id uint64) bool {
	if last, ok := m.last[key]; ok && id <= last {
		return false
	}
	m.last[key] = id
	return true
}

// uuidTableSize is fixed at 8192 slots (~64KB of uint64), sized to fit L1.
const uuidTableSize = 8192

// UUID is a fixed-size hash table deduplicator for non-monotonic trade
// ids (UUID strings). It accepts rare hash-collision false negatives in
// exchange for O(1) work and bounded memory.
type UUID struct {
	table [uuidTableSize]uint64
}

// NewUUID returns an empty UUID deduplicator.
func NewUUID() *UUID {
	return &UUID{}
}

// CheckAndInsert reports whether s is new. If the slot at hash(s)%N
// already holds an equal hash, s is treated as a duplicate; otherwise the
// slot is overwritten and s is reported new.
func (u *UUID) CheckAndInsert(s string) bool {
	return u.CheckAndInsertHash(xxhash.Sum64String(s))
}

// CheckAndInsertHash is CheckAndInsert for a caller that has already
// computed the hash; h is used as the table key as given.
func (u *UUID) CheckAndInsertHash(h uint64) bool {
	idx := h % uuidTableSize
	if u.table[idx] == h {
		return false
	}
	u.table[idx] = h
	return true
}
