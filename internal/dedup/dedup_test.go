package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonotonicSequence(t *testing.T) {
	m := NewMonotonic()
	ids := []uint64{1, 2, 2, 1, 3, 3, 4, 5, 4, 6}
	var accepted []uint64
	for _, id := range ids {
		if m.CheckAndUpdate("BTCUSDT", id) {
			accepted = append(accepted, id)
		}
	}
	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6}, accepted)
}

func TestMonotonicIndependentPerKey(t *testing.T) {
	m := NewMonotonic()
	assert.True(t, m.CheckAndUpdate("BTCUSDT", 5))
	assert.True(t, m.CheckAndUpdate("ETHUSDT", 1))
	assert.False(t, m.CheckAndUpdate("BTCUSDT", 5))
}

func TestUUIDDedupRejectsRepeat(t *testing.T) {
	u := NewUUID()
	id := "550e8400-e29b-41d4-a716-446655440000"
	assert.True(t, u.CheckAndInsert(id))
	assert.False(t, u.CheckAndInsert(id))
}

func TestUUIDDedupHashCollisionTreatedAsDuplicate(t *testing.T) {
	u := NewUUID()
	assert.True(t, u.CheckAndInsertHash(42))
	// Same hash value arriving again (whether genuine repeat or a
	// collision) is reported as a duplicate by design.
	assert.False(t, u.CheckAndInsertHash(42))
	assert.True(t, u.CheckAndInsertHash(42+uuidTableSize))
}
