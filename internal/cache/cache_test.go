package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abapaengine/core/internal/game"
)

func TestFindMiss(t *testing.T) {
	c := New()
	_, _, _, _, ok := c.Find(game.Hash(42))
	assert.False(t, ok)
}

func TestStoreFindRoundTrip(t *testing.T) {
	c := New()
	h := game.Hash(0xABCDEF0123456789)
	c.Store(h, game.Score(17), game.Move(3), game.Depth(5), game.FlagExact)

	score, move, depth, flag, ok := c.Find(h)
	require.True(t, ok)
	assert.Equal(t, game.Score(17), score)
	assert.Equal(t, game.Move(3), move)
	assert.Equal(t, game.Depth(5), depth)
	assert.Equal(t, game.FlagExact, flag)
}

func TestStorePrefersDeeperInPrimarySlot(t *testing.T) {
	c := New()
	h := game.Hash(123456)
	c.Store(h, game.Score(1), game.Move(1), game.Depth(10), game.FlagExact)
	c.Store(h, game.Score(2), game.Move(2), game.Depth(3), game.FlagLower)

	// The shallower store must not have clobbered the deep primary entry.
	score, _, depth, _, ok := c.Find(h)
	require.True(t, ok)
	assert.Equal(t, game.Depth(10), depth)
	assert.Equal(t, game.Score(1), score)
}

func TestDischargeAgesEntries(t *testing.T) {
	c := New()
	h := game.Hash(999)
	c.Store(h, game.Score(5), game.Move(0), game.Depth(10), game.FlagExact)

	for i := 0; i < 3; i++ {
		c.Discharge()
	}

	// A shallower store targeting the same bucket must now be allowed to overwrite the
	// aged primary entry.
	c.Store(h, game.Score(-5), game.Move(9), game.Depth(1), game.FlagUpper)
	score, move, depth, flag, ok := c.Find(h)
	require.True(t, ok)
	assert.Equal(t, game.Score(-5), score)
	assert.Equal(t, game.Move(9), move)
	assert.Equal(t, game.Depth(1), depth)
	assert.Equal(t, game.FlagUpper, flag)
}

func TestClear(t *testing.T) {
	c := New()
	h := game.Hash(1)
	c.Store(h, game.Score(1), game.Move(1), game.Depth(1), game.FlagExact)
	c.Clear()
	_, _, _, _, ok := c.Find(h)
	assert.False(t, ok)
}

func TestResizeRoundsToPowerOfTwo(t *testing.T) {
	c := New()
	err := c.Resize(minSlots * bytesPerSlot * 3) // not a power-of-two slot count
	require.NoError(t, err)
	n := c.NumBuckets()
	assert.Equal(t, n&(n-1), 0, "bucket count must be a power of two")
	assert.GreaterOrEqual(t, n, minSlots/2)
}

func TestResizeFloorsAtMinimum(t *testing.T) {
	c := New()
	require.NoError(t, c.Resize(1))
	assert.Equal(t, minSlots/2, c.NumBuckets())
}

func TestCollisionIsTreatedAsMiss(t *testing.T) {
	c := New()
	h1 := game.Hash(0x1)
	h2 := game.Hash(h1 + (1 << 24)) // same bucket/tag region is unlikely; same index guaranteed via mask
	c.Store(h1, game.Score(1), game.Move(1), game.Depth(1), game.FlagExact)
	// Looking up an unrelated hash that happens to land in the same bucket but has a
	// different tag must miss, not return the wrong entry.
	_, _, _, _, ok := c.Find(h2 ^ game.Hash(0xFFFFFFFFFF000000))
	assert.False(t, ok)
}
