// Package cache implements the two-tier, two-slot-per-bucket transposition table with
// aging. It is the Cache collaborator consumed by
// internal/negamax (and, read-only at leaf evaluation, by internal/uct).
package cache

import (
	"math/bits"

	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"

	"github.com/abapaengine/core/internal/game"
)

// Packing the score into 12 signed bits ([-2048, 2047]) would risk silent truncation
// on games with wider score ranges, so the score (and the auxiliary best-move) live in
// full int32 fields kept alongside the bit-packed metadata word; only the hash tag,
// flag, depth and aging stamp share a single uint64. A slot is therefore 24 bytes (one
// packed uint64 + two int32s + a validity flag, padded to 8-byte alignment), and Resize
// sizes the table at that per-slot cost.
const bytesPerSlot = 24

// minSlots is the floor on the total slot count after any resize.
// Each bucket holds two slots, so the bucket count floors at minSlots/2.
const minSlots = 1 << 24

const (
	tagBits    = 40
	tagMask    = (uint64(1) << tagBits) - 1
	flagShift  = tagBits
	flagMask   = uint64(0x3)
	depthShift = flagShift + 2
	depthMask  = uint64(0xFF)
	stampShift = depthShift + 8
	stampMask  = uint64(0x3)
)

func packMeta(tag uint64, flag game.Flag, depth game.Depth, stamp uint8) uint64 {
	return (tag & tagMask) |
		(uint64(flag)&flagMask)<<flagShift |
		(uint64(uint8(depth))&depthMask)<<depthShift |
		(uint64(stamp)&stampMask)<<stampShift
}

func unpackTag(meta uint64) uint64        { return meta & tagMask }
func unpackFlag(meta uint64) game.Flag    { return game.Flag((meta >> flagShift) & flagMask) }
func unpackDepth(meta uint64) game.Depth  { return game.Depth((meta >> depthShift) & depthMask) }
func unpackStamp(meta uint64) uint8       { return uint8((meta >> stampShift) & stampMask) }

// tagOf extracts the 40-bit tag (hash >> 24) identifying a hash within a bucket.
func tagOf(h game.Hash) uint64 {
	return uint64(h) >> 24
}

// slot is one entry of a bucket.
type slot struct {
	meta  uint64 // tag | flag | depth | stamp, bit-packed (see above)
	score int32
	move  int32
	valid bool
}

func (s *slot) empty() bool { return !s.valid }

// bucket holds the two slots sharing a hash-mod-N index. Slot 0 is the "deepest seen"
// entry; slot 1 is the "always replace" entry.
type bucket [2]slot

// Cache is the two-tier, two-slot-per-bucket transposition table with aging.
//
// It is not safe for concurrent use; the search core is single-threaded and only the
// search goroutine ever writes to the cache.
type Cache struct {
	buckets []bucket
	mask    uint64

	stamp uint8 // current write stamp, advanced by discharge
	reset uint8 // stamp considered "fresh"; entries with a different stamp are "old"
}

// New creates a Cache sized to the minimum of minSlots slots (minSlots/2 buckets).
func New() *Cache {
	c := &Cache{}
	c.allocate(minSlots / 2)
	return c
}

func (c *Cache) allocate(numBuckets int) {
	c.buckets = make([]bucket, numBuckets)
	c.mask = uint64(numBuckets - 1)
}

// Resize rounds bytes down to a power-of-two bucket count at bytesPerSlot*2 bytes per
// bucket (two slots), with a floor of minSlots total slots. On allocation failure (an
// unreasonably large request) the previous table is kept and an error is returned.
func (c *Cache) Resize(bytes int) (err error) {
	numSlots := bytes / bytesPerSlot
	numBuckets := numSlots / 2
	if numBuckets < minSlots/2 {
		numBuckets = minSlots / 2
	}
	// Round down to a power of two.
	if numBuckets > 1 {
		shift := bits.Len(uint(numBuckets)) - 1
		numBuckets = 1 << shift
	}

	defer func() {
		if r := recover(); r != nil {
			klog.Errorf("cache: resize to %d buckets failed: %v; keeping previous table", numBuckets, r)
			err = errOOM{requested: numBuckets}
		}
	}()
	c.allocate(numBuckets)
	return nil
}

type errOOM struct{ requested int }

func (e errOOM) Error() string {
	return "cache: out of memory resizing transposition table"
}

// Clear zeros every slot.
func (c *Cache) Clear() {
	for i := range c.buckets {
		c.buckets[i] = bucket{}
	}
}

// Find looks up h. ok is false on a miss (including a hash-tag collision, which is
// statistically indistinguishable from a true miss at this layer).
func (c *Cache) Find(h game.Hash) (score game.Score, move game.Move, depth game.Depth, flag game.Flag, ok bool) {
	b := &c.buckets[uint64(h)&c.mask]
	tag := tagOf(h)
	for i := range b {
		s := &b[i]
		if s.empty() {
			continue
		}
		if unpackTag(s.meta) == tag {
			return game.Score(s.score), game.Move(s.move), unpackDepth(s.meta), unpackFlag(s.meta), true
		}
	}
	return 0, game.NullMove, 0, game.FlagEmpty, false
}

// Store records a search result for h. Replacement policy: slot 0 (deepest-seen) is
// kept unless it is fresh (stamp == c.reset) and at least
// as deep as the new entry, in which case the secondary (always-replace) slot absorbs
// the write instead; otherwise slot 0 is overwritten.
func (c *Cache) Store(h game.Hash, score game.Score, move game.Move, depth game.Depth, flag game.Flag) {
	if flag == game.FlagEmpty {
		exceptions.Panicf("cache: refusing to store an entry with flag=EMPTY for hash %d", h)
	}
	b := &c.buckets[uint64(h)&c.mask]
	tag := tagOf(h)
	fresh := slot{
		meta:  packMeta(tag, flag, depth, c.stamp),
		score: int32(score),
		move:  int32(move),
		valid: true,
	}

	primary := &b[0]
	if primary.empty() || unpackDepth(primary.meta) < depth || unpackStamp(primary.meta) != c.reset {
		// Primary is either empty, shallower than the new entry, or stale: replace it.
		b[1] = *primary // demote whatever was there into the always-replace slot.
		*primary = fresh
		return
	}
	// Primary is fresh and at least as deep: write the always-replace slot instead.
	b[1] = fresh
}

// Discharge ages the table: it advances the 2-bit stamp and the "fresh" reset marker by
// one step each, so entries written before the last discharge become eligible for
// overwrite on their next collision. Call this between iterative-deepening iterations
// and once per completed search.
func (c *Cache) Discharge() {
	c.stamp = (c.stamp + 1) & 0x3
	c.reset = c.stamp
}

// NumBuckets reports the current bucket count (2*NumBuckets slots total).
func (c *Cache) NumBuckets() int {
	return len(c.buckets)
}
