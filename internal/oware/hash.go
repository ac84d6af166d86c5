package oware

import "github.com/abapaengine/core/internal/game"

// Hash returns an FNV-1a combination of every house, both capture totals and the side
// to move. It is not incrementally maintained across Play calls (unlike a classic
// Zobrist table) because the search core never calls Hash() more than once per visited
// node — recomputing from scratch over 12 bytes is
// cheap enough not to warrant the bookkeeping of incremental updates.
func (b *Board) Hash() game.Hash {
	var h uint64 = 1469598103934665603
	const prime = 1099511628211
	for _, seeds := range b.Houses {
		h ^= uint64(uint8(seeds))
		h *= prime
	}
	h ^= uint64(uint16(b.Captured[South]))
	h *= prime
	h ^= uint64(uint16(b.Captured[North]))
	h *= prime
	h ^= uint64(b.ToMove) + 2
	h *= prime
	return game.Hash(h)
}

// CanonicalSeedHash returns a hash over the on-board seed distribution alone (ignoring
// captures and the side to move), canonicalized so that a South-to-move position and
// the North-to-move position obtained by rotating the board 180 degrees and swapping
// sides hash identically. This rotate-board mapping lets the
// endgame tablebase store one
// entry per physically distinct position regardless of whose turn it is.
func (b *Board) CanonicalSeedHash() uint64 {
	var h uint64 = 1469598103934665603
	const prime = 1099511628211
	if b.ToMove == South {
		for _, seeds := range b.Houses {
			h ^= uint64(uint8(seeds))
			h *= prime
		}
	} else {
		// Rotate 180 degrees: house i viewed from North's perspective is house
		// (i+6) mod 12 viewed from South's, so the mover's own houses come first.
		for i := 0; i < NumHouses; i++ {
			seeds := b.Houses[(i+HousesPerSide)%NumHouses]
			h ^= uint64(uint8(seeds))
			h *= prime
		}
	}
	return h
}
