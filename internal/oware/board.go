// Package oware implements Oware Abapa as a concrete internal/game.Game, the one real
// game this module ships end to end: the instance that lets the tablebase builder,
// book trainer and CLI actually run.
//
// Board layout: 12 houses numbered 0..11 around the ring, South owning 0..5 and North
// owning 6..11. Sowing always proceeds in increasing house order, wrapping 11->0.
package oware

import "fmt"

// NumHouses is the total number of houses on the board.
const NumHouses = 12

// HousesPerSide is the number of houses each player owns.
const HousesPerSide = NumHouses / 2

// InitialSeedsPerHouse is the starting seed count of every house (12*4 = 48 total).
const InitialSeedsPerHouse = 4

// TotalSeeds is the fixed total seed count of a match (captures + on-board seeds always
// sum to this).
const TotalSeeds = NumHouses * InitialSeedsPerHouse

// Side identifies a player's half of the board.
type Side uint8

const (
	South Side = 0
	North Side = 1
)

// Other returns the opposing side.
func (s Side) Other() Side { return 1 - s }

func (s Side) String() string {
	if s == South {
		return "South"
	}
	return "North"
}

// houseOwner returns which Side owns house h (0..11).
func houseOwner(h int) Side {
	if h < HousesPerSide {
		return South
	}
	return North
}

// Board is the sowing/capture state of an Oware Abapa position. It carries no move
// history of its own (internal/oware.Game layers that on top, the way
// internal/game.Game requires make/unmake).
type Board struct {
	Houses   [NumHouses]int8
	Captured [2]int16 // indexed by Side
	ToMove   Side

	// NoCaptureRun counts consecutive half-moves without a capture; used for the
	// 50-move drawing rule.
	NoCaptureRun int
}

// NewBoard returns the starting position: every house filled with InitialSeedsPerHouse
// seeds, South to move.
func NewBoard() *Board {
	b := &Board{ToMove: South}
	for i := range b.Houses {
		b.Houses[i] = InitialSeedsPerHouse
	}
	return b
}

// Clone returns an independent copy of b.
func (b *Board) Clone() *Board {
	c := *b
	return &c
}

// SeedsOnSide sums the seeds currently sitting in s's houses.
func (b *Board) SeedsOnSide(s Side) int {
	total := 0
	start := 0
	if s == North {
		start = HousesPerSide
	}
	for i := start; i < start+HousesPerSide; i++ {
		total += int(b.Houses[i])
	}
	return total
}

// sowOnly simulates sowing from house h (owned by the side to move) WITHOUT applying
// captures, returning the resulting houses array and the index the last seed landed in.
// Used both by the real move executor and by the must-feed legality check, which
// needs to know whether a
// candidate move leaves the opponent with any seeds before captures are resolved.
func (b *Board) sowOnly(h int) (houses [NumHouses]int8, last int) {
	houses = b.Houses
	seeds := int(houses[h])
	houses[h] = 0
	pos := h
	for seeds > 0 {
		pos = (pos + 1) % NumHouses
		if pos == h {
			// A lap of 12+ seeds skips the origin house entirely.
			continue
		}
		houses[pos]++
		seeds--
	}
	return houses, pos
}

// legalHouses returns the houses side s could sow from (non-empty houses it owns),
// without applying the must-feed restriction.
func (b *Board) legalHouses(s Side) []int {
	var out []int
	start := 0
	if s == North {
		start = HousesPerSide
	}
	for i := start; i < start+HousesPerSide; i++ {
		if b.Houses[i] > 0 {
			out = append(out, i)
		}
	}
	return out
}

// LegalMoves enumerates the houses legal to sow from for the side to move, applying the
// Abapa "must feed a starving opponent" restriction: a move that leaves the opponent's
// side empty is illegal if any other candidate move would leave the opponent with at
// least one seed.
func (b *Board) LegalMoves() []int {
	candidates := b.legalHouses(b.ToMove)
	if len(candidates) == 0 {
		return nil
	}
	opponent := b.ToMove.Other()

	type simmed struct {
		house    int
		feedsOpp bool
	}
	sims := make([]simmed, len(candidates))
	anyFeeds := false
	for i, h := range candidates {
		houses, _ := b.sowOnly(h)
		total := 0
		start := 0
		if opponent == North {
			start = HousesPerSide
		}
		for j := start; j < start+HousesPerSide; j++ {
			total += int(houses[j])
		}
		sims[i] = simmed{house: h, feedsOpp: total > 0}
		anyFeeds = anyFeeds || total > 0
	}

	if !anyFeeds {
		// No candidate can feed the opponent: the starvation restriction lifts and
		// every candidate is legal (the game ends on the opponent's following turn).
		return candidates
	}
	out := make([]int, 0, len(candidates))
	for _, s := range sims {
		if s.feedsOpp {
			out = append(out, s.house)
		}
	}
	return out
}

// IsLegalHouse reports whether h is a currently legal house to sow from.
func (b *Board) IsLegalHouse(h int) bool {
	if h < 0 || h >= NumHouses {
		return false
	}
	for _, m := range b.LegalMoves() {
		if m == h {
			return true
		}
	}
	return false
}

// Play sows from house h and resolves captures, mutating b in place. It assumes h has
// already been validated by LegalMoves/IsLegalHouse; it does not re-check the must-feed
// restriction.
func (b *Board) Play(h int) {
	mover := b.ToMove
	houses, last := b.sowOnly(h)
	b.Houses = houses

	captured := int16(0)
	opponent := mover.Other()
	j := last
	for houseOwner(j) == opponent && (b.Houses[j] == 2 || b.Houses[j] == 3) {
		captured += int16(b.Houses[j])
		b.Houses[j] = 0
		j--
		if j < 0 {
			break
		}
	}

	if captured > 0 {
		b.Captured[mover] += captured
		b.NoCaptureRun = 0
	} else {
		b.NoCaptureRun++
	}
	b.ToMove = opponent
}

// HasEnded reports whether the side to move has no legal move (its houses are all
// empty, or — after the must-feed restriction collapses — no candidate exists), or the
// 50-no-capture-move drawing threshold has been reached.
func (b *Board) HasEnded() bool {
	if b.NoCaptureRun >= 100 {
		return true
	}
	return len(b.legalHouses(b.ToMove)) == 0
}

// FinalScores returns the match-ending capture totals: any seeds still on the board are
// awarded to whichever side still has seeds (the standard Abapa starvation rule — the
// side with no houses left to play could not have been starved by accident, so its
// opponent collects the remainder). Valid only once HasEnded() is true.
func (b *Board) FinalScores() (south, north int16) {
	south, north = b.Captured[South], b.Captured[North]
	if len(b.legalHouses(b.ToMove)) > 0 {
		return south, north
	}
	// b.ToMove has nothing to play: award the board's remaining seeds to the other side.
	remaining := int16(b.SeedsOnSide(South) + b.SeedsOnSide(North))
	if b.ToMove.Other() == South {
		south += remaining
	} else {
		north += remaining
	}
	return south, north
}

// CanonicalHouses returns the house array rotated so that the side to move always
// occupies indices 0..5 — the "rotate board" half of the symmetric mapping used by
// internal/leaves to index both sides to move into the same perfect-hash table.
func (b *Board) CanonicalHouses() [NumHouses]int8 {
	if b.ToMove == South {
		return b.Houses
	}
	var rotated [NumHouses]int8
	for i := 0; i < NumHouses; i++ {
		rotated[i] = b.Houses[(i+HousesPerSide)%NumHouses]
	}
	return rotated
}

func (b *Board) String() string {
	return fmt.Sprintf("North: %v (captured %d)\nSouth: %v (captured %d)\nTo move: %s",
		b.Houses[HousesPerSide:], b.Captured[North], b.Houses[:HousesPerSide], b.Captured[South], b.ToMove)
}
