package leaves

import (
	"k8s.io/klog/v2"

	"github.com/abapaengine/core/internal/game"
	"github.com/abapaengine/core/internal/oware"
)

// The Oware builder below only ever emits game.FlagExact; the 2-bit flag field is
// reserved for future partial-solve variants, and readers must not rely on it ever
// being anything else for this tablebase.
//
// Score scale: the score is the net future capture differential
// the side to move can still force among the s on-board seeds inside the tablebase's
// domain, bounded to [-s, +s]. It does not include
// seeds already captured before the position was reached; composing the two is left to
// the concrete Game's own Score()/Outcome(), the same way a chess tablebase's "mate in
// N" doesn't carry material already off the board. See DESIGN.md.
//
// Byte codec: a "(seeds + 1 + score) / 2" packing
// is not invertible for every (seeds, score) pair — it loses the low bit whenever
// seeds+score is even, which includes the score=-seeds starvation base case every solve
// starts from. Rather than carry that truncation into search results, this encodes
// score as a plain zero-based offset from -seeds (high := score + seeds, score :=
// high - seeds), which is its own exact inverse for every score in [-seeds, +seeds] and
// still fits the spec's 6 high bits for the seed counts this tablebase solves.
func encodeByte(seeds int, score int32, flag game.Flag) byte {
	high := score + int32(seeds)
	if high < 0 {
		high = 0
	}
	if high > 0x3F {
		high = 0x3F
	}
	return byte(high&0x3F)<<2 | byte(flag&0x3)
}

func decodeByte(b byte, seeds int) (score int32, flag game.Flag) {
	flag = game.Flag(b & 0x3)
	high := int32(b >> 2)
	score = high - int32(seeds)
	return score, flag
}

// Tablebase is the Oware perfect-hash endgame tablebase: one byte per canonical
// position with at most maxSeeds seeds on the board, encoding an exact net future
// capture differential and a flag.
type Tablebase struct {
	maxSeeds int
	offsets  []int64 // see offsetsUpTo; length maxSeeds+2
	data     []byte  // data[0] is the reserved/unused sentinel entry

	// lastScore/lastFlag are primed by Find on a hit, per the Leaves contract's
	// stateful idiom.
	lastScore game.Score
	lastFlag  game.Flag
}

var _ Leaves = (*Tablebase)(nil)

// MaxSeeds reports the domain bound this tablebase was built (or loaded) for.
func (t *Tablebase) MaxSeeds() int { return t.maxSeeds }

// owareProvider is satisfied by internal/oware.Game; declared locally so this package
// doesn't need to import internal/game's full Game interface just to reach the board.
type owareProvider interface {
	RawBoard() *oware.Board
}

// Find reports whether g is an *internal/oware.Game (or exposes a RawBoard the same
// way) whose on-board seed count is within this tablebase's domain. Any other Game
// implementation, or a seed count above maxSeeds, is a miss — Leaves is a best-effort
// collaborator, never a hard dependency.
func (t *Tablebase) Find(g game.Game) bool {
	ow, ok := g.(owareProvider)
	if !ok {
		return false
	}
	b := ow.RawBoard()
	seeds := b.SeedsOnSide(oware.South) + b.SeedsOnSide(oware.North)
	if seeds > t.maxSeeds {
		return false
	}
	idx := t.offsets[seeds] + rank(b.CanonicalHouses()) + 1
	if idx <= 0 || int(idx) >= len(t.data) {
		klog.Errorf("leaves: computed out-of-range index %d for seed count %d; treating as miss", idx, seeds)
		return false
	}
	rawScore, flag := decodeByte(t.data[idx], seeds)
	t.lastScore = game.Score(rawScore)
	t.lastFlag = flag
	return true
}

func (t *Tablebase) Score() game.Score { return t.lastScore }
func (t *Tablebase) Flag() game.Flag   { return t.lastFlag }
