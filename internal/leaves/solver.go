package leaves

import (
	"math"

	"k8s.io/klog/v2"

	"github.com/abapaengine/core/internal/game"
	"github.com/abapaengine/core/internal/oware"
)

// Solve builds a Tablebase covering every canonical Oware position with at most
// maxSeeds seeds on the board:
//
//  1. enumerate positions by ascending seed count;
//  2. a position is a leaf of this retrograde analysis when the side to move (always
//     canonically "South", see oware.Board.CanonicalHouses) has no legal move: its
//     future differential is -s, the remaining seeds going entirely to the opponent;
//  3. otherwise the value is the negamax maximum, over every legal move, of the seeds
//     captured this move minus the child's value (the child being canonically rotated
//     so its own mover is, again, "South").
//
// The recursion is memoized across the whole domain; a true cycle (a sequence of
// no-capture moves returning to an identical distribution) is a documented, non-fatal
// edge case — warned about each time it is hit, counted in one summary warning, and
// treated as a draw, the same "warned, not fatal" spirit as
// internal/trainer's refresh pass.
func Solve(maxSeeds int) (*Tablebase, error) {
	offsets := offsetsUpTo(maxSeeds)
	total := offsets[maxSeeds+1] + 1 // +1 for the reserved index-0 sentinel.
	data := make([]byte, total)

	sv := &solver{offsets: offsets, memo: make(map[int64]int32), state: make(map[int64]uint8)}
	for s := 0; s <= maxSeeds; s++ {
		forEachComposition(s, func(houses [oware.NumHouses]int8) {
			v := sv.value(s, houses)
			idx := sv.globalIndex(s, houses) + 1
			data[idx] = encodeByte(s, v, game.FlagExact)
		})
	}
	if sv.cyclesSeen > 0 {
		klog.Warningf("leaves: solver hit %d cyclic sub-position(s) while building a %d-seed tablebase", sv.cyclesSeen, maxSeeds)
	}

	return &Tablebase{maxSeeds: maxSeeds, offsets: offsets, data: data}, nil
}

type solver struct {
	offsets    []int64
	memo       map[int64]int32
	state      map[int64]uint8 // 0 (absent) = unvisited, 1 = in progress, 2 = done
	cyclesSeen int
}

func (sv *solver) globalIndex(s int, houses [oware.NumHouses]int8) int64 {
	return sv.offsets[s] + rank(houses)
}

// value returns the net future capture differential, from the mover's perspective, of
// the canonical (mover-is-South) position houses with s seeds on the board.
func (sv *solver) value(s int, houses [oware.NumHouses]int8) int32 {
	idx := sv.globalIndex(s, houses)
	if v, ok := sv.memo[idx]; ok {
		return v
	}
	if sv.state[idx] == 1 {
		klog.Warningf("leaves: cycle detected solving seed count %d, treating sub-position as a draw", s)
		sv.cyclesSeen++
		return 0
	}
	sv.state[idx] = 1

	b := &oware.Board{Houses: houses, ToMove: oware.South}
	legal := b.LegalMoves()

	var v int32
	if len(legal) == 0 {
		// The mover has nothing to play: every remaining seed sits on the opponent's
		// side and is awarded to them (oware.Board.FinalScores' starvation rule).
		v = -int32(s)
	} else {
		best := int32(math.MinInt32)
		for _, m := range legal {
			child := b.Clone()
			child.Play(m)
			captured := int32(child.Captured[oware.South])
			childHouses := child.CanonicalHouses()
			childSeeds := s - int(captured)
			candidate := captured - sv.value(childSeeds, childHouses)
			if candidate > best {
				best = candidate
			}
		}
		v = best
	}

	sv.memo[idx] = v
	sv.state[idx] = 2
	return v
}
