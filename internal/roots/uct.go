package roots

import (
	"math"
	"math/rand/v2"

	"k8s.io/klog/v2"

	"github.com/abapaengine/core/internal/game"
)

// UCTBook is the UCT-trained opening-book variant. It shares
// BaseBook's file format but stores (and reads) scores as upper-confidence bounds of
// the *negated* score — the opposite sign convention from BaseBook; a book trained
// for one variant is misread by the other, by design.
//
// Entries surviving two filters — within `Disturbance` of the best bound, and at least
// `Threshold` — are then chosen from randomly, weighted by visit Count.
type UCTBook struct {
	outOfBookLatch
	file *File
	rng  *rand.Rand

	Disturbance float64
	Threshold   float64
}

var _ Roots = (*UCTBook)(nil)

// NewUCTBook wraps an already-open book File whose scores follow this picker's negated
// convention; internal/trainer's Export writes the BaseBook convention, not this one.
func NewUCTBook(file *File, rng *rand.Rand) *UCTBook {
	return &UCTBook{file: file, rng: rng}
}

// bound computes the upper-confidence bound of the negated stored score: higher is
// more attractive, matching this variant's flipped sign convention.
func bound(infinity float64, r Record) float64 {
	if r.Count <= 0 {
		return math.Inf(1)
	}
	return -r.Score + infinity/math.Sqrt(float64(r.Count))
}

func (u *UCTBook) legalRecords(g game.Game) []Record {
	records, err := u.file.Lookup(g.Hash())
	if err != nil {
		klog.Errorf("roots: uct book lookup failed, treating as out of book: %+v", err)
		return nil
	}
	var legal []Record
	for _, r := range records {
		if g.IsLegal(r.Move) {
			legal = append(legal, r)
		}
	}
	return legal
}

func (u *UCTBook) PickBestMove(g game.Game) game.Move {
	if u.isOutOfBook() {
		return game.NullMove
	}
	legal := u.legalRecords(g)
	if len(legal) == 0 {
		u.markOutOfBook()
		return game.NullMove
	}

	infinity := float64(g.Infinity())
	best := bound(infinity, legal[0])
	for _, r := range legal[1:] {
		if v := bound(infinity, r); v > best {
			best = v
		}
	}

	var survivors []Record
	var weight int64
	for _, r := range legal {
		b := bound(infinity, r)
		if best-b > u.Disturbance {
			continue
		}
		if b < u.Threshold {
			continue
		}
		survivors = append(survivors, r)
		weight += max(r.Count, 1)
	}
	if len(survivors) == 0 {
		u.markOutOfBook()
		return game.NullMove
	}

	pick := u.rng.Int64N(weight)
	for _, r := range survivors {
		w := max(r.Count, 1)
		if pick < w {
			return r.Move
		}
		pick -= w
	}
	return survivors[len(survivors)-1].Move
}

// PickPonderMove mirrors BaseBook's exploitative choice, using this variant's own sign
// convention: the lowest negated-score entry is the strongest for the mover.
func (u *UCTBook) PickPonderMove(g game.Game) game.Move {
	if u.isOutOfBook() {
		return game.NullMove
	}
	legal := u.legalRecords(g)
	if len(legal) == 0 {
		return game.NullMove
	}
	best := legal[0]
	for _, r := range legal[1:] {
		if r.Score < best.Score {
			best = r
		}
	}
	return best.Move
}
