package roots

import (
	"math"
	"math/rand/v2"

	"k8s.io/klog/v2"

	"github.com/abapaengine/core/internal/game"
)

// BaseBook is the plain opening-book variant: it picks the legal entry
// minimizing a lower-confidence bound (score is pessimistic as count grows), breaking
// ties within `contempt` of the bound uniformly at random.
type BaseBook struct {
	outOfBookLatch
	file     *File
	rng      *rand.Rand
	contempt float64
}

var _ Roots = (*BaseBook)(nil)

// NewBaseBook wraps an already-open book File. rng must be non-nil; all randomness is
// injected, so callers own seeding it for reproducible tests.
func NewBaseBook(file *File, rng *rand.Rand) *BaseBook {
	return &BaseBook{file: file, rng: rng}
}

// SetContempt configures the random-tie-break gap: entries within contempt of the
// best bound are chosen among uniformly at random.
func (b *BaseBook) SetContempt(c game.Score) { b.contempt = float64(c) }

func (b *BaseBook) lowerConfidenceBound(infinity float64, r Record) float64 {
	if r.Count <= 0 {
		return math.Inf(1)
	}
	return r.Score + infinity/math.Sqrt(float64(r.Count))
}

func (b *BaseBook) legalRecords(g game.Game) []Record {
	records, err := b.file.Lookup(g.Hash())
	if err != nil {
		klog.Errorf("roots: base book lookup failed, treating as out of book: %+v", err)
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

func (b *BaseBook) PickBestMove(g game.Game) game.Move {
	if b.isOutOfBook() {
		return game.NullMove
	}
	legal := b.legalRecords(g)
	if len(legal) == 0 {
		b.markOutOfBook()
		return game.NullMove
	}

	infinity := float64(g.Infinity())
	best := b.lowerConfidenceBound(infinity, legal[0])
	for _, r := range legal[1:] {
		if v := b.lowerConfidenceBound(infinity, r); v < best {
			best = v
		}
	}

	var within []Record
	for _, r := range legal {
		if b.lowerConfidenceBound(infinity, r)-best <= b.contempt {
			within = append(within, r)
		}
	}
	if len(within) == 0 {
		within = legal // lowerConfidenceBound arithmetic never actually misses best.
	}
	return within[b.rng.IntN(len(within))].Move
}

// PickPonderMove returns the highest-average-score legal reply (exploitative): the
// book's best guess at what its own training considers the strongest
// continuation, used to search during the opponent's clock.
func (b *BaseBook) PickPonderMove(g game.Game) game.Move {
	if b.isOutOfBook() {
		return game.NullMove
	}
	legal := b.legalRecords(g)
	if len(legal) == 0 {
		return game.NullMove
	}
	best := legal[0]
	for _, r := range legal[1:] {
		if r.Score > best.Score {
			best = r
		}
	}
	return best.Move
}
