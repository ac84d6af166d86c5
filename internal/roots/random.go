package roots

import (
	"math/rand/v2"

	"github.com/abapaengine/core/internal/game"
)

// MinCentiPawns is the immediate-heuristic floor a move must clear to be considered by
// RandomBook.
const MinCentiPawns = -150

// RandomBook needs no file at all: it picks uniformly among legal moves that don't
// immediately look like a blunder, per the static heuristic. Useful as a cheap sparring
// partner and as the trainer's "opponent" policy when no other book conventions apply.
type RandomBook struct {
	outOfBookLatch
	rng *rand.Rand
}

var _ Roots = (*RandomBook)(nil)

func NewRandomBook(rng *rand.Rand) *RandomBook {
	return &RandomBook{rng: rng}
}

func (r *RandomBook) candidates(g game.Game) []game.Move {
	var out []game.Move
	for _, m := range g.LegalMoves() {
		clone := g.Clone()
		if err := clone.MakeMove(m); err != nil {
			continue // an illegal move reported legal by the Game is a domain bug, not ours to fix here.
		}
		cp := clone.ToCentiPawns(game.Score(int32(clone.Score()) * int32(g.Turn())))
		if cp >= MinCentiPawns {
			out = append(out, m)
		}
	}
	return out
}

func (r *RandomBook) PickBestMove(g game.Game) game.Move {
	if r.isOutOfBook() {
		return game.NullMove
	}
	candidates := r.candidates(g)
	if len(candidates) == 0 {
		r.markOutOfBook()
		return game.NullMove
	}
	return candidates[r.rng.IntN(len(candidates))]
}

// PickPonderMove reuses the same uniform policy: a random book has no stronger opinion
// to offer for pondering than for playing.
func (r *RandomBook) PickPonderMove(g game.Game) game.Move {
	return r.PickBestMove(g)
}
