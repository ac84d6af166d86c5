// Package roots implements the opening-book ("Roots") collaborator: a move-picker
// consulted before the Negamax/UCT engines are invoked at all, plus the sorted
// fixed-record file format shared by the BaseBook and UCTBook variants.
package roots

import "github.com/abapaengine/core/internal/game"

// Roots is the contract every opening-book variant satisfies.
type Roots interface {
	// PickBestMove returns a move to play at g's current position, or game.NullMove if
	// the position is out of book. Once a
	// variant has returned NullMove within a match it must keep doing so until
	// NewMatch is called again.
	PickBestMove(g game.Game) game.Move

	// PickPonderMove returns the move this book expects the opponent to answer with,
	// for speculative search during their clock.
	PickPonderMove(g game.Game) game.Move

	// NewMatch resets the out-of-book latch for a fresh game.
	NewMatch()
}

// outOfBookLatch implements the "sentinel set on first miss" behavior shared by every
// Roots variant.
type outOfBookLatch struct {
	missed bool
}

func (l *outOfBookLatch) isOutOfBook() bool { return l.missed }
func (l *outOfBookLatch) markOutOfBook()    { l.missed = true }

// NewMatch clears the latch. Concrete types embed outOfBookLatch and either use this
// method directly to satisfy Roots, or wrap it if they hold more per-match state.
func (l *outOfBookLatch) NewMatch() { l.missed = false }
