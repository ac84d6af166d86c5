// Package leaves implements the endgame tablebase ("Leaves") collaborator: a
// read-only, exact lookup for positions inside its domain, and the offline
// perfect-hash retrograde solver that builds it. The contract mirrors
// internal/negamax.Leaves and internal/uct's equivalent: Find reports a hit and primes
// Score/Flag, which stay valid until the next Find.
package leaves

import (
	"github.com/abapaengine/core/internal/game"
)

// Leaves is the generic contract every tablebase implementation satisfies. It is
// declared here (rather than only embedded in internal/negamax/internal/uct) so CLI
// and protocol code can depend on one name for "a tablebase", concrete or stub.
type Leaves interface {
	// Find reports whether g's current position is inside the tablebase's domain. On a
	// true return, Score and Flag describe it from the side to move's perspective;
	// their value is unspecified after a false return.
	Find(g game.Game) bool
	Score() game.Score
	Flag() game.Flag
}

// Stub is a trivial Leaves that never hits, used when no tablebase is configured. Its
// zero value is ready to use.
type Stub struct{}

var _ Leaves = Stub{}

func (Stub) Find(game.Game) bool { return false }
func (Stub) Score() game.Score   { return 0 }
func (Stub) Flag() game.Flag     { return game.FlagEmpty }
