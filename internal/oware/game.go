package oware

import (
	"github.com/pkg/errors"

	"github.com/abapaengine/core/internal/game"
)

// Infinity is the magnitude used for a proved win/loss. It sits comfortably above the
// maximum heuristic Score magnitude (see Game.Score) so search code can tell "proved"
// and "merely very good" apart by comparing against it.
const Infinity game.Score = 1000

// Game implements internal/game.Game over an Oware Abapa Board, adding the move
// history, resumable cursor and repetition bookkeeping the capability interface
// requires but Board itself (a pure rules engine) does not carry.
type Game struct {
	board *Board

	history   []game.Move
	snapshots []Board // board state *before* the move at the same index in history

	cursor game.Cursor

	contempt   game.Score
	hashCounts map[game.Hash]int
}

var _ game.Game = (*Game)(nil)

// New returns a freshly-initialized Oware Abapa match, South to move.
func New() *Game {
	b := NewBoard()
	g := &Game{
		board:      b,
		hashCounts: make(map[game.Hash]int, 64),
	}
	g.hashCounts[b.Hash()] = 1
	return g
}

func houseOf(m game.Move) int { return int(m) }

func (g *Game) MakeMove(m game.Move) error {
	h := houseOf(m)
	if !g.board.IsLegalHouse(h) {
		return errors.Errorf("oware: illegal move %v on position\n%s", m, g.board)
	}
	g.snapshots = append(g.snapshots, *g.board)
	g.board.Play(h)
	g.history = append(g.history, m)
	g.hashCounts[g.board.Hash()]++
	g.cursor = game.CursorStart
	return nil
}

func (g *Game) UnmakeMove() error {
	return g.UnmakeMoves(1)
}

func (g *Game) UnmakeMoves(n int) error {
	if n < 0 || n > len(g.history) {
		return errors.Errorf("oware: cannot unmake %d moves, only %d played", n, len(g.history))
	}
	for i := 0; i < n; i++ {
		g.hashCounts[g.board.Hash()]--
		last := g.snapshots[len(g.snapshots)-1]
		g.snapshots = g.snapshots[:len(g.snapshots)-1]
		g.history = g.history[:len(g.history)-1]
		*g.board = last
	}
	g.cursor = game.CursorStart
	return nil
}

func (g *Game) Length() int { return len(g.history) }

func (g *Game) Moves() []game.Move {
	out := make([]game.Move, len(g.history))
	copy(out, g.history)
	return out
}

func (g *Game) Turn() game.PlayerNum {
	if g.board.ToMove == South {
		return game.SOUTH
	}
	return game.NORTH
}

func (g *Game) LegalMoves() []game.Move {
	houses := g.board.LegalMoves()
	out := make([]game.Move, len(houses))
	for i, h := range houses {
		out[i] = game.Move(int32(h))
	}
	return out
}

func (g *Game) NextMove() (game.Move, bool) {
	moves := g.LegalMoves()
	if int(g.cursor) >= len(moves) {
		return game.NullMove, false
	}
	m := moves[g.cursor]
	g.cursor++
	return m, true
}

func (g *Game) Cursor() game.Cursor     { return g.cursor }
func (g *Game) SetCursor(c game.Cursor) { g.cursor = c }

func (g *Game) IsLegal(m game.Move) bool {
	if m == game.NullMove {
		return false
	}
	return g.board.IsLegalHouse(houseOf(m))
}

func (g *Game) HasEnded() bool { return g.board.HasEnded() }

// Outcome returns, from SOUTH's perspective, the result of a terminal position: the
// drawing rules (repetition and the 50-no-capture-move threshold) always yield
// game.DrawScore; otherwise the side with the higher final capture total wins
// Infinity/-Infinity.
func (g *Game) Outcome() game.Score {
	if !g.board.HasEnded() {
		return game.DrawScore
	}
	if g.board.NoCaptureRun >= 100 {
		return game.DrawScore
	}
	south, north := g.board.FinalScores()
	switch {
	case south > north:
		return Infinity
	case north > south:
		return -Infinity
	default:
		return game.DrawScore
	}
}

// IsRepetition reports whether the current full position (including captures and side
// to move) has now occurred three times in this match.
func (g *Game) IsRepetition() bool {
	return g.hashCounts[g.board.Hash()] >= 3
}

// Score is a material heuristic from SOUTH's perspective: ten times the capture
// difference plus the on-board seed difference. Its magnitude never approaches
// Infinity, so engines can distinguish a proved result from a merely strong one.
func (g *Game) Score() game.Score {
	capDiff := int32(g.board.Captured[South]) - int32(g.board.Captured[North])
	seedDiff := int32(g.board.SeedsOnSide(South)) - int32(g.board.SeedsOnSide(North))
	return game.Score(capDiff*10 + seedDiff)
}

func (g *Game) Hash() game.Hash { return g.board.Hash() }

func (g *Game) Contempt() game.Score { return g.contempt }

// SetContempt lets a CLI/protocol layer configure the draw-aversion value this Game
// reports via Contempt(). Not part of the game.Game interface; the engines read it
// through their own SetContempt before a search, but a front end may want the game's
// opinion as a starting default.
func (g *Game) SetContempt(c game.Score) { g.contempt = c }

func (g *Game) Infinity() game.Score { return Infinity }

func (g *Game) ToCentiPawns(s game.Score) int { return int(s) }

func (g *Game) EnsureCapacity(n int) {
	if cap(g.history)-len(g.history) < n {
		grownMoves := make([]game.Move, len(g.history), len(g.history)+n)
		copy(grownMoves, g.history)
		g.history = grownMoves

		grownSnaps := make([]Board, len(g.snapshots), len(g.snapshots)+n)
		copy(grownSnaps, g.snapshots)
		g.snapshots = grownSnaps
	}
}

func (g *Game) Board() game.Board { return &boardView{b: g.board.Clone()} }

func (g *Game) Clone() game.Game {
	clone := &Game{
		board:      g.board.Clone(),
		history:    append([]game.Move(nil), g.history...),
		snapshots:  append([]Board(nil), g.snapshots...),
		cursor:     g.cursor,
		contempt:   g.contempt,
		hashCounts: make(map[game.Hash]int, len(g.hashCounts)),
	}
	for k, v := range g.hashCounts {
		clone.hashCounts[k] = v
	}
	return clone
}

// RawBoard exposes the underlying Board for callers that need the concrete Oware rules
// surface (the tablebase builder, the CLI's board printer) rather than the generic
// game.Game capability.
func (g *Game) RawBoard() *Board { return g.board }
