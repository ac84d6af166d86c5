// Package gametest provides a small, deterministic Game implementation used by the test
// suites of internal/negamax, internal/uct, internal/leaves, internal/roots,
// internal/protocol and internal/trainer. It plays no role in the production engine; it exists purely so those
// packages can be exercised against a small deterministic game.
//
// The game is a Nim-style "stones" game: a row of piles, each holding some stones. On a
// turn a player removes 1..maxTake stones from a single non-empty pile. The player who
// removes the last stone wins. It is simple enough that its game-theoretic value can be
// computed independently (Sprague-Grundy) to cross-check search results, yet has a large
// enough state space to exercise iterative deepening, transposition hits, and MCTS.
package gametest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/abapaengine/core/internal/game"
)

// MaxTake is the maximum number of stones removable from a pile in one move.
const MaxTake = 3

type move struct {
	pile, take int
}

func decodeMove(m game.Move) move {
	v := int32(m)
	return move{pile: int(v / 8), take: int(v % 8)}
}

func encodeMove(pile, take int) game.Move {
	return game.Move(int32(pile*8 + take))
}

// undoEntry records enough to reverse one MakeMove call.
type undoEntry struct {
	pile, removed int
}

// Game implements game.Game over a row of Nim piles.
type Game struct {
	piles    []int8
	turn     game.PlayerNum
	history  []game.Move
	undo     []undoEntry
	cursor   game.Cursor
	contempt game.Score
	infinity game.Score
}

var _ game.Game = (*Game)(nil)

// New returns a freshly-initialized Game with the given pile sizes. The first player to
// move is always SOUTH.
func New(piles ...int) *Game {
	p := make([]int8, len(piles))
	for i, v := range piles {
		p[i] = int8(v)
	}
	return &Game{
		piles:    p,
		turn:     game.SOUTH,
		infinity: 1 << 20,
	}
}

// Default returns a small three-pile instance, (3, 4, 5), useful as a canonical test
// fixture across packages.
func Default() *Game {
	return New(3, 4, 5)
}

func (g *Game) MakeMove(m game.Move) error {
	if !g.IsLegal(m) {
		return errors.Errorf("illegal move %v on piles %v", m, g.piles)
	}
	mv := decodeMove(m)
	g.piles[mv.pile] -= int8(mv.take)
	g.undo = append(g.undo, undoEntry{pile: mv.pile, removed: mv.take})
	g.history = append(g.history, m)
	g.turn = g.turn.Other()
	g.cursor = game.CursorStart
	return nil
}

func (g *Game) UnmakeMove() error {
	return g.UnmakeMoves(1)
}

func (g *Game) UnmakeMoves(n int) error {
	if n > len(g.undo) {
		return errors.Errorf("cannot unmake %d moves, only %d played", n, len(g.undo))
	}
	for i := 0; i < n; i++ {
		last := g.undo[len(g.undo)-1]
		g.undo = g.undo[:len(g.undo)-1]
		g.piles[last.pile] += int8(last.removed)
		g.history = g.history[:len(g.history)-1]
		g.turn = g.turn.Other()
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

func (g *Game) Turn() game.PlayerNum { return g.turn }

func (g *Game) legalMovesFrom(pile int) []game.Move {
	var moves []game.Move
	for p := pile; p < len(g.piles); p++ {
		if g.piles[p] <= 0 {
			continue
		}
		maxTake := int(g.piles[p])
		if maxTake > MaxTake {
			maxTake = MaxTake
		}
		for t := 1; t <= maxTake; t++ {
			moves = append(moves, encodeMove(p, t))
		}
	}
	return moves
}

func (g *Game) LegalMoves() []game.Move {
	return g.legalMovesFrom(0)
}

func (g *Game) NextMove() (game.Move, bool) {
	all := g.LegalMoves()
	if int(g.cursor) >= len(all) {
		return game.NullMove, false
	}
	m := all[g.cursor]
	g.cursor++
	return m, true
}

func (g *Game) Cursor() game.Cursor     { return g.cursor }
func (g *Game) SetCursor(c game.Cursor) { g.cursor = c }

func (g *Game) IsLegal(m game.Move) bool {
	if m == game.NullMove {
		return false
	}
	mv := decodeMove(m)
	if mv.pile < 0 || mv.pile >= len(g.piles) {
		return false
	}
	if mv.take < 1 || mv.take > MaxTake {
		return false
	}
	return int(g.piles[mv.pile]) >= mv.take
}

func (g *Game) HasEnded() bool {
	for _, p := range g.piles {
		if p > 0 {
			return false
		}
	}
	return true
}

// Outcome returns, from SOUTH's perspective, who just won: the player who took the last
// stone wins, and that was g.turn.Other() since turn already flipped after the winning
// move.
func (g *Game) Outcome() game.Score {
	if !g.HasEnded() {
		return game.DrawScore
	}
	winner := g.turn.Other()
	if winner == game.SOUTH {
		return g.infinity
	}
	return -g.infinity
}

// IsRepetition never triggers: stone counts strictly decrease, so no position repeats.
func (g *Game) IsRepetition() bool { return false }

// Score is a simple material heuristic, from SOUTH's perspective per the Game
// interface's contract: more stones remaining is treated as bad news for SOUTH,
// regardless of whose turn it is. Nim's actual value is about parity/XOR, not material,
// so this is deliberately an imperfect heuristic -- search depth has to matter to play
// well, exercising the negamax/UCT engines rather than solving the position at depth 0.
func (g *Game) Score() game.Score {
	var total int32
	for _, p := range g.piles {
		total += int32(p)
	}
	return game.Score(-total)
}

// Hash combines the pile counts and the turn into a 64-bit value. Collisions are
// theoretically possible but astronomically unlikely for the small pile sizes used in
// tests.
func (g *Game) Hash() game.Hash {
	var h uint64 = 1469598103934665603 // FNV offset basis
	for _, p := range g.piles {
		h ^= uint64(p)
		h *= 1099511628211 // FNV prime
	}
	h ^= uint64(g.turn) + 2
	h *= 1099511628211
	return game.Hash(h)
}

func (g *Game) Contempt() game.Score     { return g.contempt }
func (g *Game) SetContempt(c game.Score) { g.contempt = c }
func (g *Game) Infinity() game.Score     { return g.infinity }

func (g *Game) ToCentiPawns(s game.Score) int {
	return int(s)
}

func (g *Game) EnsureCapacity(n int) {
	if cap(g.history)-len(g.history) < n {
		grown := make([]game.Move, len(g.history), len(g.history)+n)
		copy(grown, g.history)
		g.history = grown
	}
}

func (g *Game) Board() game.Board {
	return &board{piles: append([]int8(nil), g.piles...)}
}

func (g *Game) Clone() game.Game {
	clone := &Game{
		piles:    append([]int8(nil), g.piles...),
		turn:     g.turn,
		history:  append([]game.Move(nil), g.history...),
		undo:     append([]undoEntry(nil), g.undo...),
		cursor:   g.cursor,
		contempt: g.contempt,
		infinity: g.infinity,
	}
	return clone
}

// Piles exposes the current pile state for assertions in tests.
func (g *Game) Piles() []int8 { return g.piles }

// FailingGame wraps Game, refusing every MakeMove after the first FailAfter calls. It
// exists so engine tests can exercise the fatal domain-error path: an illegal move
// surfaced mid-search must propagate out of compute_best_move as an error.
type FailingGame struct {
	*Game
	FailAfter int
	calls     int
}

var _ game.Game = (*FailingGame)(nil)

// NewFailing returns a FailingGame over the given piles whose MakeMove starts failing
// after failAfter successful calls.
func NewFailing(failAfter int, piles ...int) *FailingGame {
	return &FailingGame{Game: New(piles...), FailAfter: failAfter}
}

func (f *FailingGame) MakeMove(m game.Move) error {
	f.calls++
	if f.calls > f.FailAfter {
		return errors.Errorf("gametest: refusing move %v after %d calls", m, f.FailAfter)
	}
	return f.Game.MakeMove(m)
}

type board struct {
	piles []int8
}

var _ game.Board = (*board)(nil)

func (b *board) ToDiagram() string {
	parts := make([]string, len(b.piles))
	for i, p := range b.piles {
		parts[i] = strconv.Itoa(int(p))
	}
	return strings.Join(parts, "|")
}

func (b *board) ToCoordinates(m game.Move) string {
	mv := decodeMove(m)
	return fmt.Sprintf("%d-%d", mv.pile, mv.take)
}

func (b *board) ToMove(coord string) (game.Move, error) {
	parts := strings.SplitN(coord, "-", 2)
	if len(parts) != 2 {
		return game.NullMove, errors.Errorf("malformed coordinate %q", coord)
	}
	pile, err := strconv.Atoi(parts[0])
	if err != nil {
		return game.NullMove, errors.Wrapf(err, "malformed pile in %q", coord)
	}
	take, err := strconv.Atoi(parts[1])
	if err != nil {
		return game.NullMove, errors.Wrapf(err, "malformed take in %q", coord)
	}
	return encodeMove(pile, take), nil
}

func (b *board) ToNotation(moves []game.Move) string {
	parts := make([]string, len(moves))
	for i, m := range moves {
		parts[i] = b.ToCoordinates(m)
	}
	return strings.Join(parts, " ")
}

func (b *board) ToMoves(notation string) ([]game.Move, error) {
	if strings.TrimSpace(notation) == "" {
		return nil, nil
	}
	parts := strings.Fields(notation)
	moves := make([]game.Move, len(parts))
	for i, part := range parts {
		m, err := b.ToMove(part)
		if err != nil {
			return nil, err
		}
		moves[i] = m
	}
	return moves, nil
}
