// Package game defines the capability contract that every search algorithm in this
// module is written against. It deliberately knows nothing about the rules, move
// generation or hashing of any particular game: those are collapsed into the Game
// interface below and supplied by an external collaborator (internal/oware is the one
// concrete instance shipped with this repo; internal/gametest is a minimal mock used by
// the test suites of internal/negamax, internal/uct and internal/trainer).
package game

import "fmt"

// Hash is an opaque 64-bit identifier of a game state, including whose turn it is.
// It is expected to be collision-free within the lifetime of a single match; callers
// that cache by Hash (internal/cache, internal/leaves, internal/roots) must treat a
// collision as a miss of last resort, never as a correctness bug.
type Hash uint64

// Move is an opaque 32-bit move identifier. NullMove is returned when there is no move
// to make (terminal position, resignation, or search failure).
type Move int32

// NullMove is the sentinel "no move" value. Real moves are never negative.
const NullMove Move = -1

func (m Move) String() string {
	if m == NullMove {
		return "(null)"
	}
	return fmt.Sprintf("m%d", int32(m))
}

// PlayerNum identifies whose turn it is. SOUTH and NORTH are the two seats of an Oware
// Abapa board, but the names are kept generic enough for any two-player zero-sum game.
type PlayerNum int8

const (
	SOUTH PlayerNum = 1
	NORTH PlayerNum = -1
)

// Other returns the opposing player.
func (p PlayerNum) Other() PlayerNum {
	return -p
}

func (p PlayerNum) String() string {
	switch p {
	case SOUTH:
		return "SOUTH"
	case NORTH:
		return "NORTH"
	default:
		return "INVALID"
	}
}

// Score is a signed evaluation. Engines normalize it negamax-style: positive is always
// good for the side to move. DrawScore is the game-provided neutral value; a running
// search may substitute Contempt for it (see Game.Contempt).
type Score int32

// DrawScore is the default neutral value returned by games that don't override it.
const DrawScore Score = 0

// Flag qualifies a stored Score as a bound, for transposition-table and tablebase
// entries alike.
type Flag uint8

const (
	FlagEmpty Flag = iota
	FlagLower
	FlagUpper
	FlagExact
)

func (f Flag) String() string {
	switch f {
	case FlagLower:
		return "LOWER"
	case FlagUpper:
		return "UPPER"
	case FlagExact:
		return "EXACT"
	default:
		return "EMPTY"
	}
}

// Depth is a non-negative count of remaining search plies.
type Depth int8

// MaxDepth is the hard ceiling on iterative-deepening, per spec.
const MaxDepth Depth = 127

// Cursor is a resumable position in a game's legal-move enumeration. It is opaque to
// every search algorithm: Game.NextMove advances it, Game.SetCursor rewinds it. Two
// calls to NextMove from the same Cursor value, on the same position, must yield the
// same Move.
type Cursor uint32

// CursorStart is the cursor value a fresh enumeration begins from.
const CursorStart Cursor = 0

// Board is the read side of a position: notation and diagram conversions. It is kept
// separate from Game because it is useful to hold on to a position (e.g. in a
// transposition table's auxiliary move field, or a book's exported snapshot) without
// holding on to the live, mutable Game cursor.
type Board interface {
	// ToDiagram renders a human-readable, game-specific diagram of the position.
	ToDiagram() string

	// ToCoordinates renders a single move in the game's coordinate grammar.
	ToCoordinates(m Move) string

	// ToMove parses a single move from the game's coordinate grammar.
	ToMove(coord string) (Move, error)

	// ToNotation renders a move sequence using the game's notation grammar.
	ToNotation(moves []Move) string

	// ToMoves parses a move sequence from the game's notation grammar.
	ToMoves(notation string) ([]Move, error)
}

// Game is a mutable cursor over a rooted game tree. Implementations are NOT required to
// be safe for concurrent use; the search core is single-threaded and never
// calls into a Game from more than one goroutine at a time.
type Game interface {
	// MakeMove executes m, updating the receiver in place. An illegal move is a fatal
	// domain error: implementations should return a non-nil error rather
	// than corrupt internal state.
	MakeMove(m Move) error

	// UnmakeMove reverses the most recent MakeMove.
	UnmakeMove() error

	// UnmakeMoves reverses the last n moves.
	UnmakeMoves(n int) error

	// Length returns the number of moves played so far (the game's current ply count).
	Length() int

	// Moves returns the moves played so far, in order.
	Moves() []Move

	// Turn returns which player is to move.
	Turn() PlayerNum

	// NextMove returns the next legal move from the Game's current cursor position, and
	// advances the cursor. The second return value is false once enumeration is
	// exhausted (not NullMove, to let NullMove remain a valid single sentinel value
	// rather than overload it for "end of iteration").
	NextMove() (Move, bool)

	// Cursor returns the current move-generation cursor.
	Cursor() Cursor

	// SetCursor rewinds/advances the move-generation cursor to c.
	SetCursor(c Cursor)

	// LegalMoves enumerates every legal move from the current position. It must be
	// deterministic given the same position and must agree, move for move, with what
	// NextMove would produce from CursorStart.
	LegalMoves() []Move

	// IsLegal reports whether m is a legal move from the current position.
	IsLegal(m Move) bool

	// HasEnded reports whether the current position is terminal.
	HasEnded() bool

	// Outcome returns the terminal result from SOUTH's perspective (+Infinity win,
	// -Infinity loss, DrawScore draw). Only valid when HasEnded() is true.
	Outcome() Score

	// IsRepetition reports whether the current position has already occurred earlier
	// in the match (used by engines to detect draws before the game itself would call
	// them terminal). Games that don't track repetitions may always return false.
	IsRepetition() bool

	// Score returns the static heuristic evaluation of the current position, from
	// SOUTH's perspective. It is not normalized to the side to move; engines do that.
	Score() Score

	// Hash returns the Zobrist-style hash of the current position, including whose
	// turn it is.
	Hash() Hash

	// Contempt returns the value engines should substitute for DrawScore when they
	// want to steer away from (negative) or towards (positive) draws.
	Contempt() Score

	// Infinity returns the magnitude used to represent a proved win/loss.
	Infinity() Score

	// ToCentiPawns converts an internal Score to a game-agnostic "centipawn" style unit
	// for reporting purposes.
	ToCentiPawns(s Score) int

	// EnsureCapacity is a hint that the Game may allocate internal buffers (move
	// history, derived caches) to support at least n additional plies without further
	// reallocation. It is always safe to ignore.
	EnsureCapacity(n int)

	// Board exposes the read-only notation/diagram view of the current position.
	Board() Board

	// Clone returns an independent deep copy of the Game, including its move history.
	Clone() Game
}
