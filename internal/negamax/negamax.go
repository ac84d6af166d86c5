// Package negamax implements the iterative-deepening Negamax engine with alpha-beta
// pruning and principal-variation search (PVS). It is the workhorse,
// deterministic search algorithm of the engine, used whenever a proved-correct and
// reproducible evaluation matters more than raw exploration breadth (contrast with
// internal/uct).
//
// The engine is an iterative-deepening loop around a recursive alpha-beta search, with
// a fluent Set* configuration surface and a Stats struct for node/eval/prune counters.
package negamax

import (
	"time"

	"github.com/chewxy/math32"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/abapaengine/core/internal/game"
	"github.com/abapaengine/core/internal/report"
	"github.com/abapaengine/core/internal/timecontrol"
)

// Cache is the subset of internal/cache.Cache's API the engine needs. Declared locally
// (rather than imported) so internal/negamax stays decoupled from any one cache
// implementation.
type Cache interface {
	Find(h game.Hash) (score game.Score, move game.Move, depth game.Depth, flag game.Flag, ok bool)
	Store(h game.Hash, score game.Score, move game.Move, depth game.Depth, flag game.Flag)
	Discharge()
}

// Leaves is the subset of internal/leaves.Tablebase's API the engine needs.
type Leaves interface {
	Find(g game.Game) bool
	Score() game.Score
	Flag() game.Flag
}

// Stats collects running counters for benchmarking and monitoring.
type Stats struct {
	Nodes  int
	Evals  int
	Prunes int
}

// Engine implements the iterative-deepening PVS/alpha-beta Negamax search.
//
// It is single-threaded: compute_best_move/compute_best_score block the caller until
// either a deadline fires or the requested depth completes.
type Engine struct {
	maxDepth game.Depth
	moveTime time.Duration
	contempt game.Score
	infinity game.Score // proved win/loss magnitude override; 0 defers to the game's own.

	cache  Cache
	leaves Leaves

	consumers report.Broadcaster
	aborter   *timecontrol.Aborter

	stats Stats

	// bestMoveOfLastIteration and bestScoreOfLastIteration record the result of the
	// last fully-completed iterative-deepening iteration, returned on abort.
	bestMoveOfLastIteration  game.Move
	bestScoreOfLastIteration game.Score

	iterDepth game.Depth // depth of the iteration currently in flight; used for the abort check.
}

// New returns a ready-to-configure Engine. At least SetDepth or SetMoveTime must be
// called before ComputeBestMove.
func New() *Engine {
	return &Engine{
		aborter:  timecontrol.NewAborter(),
		maxDepth: 0,
	}
}

// SetDepth sets a fixed search depth, in plies. Overrides any previous SetMoveTime.
func (e *Engine) SetDepth(d game.Depth) *Engine {
	if d > game.MaxDepth {
		d = game.MaxDepth
	}
	e.maxDepth = d
	e.moveTime = 0
	return e
}

// SetMoveTime sets a wall-clock budget: the engine iteratively deepens until d elapses.
func (e *Engine) SetMoveTime(d time.Duration) *Engine {
	e.moveTime = d
	return e
}

// SetContempt sets the score substituted for game.DrawScore when the engine detects a
// draw or repetition.
func (e *Engine) SetContempt(c game.Score) *Engine {
	e.contempt = c
	return e
}

// SetInfinity overrides the magnitude treated as a proved win/loss, used for the
// root search window and for terminating early on a forced result. When unset the
// engine uses the game's own Infinity().
func (e *Engine) SetInfinity(s game.Score) *Engine {
	e.infinity = s
	return e
}

func (e *Engine) infinityFor(g game.Game) game.Score {
	if e.infinity > 0 {
		return e.infinity
	}
	return g.Infinity()
}

// SetCache attaches the transposition table collaborator.
func (e *Engine) SetCache(c Cache) *Engine {
	e.cache = c
	return e
}

// SetLeaves attaches the endgame tablebase collaborator.
func (e *Engine) SetLeaves(l Leaves) *Engine {
	e.leaves = l
	return e
}

// AttachConsumer registers a report consumer, notified between iterations.
func (e *Engine) AttachConsumer(c report.Consumer) *Engine {
	e.consumers.Attach(c)
	return e
}

// AbortComputation requests an immediate stop.
func (e *Engine) AbortComputation() {
	e.aborter.Abort()
}

// AbortComputationAfter requests a stop after delay elapses.
func (e *Engine) AbortComputationAfter(delay time.Duration) {
	e.aborter.AbortAfter(delay)
}

// Stats returns a copy of the engine's running statistics.
func (e *Engine) Stats() Stats {
	return e.stats
}

// ComputeBestScore returns the root score of the last completed iteration.
func (e *Engine) ComputeBestScore() game.Score {
	return e.bestScoreOfLastIteration
}

// ComputeBestMove returns a best move for g's current position, or game.NullMove if g
// is already terminal. An illegal move or failed unmake surfaced by g is a fatal domain
// error, returned to the caller; internal invariant violations (corrupt cache slot,
// impossible search state) are recovered and turned into a null-move result rather
// than a crash.
func (e *Engine) ComputeBestMove(g game.Game) (best game.Move, err error) {
	e.aborter.Reset()
	e.stats = Stats{}
	e.bestMoveOfLastIteration = game.NullMove
	e.bestScoreOfLastIteration = 0

	if g.HasEnded() {
		return game.NullMove, nil
	}

	if e.moveTime > 0 {
		e.aborter.ArmDeadline(e.moveTime)
		defer e.aborter.Stop()
	}

	var searchErr error
	recoverErr := exceptions.TryCatch[error](func() {
		searchErr = e.iterativeDeepen(g)
	})
	if recoverErr != nil {
		klog.Errorf("negamax: internal invariant violation recovered, returning null move: %+v", recoverErr)
		return game.NullMove, nil
	}
	if searchErr != nil {
		return game.NullMove, searchErr
	}

	if e.bestMoveOfLastIteration == game.NullMove {
		// Aborted before even depth 1 completed: fall back to the first legal move
		// rather than returning no move at all.
		if legal := g.LegalMoves(); len(legal) > 0 {
			return legal[0], nil
		}
	}
	return e.bestMoveOfLastIteration, nil
}

func (e *Engine) iterativeDeepen(g game.Game) error {
	limit := e.maxDepth
	if limit <= 0 || limit > game.MaxDepth {
		limit = game.MaxDepth
	}

	inf := e.infinityFor(g)
	for depth := game.Depth(1); depth <= limit; depth++ {
		e.iterDepth = depth
		if e.cache != nil {
			e.cache.Discharge()
		}

		score, flag, move, interrupted, err := e.search(g, depth, -inf, inf)
		if err != nil {
			return err
		}
		if interrupted {
			break
		}

		e.bestScoreOfLastIteration = score
		e.bestMoveOfLastIteration = move

		pv, err := e.principalVariation(g, depth, move)
		if err != nil {
			return err
		}
		e.consumers.Notify(report.Report{
			Depth:        depth,
			Flag:         flag,
			CentiPawns:   g.ToCentiPawns(score),
			PV:           pv,
			NodesVisited: uint64(e.stats.Nodes),
		})

		if math32.Abs(float32(score)) >= float32(inf) {
			// Proved win/loss: no point searching deeper.
			break
		}
		if e.moveTime == 0 && depth == e.maxDepth {
			break
		}
	}
	return nil
}

// search is one fail-soft PVS node visit: abort check, terminal/tablebase/heuristic
// leaf handling, cache probe, move loop, cache store. A non-nil err is a domain error
// from the game (illegal move, failed unmake) and aborts the whole search.
func (e *Engine) search(g game.Game, depth game.Depth, alpha, beta game.Score) (
	score game.Score, flag game.Flag, move game.Move, interrupted bool, err error) {

	// 1. Abort check.
	if e.aborter.Aborted() && depth < e.iterDepth {
		return 0, game.FlagEmpty, game.NullMove, true, nil
	}

	turn := int32(g.Turn())

	// Draw detection via repetition, rewritten to contempt.
	if g.IsRepetition() {
		return game.Score(int32(e.contempt) * turn), game.FlagExact, game.NullMove, false, nil
	}

	// 2. Terminal.
	if g.HasEnded() {
		outcome := g.Outcome()
		if outcome == game.DrawScore {
			outcome = e.contempt
		}
		return game.Score(int32(outcome) * turn), game.FlagExact, game.NullMove, false, nil
	}

	// 3. Tablebase shortcut.
	if e.leaves != nil && e.leaves.Find(g) {
		return game.Score(int32(e.leaves.Score()) * turn), e.leaves.Flag(), game.NullMove, false, nil
	}

	// 4. Leaf: heuristic evaluation.
	if depth <= 0 {
		e.stats.Evals++
		return game.Score(int32(g.Score()) * turn), game.FlagExact, game.NullMove, false, nil
	}

	hash := g.Hash()
	orderedBest := game.NullMove

	// 5. Cache probe.
	if e.cache != nil {
		if cs, cm, cd, cf, ok := e.cache.Find(hash); ok {
			orderedBest = cm
			if cd >= depth {
				switch cf {
				case game.FlagExact:
					return cs, cf, cm, false, nil
				case game.FlagLower:
					if cs > alpha {
						alpha = cs
					}
				case game.FlagUpper:
					if cs < beta {
						beta = cs
					}
				}
				if alpha >= beta {
					return cs, cf, cm, false, nil
				}
			}
		}
	}

	// 6. Generate and order moves.
	moves := orderedMoves(g, orderedBest)
	if len(moves) == 0 {
		exceptions.Panicf("negamax: non-terminal position %d has no legal moves", hash)
	}

	origAlpha := alpha
	bestScore := -e.infinityFor(g)
	bestMove := game.NullMove
	first := true

	for _, m := range moves {
		if e.aborter.Aborted() && depth < e.iterDepth {
			interrupted = true
			break
		}

		if makeErr := g.MakeMove(m); makeErr != nil {
			return 0, game.FlagEmpty, game.NullMove, false, errors.Wrapf(makeErr, "negamax: making move %v", m)
		}
		e.stats.Nodes++

		var childScore game.Score
		var childInterrupted bool
		var childErr error
		if first {
			childScore, _, _, childInterrupted, childErr = e.search(g, depth-1, -beta, -alpha)
		} else {
			// Null-window search (PVS): probe whether m can beat alpha at all.
			childScore, _, _, childInterrupted, childErr = e.search(g, depth-1, -alpha-1, -alpha)
			if childErr == nil && !childInterrupted && -childScore > alpha && -childScore < beta {
				// Fail-high: re-search with the full window.
				childScore, _, _, childInterrupted, childErr = e.search(g, depth-1, -beta, -alpha)
			}
		}
		if unmakeErr := g.UnmakeMove(); unmakeErr != nil && childErr == nil {
			childErr = errors.Wrapf(unmakeErr, "negamax: unmaking move %v", m)
		}
		if childErr != nil {
			return 0, game.FlagEmpty, game.NullMove, false, childErr
		}

		if childInterrupted {
			interrupted = true
			break
		}

		s := -childScore
		if s > bestScore {
			bestScore = s
			bestMove = m
		}
		if s > alpha {
			alpha = s
		}
		if alpha >= beta {
			e.stats.Prunes++
			break
		}
		first = false
	}

	if interrupted {
		return 0, game.FlagEmpty, game.NullMove, true, nil
	}

	resultFlag := game.FlagExact
	switch {
	case alpha >= beta:
		resultFlag = game.FlagLower
	case bestScore <= origAlpha:
		resultFlag = game.FlagUpper
	}

	if e.cache != nil {
		e.cache.Store(hash, bestScore, bestMove, depth, resultFlag)
	}

	return bestScore, resultFlag, bestMove, false, nil
}

// principalVariation recovers the best line of the just-completed iteration by walking
// the cache's stored best moves from the root, up to depth plies. Only EXACT entries
// extend the line: a bound entry's move may come from a cut-off, not a proven best
// continuation. Every made move is unmade before returning; a failed unmake is a
// domain error, like any other in the search.
func (e *Engine) principalVariation(g game.Game, depth game.Depth, first game.Move) ([]game.Move, error) {
	pv := []game.Move{first}
	if e.cache == nil || first == game.NullMove {
		return pv, nil
	}
	made := 0
	next := first
	for game.Depth(len(pv)) < depth {
		if !g.IsLegal(next) || g.MakeMove(next) != nil {
			break
		}
		made++
		_, move, _, flag, ok := e.cache.Find(g.Hash())
		if !ok || flag != game.FlagExact || move == game.NullMove {
			break
		}
		pv = append(pv, move)
		next = move
	}
	for ; made > 0; made-- {
		if err := g.UnmakeMove(); err != nil {
			return nil, errors.Wrap(err, "negamax: unmaking move extracting pv")
		}
	}
	return pv, nil
}

// orderedMoves enumerates g's legal moves via its resumable cursor, placing preferred
// at the front if present among them.
func orderedMoves(g game.Game, preferred game.Move) []game.Move {
	start := g.Cursor()
	g.SetCursor(game.CursorStart)
	var moves []game.Move
	for {
		m, ok := g.NextMove()
		if !ok {
			break
		}
		moves = append(moves, m)
	}
	g.SetCursor(start)

	if preferred == game.NullMove {
		return moves
	}
	for i, m := range moves {
		if m == preferred {
			moves[0], moves[i] = moves[i], moves[0]
			break
		}
	}
	return moves
}
