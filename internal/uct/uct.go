// Package uct implements the best-first Monte-Carlo tree search engine:
// a UCT tree policy over an arena of nodes, using a heuristic evaluator by default (and
// a random-rollout variant for Monte-Carlo style play), with root-subtree reuse across
// successive searches.
//
// The tree is an arena of index-addressed nodes instead of pointer-linked ones, with a
// fluent Set* configuration surface mirroring internal/negamax, a periodic best-child
// report, and the plain UCT selection formula (exploration scaled by the root's
// running score range, no policy network).
package uct

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/abapaengine/core/internal/game"
	"github.com/abapaengine/core/internal/report"
	"github.com/abapaengine/core/internal/timecontrol"
)

// MinProbes is the minimum number of expansions that must complete before an abort is
// honored.
const MinProbes = 1000

// ReportProbes is the expansion-count interval between best-child-change checks.
const ReportProbes = 250000

// ReportDelta is the minimum swing in the leading child's q that's worth reporting
// to consumers.
const ReportDelta = 1.0

// DefaultHeuristicBias and DefaultRolloutBias are the exploration-bias defaults for
// the two evaluator variants.
const (
	DefaultHeuristicBias = 0.176
	DefaultRolloutBias   = 0.707
)

// PVVisitRatio is the sampling-size threshold used by PrincipalVariation: a child
// with fewer than ~60% of its parent's visits ends the reported line.
const PVVisitRatio = 0.6

// noHandle marks an absent arena slot (root's parent, childless first-child, last
// sibling's next-sibling).
const noHandle = -1

// node is one arena slot. Handles are indices into Engine.nodes; parent is a weak
// back-reference never used to decide ownership.
type node struct {
	parent, firstChild, nextSibling int32

	hash   game.Hash
	move   game.Move
	cursor game.Cursor

	expanded bool
	terminal bool

	n int
	q float64 // running mean of backed-up scores, from this node's PARENT's perspective.
}

// Leaves is the subset of internal/leaves.Tablebase's API the engine needs.
type Leaves interface {
	Find(g game.Game) bool
	Score() game.Score
	Flag() game.Flag
}

// Cache is the read-only subset of internal/cache.Cache's API the engine consults at
// leaf evaluation: an EXACT entry left behind by a negamax search replaces the raw
// heuristic for that position. Stored scores are already negamax-normalized (positive
// favors the side to move), the same convention Evaluator.Evaluate returns.
type Cache interface {
	Find(h game.Hash) (score game.Score, move game.Move, depth game.Depth, flag game.Flag, ok bool)
}

// Evaluator produces the backed-up value of a freshly-created leaf node, from the
// perspective of the player about to move at g. A non-nil err is a domain error from
// the game (illegal move, failed unmake) and aborts the whole search.
type Evaluator interface {
	Evaluate(e *Engine, g game.Game) (score float64, terminal bool, err error)
}

// HeuristicEvaluator is the default evaluator: the game's static score, or the exact
// tablebase/terminal outcome when available.
//
// Game.Score()/Game.Outcome() are absolute, from SOUTH's perspective, not side-to-move
// normalized. To stay consistent with that contract across both engines, this
// evaluator normalizes the same way negamax does: absolute value times the mover's
// sign.
type HeuristicEvaluator struct{}

func (HeuristicEvaluator) Evaluate(e *Engine, g game.Game) (float64, bool, error) {
	turn := int32(g.Turn())
	if g.HasEnded() {
		outcome := g.Outcome()
		if outcome == game.DrawScore {
			outcome = e.contempt
		}
		return float64(int32(outcome) * turn), true, nil
	}
	if e.leaves != nil && e.leaves.Find(g) {
		return float64(int32(e.leaves.Score()) * turn), true, nil
	}
	if e.cache != nil {
		if cs, _, _, cf, ok := e.cache.Find(g.Hash()); ok && cf == game.FlagExact {
			return float64(cs), false, nil
		}
	}
	return float64(int32(g.Score()) * turn), false, nil
}

// RandomRollout plays uniformly random legal moves to a terminal position or MaxDepth
// plies, then uses the resulting outcome.
type RandomRollout struct {
	MaxDepth int
	Rng      *rand.Rand
}

func (r RandomRollout) Evaluate(e *Engine, g game.Game) (float64, bool, error) {
	turn := int32(g.Turn()) // the entry node's own mover, fixed for the whole rollout.
	maxDepth := r.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 200
	}
	played := 0
	var rolloutErr error
	for played < maxDepth && !g.HasEnded() {
		moves := g.LegalMoves()
		if len(moves) == 0 {
			break
		}
		m := moves[r.Rng.IntN(len(moves))]
		if err := g.MakeMove(m); err != nil {
			rolloutErr = errors.Wrapf(err, "uct: making rollout move %v", m)
			break
		}
		played++
	}

	var value float64
	if rolloutErr == nil {
		if g.HasEnded() {
			outcome := g.Outcome()
			if outcome == game.DrawScore {
				outcome = e.contempt
			}
			value = float64(int32(outcome) * turn)
		} else {
			value = float64(int32(g.Score()) * turn)
		}
	}

	for ; played > 0; played-- {
		if err := g.UnmakeMove(); err != nil {
			return 0, false, errors.Wrap(err, "uct: unmaking rollout move")
		}
	}
	if rolloutErr != nil {
		return 0, false, rolloutErr
	}
	// The entry node is never marked solved here: a random playout reaching depth
	// without ending the game tells us nothing exact about the entry node.
	return value, false, nil
}

// Engine implements the best-first UCT/MCTS search.
//
// Like internal/negamax, it is single-threaded: ComputeBestMove blocks the caller until
// the deadline fires or an abort arrives, and in either case not before MinProbes
// expansions have completed; with no move time and no abort it keeps searching.
type Engine struct {
	bias      float64
	evaluator Evaluator
	moveTime  time.Duration
	contempt  game.Score

	leaves Leaves
	cache  Cache

	consumers report.Broadcaster
	aborter   *timecontrol.Aborter

	nodes []node
	root  int32

	probes int

	// bestScore records the root's best child's q from the last completed search, for
	// ComputeBestScore.
	bestScore game.Score

	// alpha, beta are the running min/max of backed-up scores at the root, used to
	// scale exploration.
	alpha, beta float64

	// infinity is g.Infinity() from the search in progress, used to recognize a
	// proven win/loss magnitude for solved-subtree propagation. Games use a finite
	// sentinel for this, not an IEEE infinity.
	infinity float64

	// infinityOverride, when non-zero, replaces the game's own Infinity() above.
	infinityOverride game.Score
}

// New returns a ready-to-configure Engine using HeuristicEvaluator and
// DefaultHeuristicBias.
func New() *Engine {
	return &Engine{
		aborter:   timecontrol.NewAborter(),
		bias:      DefaultHeuristicBias,
		evaluator: HeuristicEvaluator{},
		root:      noHandle,
	}
}

// SetExplorationBias overrides the default c.
func (e *Engine) SetExplorationBias(c float64) *Engine {
	e.bias = c
	return e
}

// SetEvaluator swaps in a different leaf evaluator, e.g. RandomRollout for the
// Monte-Carlo variant. Callers switching to RandomRollout should also call
// SetExplorationBias(DefaultRolloutBias).
func (e *Engine) SetEvaluator(ev Evaluator) *Engine {
	e.evaluator = ev
	return e
}

// SetMoveTime sets a wall-clock budget: the engine keeps expanding until d elapses (and
// at least MinProbes expansions have completed).
func (e *Engine) SetMoveTime(d time.Duration) *Engine {
	e.moveTime = d
	return e
}

// SetContempt sets the score both evaluators substitute for game.DrawScore at a
// terminal draw, mirroring internal/negamax.Engine.SetContempt.
func (e *Engine) SetContempt(c game.Score) *Engine {
	e.contempt = c
	return e
}

// SetInfinity overrides the magnitude recognized as a proven win/loss for
// solved-subtree propagation, mirroring internal/negamax.Engine.SetInfinity. When unset
// the engine uses the game's own Infinity().
func (e *Engine) SetInfinity(s game.Score) *Engine {
	e.infinityOverride = s
	return e
}

// SetLeaves attaches the endgame tablebase collaborator.
func (e *Engine) SetLeaves(l Leaves) *Engine {
	e.leaves = l
	return e
}

// SetCache attaches a transposition table for read-only consultation at leaf
// evaluation. The UCT engine never writes to it.
func (e *Engine) SetCache(c Cache) *Engine {
	e.cache = c
	return e
}

// AttachConsumer registers a report consumer, notified on material best-child changes.
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

// NewMatch clears transient tree state for a fresh game.
func (e *Engine) NewMatch() {
	e.nodes = nil
	e.root = noHandle
}

func (e *Engine) newNode(parent int32, hash game.Hash, move game.Move) int32 {
	e.nodes = append(e.nodes, node{
		parent:      parent,
		firstChild:  noHandle,
		nextSibling: noHandle,
		hash:        hash,
		move:        move,
	})
	return int32(len(e.nodes) - 1)
}

// findWithinDepth2 searches the subtree rooted at handle up to two plies deep for a
// node whose hash matches target.
func (e *Engine) findWithinDepth2(handle int32, target game.Hash, depth int) int32 {
	if handle == noHandle {
		return noHandle
	}
	n := &e.nodes[handle]
	if n.hash == target {
		return handle
	}
	if depth >= 2 {
		return noHandle
	}
	for c := n.firstChild; c != noHandle; c = e.nodes[c].nextSibling {
		if found := e.findWithinDepth2(c, target, depth+1); found != noHandle {
			return found
		}
	}
	return noHandle
}

// locateRoot reuses the previous root's subtree if the current position is found
// within depth 2 of it, otherwise starts a fresh arena.
func (e *Engine) locateRoot(g game.Game) int32 {
	hash := g.Hash()
	if e.root != noHandle {
		if found := e.findWithinDepth2(e.root, hash, 0); found != noHandle {
			return found
		}
	}
	e.nodes = nil
	return e.newNode(noHandle, hash, game.NullMove)
}

// ComputeBestMove runs the UCT tree policy to completion (deadline or abort, gated by
// MinProbes) and returns the root's best child's move, or game.NullMove if g has
// already ended. An illegal move or failed unmake surfaced by g is a fatal domain
// error, returned to the caller; internal invariant violations are recovered and
// turned into a null-move result rather than a crash.
func (e *Engine) ComputeBestMove(g game.Game) (best game.Move, err error) {
	e.aborter.Reset()
	e.probes = 0
	e.bestScore = 0
	e.alpha, e.beta = math.Inf(1), math.Inf(-1)
	e.infinity = float64(g.Infinity())
	if e.infinityOverride > 0 {
		e.infinity = float64(e.infinityOverride)
	}

	if g.HasEnded() {
		return game.NullMove, nil
	}

	if e.moveTime > 0 {
		e.aborter.ArmDeadline(e.moveTime)
		defer e.aborter.Stop()
	}

	var searchErr error
	recoverErr := exceptions.TryCatch[error](func() {
		searchErr = e.search(g)
	})
	if recoverErr != nil {
		klog.Errorf("uct: internal invariant violation recovered, returning null move: %+v", recoverErr)
		return game.NullMove, nil
	}
	if searchErr != nil {
		return game.NullMove, searchErr
	}

	bestChild := e.bestChild(e.root)
	if bestChild == noHandle {
		legal := g.LegalMoves()
		if len(legal) > 0 {
			return legal[0], nil
		}
		return game.NullMove, nil
	}
	e.bestScore = game.Score(int32(e.nodes[bestChild].q))
	return e.nodes[bestChild].move, nil
}

// ComputeBestScore returns the root's best child's q from the last completed search.
func (e *Engine) ComputeBestScore() game.Score {
	return e.bestScore
}

func (e *Engine) search(g game.Game) error {
	e.root = e.locateRoot(g)

	var lastReported float64
	haveReported := false

	for {
		if e.aborter.Aborted() && e.probes >= MinProbes {
			break
		}
		if _, err := e.descend(g, e.root); err != nil {
			return err
		}
		e.probes++

		if e.probes%ReportProbes == 0 {
			if bc := e.bestChild(e.root); bc != noHandle {
				q := e.nodes[bc].q
				if !haveReported || math.Abs(q-lastReported) > ReportDelta {
					e.notifyBestChild(g, bc)
					lastReported = q
					haveReported = true
				}
			}
		}
	}
	return nil
}

// descend selects down to an unexpanded move, expands, evaluates and backs up.
// It returns handle's own freshly-sampled q (a value from handle's PARENT's
// perspective), so the caller — handle's parent frame, or search() at the root — can
// fold it in exactly the same way regardless of depth. A non-nil error is a domain
// error from the game and aborts the whole search.
func (e *Engine) descend(g game.Game, handle int32) (float64, error) {
	// Never hold a *node across newNode/descend below: both can append to e.nodes and
	// reallocate its backing array, which would leave a cached pointer stale. Every
	// access to handle's own slot is a fresh e.nodes[handle] index instead.
	if e.nodes[handle].terminal {
		// Already solved: q is exact and doesn't change with more sampling.
		return e.nodes[handle].q, nil
	}

	var childContribution float64
	if nextMove, ok := e.nextUnexpandedMove(g, handle); ok {
		if err := g.MakeMove(nextMove); err != nil {
			return 0, errors.Wrapf(err, "uct: making move %v", nextMove)
		}
		childHash := g.Hash()
		child := e.newNode(handle, childHash, nextMove)
		e.linkChild(handle, child)

		// ownValue is from the perspective of the player about to move at the new
		// child; negating it once gives the child's own q, i.e. the value to handle
		// (the child's parent) of having made this move.
		ownValue, terminal, evalErr := e.evaluator.Evaluate(e, g)
		if err := g.UnmakeMove(); err != nil && evalErr == nil {
			evalErr = errors.Wrapf(err, "uct: unmaking move %v", nextMove)
		}
		if evalErr != nil {
			return 0, evalErr
		}

		e.nodes[child].terminal = terminal
		e.nodes[child].n = 1
		e.nodes[child].q = -ownValue
		childContribution = e.nodes[child].q
	} else {
		best := e.selectChild(handle)
		if best == noHandle {
			// Fully expanded but childless (shouldn't happen for a non-terminal node);
			// treat as a dead end rather than recursing forever.
			return e.nodes[handle].q, nil
		}
		if err := g.MakeMove(e.nodes[best].move); err != nil {
			return 0, errors.Wrapf(err, "uct: making move %v", e.nodes[best].move)
		}
		var descendErr error
		childContribution, descendErr = e.descend(g, best)
		if err := g.UnmakeMove(); err != nil && descendErr == nil {
			descendErr = errors.Wrapf(err, "uct: unmaking move %v", e.nodes[best].move)
		}
		if descendErr != nil {
			return 0, descendErr
		}
	}

	// One ply's sign flip: the value handle's own parent gets from choosing handle is
	// the negation of what handle itself just got from its visited child.
	contribution := -childContribution
	n := &e.nodes[handle]
	n.n++
	n.q += (contribution - n.q) / float64(n.n)

	e.maybeMarkSolved(handle)

	if handle == e.root {
		e.updateRootRange(contribution)
	}
	return contribution, nil
}

// maybeMarkSolved implements solved-subtree propagation: once every move at handle
// has been tried and even the best of them is a proven loss
// for handle's own mover, handle is solved. Its q, being from the parent's perspective,
// flips to the proven win. Checking only the just-visited child's score would mark
// handle terminal on the strength of one bad move even when a better sibling remains
// untried, so this requires full expansion first.
func (e *Engine) maybeMarkSolved(handle int32) {
	if e.infinity <= 0 {
		return
	}
	n := &e.nodes[handle]
	if !n.expanded || n.terminal {
		return
	}
	if best := e.bestChild(handle); best != noHandle && e.nodes[best].q <= -e.infinity {
		n.terminal = true
		n.q = -e.nodes[best].q
	}
}

// nextUnexpandedMove advances handle's move-generation cursor one step, returning the
// next legal move not yet represented by a child, or ok=false once exhausted.
func (e *Engine) nextUnexpandedMove(g game.Game, handle int32) (game.Move, bool) {
	n := &e.nodes[handle]
	if n.expanded {
		return game.NullMove, false
	}
	g.SetCursor(n.cursor)
	m, ok := g.NextMove()
	n.cursor = g.Cursor()
	if !ok {
		n.expanded = true
		return game.NullMove, false
	}
	return m, true
}

func (e *Engine) linkChild(parent, child int32) {
	p := &e.nodes[parent]
	e.nodes[child].nextSibling = p.firstChild
	p.firstChild = child
}

func (e *Engine) updateRootRange(value float64) {
	if value < e.alpha {
		e.alpha = value
	}
	if value > e.beta {
		e.beta = value
	}
}

// selectChild applies the UCT selection rule, with exploration scaled by the root's
// running score range.
func (e *Engine) selectChild(handle int32) int32 {
	parent := &e.nodes[handle]
	spread := e.beta - e.alpha
	if math.IsInf(spread, 0) || spread < 0 {
		spread = 1
	}

	best := int32(noHandle)
	bestValue := math.Inf(-1)
	for c := parent.firstChild; c != noHandle; c = e.nodes[c].nextSibling {
		child := &e.nodes[c]
		explore := e.bias * spread * math.Sqrt(math.Log(float64(parent.n))/float64(child.n))
		// child.q is already from parent's perspective, so the selection formula
		// uses it directly with no extra sign flip.
		v := child.q + explore
		if v > bestValue {
			bestValue = v
			best = c
		}
	}
	return best
}

// bestChild picks the child with the highest q. A child's q is already from handle's
// own perspective, so a plain max is the right comparison both for periodic reporting
// and for the final move choice.
func (e *Engine) bestChild(handle int32) int32 {
	if handle == noHandle {
		return noHandle
	}
	best := int32(noHandle)
	bestQ := math.Inf(-1)
	for c := e.nodes[handle].firstChild; c != noHandle; c = e.nodes[c].nextSibling {
		if e.nodes[c].q > bestQ {
			bestQ = e.nodes[c].q
			best = c
		}
	}
	return best
}

func (e *Engine) notifyBestChild(g game.Game, handle int32) {
	pv := e.PrincipalVariation()
	e.consumers.Notify(report.Report{
		PV:           pv,
		CentiPawns:   g.ToCentiPawns(game.Score(int32(e.nodes[handle].q))),
		NodesVisited: uint64(e.probes),
	})
}

// PrincipalVariation extracts the best line from the root, stopping once a node's
// visit count drops below PVVisitRatio of its parent's.
func (e *Engine) PrincipalVariation() []game.Move {
	if e.root == noHandle {
		return nil
	}
	var pv []game.Move
	handle := e.root
	for {
		best := e.bestChild(handle)
		if best == noHandle {
			break
		}
		parentN := e.nodes[handle].n
		if parentN > 0 && float64(e.nodes[best].n) < PVVisitRatio*float64(parentN) {
			break
		}
		pv = append(pv, e.nodes[best].move)
		handle = best
	}
	return pv
}

// Probes reports the number of expansions completed by the last ComputeBestMove call.
func (e *Engine) Probes() int {
	return e.probes
}
