// Package trainer implements the drop-out expansion opening-book trainer: it grows a
// persistent directed graph of known positions by repeatedly expanding the most
// "prioritary" leaf reachable from the root, then exports the result to the binary
// book format internal/roots reads.
//
// It is a priority-driven expansion loop over a hash-keyed graph, progress-bar'd with
// github.com/schollz/progressbar/v3 and persisted between runs with encoding/gob.
package trainer

import (
	"encoding/gob"
	"math"
	"os"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"

	"github.com/abapaengine/core/internal/game"
	"github.com/abapaengine/core/internal/generics"
	"github.com/abapaengine/core/internal/roots"
)

// Flags qualify a Node's training state.
type Flags uint8

const (
	// FlagKnown marks a node that has a static evaluation (its Score is meaningful).
	FlagKnown Flags = 1 << iota
	// FlagPropagated marks a node whose current score has been observed by every
	// parent during the last refresh pass.
	FlagPropagated
)

// MaxPriority is the most urgent (numerically lowest) priority value: the expansion loop
// always picks the lowest-priority edge, so 0 marks a fully expandable child.
const MaxPriority = 0.0

// MinPriority marks an edge that must never be picked again: it is solved outside the
// expansion window.
const MinPriority = math.MaxFloat64

// Edge is one outgoing move from a graph node to a child position.
type Edge struct {
	Move      game.Move
	ChildHash game.Hash

	// BPriority and OPriority are this edge's priority under the book player's
	// restricted selection and the opponent's unrestricted selection, respectively.
	BPriority, OPriority float64
}

// Node is one persistent graph vertex: a position reached during training,
// its negamax-propagated score, and its outgoing edges.
type Node struct {
	Hash  game.Hash
	Edges []Edge
	Score float64
	Flags Flags
}

func (n *Node) Known() bool      { return n.Flags&FlagKnown != 0 }
func (n *Node) Propagated() bool { return n.Flags&FlagPropagated != 0 }

// Negamax is the subset of internal/negamax.Engine's API the trainer needs to score a
// freshly-expanded leaf. Declared locally so internal/trainer doesn't import
// internal/negamax's full configuration surface, mirroring internal/uct's own Leaves
// interface pattern.
type Negamax interface {
	ComputeBestMove(g game.Game) (game.Move, error)
	ComputeBestScore() game.Score
}

// Config bundles the drop-out expansion tunables.
type Config struct {
	// Weight scales scorePenalty: how strongly a child worse than the node's own
	// negamax choice is penalized.
	Weight float64
	// Window bounds leafPenalty: heuristic magnitudes beyond Window, when the node's
	// own score already agrees in magnitude, mark the edge solved and stop expanding it.
	Window float64
}

// Trainer grows a book graph from an initial position using the drop-out expansion
// algorithm.
type Trainer struct {
	root   game.Game
	engine Negamax
	cfg    Config

	nodes map[game.Hash]*Node

	// queue holds pending paths (sequences of moves from root) awaiting expansion at
	// their final, not-yet-known leaf.
	queue []pendingPath
	// inFlight marks leaf hashes already targeted by a queued path, so the path-builder
	// doesn't enqueue the same frontier leaf twice while it's pending.
	inFlight generics.Set[game.Hash]

	bar *progressbar.ProgressBar
}

type pendingPath struct {
	moves []game.Move
	leaf  game.Hash
}

// New returns a Trainer rooted at root's current position. root is cloned internally;
// callers retain ownership of the original.
func New(root game.Game, engine Negamax, cfg Config) *Trainer {
	return &Trainer{
		root:     root.Clone(),
		engine:   engine,
		cfg:      cfg,
		nodes:    make(map[game.Hash]*Node),
		inFlight: generics.MakeSet[game.Hash](),
	}
}

// NodeCount reports the number of positions currently known to the graph.
func (t *Trainer) NodeCount() int { return len(t.nodes) }

// TrainPaths runs the expansion loop for n requested paths, reporting progress on a
// schollz/progressbar bar.
func (t *Trainer) TrainPaths(n int) error {
	rootHash := t.root.Hash()
	if _, ok := t.nodes[rootHash]; !ok {
		if err := t.expandLeaf(rootHash, nil); err != nil {
			return errors.Wrap(err, "trainer: expanding root")
		}
	}

	t.bar = progressbar.NewOptions(n,
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionSetItsString("path"),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
	)

	for i := 0; i < n; i++ {
		if err := t.enqueuePath(); err != nil {
			return errors.Wrap(err, "trainer: enqueueing path")
		}
		if len(t.queue) == 0 {
			klog.Warningf("trainer: no expandable path found after %d of %d requested", i, n)
			break
		}
		path := t.queue[0]
		t.queue = t.queue[1:]
		delete(t.inFlight, path.leaf)

		if err := t.expandLeaf(path.leaf, path.moves); err != nil {
			return errors.Wrapf(err, "trainer: expanding leaf at path %v", path.moves)
		}
		t.backpropagate(path.moves)
		_ = t.bar.Add(1)
	}
	return nil
}

// enqueuePath walks from the root alternating sides,
// picking the lowest-priority edge at each node, until an unexpanded leaf is reached.
func (t *Trainer) enqueuePath() error {
	g := t.root.Clone()
	hash := g.Hash()
	var moves []game.Move
	bookSide := true

	for {
		node, ok := t.nodes[hash]
		if !ok {
			// Not yet in the graph: this is the frontier leaf for this path.
			break
		}
		if len(node.Edges) == 0 {
			if g.HasEnded() {
				// A true terminal position, nothing to expand below it.
				return nil
			}
			// Known (scored during a parent's expansion) but never expanded itself:
			// this is the frontier leaf for this path.
			break
		}

		edge, ok := t.pickEdge(node, bookSide)
		if !ok {
			return nil
		}
		if err := g.MakeMove(edge.Move); err != nil {
			return errors.Wrapf(err, "trainer: replaying move %v", edge.Move)
		}
		moves = append(moves, edge.Move)
		hash = edge.ChildHash
		bookSide = !bookSide
	}

	if t.inFlight.Has(hash) {
		// Already queued by an earlier, still-pending path; nothing new to add.
		return nil
	}
	t.inFlight.Insert(hash)
	t.queue = append(t.queue, pendingPath{moves: append([]game.Move(nil), moves...), leaf: hash})
	return nil
}

// pickEdge selects the lowest-priority edge at node, restricted to its best-scoring
// children when bookSide is true (the opponent side may pick any edge), skipping
// edges already in flight when an alternative exists.
func (t *Trainer) pickEdge(node *Node, bookSide bool) (Edge, bool) {
	candidates := node.Edges
	if bookSide {
		candidates = bestScoringEdges(t.nodes, node)
	}
	if len(candidates) == 0 {
		return Edge{}, false
	}

	bestIdx, bestFresh := -1, -1
	bestPriority, bestFreshPriority := math.MaxFloat64, math.MaxFloat64
	for i, e := range candidates {
		p := e.OPriority
		if bookSide {
			p = e.BPriority
		}
		if p < bestPriority {
			bestPriority = p
			bestIdx = i
		}
		if !t.inFlight.Has(e.ChildHash) && p < bestFreshPriority {
			bestFreshPriority = p
			bestFresh = i
		}
	}
	if bestFresh >= 0 {
		return candidates[bestFresh], true
	}
	return candidates[bestIdx], true
}

// bestScoringEdges returns node's edges leading to its best-scoring (from node's own
// negamax perspective) children.
func bestScoringEdges(nodes map[game.Hash]*Node, node *Node) []Edge {
	bestScore := math.Inf(-1)
	for _, e := range node.Edges {
		if child, ok := nodes[e.ChildHash]; ok && child.Known() {
			if s := -child.Score; s > bestScore {
				bestScore = s
			}
		}
	}
	var out []Edge
	for _, e := range node.Edges {
		child, ok := nodes[e.ChildHash]
		if !ok || !child.Known() {
			out = append(out, e) // unknown children are always candidates to expand.
			continue
		}
		if -child.Score == bestScore {
			out = append(out, e)
		}
	}
	return out
}

// expandLeaf replays moves on a fresh clone of the root, generates the resulting
// position's legal children, attaches them to the graph (deduplicating by hash), and
// scores each new child via Negamax.
func (t *Trainer) expandLeaf(hash game.Hash, moves []game.Move) error {
	g := t.root.Clone()
	for _, m := range moves {
		if err := g.MakeMove(m); err != nil {
			return errors.Wrapf(err, "trainer: replaying move %v while expanding", m)
		}
	}
	if g.Hash() != hash {
		return errors.Errorf("trainer: replayed hash %d does not match expected leaf hash %d", g.Hash(), hash)
	}

	node := &Node{Hash: hash}
	if g.HasEnded() {
		node.Score = float64(int32(g.Outcome()) * int32(g.Turn()))
		node.Flags = FlagKnown
		t.nodes[hash] = node
		return nil
	}

	for _, m := range g.LegalMoves() {
		if err := g.MakeMove(m); err != nil {
			return errors.Wrapf(err, "trainer: making child move %v", m)
		}
		childHash := g.Hash()
		if _, ok := t.nodes[childHash]; !ok {
			childScore, terminal := t.evaluate(g)
			t.nodes[childHash] = &Node{Hash: childHash, Score: childScore, Flags: flagsFor(terminal)}
		}
		if err := g.UnmakeMove(); err != nil {
			return errors.Wrapf(err, "trainer: unmaking child move %v", m)
		}
		node.Edges = append(node.Edges, Edge{Move: m, ChildHash: childHash})
	}

	node.Score = bestChildNegamaxScore(t.nodes, node.Edges)
	node.Flags = FlagKnown
	t.recomputePriorities(node, g)
	t.nodes[hash] = node
	return nil
}

func flagsFor(terminal bool) Flags {
	if terminal {
		return FlagKnown | FlagPropagated
	}
	return FlagKnown
}

// evaluate scores a freshly-discovered child via the attached Negamax engine, returning
// its negamax-style value from the perspective of the side to move at g.
func (t *Trainer) evaluate(g game.Game) (score float64, terminal bool) {
	if g.HasEnded() {
		return float64(int32(g.Outcome()) * int32(g.Turn())), true
	}
	if _, err := t.engine.ComputeBestMove(g); err != nil {
		klog.Errorf("trainer: negamax evaluation failed, treating as draw: %+v", err)
		return float64(g.Contempt()), false
	}
	return float64(t.engine.ComputeBestScore()), false
}

func bestChildNegamaxScore(nodes map[game.Hash]*Node, edges []Edge) float64 {
	best := math.Inf(-1)
	for _, e := range edges {
		if child, ok := nodes[e.ChildHash]; ok {
			if s := -child.Score; s > best {
				best = s
			}
		}
	}
	if math.IsInf(best, -1) {
		return 0
	}
	return best
}

// backpropagate walks the played path backward from the
// newly-expanded leaf, recomputing each ancestor's negamax score and priorities.
func (t *Trainer) backpropagate(moves []game.Move) {
	g := t.root.Clone()
	path := make([]game.Hash, 0, len(moves)+1)
	path = append(path, g.Hash())
	for _, m := range moves {
		if err := g.MakeMove(m); err != nil {
			klog.Errorf("trainer: backpropagate replay failed: %+v", err)
			return
		}
		path = append(path, g.Hash())
	}

	// Walk backward, recomputing ancestor scores/priorities against freshly-updated
	// children. The leaf itself (path[len(path)-1]) was already scored by expandLeaf.
	for i := len(path) - 2; i >= 0; i-- {
		node, ok := t.nodes[path[i]]
		if !ok || len(node.Edges) == 0 {
			continue
		}
		node.Score = bestChildNegamaxScore(t.nodes, node.Edges)
		replay := t.root.Clone()
		for _, m := range moves[:i] {
			if err := replay.MakeMove(m); err != nil {
				klog.Errorf("trainer: backpropagate priority replay failed: %+v", err)
				break
			}
		}
		t.recomputePriorities(node, replay)
	}
}

// recomputePriorities assigns each of node's edges a book and opponent priority from
// the leafPenalty/scorePenalty/depthPenalty terms below.
func (t *Trainer) recomputePriorities(node *Node, g game.Game) {
	heuristic := float64(int32(g.Score()) * int32(g.Turn()))
	maxScore := float64(g.Infinity())

	scores := make([]float64, 0, len(node.Edges))
	for _, e := range node.Edges {
		if child, ok := t.nodes[e.ChildHash]; ok {
			scores = append(scores, -child.Score)
		}
	}
	best, second := topTwo(scores)

	for i := range node.Edges {
		e := &node.Edges[i]
		child, ok := t.nodes[e.ChildHash]
		if !ok {
			e.BPriority, e.OPriority = MaxPriority, MaxPriority
			continue
		}
		leaf := leafPenalty(heuristic, child.Score, t.cfg.Window)
		score := scorePenalty(t.cfg.Weight, child.Score, node.Score)
		depth := depthPenalty(-child.Score, best, second, maxScore)
		priority := leaf + score + depth
		e.BPriority = priority
		e.OPriority = priority
	}
}

// leafPenalty returns MinPriority when the position is solved outside the expansion
// window and should not be re-expanded, else MaxPriority.
func leafPenalty(heuristic, nodeScore, window float64) float64 {
	if math.Abs(heuristic) > window && math.Abs(nodeScore) > math.Abs(heuristic) {
		return MinPriority
	}
	return MaxPriority
}

// scorePenalty penalizes a child worse than the parent's own negamax choice:
// weight * (child.score + node.score).
func scorePenalty(weight, childScore, nodeScore float64) float64 {
	return weight * (childScore + nodeScore)
}

// depthPenalty is low (favoring shallow re-expansion) only when the decision between the
// best and second-best sibling is clear.
func depthPenalty(score, best, second, maxScore float64) float64 {
	if score == best && best == second {
		return 1.0
	}
	if maxScore <= 0 {
		return 1.0
	}
	return 1 - math.Abs(best-second)/(2*maxScore)
}

func topTwo(scores []float64) (best, second float64) {
	best, second = math.Inf(-1), math.Inf(-1)
	for _, s := range scores {
		switch {
		case s > best:
			second = best
			best = s
		case s > second:
			second = s
		}
	}
	if math.IsInf(second, -1) {
		second = best
	}
	return best, second
}

// Refresh marks all zero-edge nodes propagated, then iterates until every KNOWN node
// whose children are all propagated is itself propagated, recomputing scores along the
// way. Cycles may leave a residual of
// unpropagated nodes; this is warned, not fatal.
func (t *Trainer) Refresh() {
	// Iterate in sorted-hash order rather than Go's randomized map order: the fixed
	// point reached is the same either way, but a deterministic traversal keeps
	// "refresh left N nodes unpropagated" warnings and progress logs reproducible
	// across runs.
	for hash := range generics.SortedKeys(t.nodes) {
		if n := t.nodes[hash]; len(n.Edges) == 0 {
			n.Flags |= FlagPropagated
		}
	}

	for {
		changed := false
		for hash := range generics.SortedKeys(t.nodes) {
			n := t.nodes[hash]
			if !n.Known() || n.Propagated() {
				continue
			}
			allPropagated := true
			for _, e := range n.Edges {
				child, ok := t.nodes[e.ChildHash]
				if !ok || !child.Propagated() {
					allPropagated = false
					break
				}
			}
			if !allPropagated {
				continue
			}
			n.Score = bestChildNegamaxScore(t.nodes, n.Edges)
			n.Flags |= FlagPropagated
			changed = true
		}
		if !changed {
			break
		}
	}

	var residual int
	for _, n := range t.nodes {
		if n.Known() && !n.Propagated() {
			residual++
		}
	}
	if residual > 0 {
		klog.Warningf("trainer: refresh left %d nodes unpropagated (likely cycles/repetitions)", residual)
	}
}

// Export emits sorted entries to the binary book format consumed by internal/roots.
func (t *Trainer) Export(path string, headers map[string]string) error {
	var records []roots.Record
	for hash, n := range t.nodes {
		for _, e := range n.Edges {
			child := t.nodes[e.ChildHash]
			score := 0.0
			if child != nil {
				score = child.Score
			}
			records = append(records, roots.Record{
				ParentHash: hash,
				ChildHash:  e.ChildHash,
				Move:       e.Move,
				Score:      score,
				Count:      1,
			})
		}
	}
	return roots.WriteFile(path, roots.DefaultSignature, headers, records)
}

// trainerState is the on-disk shape persisted by SaveGraph/LoadGraph: a plain gob
// encoding of the in-progress graph, internal to this package; the exported book
// itself always uses the fixed binary record layout, never gob.
type trainerState struct {
	Nodes map[game.Hash]*Node
}

// SaveGraph persists the in-progress training graph so a long "book train" run can be
// resumed across process invocations.
func (t *Trainer) SaveGraph(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "trainer: creating graph snapshot %q", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "trainer: closing graph snapshot %q", path)
		}
	}()
	return errors.Wrap(gob.NewEncoder(f).Encode(trainerState{Nodes: t.nodes}), "trainer: encoding graph snapshot")
}

// LoadGraph restores a previously-saved training graph, replacing the trainer's current
// in-memory state.
func (t *Trainer) LoadGraph(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "trainer: opening graph snapshot %q", path)
	}
	defer f.Close()

	var state trainerState
	if err := gob.NewDecoder(f).Decode(&state); err != nil {
		return errors.Wrap(err, "trainer: decoding graph snapshot")
	}
	t.nodes = state.Nodes
	t.inFlight = generics.MakeSet[game.Hash]()
	t.queue = nil
	return nil
}
