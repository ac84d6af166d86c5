package main

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/abapaengine/core/internal/cache"
	"github.com/abapaengine/core/internal/game"
	"github.com/abapaengine/core/internal/leaves"
	"github.com/abapaengine/core/internal/negamax"
	"github.com/abapaengine/core/internal/oware"
	"github.com/abapaengine/core/internal/parameters"
	"github.com/abapaengine/core/internal/protocol"
	"github.com/abapaengine/core/internal/report"
	"github.com/abapaengine/core/internal/uct"
)

// newGame returns a fresh Oware Abapa starting position, the one concrete Game this
// binary wires every subcommand against.
func newGame() game.Game { return oware.New() }

// searchFlags are the flags shared by every subcommand that configures a search engine.
type searchFlags struct {
	depth      int
	moveTimeMs int
	contempt   int
	cacheBytes int
	leavesPath string
	useUCT     bool
	options    []string
}

func addSearchFlags(cmd *cobra.Command, f *searchFlags) {
	cmd.Flags().IntVar(&f.depth, "depth", 0, "fixed search depth in plies (0: unbounded, governed by --movetime)")
	cmd.Flags().IntVar(&f.moveTimeMs, "movetime", 1000, "per-move time budget in milliseconds")
	cmd.Flags().IntVar(&f.contempt, "contempt", 0, "score substituted for a detected draw")
	cmd.Flags().IntVar(&f.cacheBytes, "cache-bytes", 1<<24, "transposition table size in bytes")
	cmd.Flags().StringVar(&f.leavesPath, "leaves", "", "endgame tablebase file to load, if any")
	cmd.Flags().BoolVar(&f.useUCT, "uct", false, "search with UCT/MCTS instead of iterative-deepening negamax")
	cmd.Flags().StringArrayVar(&f.options, "option", nil,
		"additional engine parameter as name=value; repeatable (see the builders for recognized names)")
}

// engineParams collects the repeatable --option flags into a parameters.Params. Each
// builder pops the names it understands (overriding the dedicated flags above) and
// warns about whatever is left.
func (f *searchFlags) engineParams() parameters.Params {
	return parameters.NewFromConfigString(strings.Join(f.options, ","))
}

// popParam drains one typed entry from p, falling back to the dedicated flag's value on
// a malformed entry. Bad options are diagnostics, never fatal, matching the protocol
// layer's handling of its own setoption verb.
func popParam[T parameters.Value](p parameters.Params, key string, def T) T {
	v, err := parameters.PopParamOr(p, key, def)
	if err != nil {
		klog.Warningf("abapa: ignoring malformed --option: %+v", err)
		return def
	}
	return v
}

func warnLeftoverParams(p parameters.Params) {
	for key := range p {
		klog.Warningf("abapa: unknown --option name %q ignored", key)
	}
}

// loadLeaves returns a usable Leaves collaborator for path, falling back to leaves.Stub
// (an always-miss tablebase) on any I/O failure, logged once.
func loadLeaves(path string) leaves.Leaves {
	if path == "" {
		return leaves.Stub{}
	}
	tb, err := leaves.Load(path)
	if err != nil {
		klog.Warningf("abapa: failed to load tablebase %q, continuing without one: %+v", path, err)
		return leaves.Stub{}
	}
	return tb
}

// buildCache allocates a transposition table of the requested size, or nil when the
// allocation fails (search continues uncached).
func buildCache(bytes int) *cache.Cache {
	c := cache.New()
	if err := c.Resize(bytes); err != nil {
		klog.Warningf("abapa: transposition table resize failed, continuing without a cache: %+v", err)
		return nil
	}
	return c
}

// buildNegamax configures a negamax engine from the dedicated flags, with --option
// overrides for depth, movetime (ms), contempt, cachebytes, leaves and infinity.
func buildNegamax(f *searchFlags) *negamax.Engine {
	p := f.engineParams()
	moveTimeMs := popParam(p, "movetime", f.moveTimeMs)
	depth := popParam(p, "depth", f.depth)

	e := negamax.New().
		SetMoveTime(time.Duration(moveTimeMs) * time.Millisecond).
		SetContempt(game.Score(popParam(p, "contempt", f.contempt))).
		SetLeaves(loadLeaves(popParam(p, "leaves", f.leavesPath)))
	if depth > 0 {
		e.SetDepth(game.Depth(depth))
	}
	if inf := popParam(p, "infinity", 0); inf > 0 {
		e.SetInfinity(game.Score(inf))
	}
	if c := buildCache(popParam(p, "cachebytes", f.cacheBytes)); c != nil {
		e.SetCache(c)
	}
	warnLeftoverParams(p)
	return e
}

// buildUCT configures a UCT engine; it recognizes buildNegamax's shared names except
// depth (which it leaves unread, so it is warned about as unknown), plus bias
// (exploration constant), rollout (switch to the random-playout evaluator),
// rolloutdepth, and seed (rollout randomness).
func buildUCT(f *searchFlags) *uct.Engine {
	p := f.engineParams()

	e := uct.New().
		SetMoveTime(time.Duration(popParam(p, "movetime", f.moveTimeMs)) * time.Millisecond).
		SetContempt(game.Score(popParam(p, "contempt", f.contempt))).
		SetLeaves(loadLeaves(popParam(p, "leaves", f.leavesPath)))
	if inf := popParam(p, "infinity", 0); inf > 0 {
		e.SetInfinity(game.Score(inf))
	}
	bias := uct.DefaultHeuristicBias
	if popParam(p, "rollout", false) {
		seed := popParam(p, "seed", 1)
		e.SetEvaluator(uct.RandomRollout{
			MaxDepth: popParam(p, "rolloutdepth", 0),
			Rng:      rand.New(rand.NewPCG(uint64(seed), 0)),
		})
		bias = uct.DefaultRolloutBias
	}
	e.SetExplorationBias(popParam(p, "bias", bias))
	if c := buildCache(popParam(p, "cachebytes", f.cacheBytes)); c != nil {
		e.SetCache(c)
	}
	warnLeftoverParams(p)
	return e
}

// negamaxAdapter and uctAdapter satisfy internal/protocol.Engine, whose Set*/
// AttachConsumer methods return nothing: internal/negamax.Engine and internal/uct.Engine
// both return a fluent *Engine instead, by design, for their own fluent call sites, so
// the protocol boundary gets a thin wrapper rather than changing either engine's own
// idiom.
type negamaxAdapter struct{ *negamax.Engine }

func (a negamaxAdapter) SetMoveTime(d time.Duration)      { a.Engine.SetMoveTime(d) }
func (a negamaxAdapter) SetDepth(d game.Depth)            { a.Engine.SetDepth(d) }
func (a negamaxAdapter) SetContempt(c game.Score)         { a.Engine.SetContempt(c) }
func (a negamaxAdapter) AttachConsumer(c report.Consumer) { a.Engine.AttachConsumer(c) }

type uctAdapter struct{ *uct.Engine }

func (a uctAdapter) SetMoveTime(d time.Duration) { a.Engine.SetMoveTime(d) }

// SetDepth is a no-op: UCT has no fixed-depth notion, only a move-time/probe budget.
func (a uctAdapter) SetDepth(game.Depth) {}

func (a uctAdapter) SetContempt(c game.Score)         { a.Engine.SetContempt(c) }
func (a uctAdapter) AttachConsumer(c report.Consumer) { a.Engine.AttachConsumer(c) }

func buildProtocolEngine(f *searchFlags) protocol.Engine {
	if f.useUCT {
		return uctAdapter{buildUCT(f)}
	}
	return negamaxAdapter{buildNegamax(f)}
}
