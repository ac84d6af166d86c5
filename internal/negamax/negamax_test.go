package negamax

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abapaengine/core/internal/game"
	"github.com/abapaengine/core/internal/gametest"
	"github.com/abapaengine/core/internal/report"
)

func TestComputeBestMoveOnTerminalReturnsNullMove(t *testing.T) {
	g := gametest.New(0, 0) // no piles left: already ended.
	e := New().SetDepth(4)
	m, err := e.ComputeBestMove(g)
	require.NoError(t, err)
	assert.Equal(t, game.NullMove, m)
}

func TestComputeBestMoveReturnsLegalMove(t *testing.T) {
	g := gametest.Default()
	e := New().SetDepth(6)
	m, err := e.ComputeBestMove(g)
	require.NoError(t, err)
	assert.True(t, g.IsLegal(m))
}

func TestComputeBestMoveFindsNimLosingPosition(t *testing.T) {
	// A single pile of 4 stones, take 1..3 per turn: 4 is a multiple of MaxTake+1, so
	// the position is a forced loss for whoever is about to move. Exhaustive depth
	// covers the whole game, so the engine must prove the loss exactly.
	g := gametest.New(4)
	e := New().SetDepth(20)
	_, err := e.ComputeBestMove(g)
	require.NoError(t, err)
	assert.Equal(t, -g.Infinity(), e.ComputeBestScore())
}

func TestSetInfinityStillProvesForcedLoss(t *testing.T) {
	// Same forced-loss position as above, searched with an explicit infinity override
	// matching the game's own magnitude: the proved result must be unchanged.
	g := gametest.New(4)
	e := New().SetDepth(20).SetInfinity(g.Infinity())
	_, err := e.ComputeBestMove(g)
	require.NoError(t, err)
	assert.Equal(t, -g.Infinity(), e.ComputeBestScore())
}

func TestComputeBestMovePropagatesIllegalMoveError(t *testing.T) {
	g := gametest.NewFailing(3, 3, 4, 5)
	e := New().SetDepth(4)
	m, err := e.ComputeBestMove(g)
	require.Error(t, err)
	assert.Equal(t, game.NullMove, m)
}

func TestComputeBestMoveRespectsDeadline(t *testing.T) {
	g := gametest.New(3, 3, 3, 3, 3)
	e := New().SetMoveTime(200 * time.Millisecond)
	start := time.Now()
	m, err := e.ComputeBestMove(g)
	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.True(t, g.IsLegal(m))
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestComputeBestMoveHonorsMoveTimeAbort(t *testing.T) {
	g := gametest.New(3, 3, 3, 3, 3)
	e := New().SetMoveTime(5 * time.Millisecond)
	m, err := e.ComputeBestMove(g)
	require.NoError(t, err)
	assert.True(t, g.IsLegal(m))
}

// stubCache is a minimal Cache used to verify the engine stores and reuses entries.
type stubCache struct {
	stored map[game.Hash]struct {
		score game.Score
		move  game.Move
		depth game.Depth
		flag  game.Flag
	}
	discharges int
}

func newStubCache() *stubCache {
	return &stubCache{stored: make(map[game.Hash]struct {
		score game.Score
		move  game.Move
		depth game.Depth
		flag  game.Flag
	})}
}

func (c *stubCache) Find(h game.Hash) (game.Score, game.Move, game.Depth, game.Flag, bool) {
	e, ok := c.stored[h]
	return e.score, e.move, e.depth, e.flag, ok
}

func (c *stubCache) Store(h game.Hash, score game.Score, move game.Move, depth game.Depth, flag game.Flag) {
	c.stored[h] = struct {
		score game.Score
		move  game.Move
		depth game.Depth
		flag  game.Flag
	}{score, move, depth, flag}
}

func (c *stubCache) Discharge() { c.discharges++ }

func TestComputeBestMoveUsesCache(t *testing.T) {
	g := gametest.Default()
	cache := newStubCache()
	e := New().SetDepth(4).SetCache(cache)
	_, err := e.ComputeBestMove(g)
	require.NoError(t, err)
	assert.NotEmpty(t, cache.stored)
	assert.Equal(t, 4, cache.discharges) // one discharge per iterative-deepening iteration.
}

func TestSecondSearchVisitsFewerNodesWithWarmCache(t *testing.T) {
	cache := newStubCache()
	e := New().SetDepth(6).SetCache(cache)

	_, err := e.ComputeBestMove(gametest.Default())
	require.NoError(t, err)
	coldNodes := e.Stats().Nodes

	_, err = e.ComputeBestMove(gametest.Default())
	require.NoError(t, err)
	assert.Less(t, e.Stats().Nodes, coldNodes)
}

// stubLeaves reports every position as an exact +5 tablebase hit.
type stubLeaves struct{}

func (stubLeaves) Find(game.Game) bool { return true }
func (stubLeaves) Score() game.Score   { return 5 }
func (stubLeaves) Flag() game.Flag     { return game.FlagExact }

func TestLeavesShortcutReturnsTablebaseScoreWithoutDescending(t *testing.T) {
	g := gametest.Default()
	e := New().SetDepth(8).SetLeaves(stubLeaves{})
	m, err := e.ComputeBestMove(g)
	require.NoError(t, err)
	assert.Equal(t, game.Score(5), e.ComputeBestScore())
	assert.Zero(t, e.Stats().Nodes, "a root tablebase hit must not descend")
	assert.True(t, g.IsLegal(m), "fallback move must still be legal")
}

func TestComputeBestMoveNotifiesConsumerPerIteration(t *testing.T) {
	g := gametest.Default()
	var reports int
	e := New().SetDepth(3)
	e.AttachConsumer(func(r report.Report) { reports++ })
	_, err := e.ComputeBestMove(g)
	require.NoError(t, err)
	assert.Equal(t, 3, reports)
}
