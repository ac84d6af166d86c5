package trainer

import (
	"math/rand/v2"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abapaengine/core/internal/game"
	"github.com/abapaengine/core/internal/gametest"
	"github.com/abapaengine/core/internal/negamax"
	"github.com/abapaengine/core/internal/roots"
)

func newTestTrainer(t *testing.T) *Trainer {
	t.Helper()
	g := gametest.Default()
	engine := negamax.New().SetMoveTime(5 * time.Millisecond)
	return New(g, engine, Config{Weight: 1.7, Window: 68})
}

func TestTrainPathsGrowsGraph(t *testing.T) {
	tr := newTestTrainer(t)
	require.NoError(t, tr.TrainPaths(10))
	assert.Greater(t, tr.NodeCount(), 1)
}

func TestTrainPathsExpandsBeyondRoot(t *testing.T) {
	tr := newTestTrainer(t)
	require.NoError(t, tr.TrainPaths(5))

	expanded := 0
	for _, n := range tr.nodes {
		if len(n.Edges) > 0 {
			expanded++
		}
	}
	assert.Greater(t, expanded, 1, "drop-out expansion must grow the graph past the root")
}

// TestTrainExportRoundTripFindsTrainedMove exercises the full trainer round-trip
// scenario: train a handful of paths from the initial position with weight=1.7,
// window=68, export, reload via the base book, and confirm PickBestMove at the start
// position returns one of the trained moves.
func TestTrainExportRoundTripFindsTrainedMove(t *testing.T) {
	g := gametest.Default()
	engine := negamax.New().SetMoveTime(5 * time.Millisecond)
	tr := New(g, engine, Config{Weight: 1.7, Window: 68})

	require.NoError(t, tr.TrainPaths(10))
	tr.Refresh()

	dir := t.TempDir()
	path := dir + "/book.bin"
	require.NoError(t, tr.Export(path, map[string]string{"Trainer": "test"}))

	f, err := roots.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	book := roots.NewBaseBook(f, rand.New(rand.NewPCG(7, 9)))
	picked := book.PickBestMove(g)
	require.NotEqual(t, game.NullMove, picked, "start position must be in book after training")
	assert.True(t, g.IsLegal(picked))

	records, err := f.Lookup(g.Hash())
	require.NoError(t, err)
	require.NotEmpty(t, records, "expected at least one trained edge from the start position")
	trained := make(map[game.Move]bool, len(records))
	for _, r := range records {
		trained[r.Move] = true
	}
	assert.True(t, trained[picked], "picked move %v must be one of the trained moves", picked)
}

func TestSaveLoadGraphRoundTrip(t *testing.T) {
	tr := newTestTrainer(t)
	require.NoError(t, tr.TrainPaths(5))
	before := tr.NodeCount()

	path := t.TempDir() + "/graph.gob"
	require.NoError(t, tr.SaveGraph(path))

	reloaded := newTestTrainer(t)
	require.NoError(t, reloaded.LoadGraph(path))
	assert.Equal(t, before, reloaded.NodeCount())

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestRefreshPropagatesTerminalLeaves(t *testing.T) {
	tr := newTestTrainer(t)
	require.NoError(t, tr.TrainPaths(15))
	tr.Refresh()

	var sawPropagated bool
	for _, n := range tr.nodes {
		if n.Propagated() {
			sawPropagated = true
			break
		}
	}
	assert.True(t, sawPropagated, "expected at least the known leaves to be marked propagated")
}
