package leaves

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abapaengine/core/internal/game"
	"github.com/abapaengine/core/internal/gametest"
	"github.com/abapaengine/core/internal/oware"
)

func TestRankIsDenseAndUnique(t *testing.T) {
	const s = 4
	seen := make(map[int64]bool)
	forEachComposition(s, func(houses [oware.NumHouses]int8) {
		idx := rank(houses)
		require.GreaterOrEqual(t, idx, int64(0))
		require.Less(t, idx, numPositions(s))
		require.False(t, seen[idx], "duplicate rank %d", idx)
		seen[idx] = true
	})
	assert.EqualValues(t, numPositions(s), len(seen))
}

func TestEncodeDecodeByteWithinBounds(t *testing.T) {
	for seeds := 0; seeds <= 12; seeds++ {
		for score := int32(-seeds); score <= int32(seeds); score++ {
			b := encodeByte(seeds, score, game.FlagExact)
			gotScore, gotFlag := decodeByte(b, seeds)
			assert.Equal(t, game.FlagExact, gotFlag)
			assert.Equal(t, score, gotScore, "seeds=%d score=%d roundtrip", seeds, score)
		}
	}
}

func TestSolveSmallDomainTerminalValues(t *testing.T) {
	tb, err := Solve(2)
	require.NoError(t, err)
	assert.Equal(t, 2, tb.MaxSeeds())

	// South has nothing, North holds both seeds: a terminal position for South to
	// move, value must be exactly -2 (all remaining seeds go to North).
	g := oware.New()
	b := g.RawBoard()
	for i := range b.Houses {
		b.Houses[i] = 0
	}
	b.Houses[6] = 2
	b.ToMove = oware.South

	require.True(t, tb.Find(g))
	assert.Equal(t, game.Score(-2), tb.Score())
	assert.Equal(t, game.FlagExact, tb.Flag())
}

func TestFindMissesAboveDomainOrWrongGame(t *testing.T) {
	tb, err := Solve(1)
	require.NoError(t, err)

	g := oware.New() // starting position has 48 seeds, far above domain.
	assert.False(t, tb.Find(g))

	// A game without an Oware board is never found.
	assert.False(t, tb.Find(gametest.Default()))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tb, err := Solve(2)
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "oware.egtb")
	require.NoError(t, tb.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, tb.maxSeeds, loaded.maxSeeds)
	assert.Equal(t, tb.data, loaded.data)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestSolveIdempotent(t *testing.T) {
	tb, err := Solve(2)
	require.NoError(t, err)

	g := oware.New()
	b := g.RawBoard()
	for i := range b.Houses {
		b.Houses[i] = 0
	}
	b.Houses[0] = 1
	b.Houses[6] = 1
	b.ToMove = oware.South

	ok1 := tb.Find(g)
	score1, flag1 := tb.Score(), tb.Flag()
	ok2 := tb.Find(g)
	score2, flag2 := tb.Score(), tb.Flag()

	assert.Equal(t, ok1, ok2)
	assert.Equal(t, score1, score2)
	assert.Equal(t, flag1, flag2)
	if ok1 {
		assert.GreaterOrEqual(t, score1, -game.Score(2))
		assert.LessOrEqual(t, score1, game.Score(2))
	}
}
