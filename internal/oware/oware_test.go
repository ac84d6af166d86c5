package oware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abapaengine/core/internal/game"
)

func TestNewBoardStartingPosition(t *testing.T) {
	b := NewBoard()
	assert.Equal(t, TotalSeeds, b.SeedsOnSide(South)+b.SeedsOnSide(North))
	for _, h := range b.Houses {
		assert.EqualValues(t, InitialSeedsPerHouse, h)
	}
	assert.Equal(t, South, b.ToMove)
}

func TestPlaySowsAndSkipsOrigin(t *testing.T) {
	b := NewBoard()
	// House 0 has 4 seeds: lands in houses 1,2,3,4, never touching house 0 again.
	b.Play(0)
	assert.EqualValues(t, 0, b.Houses[0])
	assert.EqualValues(t, 5, b.Houses[1])
	assert.EqualValues(t, 5, b.Houses[4])
	assert.Equal(t, North, b.ToMove)
}

func TestCaptureChain(t *testing.T) {
	b := &Board{ToMove: South}
	// House 5 sows one seed into house 6 (North), making it 3: a capture. House 5 is
	// South's own, so the backward chain stops there regardless of its count.
	b.Houses[5] = 1
	b.Houses[6] = 2
	b.Play(5)
	assert.EqualValues(t, 0, b.Houses[6])
	assert.EqualValues(t, 3, b.Captured[South])
}

func TestMustFeedStarvingOpponent(t *testing.T) {
	b := &Board{ToMove: South}
	// North is empty. South house 0 has 2 seeds: sowing from house 0 lands in 1,2 and
	// never reaches North, so it would leave North empty -- illegal if an alternative
	// exists. House 5 has enough seeds to reach North, so only house 5 is legal.
	b.Houses[0] = 2
	b.Houses[5] = 8
	moves := b.LegalMoves()
	assert.Equal(t, []int{5}, moves)
}

func TestMustFeedLiftsWhenNoAlternativeFeeds(t *testing.T) {
	b := &Board{ToMove: South}
	// Every South house is too short to reach North: the restriction lifts and every
	// non-empty house is legal, even though North stays empty.
	b.Houses[0] = 1
	b.Houses[1] = 1
	moves := b.LegalMoves()
	assert.ElementsMatch(t, []int{0, 1}, moves)
}

func TestHasEndedAndFinalScoresAwardRemainder(t *testing.T) {
	b := &Board{ToMove: South}
	b.Houses[6] = 3 // North has seeds, South is empty and to move.
	require.True(t, b.HasEnded())
	south, north := b.FinalScores()
	assert.EqualValues(t, 0, south)
	assert.EqualValues(t, 3, north)
}

func TestGameMakeUnmakeRoundTrip(t *testing.T) {
	g := New()
	h0 := g.Hash()
	moves := g.LegalMoves()
	require.NotEmpty(t, moves)

	require.NoError(t, g.MakeMove(moves[0]))
	require.NotEqual(t, h0, g.Hash())

	require.NoError(t, g.UnmakeMove())
	assert.Equal(t, h0, g.Hash())
	assert.Equal(t, game.SOUTH, g.Turn())
}

func TestGameIllegalMoveIsFatalError(t *testing.T) {
	g := New()
	err := g.MakeMove(game.Move(6)) // North's house, but South to move.
	assert.Error(t, err)
}

func TestNextMoveCursorDeterminism(t *testing.T) {
	g := New()
	var viaNextMove []game.Move
	for {
		m, ok := g.NextMove()
		if !ok {
			break
		}
		viaNextMove = append(viaNextMove, m)
	}
	assert.Equal(t, g.LegalMoves(), viaNextMove)

	g.SetCursor(game.CursorStart)
	first, ok := g.NextMove()
	require.True(t, ok)
	assert.Equal(t, viaNextMove[0], first)
}

func TestOutcomeNegamaxSign(t *testing.T) {
	g := New()
	b := g.RawBoard()
	for i := range b.Houses {
		b.Houses[i] = 0
	}
	b.Captured[South] = 30
	b.Captured[North] = 18
	b.ToMove = North // North to move, nothing to play.
	require.True(t, g.HasEnded())
	assert.Equal(t, Infinity, g.Outcome())
}

func TestBoardViewNotationRoundTrip(t *testing.T) {
	g := New()
	view := g.Board()
	for h := 0; h < NumHouses; h++ {
		coord := view.ToCoordinates(game.Move(int32(h)))
		m, err := view.ToMove(coord)
		require.NoError(t, err)
		assert.Equal(t, game.Move(int32(h)), m)
	}

	notation := view.ToNotation([]game.Move{0, 7})
	moves, err := view.ToMoves(notation)
	require.NoError(t, err)
	assert.Equal(t, []game.Move{0, 7}, moves)
}

func TestCanonicalSeedHashSymmetric(t *testing.T) {
	south := &Board{ToMove: South}
	north := &Board{ToMove: North}
	for i := 0; i < NumHouses; i++ {
		south.Houses[i] = int8(i)
		north.Houses[(i+HousesPerSide)%NumHouses] = int8(i)
	}
	assert.Equal(t, south.CanonicalSeedHash(), north.CanonicalSeedHash())
}
