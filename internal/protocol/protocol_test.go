package protocol

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abapaengine/core/internal/game"
	"github.com/abapaengine/core/internal/gametest"
	"github.com/abapaengine/core/internal/report"
)

// fakeEngine is a minimal protocol.Engine stand-in, avoiding a dependency on
// internal/negamax or internal/uct from this package's tests.
type fakeEngine struct {
	mu       sync.Mutex
	moveTime time.Duration
	depth    game.Depth
	contempt game.Score
	aborted  bool
	consumer report.Consumer
}

func (f *fakeEngine) ComputeBestMove(g game.Game) (game.Move, error) {
	if f.consumer != nil {
		f.consumer(report.Report{Depth: 1, CentiPawns: 0})
	}
	moves := g.LegalMoves()
	if len(moves) == 0 {
		return game.NullMove, nil
	}
	return moves[0], nil
}
func (f *fakeEngine) ComputeBestScore() game.Score { return 0 }
func (f *fakeEngine) AbortComputation() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted = true
}
func (f *fakeEngine) SetMoveTime(d time.Duration)   { f.moveTime = d }
func (f *fakeEngine) SetDepth(d game.Depth)         { f.depth = d }
func (f *fakeEngine) SetContempt(c game.Score)      { f.contempt = c }
func (f *fakeEngine) AttachConsumer(c report.Consumer) {
	f.consumer = c
}

// syncBuffer is a trivially thread-safe io.Writer, needed because "go" dispatches
// ComputeBestMove onto its own goroutine while the test goroutine polls
// the same buffer.
type syncBuffer struct {
	mu sync.Mutex
	sb strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}

func newTestServer(t *testing.T) (*Server, *fakeEngine, *syncBuffer) {
	t.Helper()
	engine := &fakeEngine{}
	out := &syncBuffer{}
	srv := NewServer(engine, func() game.Game { return gametest.Default() }, out)
	return srv, engine, out
}

func TestSetOptionParsesAllKnownKeys(t *testing.T) {
	srv, engine, out := newTestServer(t)
	require.NoError(t, srv.Serve(strings.NewReader("setoption movetime=250 depth=6 contempt=-10\ngo\nquit\n")))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "bestmove")
	}, time.Second, 5*time.Millisecond)

	// movetime is the fixed override: it reaches the engine via the time manager at
	// "go", not at option-parse time.
	assert.Equal(t, 250*time.Millisecond, engine.moveTime)
	assert.Equal(t, game.Depth(6), engine.depth)
	assert.Equal(t, game.Score(-10), engine.contempt)
}

func TestGoComputesMoveTimeFromClock(t *testing.T) {
	srv, engine, out := newTestServer(t)
	require.NoError(t, srv.Serve(strings.NewReader("setoption southtime=60000 movestogo=10\ngo\nquit\n")))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "bestmove")
	}, time.Second, 5*time.Millisecond)

	// horizon = 2*min(20, 10) = 20; budget = (60s - 20*50ms overhead) / 20 = 2.95s.
	assert.Equal(t, 2950*time.Millisecond, engine.moveTime)
}

func TestGoWithoutClockOptionsLeavesMoveTimeAlone(t *testing.T) {
	srv, engine, out := newTestServer(t)
	require.NoError(t, srv.Serve(strings.NewReader("setoption depth=4\ngo\nquit\n")))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "bestmove")
	}, time.Second, 5*time.Millisecond)

	// A pure fixed-depth session never received a clock, so "go" must not invent a
	// deadline for it.
	assert.Zero(t, engine.moveTime)
}

func TestSetOptionReportsUnknownKey(t *testing.T) {
	srv, _, out := newTestServer(t)
	require.NoError(t, srv.Serve(strings.NewReader("setoption bogus=1\nquit\n")))
	assert.Contains(t, out.String(), "unknown option")
}

func TestPositionThenGoReturnsBestMove(t *testing.T) {
	srv, _, out := newTestServer(t)
	require.NoError(t, srv.Serve(strings.NewReader("position\ngo\n")))

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "bestmove")
	}, time.Second, 5*time.Millisecond)
}

func TestStopTriggersAbort(t *testing.T) {
	srv, engine, _ := newTestServer(t)
	require.NoError(t, srv.Serve(strings.NewReader("stop\nquit\n")))
	assert.True(t, engine.aborted)
}

func TestUnknownCommandReportsError(t *testing.T) {
	srv, _, out := newTestServer(t)
	require.NoError(t, srv.Serve(strings.NewReader("frobnicate\nquit\n")))
	assert.Contains(t, out.String(), "unknown command")
}
