// Package timecontrol converts a wall-clock budget plus increments into a per-move
// deadline, and provides the single-writer atomic
// abort signal shared by internal/negamax and internal/uct.
//
// The budget formula is a branching-factor/moves-to-go style time control,
// generalized to a turn-indexed pair of clocks.
package timecontrol

import (
	"sync/atomic"
	"time"

	"github.com/abapaengine/core/internal/game"
)

const (
	// MaxMovesHorizon caps how many remaining moves are assumed for the horizon
	// calculation.
	MaxMovesHorizon = 20

	// DefaultMoveTime is the per-move budget assumed for an untimed ("fallback") game,
	// i.e. when TimeLeft is unset: a conservative single-move default in the
	// few-seconds-of-think-time range engines run with absent an explicit clock.
	DefaultMoveTime = 1000 * time.Millisecond

	// MinMoveTime is the floor on the computed per-move budget.
	MinMoveTime = 500 * time.Millisecond

	// Overhead is subtracted from the horizon's total budget to leave margin for
	// non-search latency (I/O, reporting).
	Overhead = 50 * time.Millisecond
)

// Manager holds the clock state for both players and computes a per-move time budget.
type Manager struct {
	// TimeLeft and Increment are indexed by game.SOUTH/game.NORTH via index().
	TimeLeft  [2]time.Duration
	Increment [2]time.Duration

	// MovesToGo is the number of moves remaining until the next time control, or 0 if
	// unknown/unlimited.
	MovesToGo int

	// FixedMoveTime, when non-zero, overrides the formula below with a constant
	// per-move budget.
	FixedMoveTime time.Duration
}

func index(turn game.PlayerNum) int {
	if turn == game.SOUTH {
		return 0
	}
	return 1
}

// SetTimeLeft records the remaining clock time for turn.
func (m *Manager) SetTimeLeft(turn game.PlayerNum, d time.Duration) {
	m.TimeLeft[index(turn)] = d
}

// SetIncrement records the per-move increment for turn.
func (m *Manager) SetIncrement(turn game.PlayerNum, d time.Duration) {
	m.Increment[index(turn)] = d
}

// GetMoveTimeAdvice computes the per-move time budget for turn:
//
//	horizon = 2 * min(MAX_MOVES, moves_left_or_MAX)
//	fallback = horizon * DEFAULT_MOVETIME
//	bonus = horizon * increment[turn]
//	total = (time_left>0 ? time_left : fallback) + bonus - horizon*OVERHEAD
//	budget = max(MIN_MOVETIME, total / horizon)
func (m *Manager) GetMoveTimeAdvice(turn game.PlayerNum) time.Duration {
	if m.FixedMoveTime > 0 {
		return m.FixedMoveTime
	}

	movesLeftOrMax := m.MovesToGo
	if movesLeftOrMax <= 0 {
		movesLeftOrMax = MaxMovesHorizon
	}
	horizon := 2 * min(MaxMovesHorizon, movesLeftOrMax)
	if horizon <= 0 {
		horizon = 2 * MaxMovesHorizon
	}

	timeLeft := m.TimeLeft[index(turn)]
	increment := m.Increment[index(turn)]

	var base time.Duration
	if timeLeft > 0 {
		base = timeLeft
	} else {
		base = time.Duration(horizon) * DefaultMoveTime
	}
	bonus := time.Duration(horizon) * increment
	total := base + bonus - time.Duration(horizon)*Overhead

	budget := total / time.Duration(horizon)
	if budget < MinMoveTime {
		budget = MinMoveTime
	}
	return budget
}

// Aborter is the single-writer atomic abort signal shared between a search engine, an
// internal deadline timer, and the protocol's "stop" command. It is safe
// for the owning engine to poll Aborted() from its search loop while a timer goroutine
// or an external caller sets it exactly once.
type Aborter struct {
	aborted atomic.Bool
	timer   *time.Timer
}

// NewAborter returns a fresh, un-triggered Aborter.
func NewAborter() *Aborter {
	return &Aborter{}
}

// ArmDeadline schedules the Aborter to trip after d elapses. Calling ArmDeadline again
// replaces any previously scheduled timer. Passing d<=0 never arms a timer (useful for
// depth-only searches with no time budget).
func (a *Aborter) ArmDeadline(d time.Duration) {
	if a.timer != nil {
		a.timer.Stop()
	}
	if d <= 0 {
		return
	}
	a.timer = time.AfterFunc(d, func() {
		a.aborted.Store(true)
	})
}

// Stop cancels any pending deadline timer without tripping the abort flag. Used when a
// search completes before its deadline.
func (a *Aborter) Stop() {
	if a.timer != nil {
		a.timer.Stop()
	}
}

// Abort trips the flag immediately. Called by abort_computation() and by the protocol's
// "stop" command.
func (a *Aborter) Abort() {
	a.aborted.Store(true)
}

// AbortAfter trips the flag after delay, without blocking the caller.
func (a *Aborter) AbortAfter(delay time.Duration) {
	time.AfterFunc(delay, a.Abort)
}

// Aborted reports whether the signal has tripped. Polled by the search loop at every
// make-move: deterministic polling, no interrupts.
func (a *Aborter) Aborted() bool {
	return a.aborted.Load()
}

// Reset clears the flag and cancels any pending timer, for reuse across searches.
func (a *Aborter) Reset() {
	a.Stop()
	a.aborted.Store(false)
}
