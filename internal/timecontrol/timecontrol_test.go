package timecontrol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/abapaengine/core/internal/game"
)

func TestFixedMoveTimeOverridesFormula(t *testing.T) {
	m := &Manager{FixedMoveTime: 250 * time.Millisecond}
	assert.Equal(t, 250*time.Millisecond, m.GetMoveTimeAdvice(game.SOUTH))
}

func TestGetMoveTimeAdviceFloorsAtMinimum(t *testing.T) {
	m := &Manager{}
	m.SetTimeLeft(game.SOUTH, 1*time.Millisecond)
	assert.Equal(t, MinMoveTime, m.GetMoveTimeAdvice(game.SOUTH))
}

func TestGetMoveTimeAdviceScalesWithTimeLeft(t *testing.T) {
	m := &Manager{MovesToGo: 10}
	m.SetTimeLeft(game.SOUTH, 60*time.Second)
	budget := m.GetMoveTimeAdvice(game.SOUTH)
	assert.Greater(t, budget, MinMoveTime)
	assert.Less(t, budget, 60*time.Second)
}

func TestGetMoveTimeAdviceRewardsIncrement(t *testing.T) {
	m1 := &Manager{MovesToGo: 10}
	m1.SetTimeLeft(game.SOUTH, 20*time.Second)
	without := m1.GetMoveTimeAdvice(game.SOUTH)

	m2 := &Manager{MovesToGo: 10}
	m2.SetTimeLeft(game.SOUTH, 20*time.Second)
	m2.SetIncrement(game.SOUTH, 5*time.Second)
	with := m2.GetMoveTimeAdvice(game.SOUTH)

	assert.Greater(t, with, without)
}

func TestAborterArmDeadlineTrips(t *testing.T) {
	a := NewAborter()
	a.ArmDeadline(20 * time.Millisecond)
	assert.False(t, a.Aborted())
	time.Sleep(60 * time.Millisecond)
	assert.True(t, a.Aborted())
}

func TestAborterAbortIsImmediate(t *testing.T) {
	a := NewAborter()
	a.Abort()
	assert.True(t, a.Aborted())
}

func TestAborterResetAllowsReuse(t *testing.T) {
	a := NewAborter()
	a.Abort()
	a.Reset()
	assert.False(t, a.Aborted())
}
