package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElector_ClaimAndCede(t *testing.T) {
	bus := NewInProcessBus()
	a := NewElector("a", bus)
	b := NewElector("b", bus)
	defer a.Close()
	defer b.Close()

	a.ClaimLeadership()
	require.True(t, a.IsLeader())

	// b's claim demotes the idle a; last claim wins.
	b.ClaimLeadership()
	assert.False(t, a.IsLeader())
	assert.True(t, b.IsLeader())
}

func TestElector_BusyLeaderDoesNotCede(t *testing.T) {
	bus := NewInProcessBus()
	a := NewElector("a", bus)
	b := NewElector("b", bus)
	defer a.Close()
	defer b.Close()

	a.SetBusyCheck(func() bool { return true })
	a.ClaimLeadership()

	b.ClaimLeadership()
	// A drain in flight keeps leadership; duplicates are idempotent
	// anyway, the election only avoids wasted work.
	assert.True(t, a.IsLeader())
	assert.True(t, b.IsLeader())
}

func TestElector_LostCallbackFires(t *testing.T) {
	bus := NewInProcessBus()
	a := NewElector("a", bus)
	defer a.Close()

	var lost int
	a.OnLeadershipLost(func() { lost++ })

	a.ClaimLeadership()
	bus.Publish(Claim{ProcessID: "someone-else"})
	assert.Equal(t, 1, lost)

	// Already a follower: another claim does not re-fire.
	bus.Publish(Claim{ProcessID: "someone-else"})
	assert.Equal(t, 1, lost)
}

func TestElector_IgnoresOwnClaims(t *testing.T) {
	bus := NewInProcessBus()
	a := NewElector("a", bus)
	defer a.Close()

	var lost int
	a.OnLeadershipLost(func() { lost++ })

	a.ClaimLeadership()
	a.ClaimLeadership()
	assert.True(t, a.IsLeader())
	assert.Zero(t, lost)
}
