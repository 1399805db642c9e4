package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthlyCycleWindow_FirstCycle(t *testing.T) {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	now := time.Date(2025, 3, 25, 12, 0, 0, 0, time.UTC)

	cs, ce, ok := MonthlyCycleWindow(start, end, now)
	require.True(t, ok)
	assert.Equal(t, start, cs)
	assert.Equal(t, time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC), ce)
}

func TestMonthlyCycleWindow_RollsOnAnchorDay(t *testing.T) {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	// The instant of the anchor belongs to the new cycle, not the old one.
	now := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	cs, ce, ok := MonthlyCycleWindow(start, end, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC), cs)
	assert.Equal(t, time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC), ce)

	// One second earlier still falls in the first cycle.
	cs, _, ok = MonthlyCycleWindow(start, end, now.Add(-time.Second))
	require.True(t, ok)
	assert.Equal(t, start, cs)
}

func TestMonthlyCycleWindow_ClampsShortMonths(t *testing.T) {
	start := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	now := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
	cs, ce, ok := MonthlyCycleWindow(start, end, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), cs)
	// 2025 is not a leap year: the February anchor clamps to the 28th.
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), ce)

	now = time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	cs, ce, ok = MonthlyCycleWindow(start, end, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), cs)
	assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), ce)
}

func TestMonthlyCycleWindow_OutsideSubscription(t *testing.T) {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 6, 0)

	_, _, ok := MonthlyCycleWindow(start, end, start.Add(-time.Second))
	assert.False(t, ok)

	_, _, ok = MonthlyCycleWindow(start, end, end)
	assert.False(t, ok)

	_, _, ok = MonthlyCycleWindow(start, end, end.AddDate(0, 1, 0))
	assert.False(t, ok)
}

// Every instant in [start, end) must land in exactly one window, windows
// must tile without gaps or overlap, and the result must be deterministic.
func TestMonthlyCycleWindow_ContiguousPartition(t *testing.T) {
	start := time.Date(2024, 12, 31, 15, 30, 0, 0, time.UTC)
	end := start.AddDate(2, 0, 0)

	probe := start
	var prevEnd time.Time
	for probe.Before(end) {
		cs, ce, ok := MonthlyCycleWindow(start, end, probe)
		require.True(t, ok, "probe %v", probe)
		require.False(t, probe.Before(cs), "window must contain probe %v", probe)
		require.True(t, probe.Before(ce), "window must contain probe %v", probe)

		if !prevEnd.IsZero() && !cs.Equal(prevEnd) && cs.After(prevEnd) {
			t.Fatalf("gap between %v and %v", prevEnd, cs)
		}

		// Re-query from inside the found window: same window.
		cs2, ce2, ok := MonthlyCycleWindow(start, end, ce.Add(-time.Second))
		require.True(t, ok)
		assert.Equal(t, cs, cs2)
		assert.Equal(t, ce, ce2)

		prevEnd = ce
		probe = ce
	}
}
