package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/members"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/subscriptions"
)

func activeSub(start, end time.Time, perMonth *int) *subscriptions.Subscription {
	return &subscriptions.Subscription{
		ID:               1,
		MemberID:         1,
		StartDate:        start,
		EndDate:          end,
		SessionsPerMonth: perMonth,
		IsActive:         true,
	}
}

func baseSnapshot(start, end time.Time) Snapshot {
	return Snapshot{
		Member:       members.Member{ID: 1, Gender: members.GenderMale},
		Subscription: activeSub(start, end, nil),
	}
}

func TestEvaluate_AllowsWithRemaining(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	snap := baseSnapshot(start, end)
	snap.Quota = &Quota{SessionsUsed: 25, SessionsCap: 26, CycleStart: start, CycleEnd: start.AddDate(0, 1, 0)}

	res := Evaluate(snap, now, 30*time.Second)
	require.True(t, res.Allowed)
	assert.Equal(t, ReasonOK, res.Reason)
	assert.Equal(t, 0, res.SessionsRemaining)
}

func TestEvaluate_CooldownWinsOverEverything(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	// No subscription at all; the cooldown check still fires first
	// because evaluation order is a designed tie-break.
	last := now.Add(-5 * time.Second)
	snap := Snapshot{
		Member:      members.Member{ID: 1, Gender: members.GenderMale},
		LastSuccess: &last,
	}

	res := Evaluate(snap, now, 30*time.Second)
	require.False(t, res.Allowed)
	assert.Equal(t, ReasonCooldown, res.Reason)
}

func TestEvaluate_SameDayDedupe(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	now := time.Date(2025, 1, 15, 18, 0, 0, 0, time.UTC)

	last := time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)
	snap := baseSnapshot(start, end)
	snap.LastSuccess = &last

	res := Evaluate(snap, now, 30*time.Second)
	require.False(t, res.Allowed)
	assert.Equal(t, ReasonAlreadyToday, res.Reason)
}

func TestEvaluate_YesterdaySuccessDoesNotBlock(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	now := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)

	last := time.Date(2025, 1, 14, 23, 59, 0, 0, time.UTC)
	snap := baseSnapshot(start, end)
	snap.LastSuccess = &last

	res := Evaluate(snap, now, 30*time.Second)
	assert.True(t, res.Allowed)
}

func TestEvaluate_SubscriptionChecks(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		sub  *subscriptions.Subscription
	}{
		{"no subscription", nil},
		{"inactive", &subscriptions.Subscription{StartDate: now.AddDate(0, -1, 0), EndDate: now.AddDate(0, 1, 0), IsActive: false}},
		{"not started", &subscriptions.Subscription{StartDate: now.AddDate(0, 0, 1), EndDate: now.AddDate(0, 2, 0), IsActive: true}},
		{"expired yesterday", &subscriptions.Subscription{StartDate: now.AddDate(0, -2, 0), EndDate: now.AddDate(0, 0, -1), IsActive: true}},
		{"ends exactly now", &subscriptions.Subscription{StartDate: now.AddDate(0, -1, 0), EndDate: now, IsActive: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := Snapshot{Member: members.Member{ID: 1, Gender: members.GenderMale}, Subscription: tc.sub}
			res := Evaluate(snap, now, 30*time.Second)
			require.False(t, res.Allowed)
			assert.Equal(t, ReasonNoActiveSubscription, res.Reason)
		})
	}
}

func TestEvaluate_GenderDefaultCaps(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)

	male := baseSnapshot(start, end)
	res := Evaluate(male, now, 30*time.Second)
	require.True(t, res.Allowed)
	assert.Equal(t, DefaultCapMale-1, res.SessionsRemaining)

	female := baseSnapshot(start, end)
	female.Member.Gender = members.GenderFemale
	res = Evaluate(female, now, 30*time.Second)
	require.True(t, res.Allowed)
	assert.Equal(t, DefaultCapFemale-1, res.SessionsRemaining)
}

func TestEvaluate_ExplicitCapOverridesGender(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)

	per := 12
	snap := baseSnapshot(start, end)
	snap.Subscription = activeSub(start, end, &per)

	res := Evaluate(snap, now, 30*time.Second)
	require.True(t, res.Allowed)
	assert.Equal(t, 11, res.SessionsRemaining)
}

func TestEvaluate_QuotaExceeded(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	snap := baseSnapshot(start, end)
	snap.Quota = &Quota{SessionsUsed: 26, SessionsCap: 26, CycleStart: start, CycleEnd: start.AddDate(0, 1, 0)}

	res := Evaluate(snap, now, 30*time.Second)
	require.False(t, res.Allowed)
	assert.Equal(t, ReasonQuotaExceeded, res.Reason)
}

func TestEvaluate_StaleCycleQuotaIsDisregarded(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	// Second cycle; the cached quota still points at the first.
	now := time.Date(2025, 2, 15, 10, 0, 0, 0, time.UTC)

	snap := baseSnapshot(start, end)
	snap.Quota = &Quota{SessionsUsed: 26, SessionsCap: 26, CycleStart: start, CycleEnd: start.AddDate(0, 1, 0)}

	res := Evaluate(snap, now, 30*time.Second)
	require.True(t, res.Allowed)
	assert.Equal(t, DefaultCapMale-1, res.SessionsRemaining)
}

func TestEvaluate_LocalDayWindowUsesNowLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	// 23:00 UTC Jan 14 is 02:00 Jan 15 in UTC+3: same local day as a
	// 10:00 Jan 15 scan, so the dedupe fires.
	last := time.Date(2025, 1, 14, 23, 0, 0, 0, time.UTC)
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, loc)

	snap := baseSnapshot(start, end)
	snap.LastSuccess = &last

	res := Evaluate(snap, now, 30*time.Second)
	require.False(t, res.Allowed)
	assert.Equal(t, ReasonAlreadyToday, res.Reason)
}
