package offline

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/attendance"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/members"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/subscriptions"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/replica"
)

func newTestEngine(t *testing.T, localNow, serverNow time.Time) (*Engine, *replica.Store) {
	t.Helper()
	store, err := replica.Open(filepath.Join(t.TempDir(), "replica.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	per := 2
	start := serverNow.AddDate(0, -1, 0)
	bundle := &attendance.Bundle{
		ServerNow: serverNow.Unix(),
		Settings:  map[string]string{"scan_cooldown_seconds": "30"},
		Members: []attendance.MemberBundle{
			{
				Snapshot: attendance.Snapshot{
					Member: members.Member{ID: 1, OrgID: 1, BranchID: 1, Name: "Ada", Phone: "0100", CardCode: "C-1", Gender: members.GenderFemale},
					Subscription: &subscriptions.Subscription{
						ID: 11, MemberID: 1, StartDate: start, EndDate: start.AddDate(1, 0, 0), SessionsPerMonth: &per, IsActive: true,
					},
				},
			},
			{
				Snapshot: attendance.Snapshot{
					Member: members.Member{ID: 2, OrgID: 1, BranchID: 1, Name: "Ben", Phone: "0200", Gender: members.GenderMale},
				},
			},
		},
	}
	require.NoError(t, store.ApplyBundle(bundle, localNow))

	e := NewEngine(store, slog.Default())
	e.now = func() time.Time { return localNow }
	return e, store
}

func TestOfflineCheckIn_AllowsAndEnqueues(t *testing.T) {
	localNow := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	e, store := newTestEngine(t, localNow, localNow.Add(time.Minute))

	dec, err := e.CheckIn("0100", attendance.MethodPhone)
	require.NoError(t, err)
	require.True(t, dec.Allowed)
	assert.Equal(t, attendance.ReasonOK, dec.Reason)
	assert.Equal(t, 1, dec.SessionsRemaining)
	require.NotEmpty(t, dec.OperationID)

	pending, err := store.PendingOps()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, dec.OperationID, pending[0].OperationID)
	assert.Equal(t, int64(1), pending[0].MemberID)
	// Decision instant is skew-corrected local time.
	assert.Equal(t, localNow.Add(time.Minute).Unix(), pending[0].OfflineTimestamp.Unix())
}

func TestOfflineCheckIn_RapidRescanHitsCooldown(t *testing.T) {
	localNow := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	e, store := newTestEngine(t, localNow, localNow)

	dec, err := e.CheckIn("0100", attendance.MethodPhone)
	require.NoError(t, err)
	require.True(t, dec.Allowed)

	// The optimistic local update must be visible before any sync runs.
	e.now = func() time.Time { return localNow.Add(5 * time.Second) }
	dec, err = e.CheckIn("0100", attendance.MethodPhone)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, attendance.ReasonCooldown, dec.Reason)

	pending, err := store.PendingOps()
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestOfflineCheckIn_DenyDoesNotMutate(t *testing.T) {
	localNow := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	e, store := newTestEngine(t, localNow, localNow)

	// Ben has no subscription.
	dec, err := e.CheckIn("0200", attendance.MethodPhone)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, attendance.ReasonNoActiveSubscription, dec.Reason)

	pending, err := store.PendingOps()
	require.NoError(t, err)
	assert.Empty(t, pending)

	rec, err := store.MemberByID(2)
	require.NoError(t, err)
	assert.False(t, rec.Provisional)
}

func TestOfflineCheckIn_UnknownMember(t *testing.T) {
	localNow := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	e, _ := newTestEngine(t, localNow, localNow)

	dec, err := e.CheckIn("XYZ-000", attendance.MethodCard)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, attendance.ReasonUnknownMember, dec.Reason)
	assert.Empty(t, dec.OperationID)
}

// The offline engine and the authoritative service share Evaluate; given the
// same snapshot and instant they must agree. This exercises the engine's
// call site against the rule engine's direct verdict.
func TestOfflineOnlineAgreement(t *testing.T) {
	localNow := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	e, store := newTestEngine(t, localNow, localNow)

	rec, err := store.MemberByID(1)
	require.NoError(t, err)
	direct := attendance.Evaluate(rec.Snapshot, localNow, 30*time.Second)

	viaEngine, err := e.CheckIn("0100", attendance.MethodPhone)
	require.NoError(t, err)

	assert.Equal(t, direct.Allowed, viaEngine.Allowed)
	assert.Equal(t, direct.Reason, viaEngine.Reason)
	assert.Equal(t, direct.SessionsRemaining, viaEngine.SessionsRemaining)
}

func TestOfflineCheckIn_QuotaExhaustionAcrossScans(t *testing.T) {
	localNow := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	e, _ := newTestEngine(t, localNow, localNow)

	// Cap is 2; step past cooldown and day windows between scans.
	times := []time.Time{localNow, localNow.Add(25 * time.Hour), localNow.Add(50 * time.Hour)}
	var reasons []attendance.Reason
	for _, ts := range times {
		ts := ts
		e.now = func() time.Time { return ts }
		dec, err := e.CheckIn("0100", attendance.MethodPhone)
		require.NoError(t, err)
		reasons = append(reasons, dec.Reason)
	}

	assert.Equal(t, []attendance.Reason{attendance.ReasonOK, attendance.ReasonOK, attendance.ReasonQuotaExceeded}, reasons)
}
