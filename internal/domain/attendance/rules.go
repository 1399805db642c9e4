package attendance

import (
	"time"

	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/members"
)

// Session caps applied when the subscription carries no explicit
// sessions_per_month. Business policy inherited from the platform.
const (
	DefaultCapMale   = 26
	DefaultCapFemale = 30
)

func DefaultCapFor(g members.Gender) int {
	if g == members.GenderFemale {
		return DefaultCapFemale
	}
	return DefaultCapMale
}

// EffectiveCap is the subscription's monthly cap, falling back to the
// gender default when unset.
func EffectiveCap(snap Snapshot) int {
	if s := snap.Subscription; s != nil && s.SessionsPerMonth != nil {
		return *s.SessionsPerMonth
	}
	return DefaultCapFor(snap.Member.Gender)
}

// Evaluate decides whether the member may check in at now. Pure and
// deterministic; the identical code runs on the server and on the offline
// device, which is what makes offline decisions trustworthy.
//
// Check order is a designed tie-break: cooldown, then same-day dedupe, then
// subscription activity, then quota. The first two are cheap and absorb
// duplicate-scan noise; quota runs last because it is the only check that
// needs a cycle computation. The local day window is taken from now's
// location.
func Evaluate(snap Snapshot, now time.Time, cooldown time.Duration) Result {
	if ls := snap.LastSuccess; ls != nil {
		if now.Sub(*ls) < cooldown {
			return Result{Reason: ReasonCooldown}
		}
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		local := ls.In(now.Location())
		if !local.Before(dayStart) && local.Before(dayStart.Add(24*time.Hour)) {
			return Result{Reason: ReasonAlreadyToday}
		}
	}

	sub := snap.Subscription
	if sub == nil || !sub.IsActive || now.Before(sub.StartDate) || !now.Before(sub.EndDate) {
		return Result{Reason: ReasonNoActiveSubscription}
	}

	cap := EffectiveCap(snap)
	used := 0
	cycleStart, _, ok := MonthlyCycleWindow(sub.StartDate, sub.EndDate, now)
	if !ok {
		// Unreachable after the activity check, but never admit on a
		// window we could not compute.
		return Result{Reason: ReasonNoActiveSubscription}
	}
	// A cached quota row counts only for the current cycle; a stale cycle
	// means the counter reset, not that usage carries over.
	if q := snap.Quota; q != nil && q.CycleStart.Equal(cycleStart) {
		used = q.SessionsUsed
		cap = q.SessionsCap
	}
	if used >= cap {
		return Result{Reason: ReasonQuotaExceeded}
	}

	return Result{Allowed: true, Reason: ReasonOK, SessionsRemaining: cap - used - 1}
}
