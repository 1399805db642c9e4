package attendance

import (
	"time"

	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/members"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/subscriptions"
)

type Method string

const (
	MethodMemberID Method = "member_id"
	MethodPhone    Method = "phone"
	MethodCard     Method = "card"
)

type Reason string

const (
	ReasonOK                   Reason = "ok"
	ReasonCooldown             Reason = "cooldown"
	ReasonAlreadyToday         Reason = "already_checked_in_today"
	ReasonNoActiveSubscription Reason = "no_active_subscription"
	ReasonQuotaExceeded        Reason = "quota_exceeded"
	ReasonUnknownMember        Reason = "unknown_member"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Quota is the usage counter for one subscription within one cycle window.
// A cached row is only meaningful when CycleStart matches the window computed
// for the evaluation instant.
type Quota struct {
	ID             int64     `json:"-"`
	SubscriptionID int64     `json:"-"`
	SessionsUsed   int       `json:"sessions_used"`
	SessionsCap    int       `json:"sessions_cap"`
	CycleStart     time.Time `json:"cycle_start"`
	CycleEnd       time.Time `json:"cycle_end"`
}

// Snapshot is everything the rule engine needs to decide on one member.
// The same shape is evaluated online (loaded from Postgres) and offline
// (loaded from the device replica).
type Snapshot struct {
	Member       members.Member              `json:"member"`
	Subscription *subscriptions.Subscription `json:"subscription,omitempty"`
	Quota        *Quota                      `json:"quota,omitempty"`
	LastSuccess  *time.Time                  `json:"last_success,omitempty"`
}

// Result is the rule engine verdict. SessionsRemaining is meaningful only
// when Allowed is true.
type Result struct {
	Allowed           bool   `json:"allowed"`
	Reason            Reason `json:"reason"`
	SessionsRemaining int    `json:"sessions_remaining"`
}

// LogEntry is one row of the append-only attendance audit trail.
// MemberID is nil for scans that never resolved to a member.
type LogEntry struct {
	ID           int64     `json:"id"`
	OrgID        int64     `json:"org_id"`
	BranchID     int64     `json:"branch_id"`
	MemberID     *int64    `json:"member_id"`
	ScannedValue string    `json:"scanned_value"`
	Method       Method    `json:"method"`
	Status       string    `json:"status"`
	Reason       Reason    `json:"reason"`
	OperationID  *string   `json:"operation_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
