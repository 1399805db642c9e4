package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/members"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/subscriptions"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/infra/metrics"
)

// Request is the check-in wire contract, shared by the online endpoint and
// the offline-sync replay path. OperationID is set only on replays.
type Request struct {
	ScannedValue string `json:"scanned_value"`
	Method       Method `json:"method"`
	OrgID        int64  `json:"org_id"`
	BranchID     int64  `json:"branch_id"`
	OperationID  string `json:"operation_id,omitempty"`
}

// Decision is the business outcome of a scan. Denials are decisions, not
// errors; an error from CheckIn always means infrastructure trouble and is
// retriable.
type Decision struct {
	Success           bool   `json:"success"`
	Reason            Reason `json:"reason"`
	SessionsRemaining *int   `json:"sessions_remaining,omitempty"`
	MemberID          *int64 `json:"member_id,omitempty"`
	MemberName        string `json:"member_name,omitempty"`
}

type MemberSource interface {
	ResolveByCredential(ctx context.Context, orgID int64, value string) (*members.Member, error)
}

type SubscriptionSource interface {
	GetActive(ctx context.Context, memberID int64) (*subscriptions.Subscription, error)
}

type SettingsSource interface {
	Cooldown(ctx context.Context, orgID int64) (time.Duration, error)
}

type LogStore interface {
	Insert(ctx context.Context, e LogEntry) error
	GetByOperationID(ctx context.Context, operationID string) (*LogEntry, error)
	LastSuccess(ctx context.Context, memberID int64) (*time.Time, error)
}

type QuotaStore interface {
	Current(ctx context.Context, subscriptionID int64, cycleStart time.Time) (*Quota, error)
	ConsumeSession(ctx context.Context, subscriptionID int64, cycleStart, cycleEnd time.Time, cap int, entry LogEntry) (granted bool, remaining int, err error)
}

// Service is the authoritative check-in decision engine: it loads a member
// snapshot, runs the shared rule engine, and commits the admit decision
// exactly once via the quota store's transaction.
type Service struct {
	members  MemberSource
	subs     SubscriptionSource
	settings SettingsSource
	logs     LogStore
	quotas   QuotaStore
	loc      *time.Location
	log      *slog.Logger
	now      func() time.Time
}

func NewService(m MemberSource, s SubscriptionSource, st SettingsSource, l LogStore, q QuotaStore, loc *time.Location, log *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{members: m, subs: s, settings: st, logs: l, quotas: q, loc: loc, log: log, now: time.Now}
}

func (s *Service) CheckIn(ctx context.Context, req Request) (Decision, error) {
	value := strings.TrimSpace(req.ScannedValue)
	now := s.now().In(s.loc)

	// Idempotent replay: an operation that already committed is answered
	// from its log row, with no second quota increment.
	if req.OperationID != "" {
		prior, err := s.logs.GetByOperationID(ctx, req.OperationID)
		if err != nil {
			return Decision{}, fmt.Errorf("check-in replay lookup: %w", err)
		}
		if prior != nil {
			metrics.CheckinDecisions.WithLabelValues("replay", "online").Inc()
			return Decision{Success: true, Reason: ReasonOK, MemberID: prior.MemberID}, nil
		}
	}

	member, err := s.members.ResolveByCredential(ctx, req.OrgID, value)
	if err != nil {
		return Decision{}, fmt.Errorf("check-in member lookup: %w", err)
	}
	if member == nil {
		return s.deny(ctx, req, value, nil, now, ReasonUnknownMember)
	}

	cooldown, err := s.settings.Cooldown(ctx, req.OrgID)
	if err != nil {
		return Decision{}, fmt.Errorf("check-in settings: %w", err)
	}

	snap, err := s.loadSnapshot(ctx, *member, now)
	if err != nil {
		return Decision{}, err
	}

	res := Evaluate(snap, now, cooldown)
	if !res.Allowed {
		return s.deny(ctx, req, value, &member.ID, now, res.Reason)
	}

	cycleStart, cycleEnd, _ := MonthlyCycleWindow(snap.Subscription.StartDate, snap.Subscription.EndDate, now)
	entry := LogEntry{
		OrgID:        req.OrgID,
		BranchID:     req.BranchID,
		MemberID:     &member.ID,
		ScannedValue: value,
		Method:       req.Method,
		CreatedAt:    now,
	}
	if req.OperationID != "" {
		opID := req.OperationID
		entry.OperationID = &opID
	}

	granted, remaining, err := s.quotas.ConsumeSession(ctx, snap.Subscription.ID, cycleStart, cycleEnd, EffectiveCap(snap), entry)
	if errors.Is(err, ErrDuplicateOperation) {
		// A concurrent replay won the race; treat as committed.
		metrics.CheckinDecisions.WithLabelValues("replay", "online").Inc()
		return Decision{Success: true, Reason: ReasonOK, MemberID: &member.ID, MemberName: member.Name}, nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("check-in consume: %w", err)
	}
	if !granted {
		// Lost the cap race between snapshot read and row lock.
		return s.deny(ctx, req, value, &member.ID, now, ReasonQuotaExceeded)
	}

	metrics.CheckinDecisions.WithLabelValues(string(ReasonOK), "online").Inc()
	s.log.Info("check-in granted", "member_id", member.ID, "remaining", remaining)
	return Decision{Success: true, Reason: ReasonOK, SessionsRemaining: &remaining, MemberID: &member.ID, MemberName: member.Name}, nil
}

func (s *Service) loadSnapshot(ctx context.Context, m members.Member, now time.Time) (Snapshot, error) {
	snap := Snapshot{Member: m}

	sub, err := s.subs.GetActive(ctx, m.ID)
	if err != nil {
		return snap, fmt.Errorf("check-in subscription: %w", err)
	}
	snap.Subscription = sub

	last, err := s.logs.LastSuccess(ctx, m.ID)
	if err != nil {
		return snap, fmt.Errorf("check-in last success: %w", err)
	}
	snap.LastSuccess = last

	if sub != nil {
		if cycleStart, _, ok := MonthlyCycleWindow(sub.StartDate, sub.EndDate, now); ok {
			q, err := s.quotas.Current(ctx, sub.ID, cycleStart)
			if err != nil {
				return snap, fmt.Errorf("check-in quota: %w", err)
			}
			snap.Quota = q
		}
	}
	return snap, nil
}

// deny records the failure audit row and returns the denial. The write runs
// without any row lock; duplicate failure logs are acceptable, duplicate
// quota increments are not.
func (s *Service) deny(ctx context.Context, req Request, value string, memberID *int64, now time.Time, reason Reason) (Decision, error) {
	entry := LogEntry{
		OrgID:        req.OrgID,
		BranchID:     req.BranchID,
		MemberID:     memberID,
		ScannedValue: value,
		Method:       req.Method,
		Status:       StatusFailure,
		Reason:       reason,
		CreatedAt:    now,
	}
	if err := s.logs.Insert(ctx, entry); err != nil {
		return Decision{}, fmt.Errorf("check-in audit log: %w", err)
	}
	metrics.CheckinDecisions.WithLabelValues(string(reason), "online").Inc()
	return Decision{Reason: reason, MemberID: memberID}, nil
}
