package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/members"
)

// Bundle is the full-refresh payload consumed by front-desk devices. The
// server is the sole source of truth for this snapshot; devices replace
// their replica wholesale rather than merging.
type Bundle struct {
	Members   []MemberBundle    `json:"members"`
	Settings  map[string]string `json:"settings"`
	ServerNow int64             `json:"server_now"`
}

// MemberBundle is one member's denormalized eligibility snapshot, including
// the active subscription, the current-cycle quota, and the last granted
// entry (unix seconds).
type MemberBundle struct {
	Snapshot
	LastSuccessUnix *int64 `json:"last_success_unix,omitempty"`
}

type MemberLister interface {
	ListByBranch(ctx context.Context, orgID, branchID int64) ([]members.Member, error)
}

type SettingsMapSource interface {
	Map(ctx context.Context, orgID int64) (map[string]string, error)
}

type BundleBuilder struct {
	members  MemberLister
	subs     SubscriptionSource
	quotas   QuotaStore
	logs     LogStore
	settings SettingsMapSource
	now      func() time.Time
}

func NewBundleBuilder(m MemberLister, s SubscriptionSource, q QuotaStore, l LogStore, st SettingsMapSource) *BundleBuilder {
	return &BundleBuilder{members: m, subs: s, quotas: q, logs: l, settings: st, now: time.Now}
}

func (b *BundleBuilder) Build(ctx context.Context, orgID, branchID int64) (*Bundle, error) {
	now := b.now()

	list, err := b.members.ListByBranch(ctx, orgID, branchID)
	if err != nil {
		return nil, fmt.Errorf("bundle members: %w", err)
	}
	setts, err := b.settings.Map(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("bundle settings: %w", err)
	}

	out := &Bundle{Settings: setts, ServerNow: now.Unix(), Members: make([]MemberBundle, 0, len(list))}
	for _, m := range list {
		mb := MemberBundle{Snapshot: Snapshot{Member: m}}

		sub, err := b.subs.GetActive(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("bundle subscription for member %d: %w", m.ID, err)
		}
		mb.Subscription = sub

		if sub != nil {
			if cycleStart, _, ok := MonthlyCycleWindow(sub.StartDate, sub.EndDate, now); ok {
				q, err := b.quotas.Current(ctx, sub.ID, cycleStart)
				if err != nil {
					return nil, fmt.Errorf("bundle quota for member %d: %w", m.ID, err)
				}
				mb.Quota = q
			}
		}

		last, err := b.logs.LastSuccess(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("bundle last success for member %d: %w", m.ID, err)
		}
		mb.LastSuccess = last
		if last != nil {
			u := last.Unix()
			mb.LastSuccessUnix = &u
		}

		out.Members = append(out.Members, mb)
	}
	return out, nil
}
