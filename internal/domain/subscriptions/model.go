package subscriptions

import "time"

type Subscription struct {
	ID               int64     `json:"id"`
	MemberID         int64     `json:"member_id"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	SessionsPerMonth *int      `json:"sessions_per_month,omitempty"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"-"`
	UpdatedAt        time.Time `json:"-"`
}
