package subscriptions

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// GetActive returns the member's active subscription, or nil when none exists.
// At most one row can be active per member (partial unique index).
func (r *Repo) GetActive(ctx context.Context, memberID int64) (*Subscription, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, member_id, start_date, end_date, sessions_per_month, is_active, created_at, updated_at
		FROM subscriptions
		WHERE member_id = $1 AND is_active = TRUE
	`, memberID)

	var s Subscription
	if err := row.Scan(&s.ID, &s.MemberID, &s.StartDate, &s.EndDate, &s.SessionsPerMonth, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
