package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateOperation reports that a success row with the same
// operation_id was committed by a concurrent replay.
var ErrDuplicateOperation = errors.New("attendance: operation already committed")

type QuotaRepo struct{ pool *pgxpool.Pool }

func NewQuotaRepo(pool *pgxpool.Pool) *QuotaRepo { return &QuotaRepo{pool: pool} }

// Current reads the quota row for the given cycle without locking it. Used
// for snapshot building and the offline bundle; nil when no row exists yet.
func (r *QuotaRepo) Current(ctx context.Context, subscriptionID int64, cycleStart time.Time) (*Quota, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, subscription_id, sessions_used, sessions_cap, cycle_start, cycle_end
		FROM quotas
		WHERE subscription_id = $1 AND cycle_start = $2
	`, subscriptionID, cycleStart)

	var q Quota
	if err := row.Scan(&q.ID, &q.SubscriptionID, &q.SessionsUsed, &q.SessionsCap, &q.CycleStart, &q.CycleEnd); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &q, nil
}

// ConsumeSession is the concurrency anchor of the check-in path. Inside one
// transaction it creates-or-locks the quota row for (subscription, cycle),
// re-checks the cap under the row lock, and on success increments usage and
// writes the success log row. Two simultaneous check-ins for the same member
// serialize on the row lock, so the quota can never be over-committed.
//
// Returns (granted=false, nil) when the cap is already reached — a business
// denial, not an error. Returns ErrDuplicateOperation when the success log
// insert hits the operation_id unique index.
func (r *QuotaRepo) ConsumeSession(ctx context.Context, subscriptionID int64, cycleStart, cycleEnd time.Time, cap int, entry LogEntry) (granted bool, remaining int, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Ensure the row exists, then take the row lock.
	if _, err := tx.Exec(ctx, `
		INSERT INTO quotas (subscription_id, sessions_used, sessions_cap, cycle_start, cycle_end)
		VALUES ($1, 0, $2, $3, $4)
		ON CONFLICT (subscription_id, cycle_start) DO NOTHING
	`, subscriptionID, cap, cycleStart, cycleEnd); err != nil {
		return false, 0, err
	}

	var used, capacity int
	if err := tx.QueryRow(ctx, `
		SELECT sessions_used, sessions_cap FROM quotas
		WHERE subscription_id = $1 AND cycle_start = $2
		FOR UPDATE
	`, subscriptionID, cycleStart).Scan(&used, &capacity); err != nil {
		return false, 0, err
	}

	if used >= capacity {
		// Denied; commit anyway so the lock is released cleanly.
		return false, 0, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE quotas SET sessions_used = sessions_used + 1
		WHERE subscription_id = $1 AND cycle_start = $2
	`, subscriptionID, cycleStart); err != nil {
		return false, 0, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO attendance_logs (org_id, branch_id, member_id, scanned_value, method, status, reason, operation_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.OrgID, entry.BranchID, entry.MemberID, entry.ScannedValue, entry.Method, StatusSuccess, ReasonOK, entry.OperationID, entry.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, 0, ErrDuplicateOperation
		}
		return false, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, 0, err
	}
	return true, capacity - used - 1, nil
}
