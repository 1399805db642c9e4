package attendance

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LogRepo struct{ pool *pgxpool.Pool }

func NewLogRepo(pool *pgxpool.Pool) *LogRepo { return &LogRepo{pool: pool} }

const logCols = `id, org_id, branch_id, member_id, scanned_value, method, status, reason, operation_id, created_at`

func (r *LogRepo) Insert(ctx context.Context, e LogEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO attendance_logs (org_id, branch_id, member_id, scanned_value, method, status, reason, operation_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, e.OrgID, e.BranchID, e.MemberID, e.ScannedValue, e.Method, e.Status, e.Reason, e.OperationID, e.CreatedAt)
	return err
}

func scanLog(row pgx.Row) (*LogEntry, error) {
	var e LogEntry
	if err := row.Scan(&e.ID, &e.OrgID, &e.BranchID, &e.MemberID, &e.ScannedValue, &e.Method, &e.Status, &e.Reason, &e.OperationID, &e.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// GetByOperationID returns the committed log row for an offline operation,
// or nil when the operation was never applied. This is the replay dedupe
// lookup; operation_id carries a unique index.
func (r *LogRepo) GetByOperationID(ctx context.Context, operationID string) (*LogEntry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+logCols+` FROM attendance_logs WHERE operation_id = $1
	`, operationID)
	return scanLog(row)
}

// LastSuccess returns the instant of the member's most recent granted entry.
func (r *LogRepo) LastSuccess(ctx context.Context, memberID int64) (*time.Time, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT created_at FROM attendance_logs
		WHERE member_id = $1 AND status = 'success'
		ORDER BY created_at DESC
		LIMIT 1
	`, memberID)
	var t time.Time
	if err := row.Scan(&t); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *LogRepo) ListByMember(ctx context.Context, memberID int64, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+logCols+` FROM attendance_logs
		WHERE member_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, memberID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.OrgID, &e.BranchID, &e.MemberID, &e.ScannedValue, &e.Method, &e.Status, &e.Reason, &e.OperationID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
