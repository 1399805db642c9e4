package members

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const memberCols = `id, org_id, branch_id, name, phone, card_code, gender, created_at, updated_at`

func scanMember(row pgx.Row) (*Member, error) {
	var m Member
	if err := row.Scan(&m.ID, &m.OrgID, &m.BranchID, &m.Name, &m.Phone, &m.CardCode, &m.Gender, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *Repo) GetByID(ctx context.Context, orgID, id int64) (*Member, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+memberCols+` FROM members WHERE org_id = $1 AND id = $2
	`, orgID, id)
	return scanMember(row)
}

// ResolveByCredential resolves a scanned value within the tenant scope:
// numeric member id first, then phone, then card code.
func (r *Repo) ResolveByCredential(ctx context.Context, orgID int64, value string) (*Member, error) {
	if id, err := strconv.ParseInt(value, 10, 64); err == nil {
		m, err := r.GetByID(ctx, orgID, id)
		if err != nil || m != nil {
			return m, err
		}
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+memberCols+` FROM members WHERE org_id = $1 AND phone = $2
	`, orgID, value)
	m, err := scanMember(row)
	if err != nil || m != nil {
		return m, err
	}
	row = r.pool.QueryRow(ctx, `
		SELECT `+memberCols+` FROM members WHERE org_id = $1 AND card_code = $2
	`, orgID, value)
	return scanMember(row)
}

func (r *Repo) ListByBranch(ctx context.Context, orgID, branchID int64) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+memberCols+` FROM members
		WHERE org_id = $1 AND branch_id = $2
		ORDER BY id
	`, orgID, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.OrgID, &m.BranchID, &m.Name, &m.Phone, &m.CardCode, &m.Gender, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
