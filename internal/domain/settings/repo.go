package settings

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Map(ctx context.Context, orgID int64) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value FROM settings WHERE org_id = $1`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (r *Repo) Cooldown(ctx context.Context, orgID int64) (time.Duration, error) {
	m, err := r.Map(ctx, orgID)
	if err != nil {
		return 0, err
	}
	return Cooldown(m), nil
}
