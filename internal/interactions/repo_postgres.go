package interactions

import (
	"context"
	"database/sql"
)

// PostgresRepo appends interaction entries to the interactions table.
// The table carries an INSERT-only policy; retention is handled by
// time-based partitioning on the dashboard side.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Entry) error {
	const q = `
INSERT INTO interactions (
  id, lead_id, user_id, type, detail, call_sid, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.LeadID,
		e.UserID,
		e.Type,
		e.Detail,
		e.CallSid,
		e.CreatedAt,
	)
	return err
}
