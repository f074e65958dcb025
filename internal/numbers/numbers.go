package numbers

import (
	"context"
	"database/sql"
	"errors"
)

// Resolver looks up a user's assigned outbound caller-ID number.
//
// Lookup failures of any kind (no row, missing table on older deployments)
// are reported as ErrNotAssigned so callers fall back to the platform
// default rather than failing the call.
type Resolver interface {
	AssignedNumber(ctx context.Context, userID string) (string, error)
}

var ErrNotAssigned = errors.New("numbers: no assigned number")

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) AssignedNumber(ctx context.Context, userID string) (string, error) {
	const q = `
SELECT phone_number
FROM user_phone_numbers
WHERE user_id = $1
LIMIT 1
`
	var n string
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(&n); err != nil {
		// Schema drift (relation absent) is treated the same as no row;
		// the caller falls back to the platform default number.
		return "", ErrNotAssigned
	}
	if n == "" {
		return "", ErrNotAssigned
	}
	return n, nil
}

// StaticResolver maps user IDs to numbers in memory; used in tests.
type StaticResolver map[string]string

func (s StaticResolver) AssignedNumber(ctx context.Context, userID string) (string, error) {
	if n, ok := s[userID]; ok && n != "" {
		return n, nil
	}
	return "", ErrNotAssigned
}
