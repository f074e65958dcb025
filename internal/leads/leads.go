package leads

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Lead is a telemarketing prospect row. Only the fields the dialer needs
// are surfaced; the full record belongs to the dashboard CRUD layer.
type Lead struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	VendorID  string    `json:"vendor_id,omitempty" db:"vendor_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

var ErrNotFound = errors.New("leads: not found")

// Repository is the record-store the call flow consumes for reverse
// number-to-lead matching on webhook events.
type Repository interface {
	FindByPhone(ctx context.Context, phone string) (Lead, error)
}

// phoneVariants returns the encodings under which a number may be stored:
// the value as given, the bare national digits, and the +1-prefixed form.
// Lead rows predate E.164 normalization, so lookups must tolerate all three.
func phoneVariants(phone string) []string {
	digits := digitsOnly(phone)
	variants := []string{phone}
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		variants = append(variants, digits, digits[1:], "+"+digits)
	} else if len(digits) == 10 {
		variants = append(variants, digits, "+1"+digits)
	} else if digits != "" && digits != phone {
		variants = append(variants, digits)
	}
	return variants
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) FindByPhone(ctx context.Context, phone string) (Lead, error) {
	const q = `
SELECT id, name, phone, COALESCE(vendor_id, ''), created_at
FROM leads
WHERE phone = ANY($1)
ORDER BY created_at DESC
LIMIT 1
`
	variants := phoneVariants(phone)
	var l Lead
	if err := r.db.QueryRowContext(ctx, q, variants).Scan(
		&l.ID,
		&l.Name,
		&l.Phone,
		&l.VendorID,
		&l.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, err
	}
	return l, nil
}
