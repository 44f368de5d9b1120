package storage

import (
	"context"
	"fmt"
	"strings"
)

// Identity is what the auth boundary hands us about the caller.
type Identity struct {
	ExternalID string
	Email      string
	Name       string
}

// EnsureUser resolves an external identity to a local user row, creating it
// on first sight and refreshing email/name on later calls. Idempotent.
func (r *SQLiteRepository) EnsureUser(ctx context.Context, ident Identity, defaultCurrency string) (int64, error) {
	if strings.TrimSpace(ident.ExternalID) == "" {
		return 0, fmt.Errorf("ensure user: empty external id")
	}

	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (external_id, email, name, currency)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name
		RETURNING id`,
		ident.ExternalID, ident.Email, ident.Name, defaultCurrency,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensure user: %w", err)
	}

	return id, nil
}

// UserCurrency returns the user's preferred currency code.
func (r *SQLiteRepository) UserCurrency(ctx context.Context, userID int64) (string, error) {
	var currency string
	err := r.db.QueryRowContext(ctx,
		`SELECT currency FROM users WHERE id = ?`, userID,
	).Scan(&currency)
	if err != nil {
		return "", fmt.Errorf("get user currency: %w", err)
	}
	return currency, nil
}
