package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tally/internal/core"
)

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO accounts (user_id, name, type, provider, last_four)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		a.UserID, a.Name, string(a.Type), a.Provider, a.LastFour,
	).Scan(&a.ID)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", mapConstraintErr(err))
	}
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID int64, includeArchived bool) ([]core.Account, error) {
	query := `
		SELECT id, user_id, name, type, provider, last_four, is_archived
		FROM accounts
		WHERE user_id = ?`
	if !includeArchived {
		query += ` AND is_archived = 0`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.Provider, &a.LastFour, &a.IsArchived); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET name = ?, type = ?, provider = ?, last_four = ?, is_archived = ?
		WHERE id = ? AND user_id = ?`,
		a.Name, string(a.Type), a.Provider, a.LastFour, a.IsArchived, a.ID, a.UserID,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", mapConstraintErr(err))
	}
	return requireRow(res, "update account")
}

// ArchiveAccount soft-deletes; the account disappears from lists and frees
// its name for reuse, but historical transactions keep pointing at it.
func (r *SQLiteRepository) ArchiveAccount(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET is_archived = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("archive account: %w", err)
	}
	return requireRow(res, "archive account")
}

func (r *SQLiteRepository) DeleteAllAccounts(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete all accounts: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// FindOrCreateAccount resolves an active account by exact name, creating an
// OTHER-typed one when absent. Used by the import pipeline.
func (r *SQLiteRepository) FindOrCreateAccount(ctx context.Context, userID int64, name string) (int64, bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM accounts WHERE user_id = ? AND name = ? AND is_archived = 0`,
		userID, name,
	).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("find account: %w", err)
	}

	created, err := r.CreateAccount(ctx, core.Account{
		UserID: userID,
		Name:   name,
		Type:   core.AccountOther,
	})
	if err != nil {
		return 0, false, err
	}
	return created.ID, true, nil
}

// requireRow converts a zero-row update/delete into the ownership-safe
// not-found error.
func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return nil
}
