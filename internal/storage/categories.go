package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tally/internal/core"
)

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO categories (user_id, name, kind, color, icon)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		c.UserID, c.Name, string(c.Kind), c.Color, c.Icon,
	).Scan(&c.ID)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", mapConstraintErr(err))
	}
	return c, nil
}

// ListCategories returns the user's active categories, optionally filtered
// by kind (empty kind means both).
func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64, kind core.TransactionType) ([]core.Category, error) {
	query := `
		SELECT id, user_id, name, kind, color, icon, is_archived
		FROM categories
		WHERE user_id = ? AND is_archived = 0`
	args := []any{userID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Kind, &c.Color, &c.Icon, &c.IsArchived); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories
		SET name = ?, color = ?, icon = ?, is_archived = ?
		WHERE id = ? AND user_id = ?`,
		c.Name, c.Color, c.Icon, c.IsArchived, c.ID, c.UserID,
	)
	if err != nil {
		return fmt.Errorf("update category: %w", mapConstraintErr(err))
	}
	return requireRow(res, "update category")
}

func (r *SQLiteRepository) ArchiveCategory(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET is_archived = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("archive category: %w", err)
	}
	return requireRow(res, "archive category")
}

func (r *SQLiteRepository) DeleteAllCategories(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete all categories: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// FindOrCreateCategory resolves an active category by exact name and kind,
// creating it with the given color when absent. Used by the import pipeline.
func (r *SQLiteRepository) FindOrCreateCategory(ctx context.Context, userID int64, name string, kind core.TransactionType, color string) (int64, bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE user_id = ? AND name = ? AND kind = ? AND is_archived = 0`,
		userID, name, string(kind),
	).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("find category: %w", err)
	}

	created, err := r.CreateCategory(ctx, core.Category{
		UserID: userID,
		Name:   name,
		Kind:   kind,
		Color:  color,
	})
	if err != nil {
		return 0, false, err
	}
	return created.ID, true, nil
}
