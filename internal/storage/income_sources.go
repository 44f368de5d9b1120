package storage

import (
	"context"
	"fmt"

	"tally/internal/core"
)

func (r *SQLiteRepository) CreateIncomeSource(ctx context.Context, s core.IncomeSource) (core.IncomeSource, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO income_sources (user_id, name)
		VALUES (?, ?)
		RETURNING id`,
		s.UserID, s.Name,
	).Scan(&s.ID)
	if err != nil {
		return core.IncomeSource{}, fmt.Errorf("create income source: %w", mapConstraintErr(err))
	}
	return s, nil
}

func (r *SQLiteRepository) ListIncomeSources(ctx context.Context, userID int64) ([]core.IncomeSource, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, is_archived
		FROM income_sources
		WHERE user_id = ? AND is_archived = 0
		ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list income sources: %w", err)
	}
	defer rows.Close()

	var sources []core.IncomeSource
	for rows.Next() {
		var s core.IncomeSource
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.IsArchived); err != nil {
			return nil, fmt.Errorf("scan income source: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

func (r *SQLiteRepository) ArchiveIncomeSource(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE income_sources SET is_archived = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("archive income source: %w", err)
	}
	return requireRow(res, "archive income source")
}

func (r *SQLiteRepository) DeleteAllIncomeSources(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM income_sources WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete all income sources: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
