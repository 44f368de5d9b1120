package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tally/internal/core"
)

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	var deadline any
	if g.Deadline != nil {
		deadline = timeToDB(*g.Deadline)
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO savings_goals (user_id, name, target_amount_cents, current_amount_cents, deadline)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		g.UserID, g.Name, g.TargetAmount.Cents, g.CurrentAmount.Cents, deadline,
	).Scan(&g.ID)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("create goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, userID, id int64) (core.SavingsGoal, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, target_amount_cents, current_amount_cents, deadline, is_archived
		FROM savings_goals
		WHERE id = ? AND user_id = ?`, id, userID)
	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return core.SavingsGoal{}, fmt.Errorf("get goal: %w", core.ErrNotFound)
	}
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID int64, includeArchived bool) ([]core.SavingsGoal, error) {
	query := `
		SELECT id, user_id, name, target_amount_cents, current_amount_cents, deadline, is_archived
		FROM savings_goals
		WHERE user_id = ?`
	if !includeArchived {
		query += ` AND is_archived = 0`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []core.SavingsGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func scanGoal(row rowScanner) (core.SavingsGoal, error) {
	var (
		g        core.SavingsGoal
		deadline sql.NullString
	)
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount.Cents,
		&g.CurrentAmount.Cents, &deadline, &g.IsArchived)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	if deadline.Valid {
		ts, err := time.Parse(time.RFC3339, deadline.String)
		if err != nil {
			return core.SavingsGoal{}, fmt.Errorf("parse goal deadline %q: %w", deadline.String, err)
		}
		g.Deadline = &ts
	}
	return g, nil
}

// UpdateGoal rewrites the mutable fields. CurrentAmount only moves through
// contribution mutations.
func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g core.SavingsGoal) error {
	var deadline any
	if g.Deadline != nil {
		deadline = timeToDB(*g.Deadline)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE savings_goals
		SET name = ?, target_amount_cents = ?, deadline = ?, is_archived = ?
		WHERE id = ? AND user_id = ?`,
		g.Name, g.TargetAmount.Cents, deadline, g.IsArchived, g.ID, g.UserID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return requireRow(res, "update goal")
}

func (r *SQLiteRepository) ArchiveGoal(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE savings_goals SET is_archived = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("archive goal: %w", err)
	}
	return requireRow(res, "archive goal")
}

// DeleteAllGoals wipes every goal the user owns, contributions included via
// the foreign key cascade.
func (r *SQLiteRepository) DeleteAllGoals(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM savings_goals WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete all goals: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// RecordContribution inserts a contribution and raises the goal's saved
// amount by the same value in one transaction, with the balance moving via a
// relative UPDATE in SQL.
func (r *SQLiteRepository) RecordContribution(ctx context.Context, c core.GoalContribution) (core.GoalContribution, error) {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE savings_goals SET current_amount_cents = current_amount_cents + ?
			WHERE id = ? AND user_id = ?`,
			c.Amount.Cents, c.GoalID, c.UserID)
		if err != nil {
			return fmt.Errorf("apply contribution: %w", err)
		}
		if err := requireRow(res, "record contribution"); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `
			INSERT INTO goal_contributions (user_id, goal_id, amount_cents, made_at, note)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id`,
			c.UserID, c.GoalID, c.Amount.Cents, timeToDB(c.MadeAt), c.Note,
		).Scan(&c.ID)
	})
	if err != nil {
		return core.GoalContribution{}, err
	}
	return c, nil
}

// DeleteContribution removes a contribution and lowers the goal's saved
// amount by its value, atomically.
func (r *SQLiteRepository) DeleteContribution(ctx context.Context, userID, goalID, contributionID int64) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var amount int64
		err := tx.QueryRowContext(ctx, `
			SELECT amount_cents FROM goal_contributions
			WHERE id = ? AND goal_id = ? AND user_id = ?`,
			contributionID, goalID, userID,
		).Scan(&amount)
		if err == sql.ErrNoRows {
			return fmt.Errorf("delete contribution: %w", core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load contribution: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM goal_contributions WHERE id = ?`, contributionID); err != nil {
			return fmt.Errorf("delete contribution: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE savings_goals SET current_amount_cents = current_amount_cents - ?
			WHERE id = ? AND user_id = ?`,
			amount, goalID, userID)
		if err != nil {
			return fmt.Errorf("lower saved amount: %w", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) ListContributions(ctx context.Context, userID, goalID int64) ([]core.GoalContribution, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, goal_id, amount_cents, made_at, note
		FROM goal_contributions
		WHERE goal_id = ? AND user_id = ?
		ORDER BY made_at DESC, id DESC`, goalID, userID)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer rows.Close()

	var contributions []core.GoalContribution
	for rows.Next() {
		var (
			c      core.GoalContribution
			madeAt string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.GoalID, &c.Amount.Cents, &madeAt, &c.Note); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		ts, err := timeFromDB(madeAt)
		if err != nil {
			return nil, err
		}
		c.MadeAt = ts
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}
