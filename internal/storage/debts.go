package storage

import (
	"context"
	"database/sql"
	"fmt"

	"tally/internal/core"
)

func (r *SQLiteRepository) CreateDebt(ctx context.Context, d core.Debt) (core.Debt, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO debts (user_id, name, type, balance_cents, apr, minimum_payment_cents, lender, due_day)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		d.UserID, d.Name, string(d.Type), d.Balance.Cents, nullFloat64(d.APR),
		d.MinimumPayment.Cents, d.Lender, nullInt(d.DueDay),
	).Scan(&d.ID)
	if err != nil {
		return core.Debt{}, fmt.Errorf("create debt: %w", err)
	}
	return d, nil
}

func (r *SQLiteRepository) GetDebt(ctx context.Context, userID, id int64) (core.Debt, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, type, balance_cents, apr, minimum_payment_cents, lender, due_day, is_closed
		FROM debts
		WHERE id = ? AND user_id = ?`, id, userID)
	d, err := scanDebt(row)
	if err == sql.ErrNoRows {
		return core.Debt{}, fmt.Errorf("get debt: %w", core.ErrNotFound)
	}
	if err != nil {
		return core.Debt{}, fmt.Errorf("get debt: %w", err)
	}
	return d, nil
}

func (r *SQLiteRepository) ListDebts(ctx context.Context, userID int64, includeClosed bool) ([]core.Debt, error) {
	query := `
		SELECT id, user_id, name, type, balance_cents, apr, minimum_payment_cents, lender, due_day, is_closed
		FROM debts
		WHERE user_id = ?`
	if !includeClosed {
		query += ` AND is_closed = 0`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	defer rows.Close()

	var debts []core.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan debt: %w", err)
		}
		debts = append(debts, d)
	}
	return debts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDebt(row rowScanner) (core.Debt, error) {
	var (
		d      core.Debt
		apr    sql.NullFloat64
		dueDay sql.NullInt64
	)
	err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Type, &d.Balance.Cents,
		&apr, &d.MinimumPayment.Cents, &d.Lender, &dueDay, &d.IsClosed)
	if err != nil {
		return core.Debt{}, err
	}
	if apr.Valid {
		v := apr.Float64
		d.APR = &v
	}
	if dueDay.Valid {
		v := int(dueDay.Int64)
		d.DueDay = &v
	}
	return d, nil
}

// UpdateDebt rewrites the mutable fields. Balance is deliberately not among
// them; it only moves through payment mutations.
func (r *SQLiteRepository) UpdateDebt(ctx context.Context, d core.Debt) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE debts
		SET name = ?, type = ?, apr = ?, minimum_payment_cents = ?, lender = ?, due_day = ?, is_closed = ?
		WHERE id = ? AND user_id = ?`,
		d.Name, string(d.Type), nullFloat64(d.APR), d.MinimumPayment.Cents,
		d.Lender, nullInt(d.DueDay), d.IsClosed, d.ID, d.UserID)
	if err != nil {
		return fmt.Errorf("update debt: %w", err)
	}
	return requireRow(res, "update debt")
}

// DeleteDebt removes the debt and, via the foreign key cascade, its payments.
func (r *SQLiteRepository) DeleteDebt(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM debts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete debt: %w", err)
	}
	return requireRow(res, "delete debt")
}

// DeleteAllDebts wipes every debt the user owns; payments go with them via
// the foreign key cascade.
func (r *SQLiteRepository) DeleteAllDebts(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM debts WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete all debts: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// RecordPayment inserts a payment and reduces the debt balance by its amount
// in the same transaction. The balance moves via a relative UPDATE in SQL, so
// concurrent payments cannot overwrite each other's effect.
func (r *SQLiteRepository) RecordPayment(ctx context.Context, p core.DebtPayment) (core.DebtPayment, error) {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE debts SET balance_cents = balance_cents - ?
			WHERE id = ? AND user_id = ?`,
			p.Amount.Cents, p.DebtID, p.UserID)
		if err != nil {
			return fmt.Errorf("apply payment to balance: %w", err)
		}
		if err := requireRow(res, "record payment"); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `
			INSERT INTO debt_payments (user_id, debt_id, amount_cents, paid_at, principal_cents, interest_cents, note)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			p.UserID, p.DebtID, p.Amount.Cents, timeToDB(p.PaidAt),
			nullMoney(p.Principal), nullMoney(p.Interest), p.Note,
		).Scan(&p.ID)
	})
	if err != nil {
		return core.DebtPayment{}, err
	}
	return p, nil
}

// UpdatePayment rewrites a payment and shifts the debt balance by the
// difference between the old and new amounts, atomically.
func (r *SQLiteRepository) UpdatePayment(ctx context.Context, p core.DebtPayment) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var oldAmount int64
		err := tx.QueryRowContext(ctx, `
			SELECT amount_cents FROM debt_payments
			WHERE id = ? AND debt_id = ? AND user_id = ?`,
			p.ID, p.DebtID, p.UserID,
		).Scan(&oldAmount)
		if err == sql.ErrNoRows {
			return fmt.Errorf("update payment: %w", core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load payment: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE debt_payments
			SET amount_cents = ?, paid_at = ?, principal_cents = ?, interest_cents = ?, note = ?
			WHERE id = ?`,
			p.Amount.Cents, timeToDB(p.PaidAt), nullMoney(p.Principal),
			nullMoney(p.Interest), p.Note, p.ID); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE debts SET balance_cents = balance_cents - ?
			WHERE id = ? AND user_id = ?`,
			p.Amount.Cents-oldAmount, p.DebtID, p.UserID)
		if err != nil {
			return fmt.Errorf("adjust balance: %w", err)
		}
		return nil
	})
}

// DeletePayment removes a payment and restores its amount to the debt
// balance, atomically.
func (r *SQLiteRepository) DeletePayment(ctx context.Context, userID, debtID, paymentID int64) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var amount int64
		err := tx.QueryRowContext(ctx, `
			SELECT amount_cents FROM debt_payments
			WHERE id = ? AND debt_id = ? AND user_id = ?`,
			paymentID, debtID, userID,
		).Scan(&amount)
		if err == sql.ErrNoRows {
			return fmt.Errorf("delete payment: %w", core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load payment: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM debt_payments WHERE id = ?`, paymentID); err != nil {
			return fmt.Errorf("delete payment: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE debts SET balance_cents = balance_cents + ?
			WHERE id = ? AND user_id = ?`,
			amount, debtID, userID)
		if err != nil {
			return fmt.Errorf("restore balance: %w", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) ListPayments(ctx context.Context, userID, debtID int64) ([]core.DebtPayment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, debt_id, amount_cents, paid_at, principal_cents, interest_cents, note
		FROM debt_payments
		WHERE debt_id = ? AND user_id = ?
		ORDER BY paid_at DESC, id DESC`, debtID, userID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []core.DebtPayment
	for rows.Next() {
		var (
			p         core.DebtPayment
			paidAt    string
			principal sql.NullInt64
			interest  sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.DebtID, &p.Amount.Cents,
			&paidAt, &principal, &interest, &p.Note); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		ts, err := timeFromDB(paidAt)
		if err != nil {
			return nil, err
		}
		p.PaidAt = ts
		p.Principal = moneyPtr(principal)
		p.Interest = moneyPtr(interest)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
