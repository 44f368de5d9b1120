package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tally/internal/core"
)

// TransactionFilter narrows ListTransactions. Zero values mean "no filter".
type TransactionFilter struct {
	Type       core.TransactionType
	CategoryID int64
	From       time.Time
	To         time.Time
	Limit      int
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if err := r.checkTransactionRefs(ctx, tx, t); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `
			INSERT INTO transactions
				(user_id, type, amount_cents, currency, occurred_at, description,
				 category_id, account_id, income_source_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			t.UserID, string(t.Type), t.Amount.Cents, t.Currency, timeToDB(t.OccurredAt),
			t.Description, nullInt64(t.CategoryID), nullInt64(t.AccountID), nullInt64(t.IncomeSourceID),
		).Scan(&t.ID)
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return t, nil
}

// checkTransactionRefs verifies that referenced category/account/income
// source rows belong to the same user, so a crafted ID can never attach a
// transaction to another user's taxonomy.
func (r *SQLiteRepository) checkTransactionRefs(ctx context.Context, tx *sql.Tx, t core.Transaction) error {
	check := func(table string, id *int64) error {
		if id == nil {
			return nil
		}
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM `+table+` WHERE id = ? AND user_id = ?`, *id, t.UserID,
		).Scan(&one)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%s reference: %w", table, core.ErrNotFound)
		}
		return err
	}

	if err := check("categories", t.CategoryID); err != nil {
		return err
	}
	if err := check("accounts", t.AccountID); err != nil {
		return err
	}
	return check("income_sources", t.IncomeSourceID)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64, f TransactionFilter) ([]core.Transaction, error) {
	query := `
		SELECT id, user_id, type, amount_cents, currency, occurred_at, description,
		       category_id, account_id, income_source_id
		FROM transactions
		WHERE user_id = ?`
	args := []any{userID}

	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(f.Type))
	}
	if f.CategoryID != 0 {
		query += ` AND category_id = ?`
		args = append(args, f.CategoryID)
	}
	if !f.From.IsZero() {
		query += ` AND occurred_at >= ?`
		args = append(args, timeToDB(f.From))
	}
	if !f.To.IsZero() {
		query += ` AND occurred_at < ?`
		args = append(args, timeToDB(f.To))
	}
	query += ` ORDER BY occurred_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func scanTransaction(rows *sql.Rows) (core.Transaction, error) {
	var (
		t          core.Transaction
		occurredAt string
		catID      sql.NullInt64
		acctID     sql.NullInt64
		srcID      sql.NullInt64
	)
	if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount.Cents, &t.Currency,
		&occurredAt, &t.Description, &catID, &acctID, &srcID); err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	ts, err := timeFromDB(occurredAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.OccurredAt = ts
	t.CategoryID = int64Ptr(catID)
	t.AccountID = int64Ptr(acctID)
	t.IncomeSourceID = int64Ptr(srcID)
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res, "delete transaction")
}

func (r *SQLiteRepository) DeleteAllTransactions(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete all transactions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ImportDedupHash is the duplicate key for imported rows: a user-scoped hash
// over (type, occurred-at date, amount, category, description). Rows carrying
// an identical hash are silently skipped on bulk insert.
func ImportDedupHash(t core.Transaction) string {
	var catID int64
	if t.CategoryID != nil {
		catID = *t.CategoryID
	}
	key := strings.Join([]string{
		string(t.Type),
		t.OccurredAt.UTC().Format("2006-01-02"),
		strconv.FormatInt(t.Amount.Cents, 10),
		strconv.FormatInt(catID, 10),
		t.Description,
	}, "\x1f")
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// BulkInsertImported inserts imported transactions in one transaction,
// skipping rows whose dedup hash already exists. Returns how many rows were
// actually inserted.
func (r *SQLiteRepository) BulkInsertImported(ctx context.Context, txns []core.Transaction) (int, error) {
	if len(txns) == 0 {
		return 0, nil
	}

	inserted := 0
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO transactions
				(user_id, type, amount_cents, currency, occurred_at, description,
				 category_id, account_id, income_source_id, import_hash)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare bulk insert: %w", err)
		}
		defer stmt.Close()

		for _, t := range txns {
			res, err := stmt.ExecContext(ctx,
				t.UserID, string(t.Type), t.Amount.Cents, t.Currency, timeToDB(t.OccurredAt),
				t.Description, nullInt64(t.CategoryID), nullInt64(t.AccountID),
				nullInt64(t.IncomeSourceID), ImportDedupHash(t),
			)
			if err != nil {
				return fmt.Errorf("bulk insert row: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("bulk insert rows affected: %w", err)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// MonthSummary aggregates one month: income and expense totals plus the
// expense breakdown by category name.
func (r *SQLiteRepository) MonthSummary(ctx context.Context, userID int64, year, month int) (core.MonthSummary, error) {
	summary := core.MonthSummary{Year: year, Month: month}
	prefix := fmt.Sprintf("%04d-%02d", year, month)

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'INCOME' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'EXPENSE' THEN amount_cents ELSE 0 END), 0)
		FROM transactions
		WHERE user_id = ? AND substr(occurred_at, 1, 7) = ?`,
		userID, prefix,
	).Scan(&summary.Income.Cents, &summary.Expenses.Cents)
	if err != nil {
		return summary, fmt.Errorf("month totals: %w", err)
	}
	summary.Net = core.Money{Cents: summary.Income.Cents - summary.Expenses.Cents}

	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(c.name, 'Uncategorized'), SUM(t.amount_cents) AS total
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ? AND t.type = 'EXPENSE' AND substr(t.occurred_at, 1, 7) = ?
		GROUP BY COALESCE(c.name, 'Uncategorized')
		ORDER BY total DESC`,
		userID, prefix,
	)
	if err != nil {
		return summary, fmt.Errorf("month category sums: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Name, &ca.Amount.Cents); err != nil {
			return summary, fmt.Errorf("scan category sum: %w", err)
		}
		summary.ByCategory = append(summary.ByCategory, ca)
	}
	return summary, rows.Err()
}
