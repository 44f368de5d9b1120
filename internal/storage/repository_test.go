package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "tally.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *SQLiteRepository, externalID string) int64 {
	t.Helper()
	id, err := repo.EnsureUser(context.Background(), Identity{
		ExternalID: externalID,
		Email:      externalID + "@example.com",
		Name:       "Test User",
	}, "EUR")
	require.NoError(t, err)
	return id
}

func TestEnsureUser_Idempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.EnsureUser(ctx, Identity{ExternalID: "sub-1", Email: "a@example.com"}, "EUR")
	require.NoError(t, err)

	second, err := repo.EnsureUser(ctx, Identity{ExternalID: "sub-1", Email: "new@example.com"}, "EUR")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCreateAccount_DuplicateName(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo, "sub-1")

	_, err := repo.CreateAccount(ctx, core.Account{UserID: userID, Name: "Main", Type: core.AccountChecking})
	require.NoError(t, err)

	_, err = repo.CreateAccount(ctx, core.Account{UserID: userID, Name: "Main", Type: core.AccountChecking})
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestArchivedAccountName_Reusable(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo, "sub-1")

	a, err := repo.CreateAccount(ctx, core.Account{UserID: userID, Name: "Main", Type: core.AccountChecking})
	require.NoError(t, err)
	require.NoError(t, repo.ArchiveAccount(ctx, userID, a.ID))

	_, err = repo.CreateAccount(ctx, core.Account{UserID: userID, Name: "Main", Type: core.AccountChecking})
	assert.NoError(t, err)
}

func TestTransactionOwnership(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := newTestUser(t, repo, "alice")
	bob := newTestUser(t, repo, "bob")

	txn, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID:     alice,
		Type:       core.Expense,
		Amount:     core.Money{Cents: 1500},
		Currency:   "EUR",
		OccurredAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// Bob cannot see or delete Alice's transaction.
	list, err := repo.ListTransactions(ctx, bob, TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	err = repo.DeleteTransaction(ctx, bob, txn.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	list, err = repo.ListTransactions(ctx, alice, TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateTransaction_ForeignCategoryRejected(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := newTestUser(t, repo, "alice")
	bob := newTestUser(t, repo, "bob")

	cat, err := repo.CreateCategory(ctx, core.Category{UserID: bob, Name: "Groceries", Kind: core.Expense})
	require.NoError(t, err)

	_, err = repo.CreateTransaction(ctx, core.Transaction{
		UserID:     alice,
		Type:       core.Expense,
		Amount:     core.Money{Cents: 1000},
		Currency:   "EUR",
		OccurredAt: time.Now(),
		CategoryID: &cat.ID,
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestBulkDelete_DetachesReferencingTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo, "sub-1")

	cat, err := repo.CreateCategory(ctx, core.Category{UserID: userID, Name: "Groceries", Kind: core.Expense})
	require.NoError(t, err)
	acc, err := repo.CreateAccount(ctx, core.Account{UserID: userID, Name: "Monzo", Type: core.AccountChecking})
	require.NoError(t, err)

	txn, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID:     userID,
		Type:       core.Expense,
		Amount:     core.Money{Cents: 1250},
		Currency:   "EUR",
		OccurredAt: time.Now(),
		CategoryID: &cat.ID,
		AccountID:  &acc.ID,
	})
	require.NoError(t, err)

	// Account-data wipe must not trip over transactions still pointing at
	// the deleted rows; the references go null instead.
	n, err := repo.DeleteAllCategories(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.DeleteAllAccounts(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	listed, err := repo.ListTransactions(ctx, userID, TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, txn.ID, listed[0].ID)
	assert.Nil(t, listed[0].CategoryID)
	assert.Nil(t, listed[0].AccountID)
}

func TestListTransactions_Filters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo, "sub-1")

	cat, err := repo.CreateCategory(ctx, core.Category{UserID: userID, Name: "Rent", Kind: core.Expense})
	require.NoError(t, err)

	mk := func(typ core.TransactionType, cents int64, day int, catID *int64) {
		_, err := repo.CreateTransaction(ctx, core.Transaction{
			UserID:     userID,
			Type:       typ,
			Amount:     core.Money{Cents: cents},
			Currency:   "EUR",
			OccurredAt: time.Date(2025, 3, day, 10, 0, 0, 0, time.UTC),
			CategoryID: catID,
		})
		require.NoError(t, err)
	}
	mk(core.Income, 200000, 1, nil)
	mk(core.Expense, 80000, 5, &cat.ID)
	mk(core.Expense, 4500, 20, nil)

	byType, err := repo.ListTransactions(ctx, userID, TransactionFilter{Type: core.Expense})
	require.NoError(t, err)
	assert.Len(t, byType, 2)

	byCat, err := repo.ListTransactions(ctx, userID, TransactionFilter{CategoryID: cat.ID})
	require.NoError(t, err)
	assert.Len(t, byCat, 1)

	byRange, err := repo.ListTransactions(ctx, userID, TransactionFilter{
		From: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Len(t, byRange, 1)

	limited, err := repo.ListTransactions(ctx, userID, TransactionFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
	// Newest first.
	assert.Equal(t, int64(4500), limited[0].Amount.Cents)
}

func TestBulkInsertImported_SkipsDuplicates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo, "sub-1")

	rows := []core.Transaction{
		{UserID: userID, Type: core.Expense, Amount: core.Money{Cents: 1299}, Currency: "EUR",
			OccurredAt: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), Description: "COFFEE SHOP"},
		{UserID: userID, Type: core.Expense, Amount: core.Money{Cents: 5400}, Currency: "EUR",
			OccurredAt: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), Description: "SUPERMARKET"},
	}

	inserted, err := repo.BulkInsertImported(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// Re-importing the same statement inserts nothing.
	inserted, err = repo.BulkInsertImported(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	list, err := repo.ListTransactions(ctx, userID, TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestBulkInsertImported_ManualRowsUnconstrained(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo, "sub-1")

	// Two identical manual entries are both legitimate.
	for i := 0; i < 2; i++ {
		_, err := repo.CreateTransaction(ctx, core.Transaction{
			UserID:     userID,
			Type:       core.Expense,
			Amount:     core.Money{Cents: 350},
			Currency:   "EUR",
			OccurredAt: time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
			Description: "Espresso",
		})
		require.NoError(t, err)
	}

	list, err := repo.ListTransactions(ctx, userID, TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRecordPayment_ReducesBalance(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo, "sub-1")

	debt, err := repo.CreateDebt(ctx, core.Debt{
		UserID: userID, Name: "Card", Type: core.DebtCreditCard,
		Balance: core.Money{Cents: 100000},
	})
	require.NoError(t, err)

	payment, err := repo.RecordPayment(ctx, core.DebtPayment{
		UserID: userID, DebtID: debt.ID,
		Amount: core.Money{Cents: 25000},
		PaidAt: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotZero(t, payment.ID)

	got, err := repo.GetDebt(ctx, userID, debt.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(75000), got.Balance.Cents)
}

func TestRecordPayment_OverpaymentGoesNegative(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo, "sub-1")

	debt, err := repo.CreateDebt(ctx, core.Debt{
		UserID: userID, Name: "Loan", Type: core.DebtLoan,
		Balance: core.Money{Cents: 1000},
	})
	require.NoError(t, err)

	_, err = repo.RecordPayment(ctx, core.DebtPayment{
		UserID: userID, DebtID: debt.ID,
		Amount: core.Money{Cents: 5000},
		PaidAt: time.Now(),
	})
	require.NoError(t, err)

	got, err := repo.GetDebt(ctx, userID, debt.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-4000), got.Balance.Cents)
}

func TestUpdatePayment_ShiftsBalanceByDifference(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo, "sub-1")

	debt, err := repo.CreateDebt(ctx, core.Debt{
		UserID: userID, Name: "Card", Type: core.DebtCreditCard,
		Balance: core.Money{Cents: 50000},
	})
	require.NoError(t, err)

	payment, err := repo.RecordPayment(ctx, core.DebtPayment{
		UserID: userID, DebtID: debt.ID,
		Amount: core.Money{Cents: 10000},
		PaidAt: time.Now(),
	})
	require.NoError(t, err)

	payment.Amount = core.Money{Cents: 15000}
	require.NoError(t, repo.UpdatePayment(ctx, payment))

	got, err := repo.GetDebt(ctx, userID, debt.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(35000), got.Balance.Cents)
}

func TestDeletePayment_RestoresBalance(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo, "sub-1")

	debt, err := repo.CreateDebt(ctx, core.Debt{
		UserID: userID, Name: "Card", Type: core.DebtCreditCard,
		Balance: core.Money{Cents: 50000},
	})
	require.NoError(t, err)

	payment, err := repo.RecordPayment(ctx, core.DebtPayment{
		UserID: userID, DebtID: debt.ID,
		Amount: core.Money{Cents: 10000},
		PaidAt: time.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, repo.DeletePayment(ctx, userID, debt.ID, payment.ID))

	got, err := repo.GetDebt(ctx, userID, debt.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), got.Balance.Cents)

	payments, err := repo.ListPayments(ctx, userID, debt.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestConcurrentPayments_NoLostUpdates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo, "sub-1")

	debt, err := repo.CreateDebt(ctx, core.Debt{
		UserID: userID, Name: "Card", Type: core.DebtCreditCard,
		Balance: core.Money{Cents: 100000},
	})
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.RecordPayment(ctx, core.DebtPayment{
				UserID: userID, DebtID: debt.ID,
				Amount: core.Money{Cents: 1000},
				PaidAt: time.Now(),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := repo.GetDebt(ctx, userID, debt.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100000-workers*1000), got.Balance.Cents)
}

func TestDeleteDebt_CascadesPayments(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo, "sub-1")

	debt, err := repo.CreateDebt(ctx, core.Debt{
		UserID: userID, Name: "Card", Type: core.DebtCreditCard,
		Balance: core.Money{Cents: 10000},
	})
	require.NoError(t, err)

	_, err = repo.RecordPayment(ctx, core.DebtPayment{
		UserID: userID, DebtID: debt.ID,
		Amount: core.Money{Cents: 1000},
		PaidAt: time.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteDebt(ctx, userID, debt.ID))

	payments, err := repo.ListPayments(ctx, userID, debt.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestDeleteAllDebts_OnlyCallersRows(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := newTestUser(t, repo, "alice")
	bob := newTestUser(t, repo, "bob")

	for _, name := range []string{"Card", "Loan"} {
		_, err := repo.CreateDebt(ctx, core.Debt{
			UserID: alice, Name: name, Type: core.DebtLoan,
			Balance: core.Money{Cents: 5000},
		})
		require.NoError(t, err)
	}
	kept, err := repo.CreateDebt(ctx, core.Debt{
		UserID: bob, Name: "Card", Type: core.DebtCreditCard,
		Balance: core.Money{Cents: 5000},
	})
	require.NoError(t, err)

	n, err := repo.DeleteAllDebts(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = repo.GetDebt(ctx, bob, kept.ID)
	assert.NoError(t, err)
}

func TestContributions_MoveSavedAmount(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo, "sub-1")

	goal, err := repo.CreateGoal(ctx, core.SavingsGoal{
		UserID: userID, Name: "Holiday",
		TargetAmount: core.Money{Cents: 200000},
	})
	require.NoError(t, err)

	c, err := repo.RecordContribution(ctx, core.GoalContribution{
		UserID: userID, GoalID: goal.ID,
		Amount: core.Money{Cents: 30000},
		MadeAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	got, err := repo.GetGoal(ctx, userID, goal.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), got.CurrentAmount.Cents)

	require.NoError(t, repo.DeleteContribution(ctx, userID, goal.ID, c.ID))

	got, err = repo.GetGoal(ctx, userID, goal.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.CurrentAmount.Cents)
}

func TestRecordContribution_ForeignGoalRejected(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := newTestUser(t, repo, "alice")
	bob := newTestUser(t, repo, "bob")

	goal, err := repo.CreateGoal(ctx, core.SavingsGoal{
		UserID: alice, Name: "Holiday",
		TargetAmount: core.Money{Cents: 100000},
	})
	require.NoError(t, err)

	_, err = repo.RecordContribution(ctx, core.GoalContribution{
		UserID: bob, GoalID: goal.ID,
		Amount: core.Money{Cents: 1000},
		MadeAt: time.Now(),
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMonthSummary(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo, "sub-1")

	rent, err := repo.CreateCategory(ctx, core.Category{UserID: userID, Name: "Rent", Kind: core.Expense})
	require.NoError(t, err)

	mk := func(typ core.TransactionType, cents int64, month, day int, catID *int64) {
		_, err := repo.CreateTransaction(ctx, core.Transaction{
			UserID:     userID,
			Type:       typ,
			Amount:     core.Money{Cents: cents},
			Currency:   "EUR",
			OccurredAt: time.Date(2025, time.Month(month), day, 12, 0, 0, 0, time.UTC),
			CategoryID: catID,
		})
		require.NoError(t, err)
	}
	mk(core.Income, 250000, 3, 1, nil)
	mk(core.Expense, 90000, 3, 5, &rent.ID)
	mk(core.Expense, 12000, 3, 12, nil)
	// Different month, excluded.
	mk(core.Expense, 99999, 4, 1, nil)

	summary, err := repo.MonthSummary(ctx, userID, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(250000), summary.Income.Cents)
	assert.Equal(t, int64(102000), summary.Expenses.Cents)
	assert.Equal(t, int64(148000), summary.Net.Cents)

	require.Len(t, summary.ByCategory, 2)
	assert.Equal(t, "Rent", summary.ByCategory[0].Name)
	assert.Equal(t, int64(90000), summary.ByCategory[0].Amount.Cents)
	assert.Equal(t, "Uncategorized", summary.ByCategory[1].Name)
}

func TestFindOrCreateCategory_Memoizable(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo, "sub-1")

	id1, created, err := repo.FindOrCreateCategory(ctx, userID, "Groceries", core.Expense, "#4E79A7")
	require.NoError(t, err)
	assert.True(t, created)

	id2, created, err := repo.FindOrCreateCategory(ctx, userID, "Groceries", core.Expense, "#F28E2B")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id1, id2)
}
