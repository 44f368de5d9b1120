package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/importer"
	"tally/internal/log"
	"tally/internal/storage"
)

type fakePublisher struct {
	events []*amqp.LedgerEvent
	err    error
	ready  bool
}

func (f *fakePublisher) PublishLedgerEvent(_ context.Context, e *amqp.LedgerEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

func (f *fakePublisher) Ready() bool { return f.ready }

func newTestService(t *testing.T, pub Publisher) (*LedgerService, *storage.SQLiteRepository, int64) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "tally.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	userID, err := repo.EnsureUser(context.Background(),
		storage.Identity{ExternalID: "sub-1", Email: "a@example.com"}, "EUR")
	require.NoError(t, err)

	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	imp := importer.New(repo, logger, 90*24*time.Hour)
	return NewLedgerService(repo, imp, pub, logger), repo, userID
}

func TestCreateTransaction_PublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	svc, _, userID := newTestService(t, pub)

	created, err := svc.CreateTransaction(context.Background(), core.Transaction{
		UserID:     userID,
		Type:       core.Expense,
		Amount:     core.Money{Cents: 1500},
		Currency:   "EUR",
		OccurredAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	e := pub.events[0]
	assert.Equal(t, amqp.EntityTransaction, e.Entity)
	assert.Equal(t, amqp.ActionCreated, e.Action)
	assert.Equal(t, created.ID, e.EntityID)
	assert.Equal(t, int64(1500), e.AmountCents)
}

func TestCreateTransaction_ValidationRejected(t *testing.T) {
	pub := &fakePublisher{}
	svc, _, userID := newTestService(t, pub)

	_, err := svc.CreateTransaction(context.Background(), core.Transaction{
		UserID:     userID,
		Type:       "WEIRD",
		Amount:     core.Money{Cents: -5},
		OccurredAt: time.Now(),
	})
	require.ErrorIs(t, err, core.ErrValidation)
	assert.Empty(t, pub.events)
}

func TestPublishFailure_DoesNotFailMutation(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc, repo, userID := newTestService(t, pub)

	_, err := svc.CreateTransaction(context.Background(), core.Transaction{
		UserID:     userID,
		Type:       core.Expense,
		Amount:     core.Money{Cents: 900},
		Currency:   "EUR",
		OccurredAt: time.Now(),
	})
	require.NoError(t, err)

	txns, err := repo.ListTransactions(context.Background(), userID, storage.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestNilPublisher_Allowed(t *testing.T) {
	svc, _, userID := newTestService(t, nil)

	_, err := svc.CreateTransaction(context.Background(), core.Transaction{
		UserID:     userID,
		Type:       core.Income,
		Amount:     core.Money{Cents: 100000},
		Currency:   "EUR",
		OccurredAt: time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, svc.PipelineReady())
}

func TestRecordPayment_PublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	svc, repo, userID := newTestService(t, pub)

	debt, err := repo.CreateDebt(context.Background(), core.Debt{
		UserID: userID, Name: "Card", Type: core.DebtCreditCard,
		Balance: core.Money{Cents: 50000},
	})
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), core.DebtPayment{
		UserID: userID, DebtID: debt.ID,
		Amount: core.Money{Cents: 10000},
		PaidAt: time.Now(),
	})
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	assert.Equal(t, amqp.EntityDebtPayment, pub.events[0].Entity)

	got, err := repo.GetDebt(context.Background(), userID, debt.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), got.Balance.Cents)
}

func TestMonthSummary_CachedUntilMutation(t *testing.T) {
	svc, repo, userID := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.CreateTransaction(ctx, core.Transaction{
		UserID:     userID,
		Type:       core.Expense,
		Amount:     core.Money{Cents: 1000},
		Currency:   "EUR",
		OccurredAt: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	first, err := svc.MonthSummary(ctx, userID, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), first.Expenses.Cents)

	// Write behind the service's back: the cached value must still be
	// served until something invalidates it.
	_, err = repo.CreateTransaction(ctx, core.Transaction{
		UserID:     userID,
		Type:       core.Expense,
		Amount:     core.Money{Cents: 2000},
		Currency:   "EUR",
		OccurredAt: time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	cached, err := svc.MonthSummary(ctx, userID, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), cached.Expenses.Cents)

	// A mutation through the service drops the cache entry.
	_, err = svc.CreateTransaction(ctx, core.Transaction{
		UserID:     userID,
		Type:       core.Expense,
		Amount:     core.Money{Cents: 4000},
		Currency:   "EUR",
		OccurredAt: time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	fresh, err := svc.MonthSummary(ctx, userID, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(7000), fresh.Expenses.Cents)
}

func TestImportStatement(t *testing.T) {
	pub := &fakePublisher{}
	svc, repo, userID := newTestService(t, pub)
	ctx := context.Background()

	raw := "Date,Amount,Category\n" + time.Now().UTC().Format("2006-01-02") + ",12.50,Food"
	summary, err := svc.ImportStatement(ctx, userID, raw,
		importer.Mapping{Date: "Date", Amount: "Amount", Category: "Category"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)

	require.NotEmpty(t, pub.events)
	assert.Equal(t, amqp.EntityImportBatch, pub.events[len(pub.events)-1].Entity)

	txns, err := repo.ListTransactions(ctx, userID, storage.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}
