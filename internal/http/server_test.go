package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/config"
	"tally/internal/importer"
	"tally/internal/log"
	"tally/internal/services"
	"tally/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		Port:                "0",
		AuthSubjectHeader:   "X-Auth-Subject",
		AuthEmailHeader:     "X-Auth-Email",
		AuthNameHeader:      "X-Auth-Name",
		DefaultCurrency:     "EUR",
		ImportRetentionDays: 3650,
		ImportMaxBodyBytes:  1 << 20,
		RateLimitPerMinute:  1000,
	}

	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "tally.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	imp := importer.New(repo, logger, cfg.RetentionWindow())
	ledger := services.NewLedgerService(repo, imp, nil, logger)

	srv := NewServer(cfg, logger, repo, ledger)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, subject string, body any) *http.Response {
	t.Helper()

	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, ts.URL+path, buf)
	require.NoError(t, err)
	if subject != "" {
		req.Header.Set("X-Auth-Subject", subject)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestServer_RequiresIdentity(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, ts, http.MethodGet, "/transactions", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_HealthEndpointsArePublic(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp := doJSON(t, ts, http.MethodGet, path, "", nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestServer_AccountRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, ts, http.MethodPost, "/accounts", "alice", map[string]any{"name": "Monzo"})
	created := decodeBody[accountResponse](t, resp)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Monzo", created.Name)
	require.NotZero(t, created.ID)

	resp = doJSON(t, ts, http.MethodGet, "/accounts", "alice", nil)
	accounts := decodeBody[[]accountResponse](t, resp)
	require.Len(t, accounts, 1)

	// Another user does not see it.
	resp = doJSON(t, ts, http.MethodGet, "/accounts", "bob", nil)
	assert.Empty(t, decodeBody[[]accountResponse](t, resp))
}

func TestServer_DuplicateAccountConflicts(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, ts, http.MethodPost, "/accounts", "alice", map[string]any{"name": "Monzo"})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, ts, http.MethodPost, "/accounts", "alice", map[string]any{"name": "Monzo"})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestServer_ValidationErrorsCarryFields(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, ts, http.MethodPost, "/transactions", "alice", map[string]any{
		"type":       "EXPENSE",
		"amount":     "not-a-number",
		"occurredAt": "2026-08-01",
	})
	body := decodeBody[errorResponse](t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body.Fields, "amount")
}

func TestServer_TransactionLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, ts, http.MethodPost, "/transactions", "alice", map[string]any{
		"type":        "EXPENSE",
		"amount":      "42.50",
		"occurredAt":  "2026-08-15",
		"description": "groceries",
	})
	created := decodeBody[transactionResponse](t, resp)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "42.50", created.Amount)
	assert.Equal(t, "EUR", created.Currency)

	resp = doJSON(t, ts, http.MethodGet, "/transactions?type=EXPENSE", "alice", nil)
	listed := decodeBody[[]transactionResponse](t, resp)
	require.Len(t, listed, 1)

	resp = doJSON(t, ts, http.MethodDelete, "/transactions/"+itoa(created.ID), "alice", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, ts, http.MethodDelete, "/transactions/"+itoa(created.ID), "alice", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_CrossUserAccessIsNotFound(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, ts, http.MethodPost, "/debts", "alice", map[string]any{
		"name":    "Car loan",
		"balance": "5000.00",
	})
	debt := decodeBody[debtResponse](t, resp)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, ts, http.MethodGet, "/debts/"+itoa(debt.ID), "bob", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_DebtPaymentMovesBalance(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, ts, http.MethodPost, "/debts", "alice", map[string]any{
		"name":    "Credit card",
		"balance": "1000.00",
	})
	debt := decodeBody[debtResponse](t, resp)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, ts, http.MethodPost, "/debts/"+itoa(debt.ID)+"/payments", "alice", map[string]any{
		"amount": "250.00",
		"paidAt": "2026-08-20",
	})
	payment := decodeBody[paymentResponse](t, resp)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "250.00", payment.Amount)

	resp = doJSON(t, ts, http.MethodGet, "/debts/"+itoa(debt.ID), "alice", nil)
	after := decodeBody[debtResponse](t, resp)
	assert.Equal(t, "750.00", after.Balance)
}

func TestServer_GoalContributionRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, ts, http.MethodPost, "/goals", "alice", map[string]any{
		"name":         "Holiday",
		"targetAmount": "2000.00",
		"deadline":     "2027-06-01",
	})
	goal := decodeBody[goalResponse](t, resp)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "0.00", goal.CurrentAmount)

	resp = doJSON(t, ts, http.MethodPost, "/goals/"+itoa(goal.ID)+"/contributions", "alice", map[string]any{
		"amount": "150.00",
		"madeAt": "2026-08-25",
	})
	contribution := decodeBody[contributionResponse](t, resp)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, ts, http.MethodGet, "/goals/"+itoa(goal.ID), "alice", nil)
	after := decodeBody[goalResponse](t, resp)
	assert.Equal(t, "150.00", after.CurrentAmount)

	resp = doJSON(t, ts, http.MethodDelete, "/goals/"+itoa(goal.ID)+"/contributions/"+itoa(contribution.ID), "alice", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, ts, http.MethodGet, "/goals/"+itoa(goal.ID), "alice", nil)
	restored := decodeBody[goalResponse](t, resp)
	assert.Equal(t, "0.00", restored.CurrentAmount)
}

func TestServer_ImportEndpoint(t *testing.T) {
	ts := newTestServer(t)

	csv := "Date,Amount,Category\n2026-08-10,12.50,Groceries\n2026-08-11,bad,Groceries\n"
	body := map[string]any{
		"content": csv,
		"mapping": map[string]string{"date": "Date", "amount": "Amount", "category": "Category"},
	}

	resp := doJSON(t, ts, http.MethodPost, "/import/expenses", "alice", body)
	summary := decodeBody[importer.Summary](t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 1, summary.Skipped)

	// Re-importing the same statement inserts nothing.
	resp = doJSON(t, ts, http.MethodPost, "/import/expenses", "alice", body)
	again := decodeBody[importer.Summary](t, resp)
	assert.Equal(t, 0, again.Imported)
}

func TestServer_MonthSummary(t *testing.T) {
	ts := newTestServer(t)

	for _, txn := range []map[string]any{
		{"type": "INCOME", "amount": "3000.00", "occurredAt": "2026-08-01", "description": "salary"},
		{"type": "EXPENSE", "amount": "1200.00", "occurredAt": "2026-08-05", "description": "rent"},
	} {
		resp := doJSON(t, ts, http.MethodPost, "/transactions", "alice", txn)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := doJSON(t, ts, http.MethodGet, "/reports/summary?year=2026&month=8", "alice", nil)
	summary := decodeBody[monthSummaryResponse](t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "3000.00", summary.Income)
	assert.Equal(t, "1200.00", summary.Expenses)
	assert.Equal(t, "1800.00", summary.Net)
}

func TestServer_MonthSummaryRejectsBadMonth(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, ts, http.MethodGet, "/reports/summary?year=2026&month=13", "alice", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_SecurityHeaders(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, ts, http.MethodGet, "/healthz", "", nil)
	resp.Body.Close()
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
