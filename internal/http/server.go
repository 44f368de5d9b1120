// Package http exposes the ledger as a JSON REST API. Handlers resolve the
// caller's identity, validate input, and delegate to storage and the ledger
// service.
package http

import (
	"context"
	"net/http"
	"sync"

	"tally/internal/config"
	"tally/internal/log"
	"tally/internal/middleware/ratelimit"
	"tally/internal/middleware/security"
	"tally/internal/middleware/trace"
	"tally/internal/services"
	"tally/internal/storage"
)

type Server struct {
	http.Server

	cfg    *config.Config
	logger *log.Logger
	repo   *storage.SQLiteRepository
	ledger *services.LedgerService

	tracer       *trace.Middleware
	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer wires routes and the middleware chain, returning a server ready
// for ListenAndServe.
func NewServer(cfg *config.Config, logger *log.Logger, repo *storage.SQLiteRepository, ledger *services.LedgerService) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger.WithComponent(log.ComponentHTTP),
		repo:   repo,
		ledger: ledger,
	}

	extractor := security.NewClientIPExtractor()
	s.tracer = trace.NewMiddleware(extractor.ExtractClientIP, logger)
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	api := http.NewServeMux()
	s.routes(api)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", s.handleHealth)
	root.HandleFunc("GET /readyz", s.handleReady)
	root.HandleFunc("GET /metrics", s.handleMetrics)
	root.Handle("/", s.withIdentity(api))

	handler := s.tracer.Middleware(
		headers.Middleware(
			s.limiter.Middleware(extractor.ExtractClientIP)(root)))

	s.Server = http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /accounts", s.handleListAccounts)
	mux.HandleFunc("POST /accounts", s.handleCreateAccount)
	mux.HandleFunc("PUT /accounts/{id}", s.handleUpdateAccount)
	mux.HandleFunc("DELETE /accounts/{id}", s.handleArchiveAccount)
	mux.HandleFunc("DELETE /accounts/bulk-delete", s.handleBulkDeleteAccounts)

	mux.HandleFunc("GET /categories", s.handleListCategories)
	mux.HandleFunc("POST /categories", s.handleCreateCategory)
	mux.HandleFunc("PUT /categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /categories/{id}", s.handleArchiveCategory)
	mux.HandleFunc("DELETE /categories/bulk-delete", s.handleBulkDeleteCategories)

	mux.HandleFunc("GET /income-sources", s.handleListIncomeSources)
	mux.HandleFunc("POST /income-sources", s.handleCreateIncomeSource)
	mux.HandleFunc("DELETE /income-sources/{id}", s.handleArchiveIncomeSource)
	mux.HandleFunc("DELETE /income-sources/bulk-delete", s.handleBulkDeleteIncomeSources)

	mux.HandleFunc("GET /transactions", s.handleListTransactions)
	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("DELETE /transactions/bulk-delete", s.handleBulkDeleteTransactions)

	mux.HandleFunc("GET /debts", s.handleListDebts)
	mux.HandleFunc("POST /debts", s.handleCreateDebt)
	mux.HandleFunc("GET /debts/{id}", s.handleGetDebt)
	mux.HandleFunc("PUT /debts/{id}", s.handleUpdateDebt)
	mux.HandleFunc("DELETE /debts/{id}", s.handleDeleteDebt)
	mux.HandleFunc("DELETE /debts/bulk-delete", s.handleBulkDeleteDebts)

	mux.HandleFunc("GET /debts/{id}/payments", s.handleListPayments)
	mux.HandleFunc("POST /debts/{id}/payments", s.handleRecordPayment)
	mux.HandleFunc("PUT /debts/{id}/payments/{paymentID}", s.handleUpdatePayment)
	mux.HandleFunc("DELETE /debts/{id}/payments/{paymentID}", s.handleDeletePayment)

	mux.HandleFunc("GET /goals", s.handleListGoals)
	mux.HandleFunc("POST /goals", s.handleCreateGoal)
	mux.HandleFunc("GET /goals/{id}", s.handleGetGoal)
	mux.HandleFunc("PUT /goals/{id}", s.handleUpdateGoal)
	mux.HandleFunc("DELETE /goals/{id}", s.handleArchiveGoal)
	mux.HandleFunc("DELETE /goals/bulk-delete", s.handleBulkDeleteGoals)

	mux.HandleFunc("GET /goals/{id}/contributions", s.handleListContributions)
	mux.HandleFunc("POST /goals/{id}/contributions", s.handleRecordContribution)
	mux.HandleFunc("DELETE /goals/{id}/contributions/{contributionID}", s.handleDeleteContribution)

	mux.HandleFunc("POST /import/expenses", s.handleImport)

	mux.HandleFunc("GET /reports/summary", s.handleMonthSummary)
}

// Shutdown stops background goroutines and then the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
