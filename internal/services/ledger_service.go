// Package services orchestrates ledger mutations across storage, the report
// cache, and the audit event pipeline.
package services

import (
	"context"
	"fmt"
	"time"

	"tally/internal/amqp"
	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/importer"
	"tally/internal/log"
	"tally/internal/storage"
)

// Publisher is the audit pipeline seen by the service. A nil Publisher means
// the pipeline is disabled and mutations proceed without events.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error
	Ready() bool
}

// LedgerService wraps the mutations that move money totals: transactions,
// debt payments, goal contributions, and statement imports. Each successful
// mutation invalidates the owner's cached reports and publishes an audit
// event best-effort.
type LedgerService struct {
	storage   *storage.SQLiteRepository
	importer  *importer.Importer
	publisher Publisher
	summaries *cache.LRUCache[core.MonthSummary]
	logger    *log.Logger
}

const (
	summaryCacheSize = 256
	summaryCacheTTL  = 5 * time.Minute
)

func NewLedgerService(repo *storage.SQLiteRepository, imp *importer.Importer, publisher Publisher, logger *log.Logger) *LedgerService {
	return &LedgerService{
		storage:   repo,
		importer:  imp,
		publisher: publisher,
		summaries: cache.NewLRUCache[core.MonthSummary](summaryCacheSize, summaryCacheTTL),
		logger:    logger.WithComponent(log.ComponentLedger),
	}
}

// SummaryCache exposes the report cache for expiry cleanup registration.
func (s *LedgerService) SummaryCache() *cache.LRUCache[core.MonthSummary] {
	return s.summaries
}

func (s *LedgerService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	created, err := s.storage.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}
	s.invalidateSummaries(created.UserID)
	s.publish(ctx, amqp.NewLedgerEvent(created.UserID, amqp.EntityTransaction, amqp.ActionCreated,
		created.ID, created.Amount.Cents, created.Description))
	return created, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id int64) error {
	if err := s.storage.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	s.invalidateSummaries(userID)
	s.publish(ctx, amqp.NewLedgerEvent(userID, amqp.EntityTransaction, amqp.ActionDeleted, id, 0, ""))
	return nil
}

func (s *LedgerService) DeleteAllTransactions(ctx context.Context, userID int64) (int64, error) {
	n, err := s.storage.DeleteAllTransactions(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.invalidateSummaries(userID)
	return n, nil
}

func (s *LedgerService) RecordPayment(ctx context.Context, p core.DebtPayment) (core.DebtPayment, error) {
	if err := p.Validate(); err != nil {
		return core.DebtPayment{}, err
	}
	created, err := s.storage.RecordPayment(ctx, p)
	if err != nil {
		return core.DebtPayment{}, err
	}
	s.publish(ctx, amqp.NewLedgerEvent(created.UserID, amqp.EntityDebtPayment, amqp.ActionCreated,
		created.ID, created.Amount.Cents, created.Note))
	return created, nil
}

func (s *LedgerService) UpdatePayment(ctx context.Context, p core.DebtPayment) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.storage.UpdatePayment(ctx, p); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewLedgerEvent(p.UserID, amqp.EntityDebtPayment, amqp.ActionUpdated,
		p.ID, p.Amount.Cents, p.Note))
	return nil
}

func (s *LedgerService) DeletePayment(ctx context.Context, userID, debtID, paymentID int64) error {
	if err := s.storage.DeletePayment(ctx, userID, debtID, paymentID); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewLedgerEvent(userID, amqp.EntityDebtPayment, amqp.ActionDeleted, paymentID, 0, ""))
	return nil
}

func (s *LedgerService) RecordContribution(ctx context.Context, c core.GoalContribution) (core.GoalContribution, error) {
	if err := c.Validate(); err != nil {
		return core.GoalContribution{}, err
	}
	created, err := s.storage.RecordContribution(ctx, c)
	if err != nil {
		return core.GoalContribution{}, err
	}
	s.publish(ctx, amqp.NewLedgerEvent(created.UserID, amqp.EntityContribution, amqp.ActionCreated,
		created.ID, created.Amount.Cents, created.Note))
	return created, nil
}

func (s *LedgerService) DeleteContribution(ctx context.Context, userID, goalID, contributionID int64) error {
	if err := s.storage.DeleteContribution(ctx, userID, goalID, contributionID); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewLedgerEvent(userID, amqp.EntityContribution, amqp.ActionDeleted, contributionID, 0, ""))
	return nil
}

// ImportStatement runs the CSV pipeline for userID in their preferred
// currency and reports the batch through the audit pipeline.
func (s *LedgerService) ImportStatement(ctx context.Context, userID int64, raw string, m importer.Mapping) (importer.Summary, error) {
	currency, err := s.storage.UserCurrency(ctx, userID)
	if err != nil {
		return importer.Summary{}, err
	}

	summary, err := s.importer.Run(ctx, userID, currency, raw, m)
	if err != nil {
		return importer.Summary{}, err
	}

	if summary.Imported > 0 {
		s.invalidateSummaries(userID)
	}
	s.publish(ctx, amqp.NewLedgerEvent(userID, amqp.EntityImportBatch, amqp.ActionCreated,
		0, 0, summary.Message))
	return summary, nil
}

// MonthSummary serves the report from cache when possible. Entries are keyed
// per user and month and dropped on any transaction mutation for that user.
func (s *LedgerService) MonthSummary(ctx context.Context, userID int64, year, month int) (core.MonthSummary, error) {
	key := summaryKey(userID, year, month)
	if cached, ok := s.summaries.Get(key); ok {
		return cached, nil
	}

	summary, err := s.storage.MonthSummary(ctx, userID, year, month)
	if err != nil {
		return core.MonthSummary{}, err
	}
	s.summaries.Set(key, summary)
	return summary, nil
}

// PipelineReady reports audit pipeline health for the readiness probe.
// A disabled pipeline counts as ready.
func (s *LedgerService) PipelineReady() bool {
	if s.publisher == nil {
		return true
	}
	return s.publisher.Ready()
}

func (s *LedgerService) invalidateSummaries(userID int64) {
	s.summaries.DeletePrefix(fmt.Sprintf("summary:%d:", userID))
}

func summaryKey(userID int64, year, month int) string {
	return fmt.Sprintf("summary:%d:%04d-%02d", userID, year, month)
}

// publish sends an audit event best-effort: a broker problem is logged and
// never fails the mutation that already committed.
func (s *LedgerService) publish(ctx context.Context, event *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "publish audit event",
			log.FieldError, err,
			"entity", event.Entity,
			"action", event.Action)
	}
}
