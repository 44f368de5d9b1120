// Package worker drains the ledger event queue into the audit trail.
package worker

import (
	"context"
	"fmt"

	"tally/internal/amqp"
	"tally/internal/export"
	"tally/internal/log"
)

// AuditWorker appends consumed ledger events to an audit sink. Errors
// propagate to the consumer loop, which requeues the delivery.
type AuditWorker struct {
	writer export.EventWriter
	logger *log.Logger
}

func NewAuditWorker(writer export.EventWriter, logger *log.Logger) *AuditWorker {
	return &AuditWorker{
		writer: writer,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes one ledger event. It is the handler wired into
// amqp.Client.ConsumeLedgerEvents.
func (w *AuditWorker) HandleEvent(e *amqp.LedgerEvent) error {
	ctx := context.Background()

	ref, err := w.writer.Append(ctx, *e)
	if err != nil {
		w.logger.ErrorContext(ctx, "audit append failed",
			log.FieldEventID, e.EventID,
			log.FieldError, err)
		return fmt.Errorf("append audit row: %w", err)
	}

	w.logger.InfoContext(ctx, "audit row written",
		log.FieldEventID, e.EventID,
		log.FieldUserID, e.UserID,
		log.FieldEntity, e.Entity,
		log.FieldAction, e.Action,
		"row_ref", ref)
	return nil
}
