// Package memory holds an in-memory audit writer for tests and local runs
// without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"tally/internal/amqp"
	"tally/internal/export"
)

type Writer struct {
	mu   sync.Mutex
	rows []amqp.LedgerEvent

	// FailNext makes the next Append return an error, for retry tests.
	FailNext bool
}

var _ export.EventWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{}
}

func (w *Writer) Append(_ context.Context, e amqp.LedgerEvent) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.FailNext {
		w.FailNext = false
		return "", fmt.Errorf("append rejected")
	}

	w.rows = append(w.rows, e)
	return fmt.Sprintf("row-%d", len(w.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (w *Writer) Rows() []amqp.LedgerEvent {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]amqp.LedgerEvent, len(w.rows))
	copy(out, w.rows)
	return out
}
