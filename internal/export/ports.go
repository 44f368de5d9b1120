package export

import (
	"context"

	"tally/internal/amqp"
)

// EventWriter is the outbound port for the audit trail. Implementations
// append one row per ledger event and return a reference to where it landed.
type EventWriter interface {
	Append(ctx context.Context, e amqp.LedgerEvent) (rowRef string, err error)
}
