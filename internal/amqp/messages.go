package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Ledger event actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Ledger event entities.
const (
	EntityTransaction  = "transaction"
	EntityDebtPayment  = "debt_payment"
	EntityContribution = "goal_contribution"
	EntityImportBatch  = "import_batch"
)

// LedgerEvent is the audit record published after a ledger mutation commits.
// It carries enough to append one audit row without a database round trip.
type LedgerEvent struct {
	EventID     string    `json:"eventId"`
	UserID      int64     `json:"userId"`
	Entity      string    `json:"entity"`
	Action      string    `json:"action"`
	EntityID    int64     `json:"entityId"`
	AmountCents int64     `json:"amountCents"`
	Detail      string    `json:"detail,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

func NewLedgerEvent(userID int64, entity, action string, entityID, amountCents int64, detail string) *LedgerEvent {
	return &LedgerEvent{
		EventID:     uuid.NewString(),
		UserID:      userID,
		Entity:      entity,
		Action:      action,
		EntityID:    entityID,
		AmountCents: amountCents,
		Detail:      detail,
		OccurredAt:  time.Now().UTC(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
