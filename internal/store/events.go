package store

import (
	"encoding/json"
	"time"
)

// Outbox event types. The names and payload shapes are a contract with the
// kiosk, monitor, and staff UIs; do not rename them.
const (
	EventNewTicket      = "NEW_TICKET"
	EventCallTicket     = "CALL_TICKET"
	EventRecallTicket   = "RECALL_TICKET"
	EventCompleteTicket = "COMPLETE_TICKET"
	EventSkipTicket     = "SKIP_TICKET"
	EventNewBooking     = "NEW_BOOKING"
)

// OutboxEvent is written inside the same transaction as the state change it
// announces and later fanned out by the realtime dispatcher. Delivery is
// at-least-once.
type OutboxEvent struct {
	EventID   string          `json:"event_id"`
	Type      string          `json:"type"`
	ServiceID int64           `json:"service_id"`
	CounterID int64           `json:"counter_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// OutboxOffset marks how far the dispatcher has read.
type OutboxOffset struct {
	LastEventTime time.Time
	LastEventID   string
}
