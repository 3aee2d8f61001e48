package events

import (
	"encoding/json"
	"time"
)

const EnvelopeVersion = 1

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // reservation.EventOrder*
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "bags-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// OrderPayload is shared by OrderReserved, OrderConfirmed and OrderCancelled.
type OrderPayload struct {
	OrderID     string    `json:"order_id"`
	CustomerID  string    `json:"customer_id"`
	BagID       string    `json:"bag_id"`
	BagName     string    `json:"bag_name"`
	Status      string    `json:"status"`
	PickupCode  string    `json:"pickup_code"`
	PickupStart time.Time `json:"pickup_start"`
	PickupEnd   time.Time `json:"pickup_end"`
}
