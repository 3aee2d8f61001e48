package redisx

import "time"

const (
	// Idempotent reservation: idem:reservation:{customer_id}:{idempotency_key} -> order_id
	KeyIdemReservation = "idem:reservation:%s:%s"

	// Cached OrderSummary JSON: order_summary:{order_id}
	KeyOrderSummary = "order_summary:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLIdemPending = 30 * time.Second
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)

// idemPending marks a claimed key whose reservation has not finished yet.
const idemPending = "-"
