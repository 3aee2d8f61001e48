package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/go-surprise-bags/internal/events"
	kafkax "github.com/ariefcatur/go-surprise-bags/internal/kafka"
	"github.com/ariefcatur/go-surprise-bags/internal/metrics"
	"github.com/ariefcatur/go-surprise-bags/internal/reservation"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Deduper is implemented by redisx.Dedup.
type Deduper interface {
	FirstSeen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// Mailer delivers one customer notification for an order event.
type Mailer interface {
	Send(ctx context.Context, eventType string, p events.OrderPayload) error
}

// Service tells customers about their orders. It is installed as the
// kafka consumer handler for all order topics.
type Service struct {
	Dedup  Deduper // optional
	Mailer Mailer
	Log    *zap.Logger
}

func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// poison message, retrying will not help
		s.Log.Error("bad envelope", zap.String("topic", m.Topic), zap.Int64("offset", m.Offset), zap.Error(err))
		metrics.NotificationsTotal.WithLabelValues("unknown", "malformed").Inc()
		return nil
	}
	if !known(env.EventType) || env.EventVersion != events.EnvelopeVersion {
		return nil
	}

	// 2) dedup on event_id
	if s.Dedup != nil && env.EventID != "" {
		first, err := s.Dedup.FirstSeen(ctx, env.EventID)
		if err != nil {
			return fmt.Errorf("dedup %s: %w", env.EventID, err)
		}
		if !first {
			metrics.NotificationsTotal.WithLabelValues(env.EventType, "duplicate").Inc()
			return nil
		}
	}

	// 3) payload
	p, err := kafkax.UnwrapPayload[events.OrderPayload](env.Payload)
	if err != nil {
		s.Log.Error("bad payload", zap.String("event_id", env.EventID), zap.Error(err))
		metrics.NotificationsTotal.WithLabelValues(env.EventType, "malformed").Inc()
		return nil
	}

	// 4) deliver
	if err := s.Mailer.Send(ctx, env.EventType, p); err != nil {
		if s.Dedup != nil && env.EventID != "" {
			_ = s.Dedup.Forget(ctx, env.EventID)
		}
		metrics.NotificationsTotal.WithLabelValues(env.EventType, "error").Inc()
		return fmt.Errorf("notify %s for order %s: %w", env.EventType, p.OrderID, err)
	}
	metrics.NotificationsTotal.WithLabelValues(env.EventType, "sent").Inc()
	return nil
}

func known(eventType string) bool {
	switch eventType {
	case reservation.EventOrderReserved, reservation.EventOrderConfirmed, reservation.EventOrderCancelled:
		return true
	}
	return false
}

// LogMailer writes notifications to the log instead of sending mail.
type LogMailer struct {
	Log *zap.Logger
}

func (m LogMailer) Send(_ context.Context, eventType string, p events.OrderPayload) error {
	m.Log.Info("customer notified",
		zap.String("event", eventType),
		zap.String("customer_id", p.CustomerID),
		zap.String("order_id", p.OrderID),
		zap.String("bag", p.BagName),
		zap.String("status", p.Status),
		zap.Time("pickup_start", p.PickupStart),
	)
	return nil
}
