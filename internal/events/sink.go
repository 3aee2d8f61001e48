package events

import (
	"context"
	"time"

	kafkax "github.com/ariefcatur/go-surprise-bags/internal/kafka"
	"github.com/ariefcatur/go-surprise-bags/internal/reservation"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Publisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header) error
}

// Sink turns committed order changes into envelope v1 messages.
type Sink struct {
	Publisher Publisher
	Producer  string
	Log       *zap.Logger
}

func (s *Sink) OrderChanged(ctx context.Context, event string, sum reservation.OrderSummary, customerID string) {
	topic, ok := TopicFor(event)
	if !ok {
		s.Log.Warn("no topic for event", zap.String("event", event))
		return
	}

	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     event,
		EventVersion:  EnvelopeVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Producer,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: sum.OrderID,
		Payload: kafkax.MustMarshal(OrderPayload{
			OrderID:     sum.OrderID,
			CustomerID:  customerID,
			BagID:       sum.Bag.BagID,
			BagName:     sum.Bag.Name,
			Status:      string(sum.Status),
			PickupCode:  sum.PickupCode,
			PickupStart: sum.PickupWindow.Start,
			PickupEnd:   sum.PickupWindow.End,
		}),
	}
	err := s.Publisher.Publish(topic, PartitionKey(sum.OrderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(event)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	if err != nil {
		// the order is committed either way
		s.Log.Warn("order event not published",
			zap.String("event", event),
			zap.String("order_id", sum.OrderID),
			zap.Error(err),
		)
	}
}
