package reservation

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/ariefcatur/go-surprise-bags/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EventOrderReserved  = "OrderReserved"
	EventOrderConfirmed = "OrderConfirmed"
	EventOrderCancelled = "OrderCancelled"
)

const (
	DefaultCancelGrace = 30 * time.Minute

	// regenerate on a clash with another live order of the same bag
	maxPickupCodeAttempts = 5
)

type Service struct {
	store       Store
	ledger      Ledger
	codes       CodeGenerator
	events      EventSink
	log         *zap.Logger
	cancelGrace time.Duration

	// Now is the clock used for order dates and the cancellation cutoff.
	Now func() time.Time
}

// NewService wires the coordinator. events may be nil.
func NewService(store Store, codes CodeGenerator, events EventSink, log *zap.Logger, cancelGrace time.Duration) *Service {
	if codes == nil {
		codes = PickupCodes{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cancelGrace <= 0 {
		cancelGrace = DefaultCancelGrace
	}
	return &Service{
		store:       store,
		codes:       codes,
		events:      events,
		log:         log,
		cancelGrace: cancelGrace,
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateReservation turns one unit of the bag into a PENDING order for the
// customer. The decrement and the new order commit together or not at all.
func (s *Service) CreateReservation(ctx context.Context, customerID, bagID string) (OrderSummary, error) {
	var (
		order Order
		bag   Bag
	)
	err := s.store.Do(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		bag, err = s.ledger.Reserve(ctx, tx, bagID)
		if err != nil {
			return err
		}

		if _, err := tx.GetCustomer(ctx, customerID); err != nil {
			return fmt.Errorf("customer %s: %w", customerID, err)
		}

		code, err := s.pickupCode(ctx, tx, bagID)
		if err != nil {
			return err
		}

		now := s.Now()
		order = Order{
			ID:         uuid.NewString(),
			BagID:      bagID,
			CustomerID: customerID,
			Status:     StatusPending,
			PickupCode: code,
			OrderDate:  now,
			UpdatedAt:  now,
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.ReservationsTotal.WithLabelValues(string(KindOf(err))).Inc()
		return OrderSummary{}, s.fail("create_reservation", err, zap.String("bag_id", bagID), zap.String("customer_id", customerID))
	}
	metrics.ReservationsTotal.WithLabelValues("OK").Inc()
	if bag.Status == BagSoldOut {
		metrics.BagsSoldOutTotal.Inc()
	}

	s.log.Info("order reserved",
		zap.String("order_id", order.ID),
		zap.String("bag_id", bagID),
		zap.Int("remaining", bag.Quantity),
	)
	sum := Summarize(order, bag)
	s.emit(ctx, EventOrderReserved, sum, customerID)
	return sum, nil
}

// Confirm moves a PENDING order to CONFIRMED on behalf of the store that owns the bag.
func (s *Service) Confirm(ctx context.Context, orderID, storeID string) (OrderSummary, error) {
	var (
		order Order
		bag   Bag
	)
	err := s.store.Do(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID, "")
		if err != nil {
			return fmt.Errorf("order %s: %w", orderID, err)
		}
		b, err := tx.LockBag(ctx, o.BagID)
		if err != nil {
			return fmt.Errorf("lock bag %s: %w", o.BagID, err)
		}
		if b.StoreID != storeID {
			return fmt.Errorf("store %s confirming order %s: %w", storeID, orderID, ErrUnauthorized)
		}
		if err := s.transition(&o, StatusConfirmed); err != nil {
			return err
		}
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		order, bag = o, b
		return nil
	})
	if err != nil {
		return OrderSummary{}, s.fail("confirm", err, zap.String("order_id", orderID), zap.String("store_id", storeID))
	}
	metrics.OrderTransitionsTotal.WithLabelValues(string(StatusConfirmed)).Inc()

	s.log.Info("order confirmed", zap.String("order_id", orderID), zap.String("store_id", storeID))
	sum := Summarize(order, bag)
	s.emit(ctx, EventOrderConfirmed, sum, order.CustomerID)
	return sum, nil
}

// ValidatePickup checks the code a customer presents at the store. It does not
// change the order.
func (s *Service) ValidatePickup(ctx context.Context, orderID, code string) (OrderSummary, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return OrderSummary{}, s.fail("validate_pickup", fmt.Errorf("order %s: %w", orderID, err), zap.String("order_id", orderID))
	}
	if o.Status != StatusConfirmed {
		err := fmt.Errorf("order %s is %s: %w", orderID, o.Status, ErrInvalidState)
		return OrderSummary{}, s.fail("validate_pickup", err, zap.String("order_id", orderID))
	}
	if subtle.ConstantTimeCompare([]byte(o.PickupCode), []byte(code)) != 1 {
		metrics.PickupValidationsTotal.WithLabelValues("mismatch").Inc()
		return OrderSummary{}, s.fail("validate_pickup", ErrInvalidCode, zap.String("order_id", orderID))
	}

	b, err := s.store.GetBag(ctx, o.BagID)
	if err != nil {
		return OrderSummary{}, s.fail("validate_pickup", fmt.Errorf("bag %s: %w", o.BagID, err), zap.String("order_id", orderID))
	}
	metrics.PickupValidationsTotal.WithLabelValues("ok").Inc()
	return Summarize(o, b), nil
}

// Cancel cancels the customer's order and returns the unit to the bag. It is
// refused once the pickup window is closer than the grace period.
func (s *Service) Cancel(ctx context.Context, orderID, customerID string) (OrderSummary, error) {
	var (
		order Order
		bag   Bag
	)
	err := s.store.Do(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID, customerID)
		if err != nil {
			return fmt.Errorf("order %s: %w", orderID, err)
		}
		if o.Status == StatusCancelled {
			return ErrAlreadyCancelled
		}

		b, err := tx.LockBag(ctx, o.BagID)
		if err != nil {
			return fmt.Errorf("lock bag %s: %w", o.BagID, err)
		}
		if left := b.PickupStart.Sub(s.Now()); left < s.cancelGrace {
			return fmt.Errorf("pickup starts in %s: %w", left.Truncate(time.Second), ErrTooLate)
		}

		if err := s.transition(&o, StatusCancelled); err != nil {
			return err
		}
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if bag, err = s.ledger.Release(ctx, tx, o.BagID); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return OrderSummary{}, s.fail("cancel", err, zap.String("order_id", orderID), zap.String("customer_id", customerID))
	}
	metrics.OrderTransitionsTotal.WithLabelValues(string(StatusCancelled)).Inc()

	s.log.Info("order cancelled",
		zap.String("order_id", orderID),
		zap.String("bag_id", bag.ID),
		zap.Int("remaining", bag.Quantity),
	)
	sum := Summarize(order, bag)
	s.emit(ctx, EventOrderCancelled, sum, customerID)
	return sum, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (OrderSummary, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return OrderSummary{}, fmt.Errorf("order %s: %w", orderID, err)
	}
	b, err := s.store.GetBag(ctx, o.BagID)
	if err != nil {
		return OrderSummary{}, fmt.Errorf("bag %s: %w", o.BagID, err)
	}
	return Summarize(o, b), nil
}

func (s *Service) ListAvailableBags(ctx context.Context) ([]Bag, error) {
	return s.store.ListAvailableBags(ctx)
}

func (s *Service) transition(o *Order, to OrderStatus) error {
	if !CanTransition(o.Status, to) {
		return fmt.Errorf("order %s: %s -> %s: %w", o.ID, o.Status, to, ErrInvalidState)
	}
	o.Status = to
	o.UpdatedAt = s.Now()
	return nil
}

func (s *Service) pickupCode(ctx context.Context, tx Tx, bagID string) (string, error) {
	for i := 0; i < maxPickupCodeAttempts; i++ {
		code, err := s.codes.Generate()
		if err != nil {
			return "", fmt.Errorf("pickup code: %w", err)
		}
		used, err := tx.PickupCodeInUse(ctx, bagID, code)
		if err != nil {
			return "", fmt.Errorf("pickup code lookup: %w", err)
		}
		if !used {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free pickup code after %d attempts: %w", maxPickupCodeAttempts, ErrTransient)
}

func (s *Service) emit(ctx context.Context, event string, sum OrderSummary, customerID string) {
	if s.events == nil {
		return
	}
	s.events.OrderChanged(ctx, event, sum, customerID)
}

func (s *Service) fail(op string, err error, fields ...zap.Field) error {
	kind := KindOf(err)
	metrics.OperationErrorsTotal.WithLabelValues(op, string(kind)).Inc()

	fields = append(fields, zap.String("op", op), zap.String("kind", string(kind)), zap.Error(err))
	switch kind {
	case KindInternal:
		s.log.Error("operation failed", fields...)
	case KindTransient:
		s.log.Warn("operation failed", fields...)
	default:
		s.log.Debug("operation rejected", fields...)
	}
	return err
}
