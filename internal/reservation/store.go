package reservation

import "context"

//go:generate mockgen -source=store.go -destination=mocks/mock_event_sink.go -package=mocks -exclude_interfaces=Tx,UnitOfWork,Reader,Store

// Tx is one unit of work. Locks taken through it are held until the unit
// commits or rolls back. Lookups of missing rows return ErrNotFound.
type Tx interface {
	// LockBag reads the bag row under an exclusive lock (SELECT ... FOR UPDATE).
	LockBag(ctx context.Context, bagID string) (Bag, error)
	UpdateBag(ctx context.Context, bag Bag) error

	GetCustomer(ctx context.Context, customerID string) (Customer, error)

	// LockOrder locks the order row. A non-empty customerID restricts the
	// match to that customer's orders.
	LockOrder(ctx context.Context, orderID, customerID string) (Order, error)
	InsertOrder(ctx context.Context, o Order) error
	UpdateOrder(ctx context.Context, o Order) error

	// PickupCodeInUse reports whether a non-cancelled order on the bag already carries code.
	PickupCodeInUse(ctx context.Context, bagID, code string) (bool, error)
}

type UnitOfWork interface {
	// Do runs fn in a transaction. Any error from fn rolls the whole unit back
	// and is returned unchanged.
	Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Reader interface {
	GetOrder(ctx context.Context, orderID string) (Order, error)
	GetBag(ctx context.Context, bagID string) (Bag, error)
	ListAvailableBags(ctx context.Context) ([]Bag, error)
}

type Store interface {
	UnitOfWork
	Reader
}

// EventSink receives committed order changes. It is called after commit and
// must not block; delivery failures are the sink's concern.
type EventSink interface {
	OrderChanged(ctx context.Context, event string, s OrderSummary, customerID string)
}
