package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/ariefcatur/go-surprise-bags/internal/reservation"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bagColumns = `id, store_id, name, description, original_value, discounted_price, quantity, status, pickup_start, pickup_end`
const orderColumns = `id, bag_id, customer_id, status, pickup_code, order_date, updated_at`

// Store is the PostgreSQL implementation of reservation.Store.
type Store struct {
	DB *pgxpool.Pool

	// LockTimeout is applied per transaction with SET LOCAL lock_timeout.
	LockTimeout time.Duration
}

func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, tx reservation.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return classify(fmt.Errorf("begin: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if s.LockTimeout > 0 {
		// SET does not take bind parameters
		q := fmt.Sprintf(`SET LOCAL lock_timeout = '%dms'`, s.LockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, q); err != nil {
			return classify(fmt.Errorf("set lock_timeout: %w", err))
		}
	}

	if err := fn(ctx, &txn{tx: tx}); err != nil {
		return classify(err) // rollback via defer
	}
	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, orderID string) (reservation.Order, error) {
	var o reservation.Order
	err := pgxscan.Get(ctx, s.DB, &o, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, orderID)
	return o, classify(err)
}

func (s *Store) GetBag(ctx context.Context, bagID string) (reservation.Bag, error) {
	var b reservation.Bag
	err := pgxscan.Get(ctx, s.DB, &b, `SELECT `+bagColumns+` FROM surprise_bags WHERE id=$1`, bagID)
	return b, classify(err)
}

func (s *Store) ListAvailableBags(ctx context.Context) ([]reservation.Bag, error) {
	var out []reservation.Bag
	err := pgxscan.Select(ctx, s.DB, &out, `
		SELECT `+bagColumns+` FROM surprise_bags
		WHERE status = 'AVAILABLE' AND quantity > 0
		ORDER BY pickup_start, id`)
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

type txn struct{ tx pgx.Tx }

func (t *txn) LockBag(ctx context.Context, bagID string) (reservation.Bag, error) {
	var b reservation.Bag
	err := pgxscan.Get(ctx, t.tx, &b, `SELECT `+bagColumns+` FROM surprise_bags WHERE id=$1 FOR UPDATE`, bagID)
	return b, classify(err)
}

func (t *txn) UpdateBag(ctx context.Context, b reservation.Bag) error {
	ct, err := t.tx.Exec(ctx, `UPDATE surprise_bags SET quantity=$2, status=$3 WHERE id=$1`, b.ID, b.Quantity, string(b.Status))
	if err != nil {
		return classify(err)
	}
	if ct.RowsAffected() != 1 {
		return reservation.ErrNotFound
	}
	return nil
}

func (t *txn) GetCustomer(ctx context.Context, customerID string) (reservation.Customer, error) {
	var c reservation.Customer
	err := pgxscan.Get(ctx, t.tx, &c, `SELECT id, email, name FROM customers WHERE id=$1`, customerID)
	return c, classify(err)
}

func (t *txn) LockOrder(ctx context.Context, orderID, customerID string) (reservation.Order, error) {
	var o reservation.Order
	err := pgxscan.Get(ctx, t.tx, &o, `
		SELECT `+orderColumns+` FROM orders
		WHERE id=$1 AND ($2::text = '' OR customer_id=$2::text)
		FOR UPDATE`, orderID, customerID)
	return o, classify(err)
}

func (t *txn) InsertOrder(ctx context.Context, o reservation.Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders(id, bag_id, customer_id, status, pickup_code, order_date, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		o.ID, o.BagID, o.CustomerID, string(o.Status), o.PickupCode, o.OrderDate, o.UpdatedAt,
	)
	return classify(err)
}

func (t *txn) UpdateOrder(ctx context.Context, o reservation.Order) error {
	ct, err := t.tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`, o.ID, string(o.Status), o.UpdatedAt)
	if err != nil {
		return classify(err)
	}
	if ct.RowsAffected() != 1 {
		return reservation.ErrNotFound
	}
	return nil
}

func (t *txn) PickupCodeInUse(ctx context.Context, bagID, code string) (bool, error) {
	var used bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM orders
			WHERE bag_id=$1 AND pickup_code=$2 AND status <> 'CANCELLED'
		)`, bagID, code).Scan(&used)
	return used, classify(err)
}

// SQLSTATEs that a retry of the whole unit of work can resolve.
var transientCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available (lock_timeout)
}

// classify maps driver errors onto the reservation sentinels. Errors that
// already carry a sentinel pass through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if reservation.KindOf(err) != reservation.KindInternal {
		return err
	}
	if pgxscan.NotFound(err) || errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", reservation.ErrNotFound, err)
	}
	// request deadline reached while waiting on a row lock
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", reservation.ErrTransient, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", reservation.ErrTransient, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && transientCodes[pgErr.Code] {
		return fmt.Errorf("%w: %w", reservation.ErrTransient, err)
	}
	return err
}
