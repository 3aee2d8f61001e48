// Package memstore is an in-process implementation of reservation.Store.
//
// Writes made inside Do are staged on the transaction and applied only when fn
// returns nil, so a failed unit of work leaves no trace. Row locks are
// per-key channels held until the unit ends, which gives the same
// serialization per bag as SELECT ... FOR UPDATE.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-surprise-bags/internal/reservation"
)

type Store struct {
	// LockTimeout bounds each lock wait; zero waits for ctx only.
	LockTimeout time.Duration

	mu        sync.Mutex
	bags      map[string]reservation.Bag
	orders    map[string]reservation.Order
	customers map[string]reservation.Customer
	locks     map[string]chan struct{}
}

func New() *Store {
	return &Store{
		bags:      map[string]reservation.Bag{},
		orders:    map[string]reservation.Order{},
		customers: map[string]reservation.Customer{},
		locks:     map[string]chan struct{}{},
	}
}

func (s *Store) PutBag(b reservation.Bag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bags[b.ID] = b
}

func (s *Store) PutCustomer(c reservation.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
}

func (s *Store) PutOrder(o reservation.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, tx reservation.Tx) error) error {
	t := &tx{
		s:      s,
		bags:   map[string]reservation.Bag{},
		orders: map[string]reservation.Order{},
		held:   map[string]bool{},
	}
	defer t.unlockAll()

	if err := fn(ctx, t); err != nil {
		return err // staged writes dropped
	}
	t.commit()
	return nil
}

func (s *Store) GetOrder(_ context.Context, orderID string) (reservation.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return reservation.Order{}, reservation.ErrNotFound
	}
	return o, nil
}

func (s *Store) GetBag(_ context.Context, bagID string) (reservation.Bag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bags[bagID]
	if !ok {
		return reservation.Bag{}, reservation.ErrNotFound
	}
	return b, nil
}

func (s *Store) ListAvailableBags(_ context.Context) ([]reservation.Bag, error) {
	s.mu.Lock()
	out := make([]reservation.Bag, 0, len(s.bags))
	for _, b := range s.bags {
		if b.Status == reservation.BagAvailable && b.Quantity > 0 {
			out = append(out, b)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].PickupStart.Equal(out[j].PickupStart) {
			return out[i].ID < out[j].ID
		}
		return out[i].PickupStart.Before(out[j].PickupStart)
	})
	return out, nil
}

func (s *Store) lockChan(key string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[key] = ch
	}
	return ch
}

type tx struct {
	s      *Store
	bags   map[string]reservation.Bag
	orders map[string]reservation.Order
	held   map[string]bool
}

func (t *tx) lock(ctx context.Context, key string) error {
	if t.held[key] {
		return nil
	}
	if t.s.LockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.s.LockTimeout)
		defer cancel()
	}
	select {
	case t.s.lockChan(key) <- struct{}{}:
		t.held[key] = true
		return nil
	case <-ctx.Done():
		return fmt.Errorf("lock %s: %v: %w", key, ctx.Err(), reservation.ErrTransient)
	}
}

func (t *tx) unlockAll() {
	for key := range t.held {
		<-t.s.lockChan(key)
	}
	t.held = nil
}

func (t *tx) commit() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for id, b := range t.bags {
		t.s.bags[id] = b
	}
	for id, o := range t.orders {
		t.s.orders[id] = o
	}
}

func (t *tx) LockBag(ctx context.Context, bagID string) (reservation.Bag, error) {
	if err := t.lock(ctx, "bag:"+bagID); err != nil {
		return reservation.Bag{}, err
	}
	if b, ok := t.bags[bagID]; ok {
		return b, nil
	}
	return t.s.GetBag(ctx, bagID)
}

func (t *tx) UpdateBag(ctx context.Context, bag reservation.Bag) error {
	if !t.held["bag:"+bag.ID] {
		return fmt.Errorf("update bag %s without lock", bag.ID)
	}
	t.bags[bag.ID] = bag
	return nil
}

func (t *tx) GetCustomer(_ context.Context, customerID string) (reservation.Customer, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	c, ok := t.s.customers[customerID]
	if !ok {
		return reservation.Customer{}, reservation.ErrNotFound
	}
	return c, nil
}

func (t *tx) LockOrder(ctx context.Context, orderID, customerID string) (reservation.Order, error) {
	if err := t.lock(ctx, "order:"+orderID); err != nil {
		return reservation.Order{}, err
	}
	o, ok := t.orders[orderID]
	if !ok {
		var err error
		if o, err = t.s.GetOrder(ctx, orderID); err != nil {
			return reservation.Order{}, err
		}
	}
	if customerID != "" && o.CustomerID != customerID {
		return reservation.Order{}, reservation.ErrNotFound
	}
	return o, nil
}

func (t *tx) InsertOrder(ctx context.Context, o reservation.Order) error {
	if _, ok := t.orders[o.ID]; ok {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	if _, err := t.s.GetOrder(ctx, o.ID); err == nil {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	t.orders[o.ID] = o
	return nil
}

func (t *tx) UpdateOrder(ctx context.Context, o reservation.Order) error {
	if !t.held["order:"+o.ID] {
		return fmt.Errorf("update order %s without lock", o.ID)
	}
	t.orders[o.ID] = o
	return nil
}

func (t *tx) PickupCodeInUse(_ context.Context, bagID, code string) (bool, error) {
	live := func(o reservation.Order) bool {
		return o.BagID == bagID && o.PickupCode == code && o.Status != reservation.StatusCancelled
	}
	for _, o := range t.orders {
		if live(o) {
			return true, nil
		}
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for id, o := range t.s.orders {
		if _, staged := t.orders[id]; staged {
			continue
		}
		if live(o) {
			return true, nil
		}
	}
	return false, nil
}
