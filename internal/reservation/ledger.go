package reservation

import (
	"context"
	"fmt"
)

// Ledger keeps SurpriseBag quantity and status consistent. Every change goes
// through withExclusiveLock inside the caller's unit of work.
type Ledger struct{}

// Reserve takes one unit from the bag, flipping it to SOLD_OUT at zero.
func (Ledger) Reserve(ctx context.Context, tx Tx, bagID string) (Bag, error) {
	return withExclusiveLock(ctx, tx, bagID, func(b *Bag) error {
		return b.take()
	})
}

// Release gives one unit back, reopening a SOLD_OUT bag.
func (Ledger) Release(ctx context.Context, tx Tx, bagID string) (Bag, error) {
	return withExclusiveLock(ctx, tx, bagID, func(b *Bag) error {
		b.giveBack()
		return nil
	})
}

// withExclusiveLock locks the bag row, applies fn and writes the result back.
// Nothing is written when fn fails.
func withExclusiveLock(ctx context.Context, tx Tx, bagID string, fn func(b *Bag) error) (Bag, error) {
	bag, err := tx.LockBag(ctx, bagID)
	if err != nil {
		return Bag{}, fmt.Errorf("lock bag %s: %w", bagID, err)
	}
	if err := fn(&bag); err != nil {
		return Bag{}, err
	}
	if err := tx.UpdateBag(ctx, bag); err != nil {
		return Bag{}, fmt.Errorf("update bag %s: %w", bagID, err)
	}
	return bag, nil
}

func (b *Bag) take() error {
	if b.Status != BagAvailable || b.Quantity <= 0 {
		return ErrUnavailable
	}
	b.Quantity--
	if b.Quantity == 0 {
		b.Status = BagSoldOut
	}
	return nil
}

func (b *Bag) giveBack() {
	b.Quantity++
	if b.Status == BagSoldOut {
		b.Status = BagAvailable
	}
}
