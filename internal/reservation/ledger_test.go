package reservation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBag_Take(t *testing.T) {
	tests := []struct {
		name    string
		bag     Bag
		want    Bag
		wantErr error
	}{
		{
			name: "decrements",
			bag:  Bag{Quantity: 3, Status: BagAvailable},
			want: Bag{Quantity: 2, Status: BagAvailable},
		},
		{
			name: "last unit sells out",
			bag:  Bag{Quantity: 1, Status: BagAvailable},
			want: Bag{Quantity: 0, Status: BagSoldOut},
		},
		{
			name:    "sold out",
			bag:     Bag{Quantity: 0, Status: BagSoldOut},
			want:    Bag{Quantity: 0, Status: BagSoldOut},
			wantErr: ErrUnavailable,
		},
		{
			name:    "cancelled with stock",
			bag:     Bag{Quantity: 4, Status: BagCancelled},
			want:    Bag{Quantity: 4, Status: BagCancelled},
			wantErr: ErrUnavailable,
		},
		{
			name:    "available but empty",
			bag:     Bag{Quantity: 0, Status: BagAvailable},
			want:    Bag{Quantity: 0, Status: BagAvailable},
			wantErr: ErrUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.bag
			err := b.take()
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Equal(t, tt.want, b)
			assert.GreaterOrEqual(t, b.Quantity, 0)
		})
	}
}

func TestBag_GiveBack(t *testing.T) {
	b := Bag{Quantity: 0, Status: BagSoldOut}
	b.giveBack()
	assert.Equal(t, Bag{Quantity: 1, Status: BagAvailable}, b)

	b.giveBack()
	assert.Equal(t, Bag{Quantity: 2, Status: BagAvailable}, b)

	c := Bag{Quantity: 0, Status: BagCancelled}
	c.giveBack()
	assert.Equal(t, Bag{Quantity: 1, Status: BagCancelled}, c)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusConfirmed))
	assert.True(t, CanTransition(StatusPending, StatusCancelled))
	assert.True(t, CanTransition(StatusConfirmed, StatusCancelled))

	assert.False(t, CanTransition(StatusConfirmed, StatusPending))
	assert.False(t, CanTransition(StatusConfirmed, StatusConfirmed))
	assert.False(t, CanTransition(StatusCancelled, StatusPending))
	assert.False(t, CanTransition(StatusCancelled, StatusConfirmed))
	assert.False(t, CanTransition("UNKNOWN", StatusConfirmed))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(ErrNotFound))
	assert.Equal(t, KindUnavailable, KindOf(errors.Join(errors.New("ctx"), ErrUnavailable)))
	assert.Equal(t, KindTooLate, KindOf(wrap(ErrTooLate)))
	assert.Equal(t, KindTransient, KindOf(wrap(wrap(ErrTransient))))
	assert.Equal(t, KindInternal, KindOf(errors.New("connection refused")))
}

func wrap(err error) error { return &wrapped{err} }

type wrapped struct{ err error }

func (w *wrapped) Error() string { return "wrapped: " + w.err.Error() }
func (w *wrapped) Unwrap() error { return w.err }
