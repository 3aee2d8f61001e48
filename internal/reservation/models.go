package reservation

import "time"

type BagStatus string

const (
	BagAvailable BagStatus = "AVAILABLE"
	BagSoldOut   BagStatus = "SOLD_OUT"
	BagCancelled BagStatus = "CANCELLED"
)

type Bag struct {
	ID              string    `db:"id" json:"bagId"`
	StoreID         string    `db:"store_id" json:"storeId"`
	Name            string    `db:"name" json:"name"`
	Description     string    `db:"description" json:"description"`
	OriginalValue   float64   `db:"original_value" json:"originalValue"`
	DiscountedPrice float64   `db:"discounted_price" json:"discountedPrice"`
	Quantity        int       `db:"quantity" json:"quantity"`
	Status          BagStatus `db:"status" json:"status"`
	PickupStart     time.Time `db:"pickup_start" json:"pickupStart"`
	PickupEnd       time.Time `db:"pickup_end" json:"pickupEnd"`
}

type Order struct {
	ID         string      `db:"id"`
	BagID      string      `db:"bag_id"`
	CustomerID string      `db:"customer_id"`
	Status     OrderStatus `db:"status"` // see status.go
	PickupCode string      `db:"pickup_code"`
	OrderDate  time.Time   `db:"order_date"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

type Customer struct {
	ID    string `db:"id"`
	Email string `db:"email"`
	Name  string `db:"name"`
}

// ---- response shape ----

type BagSummary struct {
	BagID           string  `json:"bagId"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	OriginalValue   float64 `json:"originalValue"`
	DiscountedPrice float64 `json:"discountedPrice"`
}

type PickupWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type OrderSummary struct {
	OrderID      string       `json:"orderId"`
	Status       OrderStatus  `json:"status"`
	PickupCode   string       `json:"pickupCode"`
	OrderDate    time.Time    `json:"orderDate"`
	Bag          BagSummary   `json:"bag"`
	PickupWindow PickupWindow `json:"pickupWindow"`
}

func Summarize(o Order, b Bag) OrderSummary {
	return OrderSummary{
		OrderID:    o.ID,
		Status:     o.Status,
		PickupCode: o.PickupCode,
		OrderDate:  o.OrderDate,
		Bag: BagSummary{
			BagID:           b.ID,
			Name:            b.Name,
			Description:     b.Description,
			OriginalValue:   b.OriginalValue,
			DiscountedPrice: b.DiscountedPrice,
		},
		PickupWindow: PickupWindow{Start: b.PickupStart, End: b.PickupEnd},
	}
}
