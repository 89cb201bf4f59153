package domain

import "time"

// OrderStatus is the lifecycle state of an order as seen from outside the
// book.
type OrderStatus string

const (
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusOpen, OrderStatusPartiallyFilled, OrderStatusFilled, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderRecord is the history entry kept for every order a book accepted.
// Unlike Order it is a plain value, safe to copy and hand to callers.
type OrderRecord struct {
	ID                OrderID
	Symbol            string
	Type              OrderType
	Side              Side
	Price             Price
	Quantity          Quantity
	RemainingQuantity Quantity
	Status            OrderStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// FilledQuantity returns how much of the order has traded.
func (r OrderRecord) FilledQuantity() Quantity {
	return r.Quantity - r.RemainingQuantity
}

// NewOrderRecord captures a freshly accepted order.
func NewOrderRecord(symbol string, o *Order, at time.Time) OrderRecord {
	return OrderRecord{
		ID:                o.ID(),
		Symbol:            symbol,
		Type:              o.Type(),
		Side:              o.Side(),
		Price:             o.Price(),
		Quantity:          o.InitialQuantity(),
		RemainingQuantity: o.RemainingQuantity(),
		Status:            OrderStatusOpen,
		CreatedAt:         at,
		UpdatedAt:         at,
	}
}

// ApplyFill moves the record to the remaining quantity reported by a trade
// receipt.
func (r *OrderRecord) ApplyFill(remaining Quantity, at time.Time) {
	r.RemainingQuantity = remaining
	if remaining == 0 {
		r.Status = OrderStatusFilled
	} else {
		r.Status = OrderStatusPartiallyFilled
	}
	r.UpdatedAt = at
}
