package domain

import "fmt"

// OrderID identifies an order. Callers are responsible for uniqueness
// within a book.
type OrderID string

// Price is a limit price expressed in integer ticks.
type Price int64

// Quantity is an order size in whole units.
type Quantity int64

// OrderType is the time-in-force kind of an order. Only FillAndKill is
// treated differently by the matching engine; every other kind rests on
// the book like GoodTillCanceled.
type OrderType string

const (
	OrderTypeGoodTillCanceled OrderType = "good_till_canceled"
	OrderTypeFillAndKill      OrderType = "fill_and_kill"
	OrderTypeDay              OrderType = "day"
	OrderTypeGoodTillDate     OrderType = "good_till_date"
	OrderTypeFillOrKill       OrderType = "fill_or_kill"
	OrderTypeMinimumQuantity  OrderType = "minimum_quantity"
	OrderTypeDisplayQuantity  OrderType = "display_quantity"
)

// Valid reports whether t is one of the declared order types.
func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeGoodTillCanceled, OrderTypeFillAndKill, OrderTypeDay,
		OrderTypeGoodTillDate, OrderTypeFillOrKill, OrderTypeMinimumQuantity,
		OrderTypeDisplayQuantity:
		return true
	}
	return false
}

// Side indicates whether an order buys or sells.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is buy or sell.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Order is a single instruction resting on, or entering, a book. Identity,
// side, price, type and initial quantity never change after construction;
// only the remaining quantity moves, and only downwards.
type Order struct {
	orderType         OrderType
	id                OrderID
	side              Side
	price             Price
	initialQuantity   Quantity
	remainingQuantity Quantity
}

// NewOrder creates an order with its full quantity remaining.
func NewOrder(orderType OrderType, id OrderID, side Side, price Price, quantity Quantity) *Order {
	return &Order{
		orderType:         orderType,
		id:                id,
		side:              side,
		price:             price,
		initialQuantity:   quantity,
		remainingQuantity: quantity,
	}
}

func (o *Order) ID() OrderID                 { return o.id }
func (o *Order) Side() Side                  { return o.side }
func (o *Order) Price() Price                { return o.price }
func (o *Order) Type() OrderType             { return o.orderType }
func (o *Order) InitialQuantity() Quantity   { return o.initialQuantity }
func (o *Order) RemainingQuantity() Quantity { return o.remainingQuantity }

// FilledQuantity is the part of the initial quantity already executed.
func (o *Order) FilledQuantity() Quantity {
	return o.initialQuantity - o.remainingQuantity
}

// IsFilled reports whether nothing remains to be executed.
func (o *Order) IsFilled() bool {
	return o.remainingQuantity == 0
}

// Fill executes quantity against the order. It panics if quantity exceeds
// the remaining quantity.
func (o *Order) Fill(quantity Quantity) {
	if quantity > o.remainingQuantity {
		panic(fmt.Sprintf("order (%s) cannot be filled for more than its remaining quantity: fill=%d remaining=%d",
			o.id, quantity, o.remainingQuantity))
	}
	o.remainingQuantity -= quantity
}

// OrderModify carries the replacement terms for an existing order. The
// order type is not part of a modification; it is carried over from the
// order being replaced.
type OrderModify struct {
	ID       OrderID
	Side     Side
	Price    Price
	Quantity Quantity
}

// ToOrder builds the replacement order with the given type.
func (m OrderModify) ToOrder(orderType OrderType) *Order {
	return NewOrder(orderType, m.ID, m.Side, m.Price, m.Quantity)
}
