package domain

import "time"

// TradeInfo is one side's receipt of a fill. Quantity is what the order
// still has remaining after the fill, not the executed amount; Price is the
// order's own limit price.
type TradeInfo struct {
	OrderID  OrderID
	Price    Price
	Quantity Quantity
}

// Trade pairs the bid and ask receipts of a single fill.
type Trade struct {
	Bid TradeInfo
	Ask TradeInfo
}

// Trades is the ordered list of fills produced by one book operation.
type Trades []Trade

// Execution is a trade as recorded in a symbol's history. Price is the
// limit price of the order that was already resting when the trade
// happened; Quantity is the amount that changed hands.
type Execution struct {
	ID         string
	Symbol     string
	Trade      Trade
	Price      Price
	Quantity   Quantity
	ExecutedAt time.Time
}
