package domain

// LevelInfo aggregates the remaining quantity resting at one price.
type LevelInfo struct {
	Price    Price
	Quantity Quantity
}

// BookSnapshot is a point-in-time depth view of both sides. Bids are
// ordered by price descending, asks by price ascending.
type BookSnapshot struct {
	Bids []LevelInfo
	Asks []LevelInfo
}
