package engine

import (
	"container/list"

	"github.com/efreitasn/orderbook/internal/domain"
	"github.com/google/btree"
)

// priceLevelTree is one side of the book, ordered best level first.
type priceLevelTree = btree.BTreeG[*priceLevel]

// priceLevel is the FIFO queue of order ids resting at one price. The queue
// holds identities only; the live order is looked up in the book's index.
type priceLevel struct {
	price domain.Price
	queue *list.List // of domain.OrderID, oldest at the front
}

func newPriceLevel(price domain.Price) *priceLevel {
	return &priceLevel{price: price, queue: list.New()}
}

// bidLess orders the bid side by price descending, so Min() is the best bid.
func bidLess(a, b *priceLevel) bool {
	return a.price > b.price
}

// askLess orders the ask side by price ascending, so Min() is the best ask.
func askLess(a, b *priceLevel) bool {
	return a.price < b.price
}

func (l *priceLevel) push(id domain.OrderID) *list.Element {
	return l.queue.PushBack(id)
}

func (l *priceLevel) head() domain.OrderID {
	return l.queue.Front().Value.(domain.OrderID)
}

func (l *priceLevel) empty() bool {
	return l.queue.Len() == 0
}
