package engine

import (
	"container/list"

	"github.com/efreitasn/orderbook/internal/domain"
	"github.com/google/btree"
)

// orderEntry is the book's record of a resting order: the order itself,
// the level it rests in, and its node in that level's queue.
type orderEntry struct {
	order *domain.Order
	level *priceLevel
	elem  *list.Element
}

// OrderBook is a single-symbol limit order book with price-time priority.
//
// Each side is a B-tree of price levels; each level is a FIFO queue of
// order ids. The orders map owns every resting order and keeps the queue
// node of each one, so a cancel never scans a level. A level is present in
// its tree exactly while its queue is non-empty.
//
// OrderBook does no locking. Callers sharing a book between goroutines must
// serialize every call, e.g. through SafeBook.
type OrderBook struct {
	bids   *priceLevelTree
	asks   *priceLevelTree
	orders map[domain.OrderID]orderEntry
}

// NewOrderBook creates an empty order book.
func NewOrderBook() *OrderBook {
	const degree = 32
	return &OrderBook{
		bids:   btree.NewG[*priceLevel](degree, bidLess),
		asks:   btree.NewG[*priceLevel](degree, askLess),
		orders: make(map[domain.OrderID]orderEntry),
	}
}

func (ob *OrderBook) levels(side domain.Side) *priceLevelTree {
	if side == domain.SideBuy {
		return ob.bids
	}
	return ob.asks
}

// CanMatch reports whether an order with the given side and price would
// cross the opposite side's best level right now.
func (ob *OrderBook) CanMatch(side domain.Side, price domain.Price) bool {
	if side == domain.SideBuy {
		best, ok := ob.asks.Min()
		return ok && best.price <= price
	}
	best, ok := ob.bids.Min()
	return ok && best.price >= price
}

// Submit adds an order to the book and runs matching. Duplicate ids and
// fill-and-kill orders that cannot cross are dropped without any change to
// the book; both cases return no trades. A fill-and-kill order never rests:
// whatever it could not fill is cancelled before Submit returns.
func (ob *OrderBook) Submit(order *domain.Order) domain.Trades {
	if _, exists := ob.orders[order.ID()]; exists {
		return nil
	}
	if order.Type() == domain.OrderTypeFillAndKill && !ob.CanMatch(order.Side(), order.Price()) {
		return nil
	}

	tree := ob.levels(order.Side())
	level, ok := tree.Get(&priceLevel{price: order.Price()})
	if !ok {
		level = newPriceLevel(order.Price())
		tree.ReplaceOrInsert(level)
	}
	ob.orders[order.ID()] = orderEntry{
		order: order,
		level: level,
		elem:  level.push(order.ID()),
	}

	trades := ob.match()

	if order.Type() == domain.OrderTypeFillAndKill {
		ob.Cancel(order.ID())
	}
	return trades
}

// match crosses the best bid and ask levels until the book is no longer
// crossed. Orders at equal prices trade: a bid meeting an ask at the same
// price must fill, so the loop stops only once bid < ask.
func (ob *OrderBook) match() domain.Trades {
	var trades domain.Trades

	for {
		bidLevel, ok := ob.bids.Min()
		if !ok {
			break
		}
		askLevel, ok := ob.asks.Min()
		if !ok {
			break
		}
		if bidLevel.price < askLevel.price {
			break
		}

		for !bidLevel.empty() && !askLevel.empty() {
			bid := ob.orders[bidLevel.head()].order
			ask := ob.orders[askLevel.head()].order

			quantity := min(bid.RemainingQuantity(), ask.RemainingQuantity())
			bid.Fill(quantity)
			ask.Fill(quantity)

			if bid.IsFilled() {
				ob.removeFilled(bid.ID())
			}
			if ask.IsFilled() {
				ob.removeFilled(ask.ID())
			}

			trades = append(trades, domain.Trade{
				Bid: receipt(bid),
				Ask: receipt(ask),
			})
		}

		if bidLevel.empty() {
			ob.bids.Delete(bidLevel)
		}
		if askLevel.empty() {
			ob.asks.Delete(askLevel)
		}
	}

	return trades
}

// removeFilled drops a filled order from the index, then unlinks it from
// its level. The caller prunes the level.
func (ob *OrderBook) removeFilled(id domain.OrderID) {
	entry := ob.orders[id]
	delete(ob.orders, id)
	entry.level.queue.Remove(entry.elem)
}

func receipt(o *domain.Order) domain.TradeInfo {
	return domain.TradeInfo{
		OrderID:  o.ID(),
		Price:    o.Price(),
		Quantity: o.RemainingQuantity(),
	}
}

// Cancel removes a resting order. Unknown ids are ignored.
func (ob *OrderBook) Cancel(id domain.OrderID) {
	entry, ok := ob.orders[id]
	if !ok {
		return
	}

	entry.level.queue.Remove(entry.elem)
	if entry.level.empty() {
		ob.levels(entry.order.Side()).Delete(entry.level)
	}
	delete(ob.orders, id)
}

// Modify replaces a resting order with new side, price and quantity,
// keeping its id and type. The replacement goes to the back of its level's
// queue, losing any time priority the original had. Unknown ids are ignored.
func (ob *OrderBook) Modify(m domain.OrderModify) domain.Trades {
	entry, ok := ob.orders[m.ID]
	if !ok {
		return nil
	}
	orderType := entry.order.Type()

	ob.Cancel(m.ID)
	return ob.Submit(m.ToOrder(orderType))
}

// Snapshot returns every price level of both sides with the total
// remaining quantity resting at each.
func (ob *OrderBook) Snapshot() domain.BookSnapshot {
	return ob.Depth(0)
}

// Depth is Snapshot limited to the best n levels per side. n <= 0 means
// all levels.
func (ob *OrderBook) Depth(n int) domain.BookSnapshot {
	return domain.BookSnapshot{
		Bids: ob.levelInfos(ob.bids, n),
		Asks: ob.levelInfos(ob.asks, n),
	}
}

func (ob *OrderBook) levelInfos(tree *priceLevelTree, n int) []domain.LevelInfo {
	capacity := tree.Len()
	if n > 0 && n < capacity {
		capacity = n
	}
	infos := make([]domain.LevelInfo, 0, capacity)

	tree.Ascend(func(level *priceLevel) bool {
		if len(infos) == capacity {
			return false
		}
		var total domain.Quantity
		for e := level.queue.Front(); e != nil; e = e.Next() {
			total += ob.orders[e.Value.(domain.OrderID)].order.RemainingQuantity()
		}
		infos = append(infos, domain.LevelInfo{Price: level.price, Quantity: total})
		return true
	})
	return infos
}

// Size returns the number of resting orders.
func (ob *OrderBook) Size() int {
	return len(ob.orders)
}

// Order returns the resting order with the given id.
func (ob *OrderBook) Order(id domain.OrderID) (*domain.Order, bool) {
	entry, ok := ob.orders[id]
	if !ok {
		return nil, false
	}
	return entry.order, true
}

// BestBid returns the highest resting buy price.
func (ob *OrderBook) BestBid() (domain.Price, bool) {
	level, ok := ob.bids.Min()
	if !ok {
		return 0, false
	}
	return level.price, true
}

// BestAsk returns the lowest resting sell price.
func (ob *OrderBook) BestAsk() (domain.Price, bool) {
	level, ok := ob.asks.Min()
	if !ok {
		return 0, false
	}
	return level.price, true
}

// Spread returns best ask minus best bid. It is false when either side is
// empty.
func (ob *OrderBook) Spread() (domain.Price, bool) {
	bid, ok := ob.BestBid()
	if !ok {
		return 0, false
	}
	ask, ok := ob.BestAsk()
	if !ok {
		return 0, false
	}
	return ask - bid, true
}
