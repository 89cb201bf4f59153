package engine

import (
	"fmt"
	"testing"

	"github.com/efreitasn/orderbook/internal/domain"
	"pgregory.net/rapid"
)

// bookModel tracks what the test expects the book to hold: every accepted
// order's arrival sequence and the remaining quantity it should have.
type bookModel struct {
	nextSeq   int
	seq       map[domain.OrderID]int
	remaining map[domain.OrderID]domain.Quantity
}

func newBookModel() *bookModel {
	return &bookModel{
		seq:       make(map[domain.OrderID]int),
		remaining: make(map[domain.OrderID]domain.Quantity),
	}
}

func (m *bookModel) arrive(o *domain.Order) {
	m.nextSeq++
	m.seq[o.ID()] = m.nextSeq
	m.remaining[o.ID()] = o.RemainingQuantity()
}

// applyTrades checks each receipt against the expected remaining quantity
// of the order before the fill and advances the model.
func (m *bookModel) applyTrades(t *rapid.T, trades domain.Trades) {
	for i, tr := range trades {
		bidBefore, ok := m.remaining[tr.Bid.OrderID]
		if !ok {
			t.Fatalf("trade %d: unknown bid order %s", i, tr.Bid.OrderID)
		}
		askBefore, ok := m.remaining[tr.Ask.OrderID]
		if !ok {
			t.Fatalf("trade %d: unknown ask order %s", i, tr.Ask.OrderID)
		}

		bidFilled := bidBefore - tr.Bid.Quantity
		askFilled := askBefore - tr.Ask.Quantity
		if bidFilled != askFilled {
			t.Fatalf("trade %d: bid filled %d but ask filled %d", i, bidFilled, askFilled)
		}
		if want := min(bidBefore, askBefore); bidFilled != want {
			t.Fatalf("trade %d: filled %d, want min(%d, %d) = %d", i, bidFilled, bidBefore, askBefore, want)
		}
		if tr.Bid.Price < tr.Ask.Price {
			t.Fatalf("trade %d: bid price %d below ask price %d", i, tr.Bid.Price, tr.Ask.Price)
		}

		m.remaining[tr.Bid.OrderID] = tr.Bid.Quantity
		m.remaining[tr.Ask.OrderID] = tr.Ask.Quantity
	}
}

// checkBook verifies the structural invariants that must hold after every
// operation.
func checkBook(t *rapid.T, ob *OrderBook, m *bookModel) {
	queued := 0
	for _, side := range []domain.Side{domain.SideBuy, domain.SideSell} {
		ob.levels(side).Ascend(func(level *priceLevel) bool {
			if level.empty() {
				t.Fatalf("%s level %d is empty but still indexed", side, level.price)
			}
			lastSeq := 0
			for e := level.queue.Front(); e != nil; e = e.Next() {
				queued++
				id := e.Value.(domain.OrderID)
				entry, ok := ob.orders[id]
				if !ok {
					t.Fatalf("order %s is queued at %d but missing from the index", id, level.price)
				}
				if entry.elem != e || entry.level != level {
					t.Fatalf("index handle for %s does not point at its queue node", id)
				}
				if entry.order.Side() != side || entry.order.Price() != level.price {
					t.Fatalf("order %s (%s@%d) queued in %s level %d",
						id, entry.order.Side(), entry.order.Price(), side, level.price)
				}
				if entry.order.Type() == domain.OrderTypeFillAndKill {
					t.Fatalf("fill-and-kill order %s is resting", id)
				}
				rem := entry.order.RemainingQuantity()
				if rem <= 0 || rem > entry.order.InitialQuantity() {
					t.Fatalf("order %s has remaining %d of %d", id, rem, entry.order.InitialQuantity())
				}
				if want := m.remaining[id]; rem != want {
					t.Fatalf("order %s has remaining %d, receipts imply %d", id, rem, want)
				}
				if s := m.seq[id]; s <= lastSeq {
					t.Fatalf("level %d queues %s (seq %d) behind seq %d", level.price, id, s, lastSeq)
				} else {
					lastSeq = s
				}
			}
			return true
		})
	}
	if queued != ob.Size() {
		t.Fatalf("%d orders queued but index holds %d", queued, ob.Size())
	}

	bid, hasBid := ob.BestBid()
	ask, hasAsk := ob.BestAsk()
	if hasBid && hasAsk && bid >= ask {
		t.Fatalf("book is crossed: best bid %d >= best ask %d", bid, ask)
	}
}

func drawOrder(t *rapid.T, ids []domain.OrderID, label string) *domain.Order {
	id := rapid.SampledFrom(ids).Draw(t, label+"-id")
	side := rapid.SampledFrom([]domain.Side{domain.SideBuy, domain.SideSell}).Draw(t, label+"-side")
	price := domain.Price(rapid.Int64Range(95, 105).Draw(t, label+"-price"))
	qty := domain.Quantity(rapid.Int64Range(1, 20).Draw(t, label+"-qty"))
	orderType := rapid.SampledFrom([]domain.OrderType{
		domain.OrderTypeGoodTillCanceled,
		domain.OrderTypeGoodTillCanceled,
		domain.OrderTypeFillAndKill,
		domain.OrderTypeDay,
	}).Draw(t, label+"-type")
	return domain.NewOrder(orderType, id, side, price, qty)
}

// Property: under any interleaving of submits, cancels and modifies the
// price levels, the index and the receipts stay mutually consistent, the
// book is never left crossed, and equal-price orders keep arrival order.

func TestProperty_BookInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ids := make([]domain.OrderID, rapid.IntRange(1, 30).Draw(t, "numIDs"))
		for i := range ids {
			ids[i] = domain.OrderID(fmt.Sprintf("o%d", i))
		}

		ob := NewOrderBook()
		m := newBookModel()
		steps := rapid.IntRange(1, 80).Draw(t, "steps")

		for i := 0; i < steps; i++ {
			label := fmt.Sprintf("step-%d", i)
			switch rapid.IntRange(0, 5).Draw(t, label+"-op") {
			case 0, 1, 2:
				o := drawOrder(t, ids, label)
				_, exists := ob.Order(o.ID())
				accepted := !exists &&
					(o.Type() != domain.OrderTypeFillAndKill || ob.CanMatch(o.Side(), o.Price()))
				sizeBefore := ob.Size()

				if accepted {
					m.arrive(o)
				}
				trades := ob.Submit(o)
				if !accepted {
					if len(trades) != 0 || ob.Size() != sizeBefore {
						t.Fatalf("rejected submit of %s changed the book", o.ID())
					}
				}
				m.applyTrades(t, trades)
			case 3, 4:
				id := rapid.SampledFrom(ids).Draw(t, label+"-cancel")
				_, exists := ob.Order(id)
				sizeBefore := ob.Size()
				ob.Cancel(id)
				want := sizeBefore
				if exists {
					want--
				}
				if ob.Size() != want {
					t.Fatalf("cancel %s: size %d, want %d", id, ob.Size(), want)
				}
			case 5:
				o := drawOrder(t, ids, label)
				existing, exists := ob.Order(o.ID())
				mod := domain.OrderModify{ID: o.ID(), Side: o.Side(), Price: o.Price(), Quantity: o.InitialQuantity()}
				if exists {
					m.arrive(mod.ToOrder(existing.Type()))
				}
				trades := ob.Modify(mod)
				if !exists && len(trades) != 0 {
					t.Fatalf("modify of unknown %s produced trades", o.ID())
				}
				m.applyTrades(t, trades)
			}
			checkBook(t, ob, m)
		}
	})
}

// Property: the snapshot of each side lists every level once, in the side's
// order, with the sum of its orders' remaining quantities.

func TestProperty_SnapshotMatchesLevels(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ob := NewOrderBook()
		n := rapid.IntRange(1, 50).Draw(t, "numOrders")
		for i := 0; i < n; i++ {
			side := rapid.SampledFrom([]domain.Side{domain.SideBuy, domain.SideSell}).Draw(t, fmt.Sprintf("side-%d", i))
			price := domain.Price(rapid.Int64Range(1, 200).Draw(t, fmt.Sprintf("price-%d", i)))
			qty := domain.Quantity(rapid.Int64Range(1, 100).Draw(t, fmt.Sprintf("qty-%d", i)))
			ob.Submit(gtc(fmt.Sprintf("o%d", i), side, price, qty))
		}

		totals := map[domain.Side]map[domain.Price]domain.Quantity{
			domain.SideBuy:  {},
			domain.SideSell: {},
		}
		for _, entry := range ob.orders {
			totals[entry.order.Side()][entry.order.Price()] += entry.order.RemainingQuantity()
		}

		snap := ob.Snapshot()
		checkSide := func(side domain.Side, infos []domain.LevelInfo, tree *priceLevelTree) {
			if len(infos) != len(totals[side]) || len(infos) != tree.Len() {
				t.Fatalf("%s: %d snapshot levels, %d distinct prices, %d tree levels",
					side, len(infos), len(totals[side]), tree.Len())
			}
			for i, info := range infos {
				if info.Quantity != totals[side][info.Price] {
					t.Fatalf("%s level %d: quantity %d, want %d", side, info.Price, info.Quantity, totals[side][info.Price])
				}
				if i == 0 {
					continue
				}
				prev := infos[i-1].Price
				if side == domain.SideBuy && info.Price >= prev {
					t.Fatalf("bids not descending: %d after %d", info.Price, prev)
				}
				if side == domain.SideSell && info.Price <= prev {
					t.Fatalf("asks not ascending: %d after %d", info.Price, prev)
				}
			}
		}
		checkSide(domain.SideBuy, snap.Bids, ob.bids)
		checkSide(domain.SideSell, snap.Asks, ob.asks)
	})
}
