package service

import (
	"fmt"
	"time"

	"github.com/efreitasn/orderbook/internal/domain"
	"github.com/efreitasn/orderbook/internal/engine"
	"github.com/efreitasn/orderbook/internal/store"
	"github.com/shopspring/decimal"
)

// PriceSummary is a symbol's reference price derived from its recent
// executions.
type PriceSummary struct {
	Symbol         string
	CurrentPrice   *domain.Price // nil when no trades ever
	Window         string        // e.g. "5m"
	TradesInWindow int
	LastTradeAt    *time.Time // nil when no trades ever
}

// BookView is a depth view of a symbol's book.
type BookView struct {
	Symbol     string
	Bids       []domain.LevelInfo
	Asks       []domain.LevelInfo
	Spread     *domain.Price // nil if either side empty
	Size       int
	SnapshotAt time.Time
}

// Quote estimates what an order for a given quantity would get from the
// opposite side of the book right now, without placing it.
type Quote struct {
	Symbol            string
	Side              domain.Side
	QuantityRequested domain.Quantity
	QuantityAvailable domain.Quantity
	FullyFillable     bool
	EstimatedAvgPrice *domain.Price // nil when no liquidity
	EstimatedTotal    *decimal.Decimal // in ticks; nil when no liquidity
	PriceLevels       []domain.LevelInfo
	QuotedAt          time.Time
}

// MarketService answers read-only questions about books and trade history.
type MarketService struct {
	tradeStore *store.TradeStore
	books      *engine.BookManager
	vwapWindow time.Duration
}

// NewMarketService creates a new MarketService with the given dependencies.
func NewMarketService(
	tradeStore *store.TradeStore,
	books *engine.BookManager,
	vwapWindow time.Duration,
) *MarketService {
	return &MarketService{
		tradeStore: tradeStore,
		books:      books,
		vwapWindow: vwapWindow,
	}
}

func (s *MarketService) book(symbol string) (*engine.SafeBook, error) {
	book, ok := s.books.Get(symbol)
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, domain.ErrSymbolNotFound)
	}
	return book, nil
}

// GetPrice returns the current reference price for a symbol, computed as
// VWAP over the configured time window. Falls back to the last trade's
// price if no trades exist in the window. Returns null price if no trades
// have ever occurred.
func (s *MarketService) GetPrice(symbol string) (*PriceSummary, error) {
	if _, err := s.book(symbol); err != nil {
		return nil, err
	}

	resp := &PriceSummary{
		Symbol: symbol,
		Window: formatDuration(s.vwapWindow),
	}

	lastTrade, ok := s.tradeStore.Last(symbol)
	if !ok {
		return resp, nil
	}
	resp.LastTradeAt = &lastTrade.ExecutedAt

	trades := s.tradeStore.GetBySymbol(symbol)
	windowStart := time.Now().Add(-s.vwapWindow)

	// Iterate backwards from the tail until executed_at falls outside the
	// window. Price × quantity overflows int64 for large orders, so the
	// sums are decimals.
	sumPriceQty := decimal.Zero
	sumQty := decimal.Zero
	var tradesInWindow int

	for i := len(trades) - 1; i >= 0; i-- {
		t := trades[i]
		if t.ExecutedAt.Before(windowStart) {
			break
		}
		qty := decimal.NewFromInt(int64(t.Quantity))
		sumPriceQty = sumPriceQty.Add(decimal.NewFromInt(int64(t.Price)).Mul(qty))
		sumQty = sumQty.Add(qty)
		tradesInWindow++
	}

	resp.TradesInWindow = tradesInWindow

	if sumQty.IsPositive() {
		vwap, err := averagePrice(sumPriceQty, sumQty)
		if err != nil {
			return nil, fmt.Errorf("vwap for %s: %w", symbol, err)
		}
		resp.CurrentPrice = &vwap
	} else {
		resp.CurrentPrice = &lastTrade.Price
	}

	return resp, nil
}

// averagePrice divides a notional by a quantity, truncating to whole ticks.
func averagePrice(notional, quantity decimal.Decimal) (domain.Price, error) {
	q, _ := notional.QuoRem(quantity, 0)
	return domain.PriceFromTicks(q)
}

// GetBook returns the best depth price levels of each side of a symbol's
// book. A depth of 0 returns every level.
func (s *MarketService) GetBook(symbol string, depth int) (*BookView, error) {
	if depth < 0 {
		return nil, &domain.ValidationError{
			Message: "depth must be >= 0",
		}
	}

	book, err := s.book(symbol)
	if err != nil {
		return nil, err
	}

	resp := &BookView{Symbol: book.Symbol()}
	book.Do(func(ob *engine.OrderBook) {
		snap := ob.Depth(depth)
		resp.Bids = snap.Bids
		resp.Asks = snap.Asks
		resp.Size = ob.Size()
		if spread, ok := ob.Spread(); ok {
			resp.Spread = &spread
		}
	})
	resp.SnapshotAt = time.Now()

	return resp, nil
}

// GetQuote walks the opposite side of the book best level first and
// reports how much of quantity it could fill and at what average price.
func (s *MarketService) GetQuote(symbol string, side domain.Side, quantity domain.Quantity) (*Quote, error) {
	if !side.Valid() {
		return nil, &domain.ValidationError{
			Message: "side must be 'buy' or 'sell'",
		}
	}
	if quantity <= 0 {
		return nil, &domain.ValidationError{
			Message: "quantity must be a positive integer",
		}
	}

	book, err := s.book(symbol)
	if err != nil {
		return nil, err
	}

	snap := book.Depth(0)
	levels := snap.Asks
	if side == domain.SideSell {
		levels = snap.Bids
	}

	quote := &Quote{
		Symbol:            symbol,
		Side:              side,
		QuantityRequested: quantity,
		PriceLevels:       make([]domain.LevelInfo, 0),
		QuotedAt:          time.Now(),
	}

	total := decimal.Zero
	remaining := quantity
	for _, level := range levels {
		if remaining == 0 {
			break
		}
		take := min(remaining, level.Quantity)
		quote.PriceLevels = append(quote.PriceLevels, domain.LevelInfo{Price: level.Price, Quantity: take})
		total = total.Add(decimal.NewFromInt(int64(level.Price)).Mul(decimal.NewFromInt(int64(take))))
		remaining -= take
	}

	quote.QuantityAvailable = quantity - remaining
	quote.FullyFillable = remaining == 0
	if quote.QuantityAvailable > 0 {
		avg, err := averagePrice(total, decimal.NewFromInt(int64(quote.QuantityAvailable)))
		if err != nil {
			return nil, fmt.Errorf("quote for %s: %w", symbol, err)
		}
		quote.EstimatedAvgPrice = &avg
		quote.EstimatedTotal = &total
	}

	return quote, nil
}

// GetTrades returns a symbol's executions in chronological order.
func (s *MarketService) GetTrades(symbol string) ([]domain.Execution, error) {
	if _, err := s.book(symbol); err != nil {
		return nil, err
	}
	return s.tradeStore.GetBySymbol(symbol), nil
}

// formatDuration converts a time.Duration to a human-readable string
// like "5m" for the window field.
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	minutes := int(d.Minutes())
	if d == time.Duration(minutes)*time.Minute && minutes > 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return d.String()
}
