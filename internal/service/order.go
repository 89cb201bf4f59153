package service

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/efreitasn/orderbook/internal/domain"
	"github.com/efreitasn/orderbook/internal/engine"
	"github.com/efreitasn/orderbook/internal/store"
	"github.com/google/uuid"
)

var orderSymbolRegex = regexp.MustCompile(`^[A-Z]{1,10}$`)

// SubmitOrderRequest represents the input for order submission.
type SubmitOrderRequest struct {
	Symbol   string
	ID       domain.OrderID
	Type     domain.OrderType
	Side     domain.Side
	Price    domain.Price
	Quantity domain.Quantity
}

// ModifyOrderRequest replaces the side, price and quantity of a resting
// order.
type ModifyOrderRequest struct {
	Symbol   string
	ID       domain.OrderID
	Side     domain.Side
	Price    domain.Price
	Quantity domain.Quantity
}

// OrderResult is the outcome of a submit or modify: the order's record
// after matching and the trades the operation produced.
type OrderResult struct {
	Order      domain.OrderRecord
	Trades     domain.Trades
	Executions []domain.Execution
}

// OrderService validates order instructions, routes them to the symbol's
// book and keeps order and trade history in step with the book.
//
// Every mutation runs inside the book's lock, so the records of one symbol
// always agree with its book.
type OrderService struct {
	books      *engine.BookManager
	orderStore *store.OrderStore
	tradeStore *store.TradeStore
	logger     *slog.Logger
}

// NewOrderService creates a new OrderService with the given dependencies.
func NewOrderService(
	books *engine.BookManager,
	orderStore *store.OrderStore,
	tradeStore *store.TradeStore,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		books:      books,
		orderStore: orderStore,
		tradeStore: tradeStore,
		logger:     logger,
	}
}

func validateSymbol(symbol string) error {
	if !orderSymbolRegex.MatchString(symbol) {
		return &domain.ValidationError{
			Message: "symbol must match ^[A-Z]{1,10}$",
		}
	}
	return nil
}

func validateLimit(side domain.Side, price domain.Price, quantity domain.Quantity) error {
	if !side.Valid() {
		return &domain.ValidationError{
			Message: "side must be 'buy' or 'sell'",
		}
	}
	if price <= 0 {
		return &domain.ValidationError{
			Message: "price must be greater than 0",
		}
	}
	if quantity <= 0 {
		return &domain.ValidationError{
			Message: "quantity must be a positive integer",
		}
	}
	return nil
}

// SubmitOrder validates the request, places the order on its symbol's book
// and records the order and any executions.
//
// It returns domain.ErrOrderRejected when the id is already resting on the
// book or when a fill-and-kill order finds nothing to trade with.
func (s *OrderService) SubmitOrder(req SubmitOrderRequest) (*OrderResult, error) {
	if !req.Type.Valid() {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("Unknown order type: %s", req.Type),
		}
	}
	if err := validateSymbol(req.Symbol); err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, &domain.ValidationError{
			Message: "id is required",
		}
	}
	if err := validateLimit(req.Side, req.Price, req.Quantity); err != nil {
		return nil, err
	}

	book := s.books.GetOrCreate(req.Symbol)

	var (
		result *OrderResult
		err    error
	)
	book.Do(func(ob *engine.OrderBook) {
		if _, exists := ob.Order(req.ID); exists {
			err = fmt.Errorf("order %s is already resting: %w", req.ID, domain.ErrOrderRejected)
			return
		}

		order := domain.NewOrder(req.Type, req.ID, req.Side, req.Price, req.Quantity)
		trades := ob.Submit(order)
		_, resting := ob.Order(req.ID)
		if !resting && len(trades) == 0 {
			err = fmt.Errorf("order %s found nothing to trade with: %w", req.ID, domain.ErrOrderRejected)
			return
		}

		now := time.Now()
		rec := domain.NewOrderRecord(req.Symbol, order, now)
		rec.Status = finalStatus(order, resting)
		s.orderStore.Create(rec)

		result = &OrderResult{
			Order:      rec,
			Trades:     trades,
			Executions: s.recordTrades(req.Symbol, req.ID, req.Quantity, trades, now),
		}
	})
	if err != nil {
		s.logger.Info("order rejected",
			slog.String("symbol", req.Symbol),
			slog.String("order_id", string(req.ID)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Debug("order submitted",
		slog.String("symbol", req.Symbol),
		slog.String("order_id", string(req.ID)),
		slog.String("type", string(req.Type)),
		slog.String("status", string(result.Order.Status)),
		slog.Int("trades", len(result.Trades)),
	)
	return result, nil
}

// CancelOrder removes a resting order from its book. It returns
// domain.ErrOrderNotFound if the order is not resting.
func (s *OrderService) CancelOrder(symbol string, id domain.OrderID) (domain.OrderRecord, error) {
	book, ok := s.books.Get(symbol)
	if !ok {
		return domain.OrderRecord{}, fmt.Errorf("cancel %s: %w", id, domain.ErrOrderNotFound)
	}

	var (
		rec domain.OrderRecord
		err error
	)
	book.Do(func(ob *engine.OrderBook) {
		if _, resting := ob.Order(id); !resting {
			err = fmt.Errorf("cancel %s: %w", id, domain.ErrOrderNotFound)
			return
		}
		ob.Cancel(id)

		rec, err = s.orderStore.Update(symbol, id, func(r *domain.OrderRecord) {
			r.Status = domain.OrderStatusCancelled
			r.UpdatedAt = time.Now()
		})
	})
	if err != nil {
		return domain.OrderRecord{}, err
	}

	s.logger.Debug("order cancelled",
		slog.String("symbol", symbol),
		slog.String("order_id", string(id)),
	)
	return rec, nil
}

// ModifyOrder replaces a resting order's side, price and quantity. The
// order keeps its id and type but loses its time priority, and may trade
// immediately at its new price. It returns domain.ErrOrderNotFound if the
// order is not resting.
func (s *OrderService) ModifyOrder(req ModifyOrderRequest) (*OrderResult, error) {
	if err := validateLimit(req.Side, req.Price, req.Quantity); err != nil {
		return nil, err
	}

	book, ok := s.books.Get(req.Symbol)
	if !ok {
		return nil, fmt.Errorf("modify %s: %w", req.ID, domain.ErrOrderNotFound)
	}

	var (
		result *OrderResult
		err    error
	)
	book.Do(func(ob *engine.OrderBook) {
		if _, resting := ob.Order(req.ID); !resting {
			err = fmt.Errorf("modify %s: %w", req.ID, domain.ErrOrderNotFound)
			return
		}

		trades := ob.Modify(domain.OrderModify{
			ID:       req.ID,
			Side:     req.Side,
			Price:    req.Price,
			Quantity: req.Quantity,
		})

		now := time.Now()
		replacement, resting := ob.Order(req.ID)
		remaining := domain.Quantity(0)
		if resting {
			remaining = replacement.RemainingQuantity()
		}

		var rec domain.OrderRecord
		rec, err = s.orderStore.Update(req.Symbol, req.ID, func(r *domain.OrderRecord) {
			r.Side = req.Side
			r.Price = req.Price
			r.Quantity = req.Quantity
			r.RemainingQuantity = remaining
			switch {
			case !resting:
				r.Status = domain.OrderStatusFilled
			case remaining < req.Quantity:
				r.Status = domain.OrderStatusPartiallyFilled
			default:
				r.Status = domain.OrderStatusOpen
			}
			r.UpdatedAt = now
		})
		if err != nil {
			return
		}

		result = &OrderResult{
			Order:      rec,
			Trades:     trades,
			Executions: s.recordTrades(req.Symbol, req.ID, req.Quantity, trades, now),
		}
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("order modified",
		slog.String("symbol", req.Symbol),
		slog.String("order_id", string(req.ID)),
		slog.Int64("price", int64(req.Price)),
		slog.Int64("quantity", int64(req.Quantity)),
		slog.Int("trades", len(result.Trades)),
	)
	return result, nil
}

// finalStatus derives the status of a just-submitted order from where
// matching left it.
func finalStatus(o *domain.Order, resting bool) domain.OrderStatus {
	switch {
	case o.IsFilled():
		return domain.OrderStatusFilled
	case !resting:
		// Fill-and-kill remainder.
		return domain.OrderStatusCancelled
	case o.FilledQuantity() > 0:
		return domain.OrderStatusPartiallyFilled
	default:
		return domain.OrderStatusOpen
	}
}

// recordTrades turns the trades of one operation into executions, brings
// the resting counterparties' records up to date and appends the
// executions to the symbol's history. incoming is the order whose arrival
// caused the trades; the other side of each trade is the resting order
// and sets the execution price.
func (s *OrderService) recordTrades(
	symbol string,
	incoming domain.OrderID,
	quantity domain.Quantity,
	trades domain.Trades,
	now time.Time,
) []domain.Execution {
	execs := make([]domain.Execution, 0, len(trades))
	before := quantity

	for _, tr := range trades {
		taker, maker := tr.Bid, tr.Ask
		if tr.Ask.OrderID == incoming {
			taker, maker = tr.Ask, tr.Bid
		}

		filled := before - taker.Quantity
		before = taker.Quantity

		if _, err := s.orderStore.Update(symbol, maker.OrderID, func(r *domain.OrderRecord) {
			r.ApplyFill(maker.Quantity, now)
		}); err != nil {
			s.logger.Warn("trade against unrecorded order",
				slog.String("symbol", symbol),
				slog.String("order_id", string(maker.OrderID)),
			)
		}

		exec := domain.Execution{
			ID:         uuid.NewString(),
			Symbol:     symbol,
			Trade:      tr,
			Price:      maker.Price,
			Quantity:   filled,
			ExecutedAt: now,
		}
		execs = append(execs, exec)

		s.logger.Debug("trade executed",
			slog.String("symbol", symbol),
			slog.String("trade_id", exec.ID),
			slog.String("bid_order_id", string(tr.Bid.OrderID)),
			slog.String("ask_order_id", string(tr.Ask.OrderID)),
			slog.Int64("price", int64(exec.Price)),
			slog.Int64("quantity", int64(exec.Quantity)),
		)
	}

	s.tradeStore.Append(symbol, execs...)
	return execs
}

// GetOrder returns the newest record for an order id.
func (s *OrderService) GetOrder(symbol string, id domain.OrderID) (domain.OrderRecord, error) {
	return s.orderStore.Get(symbol, id)
}

// ListOrders returns a paginated list of a symbol's orders, newest first,
// with optional status filtering.
func (s *OrderService) ListOrders(symbol string, status *domain.OrderStatus, page, limit int) ([]domain.OrderRecord, int, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, 0, err
	}

	// Validate status if provided.
	if status != nil && !status.Valid() {
		return nil, 0, &domain.ValidationError{
			Message: fmt.Sprintf("Invalid status filter: '%s'. Must be one of: open, partially_filled, filled, cancelled", *status),
		}
	}

	// Validate pagination.
	if page < 1 {
		return nil, 0, &domain.ValidationError{
			Message: "page must be >= 1",
		}
	}
	if limit < 1 || limit > 100 {
		return nil, 0, &domain.ValidationError{
			Message: "limit must be between 1 and 100",
		}
	}

	orders, total := s.orderStore.ListBySymbol(symbol, status, page, limit)
	return orders, total, nil
}

// Size returns the number of orders resting on a symbol's book. A symbol
// that never received an order has an empty book.
func (s *OrderService) Size(symbol string) int {
	book, ok := s.books.Get(symbol)
	if !ok {
		return 0
	}
	return book.Size()
}

// Symbols returns every symbol that has a book, sorted.
func (s *OrderService) Symbols() []string {
	return s.books.Symbols()
}
