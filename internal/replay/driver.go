// Package replay drives order books from a stream of JSON-lines commands
// and writes one JSON result line per command.
package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/efreitasn/orderbook/internal/domain"
	"github.com/efreitasn/orderbook/internal/service"
	"github.com/google/uuid"
)

const maxLineBytes = 1 << 20

var errInvalidRequest = errors.New("invalid_request")

// command is one input line. Fields a given op does not use are ignored.
type command struct {
	Op       string  `json:"op"`
	Symbol   string  `json:"symbol"`
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Side     string  `json:"side"`
	Price    string  `json:"price"`
	Quantity int64   `json:"quantity"`
	Depth    *int    `json:"depth"`
	Status   *string `json:"status"`
	Page     int     `json:"page"`
	Limit    int     `json:"limit"`
}

// Options configures a Driver.
type Options struct {
	// PriceScale is the number of decimal places in price strings.
	PriceScale int32
	// DefaultSymbol is used for commands that name no symbol.
	DefaultSymbol string
	// DepthLevels is the book depth for book commands without one; 0 is all.
	DepthLevels int
}

// Stats summarises a run.
type Stats struct {
	Commands int
	Errors   int
	Trades   int
}

// Driver executes commands against the order and market services.
type Driver struct {
	orders        *service.OrderService
	market        *service.MarketService
	logger        *slog.Logger
	scale         int32
	defaultSymbol string
	depth         int
}

// NewDriver creates a Driver with the given dependencies.
func NewDriver(
	orders *service.OrderService,
	market *service.MarketService,
	logger *slog.Logger,
	opts Options,
) *Driver {
	return &Driver{
		orders:        orders,
		market:        market,
		logger:        logger,
		scale:         opts.PriceScale,
		defaultSymbol: opts.DefaultSymbol,
		depth:         opts.DepthLevels,
	}
}

// Run reads commands from r until EOF and writes a result line for each to
// w. A command that fails produces an error line and does not stop the run.
// Run stops early when ctx is cancelled, checking between commands, and
// returns an error only for cancellation or I/O failure.
func (d *Driver) Run(ctx context.Context, r io.Reader, w io.Writer) (Stats, error) {
	var stats Stats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	enc := json.NewEncoder(w)

	d.logger.Info("replay started")

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			d.logger.Info("replay interrupted", slog.Int("line", line), slog.Int("commands", stats.Commands))
			return stats, err
		}

		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		stats.Commands++

		result, trades, err := d.execute(line, raw)
		if err != nil {
			stats.Errors++
		}
		stats.Trades += trades

		if err := enc.Encode(result); err != nil {
			return stats, fmt.Errorf("write result for line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read commands: %w", err)
	}

	d.logger.Info("replay finished",
		slog.Int("commands", stats.Commands),
		slog.Int("errors", stats.Errors),
		slog.Int("trades", stats.Trades),
	)
	return stats, nil
}

// execute decodes and dispatches a single command. It returns the value to
// write, the number of trades the command produced and the command's error,
// if any; on error the value is the error line.
func (d *Driver) execute(line int, raw []byte) (any, int, error) {
	var cmd command
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cmd); err != nil {
		err = fmt.Errorf("%w: line must be a single JSON command object", errInvalidRequest)
		return d.fail(line, "", err), 0, err
	}
	if cmd.Symbol == "" {
		cmd.Symbol = d.defaultSymbol
	}

	result, trades, err := d.dispatch(cmd)
	if err != nil {
		return d.fail(line, cmd.Op, err), 0, err
	}
	return result, trades, nil
}

func (d *Driver) fail(line int, op string, err error) errorResponse {
	resp := mapError(line, op, err)
	if resp.Error == "internal_error" {
		d.logger.Error("command failed",
			slog.Int("line", line),
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
	}
	return resp
}

func (d *Driver) dispatch(cmd command) (any, int, error) {
	switch cmd.Op {
	case "submit":
		return d.submit(cmd)
	case "cancel":
		return d.cancel(cmd)
	case "modify":
		return d.modify(cmd)
	case "order":
		return d.order(cmd)
	case "orders":
		return d.listOrders(cmd)
	case "book":
		return d.book(cmd)
	case "size":
		return sizeResponse{Op: cmd.Op, Symbol: cmd.Symbol, Size: d.orders.Size(cmd.Symbol)}, 0, nil
	case "trades":
		return d.trades(cmd)
	case "price":
		return d.referencePrice(cmd)
	case "quote":
		return d.quote(cmd)
	case "symbols":
		return symbolsResponse{Op: cmd.Op, Symbols: d.orders.Symbols()}, 0, nil
	}
	return nil, 0, fmt.Errorf("%w: %q", domain.ErrUnknownCommand, cmd.Op)
}

func (d *Driver) parsePrice(s string) (domain.Price, error) {
	if s == "" {
		return 0, &domain.ValidationError{Message: "price is required"}
	}
	p, err := domain.ParsePrice(s, d.scale)
	if err != nil {
		return 0, &domain.ValidationError{Message: err.Error()}
	}
	return p, nil
}

func (d *Driver) submit(cmd command) (any, int, error) {
	price, err := d.parsePrice(cmd.Price)
	if err != nil {
		return nil, 0, err
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	orderType := domain.OrderType(cmd.Type)
	if orderType == "" {
		orderType = domain.OrderTypeGoodTillCanceled
	}

	res, err := d.orders.SubmitOrder(service.SubmitOrderRequest{
		Symbol:   cmd.Symbol,
		ID:       domain.OrderID(cmd.ID),
		Type:     orderType,
		Side:     domain.Side(cmd.Side),
		Price:    price,
		Quantity: domain.Quantity(cmd.Quantity),
	})
	if err != nil {
		return nil, 0, err
	}
	return d.buildOrderResult(cmd.Op, res), len(res.Trades), nil
}

func (d *Driver) cancel(cmd command) (any, int, error) {
	if cmd.ID == "" {
		return nil, 0, &domain.ValidationError{Message: "id is required"}
	}
	rec, err := d.orders.CancelOrder(cmd.Symbol, domain.OrderID(cmd.ID))
	if err != nil {
		return nil, 0, err
	}
	return singleOrderResponse{Op: cmd.Op, Order: d.buildOrderResponse(rec)}, 0, nil
}

func (d *Driver) modify(cmd command) (any, int, error) {
	if cmd.ID == "" {
		return nil, 0, &domain.ValidationError{Message: "id is required"}
	}
	price, err := d.parsePrice(cmd.Price)
	if err != nil {
		return nil, 0, err
	}

	res, err := d.orders.ModifyOrder(service.ModifyOrderRequest{
		Symbol:   cmd.Symbol,
		ID:       domain.OrderID(cmd.ID),
		Side:     domain.Side(cmd.Side),
		Price:    price,
		Quantity: domain.Quantity(cmd.Quantity),
	})
	if err != nil {
		return nil, 0, err
	}
	return d.buildOrderResult(cmd.Op, res), len(res.Trades), nil
}

func (d *Driver) order(cmd command) (any, int, error) {
	rec, err := d.orders.GetOrder(cmd.Symbol, domain.OrderID(cmd.ID))
	if err != nil {
		return nil, 0, err
	}
	return singleOrderResponse{Op: cmd.Op, Order: d.buildOrderResponse(rec)}, 0, nil
}

func (d *Driver) listOrders(cmd command) (any, int, error) {
	page, limit := cmd.Page, cmd.Limit
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = 50
	}
	var status *domain.OrderStatus
	if cmd.Status != nil {
		s := domain.OrderStatus(*cmd.Status)
		status = &s
	}

	records, total, err := d.orders.ListOrders(cmd.Symbol, status, page, limit)
	if err != nil {
		return nil, 0, err
	}
	orders := make([]orderResponse, len(records))
	for i, r := range records {
		orders[i] = d.buildOrderResponse(r)
	}
	return ordersResponse{
		Op:     cmd.Op,
		Symbol: cmd.Symbol,
		Orders: orders,
		Total:  total,
		Page:   page,
		Limit:  limit,
	}, 0, nil
}

func (d *Driver) book(cmd command) (any, int, error) {
	depth := d.depth
	if cmd.Depth != nil {
		depth = *cmd.Depth
	}
	view, err := d.market.GetBook(cmd.Symbol, depth)
	if err != nil {
		return nil, 0, err
	}
	return bookResponse{
		Op:         cmd.Op,
		Symbol:     view.Symbol,
		Bids:       d.buildLevels(view.Bids),
		Asks:       d.buildLevels(view.Asks),
		Spread:     d.optionalPrice(view.Spread),
		Size:       view.Size,
		SnapshotAt: formatTime(view.SnapshotAt),
	}, 0, nil
}

func (d *Driver) trades(cmd command) (any, int, error) {
	execs, err := d.market.GetTrades(cmd.Symbol)
	if err != nil {
		return nil, 0, err
	}
	return tradesResponse{
		Op:     cmd.Op,
		Symbol: cmd.Symbol,
		Trades: d.buildTradeResponses(execs),
	}, 0, nil
}

func (d *Driver) referencePrice(cmd command) (any, int, error) {
	summary, err := d.market.GetPrice(cmd.Symbol)
	if err != nil {
		return nil, 0, err
	}
	var lastTradeAt *string
	if summary.LastTradeAt != nil {
		s := formatTime(*summary.LastTradeAt)
		lastTradeAt = &s
	}
	return priceResponse{
		Op:             cmd.Op,
		Symbol:         summary.Symbol,
		CurrentPrice:   d.optionalPrice(summary.CurrentPrice),
		Window:         summary.Window,
		TradesInWindow: summary.TradesInWindow,
		LastTradeAt:    lastTradeAt,
	}, 0, nil
}

func (d *Driver) quote(cmd command) (any, int, error) {
	q, err := d.market.GetQuote(cmd.Symbol, domain.Side(cmd.Side), domain.Quantity(cmd.Quantity))
	if err != nil {
		return nil, 0, err
	}
	var total *string
	if q.EstimatedTotal != nil {
		s := domain.FormatAmount(*q.EstimatedTotal, d.scale)
		total = &s
	}
	return quoteResponse{
		Op:                cmd.Op,
		Symbol:            q.Symbol,
		Side:              string(q.Side),
		QuantityRequested: int64(q.QuantityRequested),
		QuantityAvailable: int64(q.QuantityAvailable),
		FullyFillable:     q.FullyFillable,
		EstimatedAvgPrice: d.optionalPrice(q.EstimatedAvgPrice),
		EstimatedTotal:    total,
		PriceLevels:       d.buildLevels(q.PriceLevels),
		QuotedAt:          formatTime(q.QuotedAt),
	}, 0, nil
}
