package replay

import (
	"errors"
	"time"

	"github.com/efreitasn/orderbook/internal/domain"
	"github.com/efreitasn/orderbook/internal/service"
)

const timeFormat = "2006-01-02T15:04:05.000Z"

// errorResponse is the result line written for a command that failed.
type errorResponse struct {
	Line    int    `json:"line"`
	Op      string `json:"op,omitempty"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type orderResponse struct {
	OrderID           string `json:"order_id"`
	Symbol            string `json:"symbol"`
	Type              string `json:"type"`
	Side              string `json:"side"`
	Price             string `json:"price"`
	Quantity          int64  `json:"quantity"`
	FilledQuantity    int64  `json:"filled_quantity"`
	RemainingQuantity int64  `json:"remaining_quantity"`
	Status            string `json:"status"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

// receiptResponse is one side of a trade. RemainingQuantity is what the
// order has left after the fill.
type receiptResponse struct {
	OrderID           string `json:"order_id"`
	Price             string `json:"price"`
	RemainingQuantity int64  `json:"remaining_quantity"`
}

type tradeResponse struct {
	TradeID    string          `json:"trade_id"`
	Price      string          `json:"price"`
	Quantity   int64           `json:"quantity"`
	Bid        receiptResponse `json:"bid"`
	Ask        receiptResponse `json:"ask"`
	ExecutedAt string          `json:"executed_at"`
}

type orderResultResponse struct {
	Op     string          `json:"op"`
	Order  orderResponse   `json:"order"`
	Trades []tradeResponse `json:"trades"`
}

type singleOrderResponse struct {
	Op    string        `json:"op"`
	Order orderResponse `json:"order"`
}

type ordersResponse struct {
	Op     string          `json:"op"`
	Symbol string          `json:"symbol"`
	Orders []orderResponse `json:"orders"`
	Total  int             `json:"total"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}

type levelResponse struct {
	Price    string `json:"price"`
	Quantity int64  `json:"quantity"`
}

type bookResponse struct {
	Op         string          `json:"op"`
	Symbol     string          `json:"symbol"`
	Bids       []levelResponse `json:"bids"`
	Asks       []levelResponse `json:"asks"`
	Spread     *string         `json:"spread"`
	Size       int             `json:"size"`
	SnapshotAt string          `json:"snapshot_at"`
}

type sizeResponse struct {
	Op     string `json:"op"`
	Symbol string `json:"symbol"`
	Size   int    `json:"size"`
}

type tradesResponse struct {
	Op     string          `json:"op"`
	Symbol string          `json:"symbol"`
	Trades []tradeResponse `json:"trades"`
}

type priceResponse struct {
	Op             string  `json:"op"`
	Symbol         string  `json:"symbol"`
	CurrentPrice   *string `json:"current_price"`
	Window         string  `json:"window"`
	TradesInWindow int     `json:"trades_in_window"`
	LastTradeAt    *string `json:"last_trade_at"`
}

type quoteResponse struct {
	Op                string          `json:"op"`
	Symbol            string          `json:"symbol"`
	Side              string          `json:"side"`
	QuantityRequested int64           `json:"quantity_requested"`
	QuantityAvailable int64           `json:"quantity_available"`
	FullyFillable     bool            `json:"fully_fillable"`
	EstimatedAvgPrice *string         `json:"estimated_average_price"`
	EstimatedTotal    *string         `json:"estimated_total"`
	PriceLevels       []levelResponse `json:"price_levels"`
	QuotedAt          string          `json:"quoted_at"`
}

type symbolsResponse struct {
	Op      string   `json:"op"`
	Symbols []string `json:"symbols"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func (d *Driver) price(p domain.Price) string {
	return domain.FormatPrice(p, d.scale)
}

func (d *Driver) optionalPrice(p *domain.Price) *string {
	if p == nil {
		return nil
	}
	s := d.price(*p)
	return &s
}

func (d *Driver) buildOrderResponse(r domain.OrderRecord) orderResponse {
	return orderResponse{
		OrderID:           string(r.ID),
		Symbol:            r.Symbol,
		Type:              string(r.Type),
		Side:              string(r.Side),
		Price:             d.price(r.Price),
		Quantity:          int64(r.Quantity),
		FilledQuantity:    int64(r.FilledQuantity()),
		RemainingQuantity: int64(r.RemainingQuantity),
		Status:            string(r.Status),
		CreatedAt:         formatTime(r.CreatedAt),
		UpdatedAt:         formatTime(r.UpdatedAt),
	}
}

func (d *Driver) buildReceipt(info domain.TradeInfo) receiptResponse {
	return receiptResponse{
		OrderID:           string(info.OrderID),
		Price:             d.price(info.Price),
		RemainingQuantity: int64(info.Quantity),
	}
}

func (d *Driver) buildTradeResponses(execs []domain.Execution) []tradeResponse {
	trades := make([]tradeResponse, len(execs))
	for i, e := range execs {
		trades[i] = tradeResponse{
			TradeID:    e.ID,
			Price:      d.price(e.Price),
			Quantity:   int64(e.Quantity),
			Bid:        d.buildReceipt(e.Trade.Bid),
			Ask:        d.buildReceipt(e.Trade.Ask),
			ExecutedAt: formatTime(e.ExecutedAt),
		}
	}
	return trades
}

func (d *Driver) buildOrderResult(op string, res *service.OrderResult) orderResultResponse {
	return orderResultResponse{
		Op:     op,
		Order:  d.buildOrderResponse(res.Order),
		Trades: d.buildTradeResponses(res.Executions),
	}
}

func (d *Driver) buildLevels(levels []domain.LevelInfo) []levelResponse {
	out := make([]levelResponse, len(levels))
	for i, l := range levels {
		out[i] = levelResponse{Price: d.price(l.Price), Quantity: int64(l.Quantity)}
	}
	return out
}

// mapError maps domain errors to result codes.
func mapError(line int, op string, err error) errorResponse {
	resp := errorResponse{Line: line, Op: op, Message: err.Error()}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		resp.Error = "validation_error"
		resp.Message = validationErr.Message
		return resp
	}

	switch {
	case errors.Is(err, errInvalidRequest):
		resp.Error = "invalid_request"
	case errors.Is(err, domain.ErrUnknownCommand):
		resp.Error = "unknown_command"
	case errors.Is(err, domain.ErrOrderNotFound):
		resp.Error = "order_not_found"
	case errors.Is(err, domain.ErrOrderRejected):
		resp.Error = "order_rejected"
	case errors.Is(err, domain.ErrSymbolNotFound):
		resp.Error = "symbol_not_found"
	default:
		resp.Error = "internal_error"
		resp.Message = "An unexpected error occurred"
	}
	return resp
}
