package store

import (
	"sync"

	"github.com/efreitasn/orderbook/internal/domain"
)

type orderKey struct {
	symbol string
	id     domain.OrderID
}

// OrderStore is a thread-safe in-memory store for order records,
// with a primary index by (symbol, order id) and a secondary index by symbol.
//
// An id may be reused once its order has left the book. The primary index
// then points at the newest record while the symbol index keeps both.
type OrderStore struct {
	mu           sync.RWMutex
	orders       map[orderKey]*domain.OrderRecord
	symbolOrders map[string][]*domain.OrderRecord // symbol → records (append-only)
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:       make(map[orderKey]*domain.OrderRecord),
		symbolOrders: make(map[string][]*domain.OrderRecord),
	}
}

// Create adds a record to the store and appends it to the symbol's
// secondary index.
func (s *OrderStore) Create(r domain.OrderRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &r
	s.orders[orderKey{r.Symbol, r.ID}] = rec
	s.symbolOrders[r.Symbol] = append(s.symbolOrders[r.Symbol], rec)
}

// Get retrieves the newest record for an order id. It returns
// domain.ErrOrderNotFound if the order does not exist.
func (s *OrderStore) Get(symbol string, id domain.OrderID) (domain.OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.orders[orderKey{symbol, id}]
	if !ok {
		return domain.OrderRecord{}, domain.ErrOrderNotFound
	}
	return *r, nil
}

// Update applies fn to the newest record for an order id and returns the
// result. It returns domain.ErrOrderNotFound if the order does not exist.
func (s *OrderStore) Update(symbol string, id domain.OrderID, fn func(*domain.OrderRecord)) (domain.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.orders[orderKey{symbol, id}]
	if !ok {
		return domain.OrderRecord{}, domain.ErrOrderNotFound
	}
	fn(r)
	return *r, nil
}

// ListBySymbol returns records for a symbol in reverse chronological order
// (newest first). If status is non-nil, only records matching that status
// are included. Pagination is 1-based. Returns the matching records for the
// requested page and the total count of matching records (before pagination).
func (s *OrderStore) ListBySymbol(symbol string, status *domain.OrderStatus, page, limit int) ([]domain.OrderRecord, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.symbolOrders[symbol]

	// Filter by status if provided, collecting in reverse order.
	filtered := make([]domain.OrderRecord, 0)
	for i := len(all) - 1; i >= 0; i-- {
		if status != nil && all[i].Status != *status {
			continue
		}
		filtered = append(filtered, *all[i])
	}

	total := len(filtered)

	// Apply pagination.
	start := (page - 1) * limit
	if start >= total {
		return []domain.OrderRecord{}, total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return filtered[start:end], total
}
