package store

import (
	"sync"

	"github.com/efreitasn/orderbook/internal/domain"
)

// TradeStore is a thread-safe in-memory store for executions,
// keyed by symbol. Executions are append-only and chronological.
type TradeStore struct {
	mu     sync.RWMutex
	trades map[string][]domain.Execution // symbol → executions (chronological)
}

// NewTradeStore creates an empty TradeStore.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		trades: make(map[string][]domain.Execution),
	}
}

// Append adds executions to the symbol's chronological list.
func (s *TradeStore) Append(symbol string, execs ...domain.Execution) {
	if len(execs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades[symbol] = append(s.trades[symbol], execs...)
}

// GetBySymbol returns all executions for a symbol in chronological order.
// Returns an empty slice if no trades exist for the symbol.
func (s *TradeStore) GetBySymbol(symbol string) []domain.Execution {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades := s.trades[symbol]
	if trades == nil {
		return []domain.Execution{}
	}

	// Return a copy to avoid callers mutating the internal slice.
	result := make([]domain.Execution, len(trades))
	copy(result, trades)
	return result
}

// Last returns the most recent execution for a symbol.
func (s *TradeStore) Last(symbol string) (domain.Execution, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades := s.trades[symbol]
	if len(trades) == 0 {
		return domain.Execution{}, false
	}
	return trades[len(trades)-1], true
}
