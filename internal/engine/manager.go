package engine

import (
	"sort"
	"sync"

	"github.com/efreitasn/orderbook/internal/domain"
)

// SafeBook guards one OrderBook with a single mutex held for the whole of
// every operation, so matching never observes a half-applied mutation.
type SafeBook struct {
	symbol string
	mu     sync.Mutex
	book   *OrderBook
}

// NewSafeBook creates an empty guarded book for symbol.
func NewSafeBook(symbol string) *SafeBook {
	return &SafeBook{symbol: symbol, book: NewOrderBook()}
}

// Symbol returns the symbol the book trades.
func (sb *SafeBook) Symbol() string {
	return sb.symbol
}

func (sb *SafeBook) Depth(n int) domain.BookSnapshot {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.book.Depth(n)
}

func (sb *SafeBook) Size() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.book.Size()
}

// Do runs fn with exclusive access to the underlying book. fn must not
// retain the book after returning.
func (sb *SafeBook) Do(fn func(*OrderBook)) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	fn(sb.book)
}

// BookManager is a thread-safe map of symbol → SafeBook.
type BookManager struct {
	mu    sync.RWMutex
	books map[string]*SafeBook
}

// NewBookManager creates a new BookManager.
func NewBookManager() *BookManager {
	return &BookManager{
		books: make(map[string]*SafeBook),
	}
}

// GetOrCreate returns the book for the given symbol, creating one if it
// doesn't already exist.
func (bm *BookManager) GetOrCreate(symbol string) *SafeBook {
	bm.mu.RLock()
	book, ok := bm.books[symbol]
	bm.mu.RUnlock()
	if ok {
		return book
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()
	// Double-check after acquiring write lock.
	if book, ok = bm.books[symbol]; ok {
		return book
	}
	book = NewSafeBook(symbol)
	bm.books[symbol] = book
	return book
}

// Get returns the book for symbol if one has been created.
func (bm *BookManager) Get(symbol string) (*SafeBook, bool) {
	bm.mu.RLock()
	defer bm.mu.RUnlock()
	book, ok := bm.books[symbol]
	return book, ok
}

// Symbols returns every symbol with a book, sorted.
func (bm *BookManager) Symbols() []string {
	bm.mu.RLock()
	defer bm.mu.RUnlock()

	symbols := make([]string, 0, len(bm.books))
	for s := range bm.books {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}
