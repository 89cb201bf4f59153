package domain

import "errors"

// Sentinel errors for the layers around the book. The engine itself never
// returns errors; the replay driver maps these to result codes.
var (
	ErrOrderNotFound  = errors.New("order_not_found")
	ErrOrderRejected  = errors.New("order_rejected")
	ErrUnknownCommand = errors.New("unknown_command")
	ErrSymbolNotFound = errors.New("symbol_not_found")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
