package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidItem       = errors.New("invalid item ID")
	ErrInvalidTask       = errors.New("invalid task ID")
	ErrInsufficientCoins = errors.New("insufficient coins")
)

// InsufficientCoinsError carries the price and balance for display.
type InsufficientCoinsError struct {
	Required  int64
	Available int64
}

func (e *InsufficientCoinsError) Error() string {
	return fmt.Sprintf("insufficient coins: required %d, available %d", e.Required, e.Available)
}

func (e *InsufficientCoinsError) Is(target error) bool {
	return target == ErrInsufficientCoins
}
