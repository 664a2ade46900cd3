package economy

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownItem  = errors.New("unknown item")
	ErrAlreadyOwned = errors.New("item already owned")
	ErrLocked       = errors.New("prerequisite not owned")
)

// InsufficientFundsError is returned when a purchase costs more than the balance.
type InsufficientFundsError struct {
	ItemID  string
	Cost    int64
	Balance int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for %s: cost %d, balance %d", e.ItemID, e.Cost, e.Balance)
}
