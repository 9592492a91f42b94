package orders

import (
	"fmt"

	"campuscrave/models"

	"github.com/pkg/errors"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrNoSession         = errors.New("no active session")
	ErrOrderNotFound     = errors.New("order not found")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrForbidden         = errors.New("role may not perform this transition")
	ErrTerminalState     = errors.New("order is already closed")
	ErrAlreadyClaimed    = errors.New("order already claimed by another delivery partner")
	ErrOTPMismatch       = errors.New("delivery code does not match")
)

// TransitionError reports a status change the engine refused.
type TransitionError struct {
	OrderID string
	From    models.OrderStatus
	To      models.OrderStatus
	Role    models.Role
	Err     error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order %s: %s -> %s by %s: %v", e.OrderID, e.From, e.To, e.Role, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}
