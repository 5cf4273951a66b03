package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be > 0")

	ErrAlreadyCancelled  = errors.New("order is already cancelled")
	ErrNotCancellable    = errors.New("shipped orders cannot be cancelled")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrOrderNotPayable   = errors.New("order is not awaiting payment")
	ErrProductInUse      = errors.New("product is referenced by existing orders")

	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")
	ErrDuplicatePayment         = errors.New("payment already completed")
	ErrPaymentInProgress        = errors.New("a payment for this order is already in progress")
	ErrPaymentDeclined          = errors.New("payment was declined")
	ErrInvalidSignature         = errors.New("invalid webhook signature")
	ErrInvalidPayload           = errors.New("invalid webhook payload")
)

// ErrPaidAfterCancel is returned once a capture for a cancelled order has been
// recorded. The caller owes the customer a refund.
var ErrPaidAfterCancel = errors.New("payment captured for a cancelled order")

// ValidationError carries a user-facing message for a rejected request.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

// Invalid builds a ValidationError for field.
func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// StockError reports which product could not cover a requested quantity.
type StockError struct {
	ProductID int64
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (available: %d, requested: %d)", e.Name, e.Available, e.Requested)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// NotFound wraps ErrNotFound with the kind and id of the missing row.
func NotFound(kind string, id any) error {
	return fmt.Errorf("%s %v: %w", kind, id, ErrNotFound)
}

// IsValidation reports whether err should be surfaced as a client error with its own message.
func IsValidation(err error) bool {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve),
		errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrAlreadyCancelled),
		errors.Is(err, ErrNotCancellable),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrOrderNotPayable),
		errors.Is(err, ErrUnsupportedPaymentMethod):
		return true
	}
	return false
}
