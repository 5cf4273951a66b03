// Package payment talks to the external payment provider.
package payment

import (
	"context"

	"storefront/model"
)

// Provider is the subset of the payment provider the service depends on.
type Provider interface {
	ConfirmCard(ctx context.Context, req CardRequest) (CardResult, error)
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error)
	Refund(ctx context.Context, transactionID string) error
	ParseWebhook(payload []byte, signature string) (Event, error)
}

type CardRequest struct {
	OrderID         int64
	Amount          int64
	PaymentMethodID string
}

type CardResult struct {
	TransactionID string
	// Succeeded is false when the provider needs further customer action.
	Succeeded bool
}

type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int
}

type SessionRequest struct {
	OrderID int64
	Method  model.PaymentMethod
	Items   []LineItem
}

type Session struct {
	ID  string
	URL string
}

type EventKind int

const (
	EventIgnored EventKind = iota
	EventPaymentSucceeded
	EventSessionCompleted
	EventSessionAwaitingPayment
	EventSessionPaymentFailed
)

// Event is a verified provider notification reduced to what reconciliation needs.
type Event struct {
	ID            string
	Type          string
	Kind          EventKind
	TransactionID string
	OrderID       int64
}
