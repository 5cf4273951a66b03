package model

import "time"

type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodKonbini      PaymentMethod = "konbini"
)

// Supported reports whether the provider integration handles this method.
func (m PaymentMethod) Supported() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodKonbini:
		return true
	}
	return false
}

// Hosted reports whether the method is settled through a provider-hosted checkout page.
func (m PaymentMethod) Hosted() bool {
	return m == PaymentMethodBankTransfer || m == PaymentMethodKonbini
}

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
)

// Payment tracks the provider transaction for exactly one order.
type Payment struct {
	ID            int64         `json:"id"`
	OrderID       int64         `json:"order_id"`
	Amount        int64         `json:"amount"`
	Method        PaymentMethod `json:"payment_method"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id,omitempty"`
	CheckoutURL   string        `json:"checkout_url,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
