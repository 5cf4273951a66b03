// Package events publishes domain events after the database commit.
package events

import (
	"context"
	"time"
)

const (
	TypeOrderPlaced      = "order.placed"
	TypeOrderCancelled   = "order.cancelled"
	TypePaymentCompleted = "payment.completed"
)

// Event is the JSON envelope written to the bus.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OrderID    int64     `json:"order_id"`
	UserID     string    `json:"user_id,omitempty"`
	Payload    any       `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher defines an interface for publishing events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                        { return nil }
