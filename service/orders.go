package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"storefront/events"
	"storefront/model"
)

// Checkout turns the user's cart into a pending order.
func (s *Service) Checkout(ctx context.Context, userID, shippingAddress string) (order model.Order, err error) {
	ctx, span := s.startSpan(ctx, "Checkout", attribute.String("user_id", userID))
	defer func() { endSpan(span, err) }()

	if err := requireUser(userID); err != nil {
		return model.Order{}, err
	}
	shippingAddress = strings.TrimSpace(shippingAddress)
	if shippingAddress == "" {
		return model.Order{}, model.Invalid("shipping_address", "shipping address is required")
	}

	order, err = s.store.Checkout(ctx, userID, shippingAddress)
	if err != nil {
		return model.Order{}, err
	}
	span.SetAttributes(attribute.Int64("order_id", order.ID))

	s.log.InfoContext(ctx, "order placed", "order_id", order.ID, "user_id", userID, "total_price", order.TotalPrice)
	s.publish(ctx, events.TypeOrderPlaced, order.ID, userID, map[string]any{
		"total_price": order.TotalPrice,
		"items":       order.Items,
	})
	return order, nil
}

func (s *Service) ListOrders(ctx context.Context, userID string) ([]model.Order, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.store.ListOrders(ctx, userID)
}

// GetOrder hides orders of other users behind not-found.
func (s *Service) GetOrder(ctx context.Context, userID string, orderID int64) (model.Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if o.UserID != userID {
		return model.Order{}, model.NotFound("order", orderID)
	}
	return o, nil
}

// CancelOrder cancels the order and restores its stock. A payment that had
// already settled is refunded afterwards; a failed refund is logged and does
// not undo the cancellation.
func (s *Service) CancelOrder(ctx context.Context, userID string, orderID int64) (order model.Order, err error) {
	ctx, span := s.startSpan(ctx, "CancelOrder", attribute.Int64("order_id", orderID))
	defer func() { endSpan(span, err) }()

	if err := s.store.CancelOrder(ctx, userID, orderID); err != nil {
		return model.Order{}, err
	}
	s.log.InfoContext(ctx, "order cancelled", "order_id", orderID, "user_id", userID)

	s.refundSettledPayment(ctx, orderID)
	s.publish(ctx, events.TypeOrderCancelled, orderID, userID, nil)

	return s.store.GetOrder(ctx, orderID)
}

func (s *Service) refundSettledPayment(ctx context.Context, orderID int64) {
	p, err := s.store.GetPayment(ctx, orderID)
	if errors.Is(err, model.ErrNotFound) {
		return
	}
	if err != nil {
		s.log.ErrorContext(ctx, "load payment for refund failed", "order_id", orderID, "error", err)
		return
	}
	if p.Status != model.PaymentStatusCompleted {
		return
	}

	if err := s.refundPayment(ctx, p); err != nil {
		s.log.ErrorContext(ctx, "refund failed, manual follow-up required",
			"order_id", orderID, "payment_id", p.ID, "transaction_id", p.TransactionID, "error", err)
	}
}

// refundPayment returns a settled payment's money and records it.
func (s *Service) refundPayment(ctx context.Context, p model.Payment) error {
	if err := s.payments.Refund(ctx, p.TransactionID); err != nil {
		return fmt.Errorf("refund payment %d: %w", p.ID, err)
	}
	if err := s.store.MarkPaymentRefunded(ctx, p.ID); err != nil {
		return fmt.Errorf("mark payment %d refunded: %w", p.ID, err)
	}
	s.log.InfoContext(ctx, "payment refunded", "order_id", p.OrderID, "payment_id", p.ID)
	return nil
}

// AdvanceOrderStatus is the admin-only forward progression of an order.
func (s *Service) AdvanceOrderStatus(ctx context.Context, orderID int64, next model.OrderStatus) (model.Order, error) {
	if !next.Valid() {
		return model.Order{}, model.Invalid("status", "unknown order status")
	}
	if err := s.store.AdvanceOrderStatus(ctx, orderID, next); err != nil {
		return model.Order{}, err
	}
	s.log.InfoContext(ctx, "order status advanced", "order_id", orderID, "status", string(next))
	return s.store.GetOrder(ctx, orderID)
}
