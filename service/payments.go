package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"storefront/events"
	"storefront/model"
	"storefront/payment"
)

type PaymentInput struct {
	Method          model.PaymentMethod `json:"payment_method"`
	PaymentMethodID string              `json:"payment_method_id"`
}

// CreatePayment starts paying an order. Card payments are confirmed inline;
// konbini and bank transfer return a hosted checkout URL and settle by webhook.
func (s *Service) CreatePayment(ctx context.Context, userID string, orderID int64, in PaymentInput) (p model.Payment, err error) {
	ctx, span := s.startSpan(ctx, "CreatePayment",
		attribute.Int64("order_id", orderID),
		attribute.String("payment_method", string(in.Method)))
	defer func() { endSpan(span, err) }()

	if !in.Method.Supported() {
		return model.Payment{}, model.ErrUnsupportedPaymentMethod
	}
	if in.Method == model.PaymentMethodCard && strings.TrimSpace(in.PaymentMethodID) == "" {
		return model.Payment{}, model.Invalid("payment_method_id", "payment_method_id is required for card payments")
	}

	p, err = s.store.CreatePayment(ctx, userID, orderID, in.Method)
	if err != nil {
		return model.Payment{}, err
	}

	if in.Method.Hosted() {
		return s.startHostedPayment(ctx, p)
	}
	return s.chargeCard(ctx, userID, p, in.PaymentMethodID)
}

func (s *Service) chargeCard(ctx context.Context, userID string, p model.Payment, paymentMethodID string) (model.Payment, error) {
	res, err := s.payments.ConfirmCard(ctx, payment.CardRequest{
		OrderID:         p.OrderID,
		Amount:          p.Amount,
		PaymentMethodID: paymentMethodID,
	})
	if err != nil {
		s.failPayment(ctx, p)
		if errors.Is(err, model.ErrPaymentDeclined) {
			s.log.InfoContext(ctx, "card declined", "order_id", p.OrderID, "payment_id", p.ID, "error", err)
			return model.Payment{}, model.ErrPaymentDeclined
		}
		return model.Payment{}, fmt.Errorf("confirm card for order %d: %w", p.OrderID, err)
	}

	if !res.Succeeded {
		// further customer action pending; the webhook settles it
		if err := s.store.SetPaymentTransaction(ctx, p.ID, res.TransactionID, ""); err != nil {
			return model.Payment{}, err
		}
		p.TransactionID = res.TransactionID
		return p, nil
	}

	settled, changed, err := s.store.CompletePaymentForOrder(ctx, p.OrderID, res.TransactionID)
	if errors.Is(err, model.ErrPaidAfterCancel) {
		// the order was cancelled while the card was being confirmed
		if err := s.refundPayment(ctx, settled); err != nil {
			s.log.ErrorContext(ctx, "refund failed, manual follow-up required",
				"order_id", p.OrderID, "payment_id", p.ID, "transaction_id", res.TransactionID, "error", err)
			return model.Payment{}, err
		}
		return model.Payment{}, model.ErrOrderNotPayable
	}
	if err != nil {
		return model.Payment{}, err
	}
	if changed {
		s.log.InfoContext(ctx, "payment completed", "order_id", p.OrderID, "payment_id", p.ID, "transaction_id", res.TransactionID)
		s.publish(ctx, events.TypePaymentCompleted, p.OrderID, userID, map[string]any{"amount": settled.Amount, "method": settled.Method})
	}
	return settled, nil
}

func (s *Service) startHostedPayment(ctx context.Context, p model.Payment) (model.Payment, error) {
	order, err := s.store.GetOrder(ctx, p.OrderID)
	if err != nil {
		s.failPayment(ctx, p)
		return model.Payment{}, err
	}

	req := payment.SessionRequest{OrderID: order.ID, Method: p.Method}
	for _, it := range order.Items {
		req.Items = append(req.Items, payment.LineItem{Name: it.ProductName, UnitAmount: it.Price, Quantity: it.Quantity})
	}

	sess, err := s.payments.CreateCheckoutSession(ctx, req)
	if err != nil {
		s.failPayment(ctx, p)
		return model.Payment{}, fmt.Errorf("checkout session for order %d: %w", p.OrderID, err)
	}
	if err := s.store.SetPaymentTransaction(ctx, p.ID, sess.ID, sess.URL); err != nil {
		return model.Payment{}, err
	}

	p.TransactionID = sess.ID
	p.CheckoutURL = sess.URL
	s.log.InfoContext(ctx, "checkout session created", "order_id", p.OrderID, "payment_id", p.ID, "session_id", sess.ID)
	return p, nil
}

func (s *Service) failPayment(ctx context.Context, p model.Payment) {
	if err := s.store.FailPayment(ctx, p.ID); err != nil {
		s.log.ErrorContext(ctx, "mark payment failed", "payment_id", p.ID, "error", err)
	}
}

func (s *Service) GetPayment(ctx context.Context, userID string, orderID int64) (model.Payment, error) {
	if _, err := s.GetOrder(ctx, userID, orderID); err != nil {
		return model.Payment{}, err
	}
	return s.store.GetPayment(ctx, orderID)
}
