package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"storefront/events"
	"storefront/model"
	"storefront/payment"
)

// HandleWebhook verifies and applies one provider notification. The event id
// is claimed before anything is applied, so concurrent deliveries of one
// event are processed once; a failed event gives its claim back.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (err error) {
	ctx, span := s.startSpan(ctx, "HandleWebhook")
	defer func() { endSpan(span, err) }()

	ev, err := s.payments.ParseWebhook(payload, signature)
	if err != nil {
		s.log.WarnContext(ctx, "webhook rejected", "error", err)
		return err
	}
	span.SetAttributes(attribute.String("event_id", ev.ID), attribute.String("event_type", ev.Type))

	claimed, cerr := s.ledger.Claim(ctx, ev.ID)
	if cerr != nil {
		s.log.WarnContext(ctx, "webhook ledger unavailable", "event_id", ev.ID, "error", cerr)
		claimed = false
	} else if !claimed {
		s.log.InfoContext(ctx, "webhook already processed", "event_id", ev.ID)
		return nil
	}

	var (
		settled model.Payment
		changed bool
	)
	switch ev.Kind {
	case payment.EventPaymentSucceeded:
		settled, changed, err = s.store.CompletePaymentByTransaction(ctx, ev.TransactionID)
	case payment.EventSessionCompleted:
		settled, changed, err = s.store.CompletePaymentForOrder(ctx, ev.OrderID, ev.TransactionID)
	case payment.EventSessionAwaitingPayment:
		err = s.recordIntent(ctx, ev)
	case payment.EventSessionPaymentFailed:
		err = s.failOrderPayment(ctx, ev.OrderID)
	default:
		s.log.DebugContext(ctx, "webhook ignored", "event_id", ev.ID, "event_type", ev.Type)
	}
	if errors.Is(err, model.ErrPaidAfterCancel) {
		s.log.WarnContext(ctx, "payment captured for cancelled order, refunding",
			"order_id", settled.OrderID, "payment_id", settled.ID, "event_id", ev.ID)
		err = s.refundPayment(ctx, settled)
	}
	if err != nil {
		s.log.ErrorContext(ctx, "webhook processing failed", "event_id", ev.ID, "event_type", ev.Type, "error", err)
		if claimed {
			if rerr := s.ledger.Release(ctx, ev.ID); rerr != nil {
				s.log.WarnContext(ctx, "webhook ledger release failed", "event_id", ev.ID, "error", rerr)
			}
		}
		return err
	}

	if changed {
		s.log.InfoContext(ctx, "payment completed", "order_id", settled.OrderID, "payment_id", settled.ID, "event_id", ev.ID)
		s.publish(ctx, events.TypePaymentCompleted, settled.OrderID, "", map[string]any{"amount": settled.Amount, "method": settled.Method})
	}

	return nil
}

// recordIntent stores the payment intent behind a hosted session so the later
// payment_intent.succeeded notification can find the payment.
func (s *Service) recordIntent(ctx context.Context, ev payment.Event) error {
	if ev.TransactionID == "" {
		return nil
	}
	p, err := s.store.GetPayment(ctx, ev.OrderID)
	if err != nil {
		return err
	}
	if p.Status != model.PaymentStatusProcessing {
		return nil
	}
	return s.store.SetPaymentTransaction(ctx, p.ID, ev.TransactionID, p.CheckoutURL)
}

func (s *Service) failOrderPayment(ctx context.Context, orderID int64) error {
	p, err := s.store.GetPayment(ctx, orderID)
	if err != nil {
		return err
	}
	if p.Status != model.PaymentStatusProcessing && p.Status != model.PaymentStatusPending {
		return nil
	}
	s.log.InfoContext(ctx, "hosted payment failed", "order_id", orderID, "payment_id", p.ID)
	return s.store.FailPayment(ctx, p.ID)
}
