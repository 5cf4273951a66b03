package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"storefront/model"
	"storefront/payment"
)

func parsed(ev payment.Event) *fakeProvider {
	return &fakeProvider{
		ParseWebhookFn: func([]byte, string) (payment.Event, error) { return ev, nil },
	}
}

func completed() model.Payment {
	return model.Payment{ID: 3, OrderID: 7, Amount: 2500, Status: model.PaymentStatusCompleted, TransactionID: "pi_1"}
}

func TestHandleWebhookInvalidSignature(t *testing.T) {
	svc, _ := newTestService(&fakeStore{}, &fakeProvider{
		ParseWebhookFn: func([]byte, string) (payment.Event, error) { return payment.Event{}, model.ErrInvalidSignature },
	})

	if err := svc.HandleWebhook(ctx, []byte(`{}`), "bad"); !errors.Is(err, model.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestHandleWebhookPaymentSucceeded(t *testing.T) {
	ledger := &memoryLedger{}
	svc, pub := newTestService(&fakeStore{
		CompletePaymentByTransactionFn: func(_ context.Context, txID string) (model.Payment, bool, error) {
			if txID != "pi_1" {
				t.Fatalf("unexpected transaction %s", txID)
			}
			return completed(), true, nil
		},
	}, parsed(payment.Event{ID: "evt_1", Kind: payment.EventPaymentSucceeded, TransactionID: "pi_1"}), WithLedger(ledger))

	if err := svc.HandleWebhook(ctx, nil, "sig"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.events) != 1 || pub.events[0].OrderID != 7 {
		t.Fatalf("expected payment.completed for order 7, got %v", pub.events)
	}
	if !ledger.seen["evt_1"] {
		t.Fatalf("expected event recorded in ledger")
	}
}

func TestHandleWebhookUnknownTransaction(t *testing.T) {
	ledger := &memoryLedger{}
	svc, pub := newTestService(&fakeStore{
		CompletePaymentByTransactionFn: func(_ context.Context, txID string) (model.Payment, bool, error) {
			return model.Payment{}, false, model.NotFound("payment", txID)
		},
	}, parsed(payment.Event{ID: "evt_2", Kind: payment.EventPaymentSucceeded, TransactionID: "pi_unknown"}), WithLedger(ledger))

	if err := svc.HandleWebhook(ctx, nil, "sig"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(pub.events) != 0 || ledger.seen["evt_2"] {
		t.Fatalf("failed event must not be published or remembered")
	}
}

func TestHandleWebhookDuplicateIsNoop(t *testing.T) {
	calls := 0
	svc, pub := newTestService(&fakeStore{
		CompletePaymentByTransactionFn: func(context.Context, string) (model.Payment, bool, error) {
			calls++
			return completed(), false, nil
		},
	}, parsed(payment.Event{ID: "evt_3", Kind: payment.EventPaymentSucceeded, TransactionID: "pi_1"}))

	if err := svc.HandleWebhook(ctx, nil, "sig"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 || len(pub.events) != 0 {
		t.Fatalf("already settled payment must not publish, got %d calls / %v", calls, pub.types())
	}
}

func TestHandleWebhookLedgerShortCircuits(t *testing.T) {
	ledger := &memoryLedger{seen: map[string]bool{"evt_4": true}}
	svc, _ := newTestService(&fakeStore{
		CompletePaymentByTransactionFn: func(context.Context, string) (model.Payment, bool, error) {
			t.Fatalf("store must not be touched for a replayed event")
			return model.Payment{}, false, nil
		},
	}, parsed(payment.Event{ID: "evt_4", Kind: payment.EventPaymentSucceeded, TransactionID: "pi_1"}), WithLedger(ledger))

	if err := svc.HandleWebhook(ctx, nil, "sig"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHandleWebhookSessionCompleted(t *testing.T) {
	var gotOrder int64
	var gotTx string
	svc, pub := newTestService(&fakeStore{
		CompletePaymentForOrderFn: func(_ context.Context, orderID int64, txID string) (model.Payment, bool, error) {
			gotOrder, gotTx = orderID, txID
			return completed(), true, nil
		},
	}, parsed(payment.Event{ID: "evt_5", Kind: payment.EventSessionCompleted, OrderID: 7, TransactionID: "pi_9"}))

	if err := svc.HandleWebhook(ctx, nil, "sig"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotOrder != 7 || gotTx != "pi_9" || len(pub.events) != 1 {
		t.Fatalf("unexpected completion %d/%s events %v", gotOrder, gotTx, pub.types())
	}
}

func TestHandleWebhookSessionAwaitingPaymentRecordsIntent(t *testing.T) {
	var recorded string
	svc, pub := newTestService(&fakeStore{
		GetPaymentFn: func(_ context.Context, orderID int64) (model.Payment, error) {
			p := processing(model.PaymentMethodKonbini)
			p.TransactionID = "cs_1"
			p.CheckoutURL = "https://checkout.stripe.com/c/pay/cs_1"
			return p, nil
		},
		SetPaymentTransactionFn: func(_ context.Context, _ int64, txID, url string) error {
			recorded = txID
			if url == "" {
				t.Fatalf("checkout url must be preserved")
			}
			return nil
		},
	}, parsed(payment.Event{ID: "evt_6", Kind: payment.EventSessionAwaitingPayment, OrderID: 7, TransactionID: "pi_k"}))

	if err := svc.HandleWebhook(ctx, nil, "sig"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recorded != "pi_k" || len(pub.events) != 0 {
		t.Fatalf("expected intent recorded without events, got %q %v", recorded, pub.types())
	}
}

func TestHandleWebhookSessionPaymentFailed(t *testing.T) {
	var failed int64
	svc, _ := newTestService(&fakeStore{
		GetPaymentFn: func(context.Context, int64) (model.Payment, error) {
			return processing(model.PaymentMethodBankTransfer), nil
		},
		FailPaymentFn: func(_ context.Context, id int64) error { failed = id; return nil },
	}, parsed(payment.Event{ID: "evt_7", Kind: payment.EventSessionPaymentFailed, OrderID: 7}))

	if err := svc.HandleWebhook(ctx, nil, "sig"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if failed != 3 {
		t.Fatalf("expected payment 3 failed, got %d", failed)
	}
}

func TestHandleWebhookIgnoresOtherEvents(t *testing.T) {
	svc, pub := newTestService(&fakeStore{},
		parsed(payment.Event{ID: "evt_8", Type: "customer.created", Kind: payment.EventIgnored}))

	if err := svc.HandleWebhook(ctx, nil, "sig"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("no events expected")
	}
}

func lateCapture() *fakeStore {
	return &fakeStore{
		CompletePaymentForOrderFn: func(context.Context, int64, string) (model.Payment, bool, error) {
			return completed(), false, model.ErrPaidAfterCancel
		},
	}
}

func TestHandleWebhookCaptureAfterCancelRefunds(t *testing.T) {
	st := lateCapture()
	var marked int64
	st.MarkPaymentRefundedFn = func(_ context.Context, id int64) error { marked = id; return nil }
	var refunded string
	ledger := &memoryLedger{}
	svc, pub := newTestService(st, &fakeProvider{
		ParseWebhookFn: func([]byte, string) (payment.Event, error) {
			return payment.Event{ID: "evt_9", Kind: payment.EventSessionCompleted, OrderID: 7, TransactionID: "pi_1"}, nil
		},
		RefundFn: func(_ context.Context, txID string) error { refunded = txID; return nil },
	}, WithLedger(ledger))

	if err := svc.HandleWebhook(ctx, nil, "sig"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refunded != "pi_1" || marked != 3 {
		t.Fatalf("expected refund of pi_1 and payment 3 marked, got %q / %d", refunded, marked)
	}
	if len(pub.events) != 0 {
		t.Fatalf("cancelled order must not publish payment.completed, got %v", pub.types())
	}
	if !ledger.seen["evt_9"] {
		t.Fatalf("refunded event should stay claimed")
	}
}

func TestHandleWebhookCaptureAfterCancelRefundFailureIsRetried(t *testing.T) {
	st := lateCapture()
	st.MarkPaymentRefundedFn = func(context.Context, int64) error {
		t.Fatalf("payment must stay completed when the refund fails")
		return nil
	}
	ledger := &memoryLedger{}
	svc, pub := newTestService(st, &fakeProvider{
		ParseWebhookFn: func([]byte, string) (payment.Event, error) {
			return payment.Event{ID: "evt_10", Kind: payment.EventSessionCompleted, OrderID: 7}, nil
		},
		RefundFn: func(context.Context, string) error { return errors.New("provider down") },
	}, WithLedger(ledger))

	if err := svc.HandleWebhook(ctx, nil, "sig"); err == nil {
		t.Fatalf("expected error so the provider redelivers")
	}
	if len(pub.events) != 0 || ledger.seen["evt_10"] {
		t.Fatalf("failed refund must not publish or keep the claim")
	}
	if len(ledger.released) != 1 || ledger.released[0] != "evt_10" {
		t.Fatalf("expected claim released, got %v", ledger.released)
	}
}

func TestHandleWebhookConcurrentDeliveryProcessedOnce(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	entered := make(chan struct{})
	unblock := make(chan struct{})
	svc, _ := newTestService(&fakeStore{
		CompletePaymentByTransactionFn: func(context.Context, string) (model.Payment, bool, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			close(entered)
			<-unblock
			return completed(), true, nil
		},
	}, parsed(payment.Event{ID: "evt_11", Kind: payment.EventPaymentSucceeded, TransactionID: "pi_1"}), WithLedger(&memoryLedger{}))

	first := make(chan error, 1)
	go func() { first <- svc.HandleWebhook(ctx, nil, "sig") }()
	<-entered

	// the first delivery holds the claim while it is still applying the event
	if err := svc.HandleWebhook(ctx, nil, "sig"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(unblock)
	if err := <-first; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected a single store call, got %d", calls)
	}
}

func TestHandleWebhookLedgerDownStillApplies(t *testing.T) {
	svc, _ := newTestService(&fakeStore{},
		parsed(payment.Event{ID: "evt_12", Type: "customer.created", Kind: payment.EventIgnored}), WithLedger(downLedger{}))

	if err := svc.HandleWebhook(ctx, nil, "sig"); err != nil {
		t.Fatalf("ledger outage must not fail the event, got %v", err)
	}
}
