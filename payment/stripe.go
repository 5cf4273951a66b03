package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"storefront/model"
)

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	SuccessURL    string
	CancelURL     string
	Timeout       time.Duration
	// BaseURL overrides the API endpoint, used against local fakes.
	BaseURL string
}

type StripeProvider struct {
	api *client.API
	cfg StripeConfig
}

func NewStripeProvider(cfg StripeConfig) *StripeProvider {
	if cfg.Currency == "" {
		cfg.Currency = string(stripe.CurrencyJPY)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	backendCfg := func() *stripe.BackendConfig {
		bc := &stripe.BackendConfig{
			HTTPClient:        httpClient,
			MaxNetworkRetries: stripe.Int64(0),
		}
		if cfg.BaseURL != "" {
			bc.URL = stripe.String(cfg.BaseURL)
		}
		return bc
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg()),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg()),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg()),
	}
	return &StripeProvider{api: client.New(cfg.SecretKey, backends), cfg: cfg}
}

// ConfirmCard creates and confirms a PaymentIntent in one call. A card
// decline is reported as model.ErrPaymentDeclined.
func (p *StripeProvider) ConfirmCard(ctx context.Context, req CardRequest) (CardResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.Amount),
		Currency:           stripe.String(p.cfg.Currency),
		PaymentMethod:      stripe.String(req.PaymentMethodID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
	}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())
	params.AddMetadata("order_id", strconv.FormatInt(req.OrderID, 10))

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.Type == stripe.ErrorTypeCard {
			return CardResult{}, fmt.Errorf("%w: %s", model.ErrPaymentDeclined, se.Code)
		}
		return CardResult{}, fmt.Errorf("stripe payment intent: %w", err)
	}
	return CardResult{
		TransactionID: pi.ID,
		Succeeded:     pi.Status == stripe.PaymentIntentStatusSucceeded,
	}, nil
}

// CreateCheckoutSession opens a hosted checkout page for konbini or bank
// transfer. The order id travels in the session and payment intent metadata.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error) {
	orderID := strconv.FormatInt(req.OrderID, 10)

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(p.cfg.SuccessURL),
		CancelURL:         stripe.String(p.cfg.CancelURL),
		ClientReferenceID: stripe.String(orderID),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{"order_id": orderID},
		},
	}
	for _, it := range req.Items {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(p.cfg.Currency),
				UnitAmount: stripe.Int64(it.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(it.Name),
				},
			},
			Quantity: stripe.Int64(int64(it.Quantity)),
		})
	}

	switch req.Method {
	case model.PaymentMethodKonbini:
		params.PaymentMethodTypes = stripe.StringSlice([]string{"konbini"})
	case model.PaymentMethodBankTransfer:
		params.PaymentMethodTypes = stripe.StringSlice([]string{"customer_balance"})
		params.CustomerCreation = stripe.String("always")
		params.PaymentMethodOptions = &stripe.CheckoutSessionPaymentMethodOptionsParams{
			CustomerBalance: &stripe.CheckoutSessionPaymentMethodOptionsCustomerBalanceParams{
				FundingType: stripe.String("bank_transfer"),
				BankTransfer: &stripe.CheckoutSessionPaymentMethodOptionsCustomerBalanceBankTransferParams{
					Type: stripe.String("jp_bank_transfer"),
				},
			},
		}
	default:
		return Session{}, model.ErrUnsupportedPaymentMethod
	}

	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())
	params.AddMetadata("order_id", orderID)

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("stripe checkout session: %w", err)
	}
	return Session{ID: s.ID, URL: s.URL}, nil
}

func (p *StripeProvider) Refund(ctx context.Context, transactionID string) error {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(transactionID)}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())

	if _, err := p.api.Refunds.New(params); err != nil {
		return fmt.Errorf("stripe refund: %w", err)
	}
	return nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, p.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		switch {
		case errors.Is(err, webhook.ErrNotSigned),
			errors.Is(err, webhook.ErrInvalidHeader),
			errors.Is(err, webhook.ErrNoValidSignature),
			errors.Is(err, webhook.ErrTooOld):
			return Event{}, model.ErrInvalidSignature
		}
		return Event{}, fmt.Errorf("%w: %v", model.ErrInvalidPayload, err)
	}

	out := Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data == nil {
		return out, nil
	}

	switch out.Type {
	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return out, fmt.Errorf("%w: %v", model.ErrInvalidPayload, err)
		}
		out.Kind = EventPaymentSucceeded
		out.TransactionID = pi.ID
		out.OrderID, _ = strconv.ParseInt(pi.Metadata["order_id"], 10, 64)

	case "checkout.session.completed",
		"checkout.session.async_payment_succeeded",
		"checkout.session.async_payment_failed",
		"checkout.session.expired":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
			return out, fmt.Errorf("%w: %v", model.ErrInvalidPayload, err)
		}
		ref := cs.Metadata["order_id"]
		if ref == "" {
			ref = cs.ClientReferenceID
		}
		orderID, err := strconv.ParseInt(ref, 10, 64)
		if err != nil {
			return out, fmt.Errorf("%w: session %s has no order reference", model.ErrInvalidPayload, cs.ID)
		}
		out.OrderID = orderID
		if cs.PaymentIntent != nil {
			out.TransactionID = cs.PaymentIntent.ID
		}

		switch {
		case out.Type == "checkout.session.async_payment_failed",
			out.Type == "checkout.session.expired":
			out.Kind = EventSessionPaymentFailed
		case out.Type == "checkout.session.async_payment_succeeded",
			cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusUnpaid:
			out.Kind = EventSessionCompleted
		default:
			// async methods complete the session before the customer pays
			out.Kind = EventSessionAwaitingPayment
		}
	}
	return out, nil
}
