package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"storefront/events"
	"storefront/model"
	"storefront/payment"
)

// ---- fakeStore implementing store.Store for tests ----
type fakeStore struct {
	ListCategoriesFn func(ctx context.Context) ([]model.Category, error)
	GetCategoryFn    func(ctx context.Context, id int64) (model.Category, error)
	CreateCategoryFn func(ctx context.Context, c *model.Category) error
	UpdateCategoryFn func(ctx context.Context, c *model.Category) error
	DeleteCategoryFn func(ctx context.Context, id int64) error

	ListProductsFn  func(ctx context.Context, f model.ProductFilter) ([]model.Product, error)
	GetProductFn    func(ctx context.Context, id int64) (model.Product, error)
	CreateProductFn func(ctx context.Context, p *model.Product) error
	UpdateProductFn func(ctx context.Context, p *model.Product) error
	DeleteProductFn func(ctx context.Context, id int64) error
	UpdateStockFn   func(ctx context.Context, productID int64, stock int) error

	GetOrCreateCartFn     func(ctx context.Context, userID string) (model.Cart, error)
	AddCartItemFn         func(ctx context.Context, userID string, productID int64, qty int) error
	RemoveCartItemFn      func(ctx context.Context, userID string, productID int64) error
	SetCartItemQuantityFn func(ctx context.Context, userID string, productID int64, qty int) error

	CheckoutFn           func(ctx context.Context, userID, addr string) (model.Order, error)
	GetOrderFn           func(ctx context.Context, orderID int64) (model.Order, error)
	ListOrdersFn         func(ctx context.Context, userID string) ([]model.Order, error)
	CancelOrderFn        func(ctx context.Context, userID string, orderID int64) error
	AdvanceOrderStatusFn func(ctx context.Context, orderID int64, next model.OrderStatus) error

	CreatePaymentFn                func(ctx context.Context, userID string, orderID int64, m model.PaymentMethod) (model.Payment, error)
	GetPaymentFn                   func(ctx context.Context, orderID int64) (model.Payment, error)
	SetPaymentTransactionFn        func(ctx context.Context, paymentID int64, txID, url string) error
	FailPaymentFn                  func(ctx context.Context, paymentID int64) error
	MarkPaymentRefundedFn          func(ctx context.Context, paymentID int64) error
	CompletePaymentForOrderFn      func(ctx context.Context, orderID int64, txID string) (model.Payment, bool, error)
	CompletePaymentByTransactionFn func(ctx context.Context, txID string) (model.Payment, bool, error)
}

func (f *fakeStore) ListCategories(ctx context.Context) ([]model.Category, error) {
	return f.ListCategoriesFn(ctx)
}
func (f *fakeStore) GetCategory(ctx context.Context, id int64) (model.Category, error) {
	return f.GetCategoryFn(ctx, id)
}
func (f *fakeStore) CreateCategory(ctx context.Context, c *model.Category) error {
	return f.CreateCategoryFn(ctx, c)
}
func (f *fakeStore) UpdateCategory(ctx context.Context, c *model.Category) error {
	return f.UpdateCategoryFn(ctx, c)
}
func (f *fakeStore) DeleteCategory(ctx context.Context, id int64) error {
	return f.DeleteCategoryFn(ctx, id)
}
func (f *fakeStore) ListProducts(ctx context.Context, pf model.ProductFilter) ([]model.Product, error) {
	return f.ListProductsFn(ctx, pf)
}
func (f *fakeStore) GetProduct(ctx context.Context, id int64) (model.Product, error) {
	return f.GetProductFn(ctx, id)
}
func (f *fakeStore) CreateProduct(ctx context.Context, p *model.Product) error {
	return f.CreateProductFn(ctx, p)
}
func (f *fakeStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	return f.UpdateProductFn(ctx, p)
}
func (f *fakeStore) DeleteProduct(ctx context.Context, id int64) error {
	return f.DeleteProductFn(ctx, id)
}
func (f *fakeStore) UpdateStock(ctx context.Context, productID int64, stock int) error {
	return f.UpdateStockFn(ctx, productID, stock)
}
func (f *fakeStore) GetOrCreateCart(ctx context.Context, userID string) (model.Cart, error) {
	return f.GetOrCreateCartFn(ctx, userID)
}
func (f *fakeStore) AddCartItem(ctx context.Context, userID string, productID int64, qty int) error {
	return f.AddCartItemFn(ctx, userID, productID, qty)
}
func (f *fakeStore) RemoveCartItem(ctx context.Context, userID string, productID int64) error {
	return f.RemoveCartItemFn(ctx, userID, productID)
}
func (f *fakeStore) SetCartItemQuantity(ctx context.Context, userID string, productID int64, qty int) error {
	return f.SetCartItemQuantityFn(ctx, userID, productID, qty)
}
func (f *fakeStore) Checkout(ctx context.Context, userID, addr string) (model.Order, error) {
	return f.CheckoutFn(ctx, userID, addr)
}
func (f *fakeStore) GetOrder(ctx context.Context, orderID int64) (model.Order, error) {
	return f.GetOrderFn(ctx, orderID)
}
func (f *fakeStore) ListOrders(ctx context.Context, userID string) ([]model.Order, error) {
	return f.ListOrdersFn(ctx, userID)
}
func (f *fakeStore) CancelOrder(ctx context.Context, userID string, orderID int64) error {
	return f.CancelOrderFn(ctx, userID, orderID)
}
func (f *fakeStore) AdvanceOrderStatus(ctx context.Context, orderID int64, next model.OrderStatus) error {
	return f.AdvanceOrderStatusFn(ctx, orderID, next)
}
func (f *fakeStore) CreatePayment(ctx context.Context, userID string, orderID int64, m model.PaymentMethod) (model.Payment, error) {
	return f.CreatePaymentFn(ctx, userID, orderID, m)
}
func (f *fakeStore) GetPayment(ctx context.Context, orderID int64) (model.Payment, error) {
	return f.GetPaymentFn(ctx, orderID)
}
func (f *fakeStore) SetPaymentTransaction(ctx context.Context, paymentID int64, txID, url string) error {
	return f.SetPaymentTransactionFn(ctx, paymentID, txID, url)
}
func (f *fakeStore) FailPayment(ctx context.Context, paymentID int64) error {
	return f.FailPaymentFn(ctx, paymentID)
}
func (f *fakeStore) MarkPaymentRefunded(ctx context.Context, paymentID int64) error {
	return f.MarkPaymentRefundedFn(ctx, paymentID)
}
func (f *fakeStore) CompletePaymentForOrder(ctx context.Context, orderID int64, txID string) (model.Payment, bool, error) {
	return f.CompletePaymentForOrderFn(ctx, orderID, txID)
}
func (f *fakeStore) CompletePaymentByTransaction(ctx context.Context, txID string) (model.Payment, bool, error) {
	return f.CompletePaymentByTransactionFn(ctx, txID)
}
func (f *fakeStore) Ping(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                   { return nil }

// ---- fakeProvider implementing payment.Provider ----
type fakeProvider struct {
	ConfirmCardFn           func(ctx context.Context, req payment.CardRequest) (payment.CardResult, error)
	CreateCheckoutSessionFn func(ctx context.Context, req payment.SessionRequest) (payment.Session, error)
	RefundFn                func(ctx context.Context, txID string) error
	ParseWebhookFn          func(payload []byte, sig string) (payment.Event, error)
}

func (f *fakeProvider) ConfirmCard(ctx context.Context, req payment.CardRequest) (payment.CardResult, error) {
	return f.ConfirmCardFn(ctx, req)
}
func (f *fakeProvider) CreateCheckoutSession(ctx context.Context, req payment.SessionRequest) (payment.Session, error) {
	return f.CreateCheckoutSessionFn(ctx, req)
}
func (f *fakeProvider) Refund(ctx context.Context, txID string) error { return f.RefundFn(ctx, txID) }
func (f *fakeProvider) ParseWebhook(payload []byte, sig string) (payment.Event, error) {
	return f.ParseWebhookFn(payload, sig)
}

type recordingPublisher struct {
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	r.events = append(r.events, ev)
	return nil
}
func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) types() []string {
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type memoryLedger struct {
	mu       sync.Mutex
	seen     map[string]bool
	released []string
}

func (m *memoryLedger) Claim(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[id] {
		return false, nil
	}
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	m.seen[id] = true
	return true, nil
}
func (m *memoryLedger) Release(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, id)
	m.released = append(m.released, id)
	return nil
}
func (m *memoryLedger) Close() error { return nil }

type downLedger struct{}

func (downLedger) Claim(context.Context, string) (bool, error) { return false, errors.New("connection refused") }
func (downLedger) Release(context.Context, string) error       { return errors.New("connection refused") }
func (downLedger) Close() error                                { return nil }

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestService(st *fakeStore, p *fakeProvider, opts ...Option) (*Service, *recordingPublisher) {
	pub := &recordingPublisher{}
	if p == nil {
		p = &fakeProvider{}
	}
	opts = append([]Option{WithPublisher(pub), WithLogger(quietLogger)}, opts...)
	return NewService(st, p, opts...), pub
}
