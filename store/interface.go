package store

import (
	"context"

	"storefront/model"
)

// Store is the persistence boundary used by the service layer.
type Store interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id int64) (model.Category, error)
	CreateCategory(ctx context.Context, c *model.Category) error
	UpdateCategory(ctx context.Context, c *model.Category) error
	DeleteCategory(ctx context.Context, id int64) error

	ListProducts(ctx context.Context, f model.ProductFilter) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (model.Product, error)
	CreateProduct(ctx context.Context, p *model.Product) error
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	UpdateStock(ctx context.Context, productID int64, stock int) error

	GetOrCreateCart(ctx context.Context, userID string) (model.Cart, error)
	AddCartItem(ctx context.Context, userID string, productID int64, qty int) error
	RemoveCartItem(ctx context.Context, userID string, productID int64) error
	SetCartItemQuantity(ctx context.Context, userID string, productID int64, qty int) error

	Checkout(ctx context.Context, userID, shippingAddress string) (model.Order, error)
	GetOrder(ctx context.Context, orderID int64) (model.Order, error)
	ListOrders(ctx context.Context, userID string) ([]model.Order, error)
	CancelOrder(ctx context.Context, userID string, orderID int64) error
	AdvanceOrderStatus(ctx context.Context, orderID int64, next model.OrderStatus) error

	CreatePayment(ctx context.Context, userID string, orderID int64, method model.PaymentMethod) (model.Payment, error)
	GetPayment(ctx context.Context, orderID int64) (model.Payment, error)
	SetPaymentTransaction(ctx context.Context, paymentID int64, transactionID, checkoutURL string) error
	FailPayment(ctx context.Context, paymentID int64) error
	MarkPaymentRefunded(ctx context.Context, paymentID int64) error
	CompletePaymentForOrder(ctx context.Context, orderID int64, transactionID string) (model.Payment, bool, error)
	CompletePaymentByTransaction(ctx context.Context, transactionID string) (model.Payment, bool, error)

	Ping(ctx context.Context) error
	Close() error
}
