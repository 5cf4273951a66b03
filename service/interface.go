package service

import (
	"context"

	"storefront/model"
)

type ServiceInterface interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id int64) (model.Category, error)
	CreateCategory(ctx context.Context, in CategoryInput) (model.Category, error)
	UpdateCategory(ctx context.Context, id int64, in CategoryInput) (model.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	ListCategoryProducts(ctx context.Context, id int64) ([]model.Product, error)

	ListProducts(ctx context.Context, f model.ProductFilter) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (model.Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (model.Product, error)
	UpdateProduct(ctx context.Context, id int64, in ProductInput) (model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	UpdateStock(ctx context.Context, productID int64, stock int) (model.Product, error)

	GetCart(ctx context.Context, userID string) (model.Cart, error)
	AddToCart(ctx context.Context, userID string, productID int64, qty int) (model.Cart, error)
	RemoveFromCart(ctx context.Context, userID string, productID int64) (model.Cart, error)
	UpdateCartQuantity(ctx context.Context, userID string, productID int64, qty int) (model.Cart, error)

	Checkout(ctx context.Context, userID, shippingAddress string) (model.Order, error)
	ListOrders(ctx context.Context, userID string) ([]model.Order, error)
	GetOrder(ctx context.Context, userID string, orderID int64) (model.Order, error)
	CancelOrder(ctx context.Context, userID string, orderID int64) (model.Order, error)
	AdvanceOrderStatus(ctx context.Context, orderID int64, next model.OrderStatus) (model.Order, error)

	CreatePayment(ctx context.Context, userID string, orderID int64, in PaymentInput) (model.Payment, error)
	GetPayment(ctx context.Context, userID string, orderID int64) (model.Payment, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error

	Ping(ctx context.Context) error
}

var _ ServiceInterface = (*Service)(nil)
