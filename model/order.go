package model

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// orderFlow is the forward path an order takes. cancelled sits outside it.
var orderFlow = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusPreparing,
	OrderStatusShipped,
	OrderStatusDelivered,
}

var orderLabels = map[OrderStatus]string{
	OrderStatusPending:   "Awaiting payment",
	OrderStatusPaid:      "Paid",
	OrderStatusPreparing: "Preparing shipment",
	OrderStatusShipped:   "Shipped",
	OrderStatusDelivered: "Delivered",
	OrderStatusCancelled: "Cancelled",
}

func (s OrderStatus) Valid() bool {
	_, ok := orderLabels[s]
	return ok
}

// Label is the human readable form of the status.
func (s OrderStatus) Label() string {
	return orderLabels[s]
}

// Cancellable reports whether an order in this status may still be cancelled.
func (s OrderStatus) Cancellable() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusPreparing:
		return true
	}
	return false
}

// Next returns the status that follows s on the forward path.
func (s OrderStatus) Next() (OrderStatus, bool) {
	for i, st := range orderFlow {
		if st == s && i+1 < len(orderFlow) {
			return orderFlow[i+1], true
		}
	}
	return "", false
}

// CanAdvanceTo reports whether next is exactly one step forward from s.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	n, ok := s.Next()
	return ok && n == next
}

// Order is the record of a completed checkout. TotalPrice is fixed at creation.
type Order struct {
	ID              int64       `json:"id"`
	UserID          string      `json:"user_id"`
	Status          OrderStatus `json:"status"`
	ShippingAddress string      `json:"shipping_address"`
	TotalPrice      int64       `json:"total_price"`
	Items           []OrderItem `json:"items"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// OrderItem snapshots the product name and price at purchase time.
type OrderItem struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"order_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       int64  `json:"price"`
}

func (i OrderItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}
