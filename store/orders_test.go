package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"storefront/model"
)

var checkoutCols = []string{"product_id", "name", "quantity", "price", "stock"}

const checkoutLock = `SELECT ci.product_id, p.name, ci.quantity, p.price, p.stock FROM cart_items ci`

func TestCheckout_Success(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(q(checkoutLock)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(checkoutCols).
			AddRow(int64(1), "A", 2, int64(1000), 5).
			AddRow(int64(2), "B", 1, int64(500), 1))
	mock.ExpectQuery(q(`INSERT INTO orders (user_id, status, shipping_address, total_price)`)).
		WithArgs("u1", "pending", "1-1 Chiyoda, Tokyo", int64(2500)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), now, now))

	mock.ExpectQuery(q(`INSERT INTO order_items (order_id, product_id, product_name, quantity, price)`)).
		WithArgs(int64(7), int64(1), "A", 2, int64(1000)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(70)))
	mock.ExpectExec(q(`UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2 AND stock >= $1`)).
		WithArgs(2, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery(q(`INSERT INTO order_items`)).
		WithArgs(int64(7), int64(2), "B", 1, int64(500)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(71)))
	mock.ExpectExec(q(`UPDATE products SET stock = stock - $1`)).
		WithArgs(1, int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(q(`DELETE FROM cart_items WHERE cart_id = (SELECT id FROM carts WHERE user_id = $1)`)).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	order, err := s.Checkout(context.Background(), "u1", "1-1 Chiyoda, Tokyo")
	if err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	if order.ID != 7 || order.TotalPrice != 2500 || order.Status != model.OrderStatusPending {
		t.Fatalf("unexpected order: %+v", order)
	}
	if len(order.Items) != 2 || order.Items[0].ID != 70 || order.Items[1].ProductName != "B" {
		t.Fatalf("unexpected items: %+v", order.Items)
	}
}

func TestCheckout_InsufficientStockRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(checkoutLock)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(checkoutCols).
			AddRow(int64(1), "A", 2, int64(1000), 5).
			AddRow(int64(2), "B", 3, int64(500), 1))
	mock.ExpectRollback()

	_, err := s.Checkout(context.Background(), "u1", "Tokyo")
	var se *model.StockError
	if !errors.As(err, &se) {
		t.Fatalf("expected StockError, got %v", err)
	}
	if se.ProductID != 2 || se.Available != 1 || se.Requested != 3 {
		t.Fatalf("unexpected stock error: %+v", se)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(checkoutLock)).WithArgs("u1").WillReturnRows(sqlmock.NewRows(checkoutCols))
	mock.ExpectRollback()

	if _, err := s.Checkout(context.Background(), "u1", "Tokyo"); !errors.Is(err, model.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestCheckout_GuardedDecrementRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(q(checkoutLock)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(checkoutCols).AddRow(int64(1), "A", 2, int64(1000), 5))
	mock.ExpectQuery(q(`INSERT INTO orders`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(8), now, now))
	mock.ExpectQuery(q(`INSERT INTO order_items`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(80)))
	mock.ExpectExec(q(`UPDATE products SET stock = stock - $1`)).
		WithArgs(2, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if _, err := s.Checkout(context.Background(), "u1", "Tokyo"); !errors.Is(err, model.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

var orderCols = []string{"id", "user_id", "status", "shipping_address", "total_price", "created_at", "updated_at"}

func TestGetOrder_WithItems(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(q(`FROM orders WHERE id = $1`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(int64(7), "u1", "paid", "Tokyo", int64(2500), now, now))
	mock.ExpectQuery(q(`FROM order_items WHERE order_id = ANY($1)`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "product_name", "quantity", "price"}).
			AddRow(int64(70), int64(7), int64(1), "A", 2, int64(1000)).
			AddRow(int64(71), int64(7), int64(2), "B", 1, int64(500)))

	o, err := s.GetOrder(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if o.Status != model.OrderStatusPaid || len(o.Items) != 2 || o.Items[0].Subtotal() != 2000 {
		t.Fatalf("unexpected order: %+v", o)
	}
}

func TestListOrders_EmptySkipsItems(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(q(`FROM orders WHERE user_id = $1 ORDER BY created_at DESC`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(orderCols))

	got, err := s.ListOrders(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty list, got %+v", got)
	}
}

func TestCancelOrder_RestoresStock(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(`SELECT status FROM orders WHERE id = $1 AND user_id = $2 FOR UPDATE`)).
		WithArgs(int64(7), "u1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("paid"))
	mock.ExpectQuery(q(`SELECT product_id, quantity FROM order_items WHERE order_id = $1`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity"}).
			AddRow(int64(1), 2).
			AddRow(int64(2), 1))
	mock.ExpectExec(q(`UPDATE products SET stock = stock + $1`)).WithArgs(2, int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(`UPDATE products SET stock = stock + $1`)).WithArgs(1, int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(`UPDATE orders SET status = $1`)).WithArgs("cancelled", int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(`UPDATE payments SET status = $1, updated_at = NOW() WHERE order_id = $2 AND status IN ('pending', 'processing')`)).
		WithArgs("cancelled", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := s.CancelOrder(context.Background(), "u1", 7); err != nil {
		t.Fatalf("CancelOrder failed: %v", err)
	}
}

func TestCancelOrder_RejectedStatesChangeNothing(t *testing.T) {
	cases := []struct {
		status string
		want   error
	}{
		{"shipped", model.ErrNotCancellable},
		{"delivered", model.ErrNotCancellable},
		{"cancelled", model.ErrAlreadyCancelled},
	}
	for _, c := range cases {
		t.Run(c.status, func(t *testing.T) {
			s, mock := newMockStore(t)
			mock.ExpectBegin()
			mock.ExpectQuery(q(`SELECT status FROM orders`)).
				WithArgs(int64(7), "u1").
				WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(c.status))
			mock.ExpectRollback()

			if err := s.CancelOrder(context.Background(), "u1", 7); !errors.Is(err, c.want) {
				t.Fatalf("expected %v, got %v", c.want, err)
			}
		})
	}
}

func TestCancelOrder_OtherUsersOrder(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(`SELECT status FROM orders`)).
		WithArgs(int64(7), "intruder").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	if err := s.CancelOrder(context.Background(), "intruder", 7); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAdvanceOrderStatus(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(`SELECT status FROM orders WHERE id = $1 FOR UPDATE`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("paid"))
	mock.ExpectRollback()
	if err := s.AdvanceOrderStatus(context.Background(), 7, model.OrderStatusShipped); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(q(`SELECT status FROM orders WHERE id = $1 FOR UPDATE`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("paid"))
	mock.ExpectExec(q(`UPDATE orders SET status = $1`)).
		WithArgs("preparing", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	if err := s.AdvanceOrderStatus(context.Background(), 7, model.OrderStatusPreparing); err != nil {
		t.Fatalf("AdvanceOrderStatus failed: %v", err)
	}
}
