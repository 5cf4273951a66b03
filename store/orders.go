package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"storefront/model"
)

const orderColumns = `id, user_id, status, shipping_address, total_price, created_at, updated_at`

func scanOrder(row scanner) (model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.ShippingAddress, &o.TotalPrice, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// Checkout converts the user's cart into a pending order. Product rows are
// locked in id order so concurrent checkouts serialize on shared products,
// and either every line is persisted with its stock decrement or nothing is.
func (s *PostgresStore) Checkout(ctx context.Context, userID, shippingAddress string) (model.Order, error) {
	order := model.Order{UserID: userID, Status: model.OrderStatusPending, ShippingAddress: shippingAddress}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return order, err
	}
	defer func() { _ = tx.Rollback() }()

	type line struct {
		item  model.OrderItem
		stock int
	}
	rows, err := tx.QueryContext(ctx, `
		SELECT ci.product_id, p.name, ci.quantity, p.price, p.stock
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		JOIN products p ON p.id = ci.product_id
		WHERE c.user_id = $1
		ORDER BY p.id
		FOR UPDATE OF p`, userID)
	if err != nil {
		return order, fmt.Errorf("lock cart products: %w", err)
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.item.ProductID, &l.item.ProductName, &l.item.Quantity, &l.item.Price, &l.stock); err != nil {
			rows.Close()
			return order, err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return order, err
	}

	if len(lines) == 0 {
		return order, model.ErrEmptyCart
	}
	for _, l := range lines {
		if l.item.Quantity > l.stock {
			return order, &model.StockError{
				ProductID: l.item.ProductID,
				Name:      l.item.ProductName,
				Requested: l.item.Quantity,
				Available: l.stock,
			}
		}
		order.TotalPrice += l.item.Subtotal()
	}

	if err := tx.QueryRowContext(ctx,
		`INSERT INTO orders (user_id, status, shipping_address, total_price) VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`,
		userID, string(model.OrderStatusPending), shippingAddress, order.TotalPrice,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return order, fmt.Errorf("insert order: %w", err)
	}

	for _, l := range lines {
		it := l.item
		it.OrderID = order.ID
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO order_items (order_id, product_id, product_name, quantity, price) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			it.OrderID, it.ProductID, it.ProductName, it.Quantity, it.Price,
		).Scan(&it.ID); err != nil {
			return order, fmt.Errorf("insert order item: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2 AND stock >= $1`,
			it.Quantity, it.ProductID)
		if err != nil {
			return order, fmt.Errorf("decrement stock: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return order, &model.StockError{ProductID: it.ProductID, Name: it.ProductName, Requested: it.Quantity, Available: l.stock}
		}
		order.Items = append(order.Items, it)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = (SELECT id FROM carts WHERE user_id = $1)`, userID); err != nil {
		return order, fmt.Errorf("clear cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return order, err
	}
	return order, nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, orderID int64) (model.Order, error) {
	o, err := scanOrder(s.DB.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return o, model.NotFound("order", orderID)
	}
	if err != nil {
		return o, err
	}
	orders := []model.Order{o}
	if err := s.attachItems(ctx, orders); err != nil {
		return o, err
	}
	return orders[0], nil
}

// ListOrders returns the user's orders newest first, each with its items.
func (s *PostgresStore) ListOrders(ctx context.Context, userID string) ([]model.Order, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	return out, s.attachItems(ctx, out)
}

func (s *PostgresStore) attachItems(ctx context.Context, orders []model.Order) error {
	ids := make([]int64, len(orders))
	idx := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		idx[o.ID] = i
		orders[i].Items = []model.OrderItem{}
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, order_id, product_id, product_name, quantity, price FROM order_items WHERE order_id = ANY($1) ORDER BY id`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price); err != nil {
			return err
		}
		if i, ok := idx[it.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return rows.Err()
}

// CancelOrder cancels one of the user's orders, restoring the stock of every
// line and voiding a payment that has not settled.
func (s *PostgresStore) CancelOrder(ctx context.Context, userID string, orderID int64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var status model.OrderStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1 AND user_id = $2 FOR UPDATE`, orderID, userID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFound("order", orderID)
	}
	if err != nil {
		return fmt.Errorf("lock order: %w", err)
	}
	if status == model.OrderStatusCancelled {
		return model.ErrAlreadyCancelled
	}
	if !status.Cancellable() {
		return model.ErrNotCancellable
	}

	rows, err := tx.QueryContext(ctx, `SELECT product_id, quantity FROM order_items WHERE order_id = $1 ORDER BY product_id`, orderID)
	if err != nil {
		return fmt.Errorf("read order items: %w", err)
	}
	type restock struct {
		productID int64
		qty       int
	}
	var lines []restock
	for rows.Next() {
		var r restock
		if err := rows.Scan(&r.productID, &r.qty); err != nil {
			rows.Close()
			return err
		}
		lines = append(lines, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, r := range lines {
		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = stock + $1, updated_at = NOW() WHERE id = $2`, r.qty, r.productID); err != nil {
			return fmt.Errorf("restore stock: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(model.OrderStatusCancelled), orderID); err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE payments SET status = $1, updated_at = NOW() WHERE order_id = $2 AND status IN ('pending', 'processing')`,
		string(model.PaymentStatusCancelled), orderID); err != nil {
		return fmt.Errorf("void payment: %w", err)
	}

	return tx.Commit()
}

// AdvanceOrderStatus moves an order exactly one step along the forward path.
func (s *PostgresStore) AdvanceOrderStatus(ctx context.Context, orderID int64, next model.OrderStatus) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var status model.OrderStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFound("order", orderID)
	}
	if err != nil {
		return fmt.Errorf("lock order: %w", err)
	}
	if !status.CanAdvanceTo(next) {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, status, next)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`, string(next), orderID); err != nil {
		return fmt.Errorf("advance order: %w", err)
	}
	return tx.Commit()
}
