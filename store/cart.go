package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/model"
)

const upsertCart = `INSERT INTO carts (user_id) VALUES ($1) ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id RETURNING id, created_at`

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func ensureCart(ctx context.Context, q queryer, userID string) (model.Cart, error) {
	c := model.Cart{UserID: userID, Items: []model.CartItem{}}
	if err := q.QueryRowContext(ctx, upsertCart, userID).Scan(&c.ID, &c.CreatedAt); err != nil {
		return c, fmt.Errorf("ensure cart: %w", err)
	}
	return c, nil
}

// GetOrCreateCart returns the user's cart with its items, creating an empty
// cart on first access.
func (s *PostgresStore) GetOrCreateCart(ctx context.Context, userID string) (model.Cart, error) {
	c, err := ensureCart(ctx, s.DB, userID)
	if err != nil {
		return c, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT ci.id, ci.quantity, p.id, p.name, p.description, p.price, p.stock, p.image_path, p.category_id, p.created_at, p.updated_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id`, c.ID)
	if err != nil {
		return c, fmt.Errorf("load cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it         model.CartItem
			categoryID sql.NullInt64
		)
		p := &it.Product
		if err := rows.Scan(&it.ID, &it.Quantity, &p.ID, &p.Name, &p.Description, &p.Price, &p.Stock,
			&p.ImagePath, &categoryID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return c, err
		}
		if categoryID.Valid {
			id := categoryID.Int64
			p.CategoryID = &id
		}
		c.Items = append(c.Items, it)
	}
	return c, rows.Err()
}

// AddCartItem adds qty units of a product, incrementing an existing line.
// The resulting line quantity may not exceed the product's stock.
func (s *PostgresStore) AddCartItem(ctx context.Context, userID string, productID int64, qty int) error {
	if qty <= 0 {
		return model.ErrInvalidQuantity
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	c, err := ensureCart(ctx, tx, userID)
	if err != nil {
		return err
	}

	var (
		name  string
		stock int
	)
	err = tx.QueryRowContext(ctx, `SELECT name, stock FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&name, &stock)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFound("product", productID)
	}
	if err != nil {
		return fmt.Errorf("lock product: %w", err)
	}

	var current int
	err = tx.QueryRowContext(ctx, `SELECT quantity FROM cart_items WHERE cart_id = $1 AND product_id = $2`, c.ID, productID).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read cart item: %w", err)
	}

	if current+qty > stock {
		return &model.StockError{ProductID: productID, Name: name, Requested: current + qty, Available: stock}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cart_items (cart_id, product_id, quantity) VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		c.ID, productID, qty); err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}

	return tx.Commit()
}

func (s *PostgresStore) RemoveCartItem(ctx context.Context, userID string, productID int64) error {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM cart_items ci USING carts c WHERE ci.cart_id = c.id AND c.user_id = $1 AND ci.product_id = $2`,
		userID, productID)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFound("cart item", productID)
	}
	return nil
}

// SetCartItemQuantity replaces the quantity of an existing cart line.
func (s *PostgresStore) SetCartItemQuantity(ctx context.Context, userID string, productID int64, qty int) error {
	if qty <= 0 {
		return model.ErrInvalidQuantity
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		itemID int64
		name   string
		stock  int
	)
	err = tx.QueryRowContext(ctx, `
		SELECT ci.id, p.name, p.stock
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		JOIN products p ON p.id = ci.product_id
		WHERE c.user_id = $1 AND ci.product_id = $2
		FOR UPDATE`, userID, productID).Scan(&itemID, &name, &stock)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFound("cart item", productID)
	}
	if err != nil {
		return fmt.Errorf("lock cart item: %w", err)
	}

	if qty > stock {
		return &model.StockError{ProductID: productID, Name: name, Requested: qty, Available: stock}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE cart_items SET quantity = $1 WHERE id = $2`, qty, itemID); err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	return tx.Commit()
}
