package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront/model"
)

const categoryColumns = `id, name, description, created_at, updated_at`

func scanCategory(row scanner) (model.Category, error) {
	var c model.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetCategory(ctx context.Context, id int64) (model.Category, error) {
	c, err := scanCategory(s.DB.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, model.NotFound("category", id)
	}
	return c, err
}

func (s *PostgresStore) CreateCategory(ctx context.Context, c *model.Category) error {
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO categories (name, description) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
		c.Name, c.Description,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return categoryWriteErr(err)
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, c *model.Category) error {
	err := s.DB.QueryRowContext(ctx,
		`UPDATE categories SET name = $1, description = $2, updated_at = NOW() WHERE id = $3 RETURNING created_at, updated_at`,
		c.Name, c.Description, c.ID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFound("category", c.ID)
	}
	return categoryWriteErr(err)
}

func (s *PostgresStore) DeleteCategory(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFound("category", id)
	}
	return nil
}

func categoryWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if pqCode(err) == pqUniqueViolation {
		return model.Invalid("name", "a category with this name already exists")
	}
	return fmt.Errorf("write category: %w", err)
}

const productSelect = `SELECT p.id, p.name, p.description, p.price, p.stock, p.image_path, p.category_id, p.created_at, p.updated_at, c.name
	FROM products p LEFT JOIN categories c ON c.id = p.category_id`

func scanProduct(row scanner) (model.Product, error) {
	var (
		p            model.Product
		categoryID   sql.NullInt64
		categoryName sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImagePath,
		&categoryID, &p.CreatedAt, &p.UpdatedAt, &categoryName)
	if err != nil {
		return p, err
	}
	if categoryID.Valid {
		id := categoryID.Int64
		p.CategoryID = &id
		p.Category = &model.Category{ID: id, Name: categoryName.String}
	}
	return p, nil
}

// ListProducts returns products matching f, newest first.
func (s *PostgresStore) ListProducts(ctx context.Context, f model.ProductFilter) ([]model.Product, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.CategoryID != nil {
		add("p.category_id = $%d", *f.CategoryID)
	}
	if f.InStock {
		where = append(where, "p.stock > 0")
	}
	if f.MinPrice != nil {
		add("p.price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("p.price <= $%d", *f.MaxPrice)
	}

	q := productSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY p.created_at DESC, p.id DESC"

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetProduct(ctx context.Context, id int64) (model.Product, error) {
	p, err := scanProduct(s.DB.QueryRowContext(ctx, productSelect+` WHERE p.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return p, model.NotFound("product", id)
	}
	return p, err
}

func (s *PostgresStore) CreateProduct(ctx context.Context, p *model.Product) error {
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO products (name, description, price, stock, image_path, category_id) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at, updated_at`,
		p.Name, p.Description, p.Price, p.Stock, p.ImagePath, p.CategoryID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return productWriteErr(err)
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	err := s.DB.QueryRowContext(ctx,
		`UPDATE products SET name = $1, description = $2, price = $3, stock = $4, image_path = $5, category_id = $6, updated_at = NOW() WHERE id = $7 RETURNING created_at, updated_at`,
		p.Name, p.Description, p.Price, p.Stock, p.ImagePath, p.CategoryID, p.ID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFound("product", p.ID)
	}
	return productWriteErr(err)
}

// DeleteProduct refuses to remove a product that order history still points at.
func (s *PostgresStore) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return model.ErrProductInUse
		}
		return fmt.Errorf("delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFound("product", id)
	}
	return nil
}

// UpdateStock sets the absolute stock for a product (admin operation).
func (s *PostgresStore) UpdateStock(ctx context.Context, productID int64, stock int) error {
	if stock < 0 {
		return model.Invalid("stock", "stock cannot be negative")
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE products SET stock = $1, updated_at = NOW() WHERE id = $2`, stock, productID)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFound("product", productID)
	}
	return nil
}

func productWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if pqCode(err) == pqForeignKeyViolation {
		return model.Invalid("category_id", "category does not exist")
	}
	return fmt.Errorf("write product: %w", err)
}
