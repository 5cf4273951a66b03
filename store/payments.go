package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/model"
)

const paymentColumns = `id, order_id, amount, payment_method, status, transaction_id, checkout_url, created_at, updated_at`

func scanPayment(row scanner) (model.Payment, error) {
	var p model.Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.Status, &p.TransactionID, &p.CheckoutURL, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CreatePayment opens the order's payment in processing state. A failed or
// cancelled earlier attempt is reused so an order never has more than one
// payment row; an attempt still in flight is never overwritten.
func (s *PostgresStore) CreatePayment(ctx context.Context, userID string, orderID int64, method model.PaymentMethod) (model.Payment, error) {
	var p model.Payment

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return p, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		status model.OrderStatus
		total  int64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT status, total_price FROM orders WHERE id = $1 AND user_id = $2 FOR UPDATE`, orderID, userID,
	).Scan(&status, &total)
	if errors.Is(err, sql.ErrNoRows) {
		return p, model.NotFound("order", orderID)
	}
	if err != nil {
		return p, fmt.Errorf("lock order: %w", err)
	}

	p, err = scanPayment(tx.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 FOR UPDATE`, orderID))
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("lock payment: %w", err)
	}
	if exists && p.Status == model.PaymentStatusCompleted {
		return p, model.ErrDuplicatePayment
	}
	if status != model.OrderStatusPending {
		return p, model.ErrOrderNotPayable
	}
	if exists && p.Status != model.PaymentStatusFailed && p.Status != model.PaymentStatusCancelled {
		// an open checkout session or a card awaiting 3-D Secure can still capture
		return p, model.ErrPaymentInProgress
	}

	p.OrderID = orderID
	p.Amount = total
	p.Method = method
	p.Status = model.PaymentStatusProcessing
	p.TransactionID = ""
	p.CheckoutURL = ""

	if exists {
		err = tx.QueryRowContext(ctx,
			`UPDATE payments SET amount = $1, payment_method = $2, status = $3, transaction_id = '', checkout_url = '', updated_at = NOW() WHERE id = $4 RETURNING updated_at`,
			total, string(method), string(p.Status), p.ID,
		).Scan(&p.UpdatedAt)
	} else {
		err = tx.QueryRowContext(ctx,
			`INSERT INTO payments (order_id, amount, payment_method, status) VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`,
			orderID, total, string(method), string(p.Status),
		).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	}
	if err != nil {
		if pqCode(err) == pqUniqueViolation {
			return p, model.ErrPaymentInProgress
		}
		return p, fmt.Errorf("write payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return p, err
	}
	return p, nil
}

func (s *PostgresStore) GetPayment(ctx context.Context, orderID int64) (model.Payment, error) {
	p, err := scanPayment(s.DB.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return p, model.NotFound("payment for order", orderID)
	}
	return p, err
}

// SetPaymentTransaction records the provider object backing a payment.
func (s *PostgresStore) SetPaymentTransaction(ctx context.Context, paymentID int64, transactionID, checkoutURL string) error {
	return s.execPayment(ctx, paymentID,
		`UPDATE payments SET transaction_id = $1, checkout_url = $2, updated_at = NOW() WHERE id = $3`,
		transactionID, checkoutURL, paymentID)
}

func (s *PostgresStore) FailPayment(ctx context.Context, paymentID int64) error {
	return s.execPayment(ctx, paymentID,
		`UPDATE payments SET status = $1, updated_at = NOW() WHERE id = $2 AND status <> 'completed'`,
		string(model.PaymentStatusFailed), paymentID)
}

func (s *PostgresStore) MarkPaymentRefunded(ctx context.Context, paymentID int64) error {
	return s.execPayment(ctx, paymentID,
		`UPDATE payments SET status = $1, updated_at = NOW() WHERE id = $2 AND status = 'completed'`,
		string(model.PaymentStatusRefunded), paymentID)
}

func (s *PostgresStore) execPayment(ctx context.Context, paymentID int64, q string, args ...any) error {
	res, err := s.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update payment %d: %w", paymentID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFound("payment", paymentID)
	}
	return nil
}

// CompletePaymentForOrder settles the payment of an order, moving a pending
// order to paid. The bool is false when the payment had already settled.
// A capture for a cancelled order is recorded and reported as
// model.ErrPaidAfterCancel, also on every redelivery until it is refunded.
func (s *PostgresStore) CompletePaymentForOrder(ctx context.Context, orderID int64, transactionID string) (model.Payment, bool, error) {
	return s.completePayment(ctx, orderID, transactionID, "")
}

// CompletePaymentByTransaction is CompletePaymentForOrder keyed by the
// provider transaction id. An unknown id yields model.ErrNotFound.
func (s *PostgresStore) CompletePaymentByTransaction(ctx context.Context, transactionID string) (model.Payment, bool, error) {
	var orderID int64
	err := s.DB.QueryRowContext(ctx, `SELECT order_id FROM payments WHERE transaction_id = $1`, transactionID).Scan(&orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Payment{}, false, model.NotFound("payment", transactionID)
	}
	if err != nil {
		return model.Payment{}, false, fmt.Errorf("find payment: %w", err)
	}
	return s.completePayment(ctx, orderID, "", transactionID)
}

// completePayment locks the order before its payment, the same order
// CancelOrder takes them in. A non-empty want must still be the payment's
// transaction id once the row is locked.
func (s *PostgresStore) completePayment(ctx context.Context, orderID int64, transactionID, want string) (model.Payment, bool, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Payment{}, false, err
	}
	defer func() { _ = tx.Rollback() }()

	var status model.OrderStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Payment{}, false, model.NotFound("order", orderID)
	}
	if err != nil {
		return model.Payment{}, false, fmt.Errorf("lock order: %w", err)
	}

	p, err := scanPayment(tx.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 FOR UPDATE`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return p, false, model.NotFound("payment for order", orderID)
	}
	if err != nil {
		return p, false, fmt.Errorf("lock payment: %w", err)
	}
	if want != "" && p.TransactionID != want {
		return p, false, model.NotFound("payment", want)
	}

	switch p.Status {
	case model.PaymentStatusRefunded:
		return p, false, nil
	case model.PaymentStatusCompleted:
		if status == model.OrderStatusCancelled {
			return p, false, model.ErrPaidAfterCancel
		}
		return p, false, nil
	}

	if err := tx.QueryRowContext(ctx,
		`UPDATE payments SET status = $1, transaction_id = COALESCE(NULLIF($2, ''), transaction_id), updated_at = NOW() WHERE id = $3 RETURNING transaction_id, updated_at`,
		string(model.PaymentStatusCompleted), transactionID, p.ID,
	).Scan(&p.TransactionID, &p.UpdatedAt); err != nil {
		return p, false, fmt.Errorf("complete payment: %w", err)
	}
	p.Status = model.PaymentStatusCompleted

	if status == model.OrderStatusPending {
		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
			string(model.OrderStatusPaid), orderID, string(model.OrderStatusPending)); err != nil {
			return p, false, fmt.Errorf("mark order paid: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return p, false, err
	}
	if status == model.OrderStatusCancelled {
		return p, false, model.ErrPaidAfterCancel
	}
	return p, true, nil
}
