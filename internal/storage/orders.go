package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/alheure/alheure/internal/models"
	"github.com/google/uuid"
)

// MatchWindow bounds how far back the fallback order matcher looks. Anything
// older than this cannot be correlated to a payment event without a direct
// order reference.
const MatchWindow = 30 * time.Minute

const orderColumns = `id, user_id, user_email, credits, amount, payment_method, status, created_at, validated_at, validated_by, notes`

func scanOrder(row *sql.Row) (models.CreditOrder, error) {
	var order models.CreditOrder
	err := row.Scan(&order.ID, &order.UserID, &order.UserEmail, &order.Credits, &order.Amount,
		&order.PaymentMethod, &order.Status, &order.CreatedAt, &order.ValidatedAt, &order.ValidatedBy, &order.Notes)
	if err != nil {
		return models.CreditOrder{}, err
	}
	return order, nil
}

func CreateCreditOrder(ctx context.Context, order models.CreditOrder) error {

	_, err := DB.ExecContext(ctx, `
		INSERT INTO credit_orders (id, user_id, user_email, credits, amount, payment_method, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`, order.ID, order.UserID, order.UserEmail, order.Credits, order.Amount, order.PaymentMethod, models.OrderPending)

	return err
}

func GetPendingOrderByID(ctx context.Context, orderID uuid.UUID) (models.CreditOrder, error) {

	row := DB.QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM credit_orders WHERE id = $1 AND status = $2;
	`, orderID, models.OrderPending)

	return scanOrder(row)
}

// FindPendingOrderByMatch is the heuristic fallback: most recent pending
// order of the exact amount created within the match window, further
// constrained to the customer email when the event carried one.
func FindPendingOrderByMatch(ctx context.Context, amount int64, customerEmail string) (models.CreditOrder, error) {

	windowStart := time.Now().Add(-MatchWindow)

	var row *sql.Row
	if customerEmail != "" {
		row = DB.QueryRowContext(ctx, `
			SELECT `+orderColumns+` FROM credit_orders
			WHERE status = $1 AND amount = $2 AND created_at >= $3 AND user_email = $4
			ORDER BY created_at DESC LIMIT 1;
		`, models.OrderPending, amount, windowStart, customerEmail)
	} else {
		row = DB.QueryRowContext(ctx, `
			SELECT `+orderColumns+` FROM credit_orders
			WHERE status = $1 AND amount = $2 AND created_at >= $3
			ORDER BY created_at DESC LIMIT 1;
		`, models.OrderPending, amount, windowStart)
	}

	return scanOrder(row)
}

// ValidateOrder performs the single pending->validated transition and the
// ledger grant in one transaction. The status condition on the UPDATE is the
// only concurrency control: when a concurrent delivery already won, zero rows
// are affected and the transaction rolls back before any ledger access, so
// the credits for an order are applied at most once. Returns false when the
// order was no longer pending.
func ValidateOrder(ctx context.Context, order models.CreditOrder, note string, validatedBy uuid.NullUUID) (bool, error) {

	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE credit_orders
		SET status = $1, validated_at = CURRENT_TIMESTAMP, validated_by = $2, notes = $3
		WHERE id = $4 AND status = $5;
	`, models.OrderValidated, validatedBy, note, order.ID, models.OrderPending)
	if err != nil {
		tx.Rollback()
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return false, err
	}
	if affected == 0 {
		tx.Rollback()
		return false, nil
	}

	var currentCredits int
	err = tx.QueryRowContext(ctx, `
		SELECT credits FROM profiles WHERE user_id = $1;
	`, order.UserID).Scan(&currentCredits)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrProfileNotFound
		}
		return false, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE profiles SET credits = $1 WHERE user_id = $2;
	`, currentCredits+order.Credits, order.UserID)
	if err != nil {
		tx.Rollback()
		return false, err
	}

	err = tx.Commit()
	if err != nil {
		return false, err
	}

	return true, nil
}

// RejectOrder is the pending->rejected transition, guarded by the same status
// condition. No ledger effect.
func RejectOrder(ctx context.Context, orderID uuid.UUID, note string, rejectedBy uuid.NullUUID) (bool, error) {

	res, err := DB.ExecContext(ctx, `
		UPDATE credit_orders
		SET status = $1, validated_at = CURRENT_TIMESTAMP, validated_by = $2, notes = $3
		WHERE id = $4 AND status = $5;
	`, models.OrderRejected, rejectedBy, note, orderID, models.OrderPending)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func ListOrders(ctx context.Context) ([]models.CreditOrder, error) {

	rows, err := DB.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM credit_orders ORDER BY created_at DESC;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectOrders(rows)
}

func ListUserOrders(ctx context.Context, userID uuid.UUID) ([]models.CreditOrder, error) {

	rows, err := DB.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM credit_orders WHERE user_id = $1 ORDER BY created_at DESC;
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectOrders(rows)
}

func collectOrders(rows *sql.Rows) ([]models.CreditOrder, error) {
	var orders []models.CreditOrder

	for rows.Next() {
		var order models.CreditOrder
		err := rows.Scan(&order.ID, &order.UserID, &order.UserEmail, &order.Credits, &order.Amount,
			&order.PaymentMethod, &order.Status, &order.CreatedAt, &order.ValidatedAt, &order.ValidatedBy, &order.Notes)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}
