package payment

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alheure/alheure/internal/logger"
	"github.com/alheure/alheure/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
)

var orderColumns = []string{"id", "user_id", "user_email", "credits", "amount", "payment_method", "status", "created_at", "validated_at", "validated_by", "notes"}

func setupReconcileTest(t *testing.T) sqlmock.Sqlmock {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	storage.DB = db
	logger.Log = zaptest.NewLogger(t)

	return mock
}

func pendingOrderRow(orderID, userID uuid.UUID, email string, credits int, amount int64) *sqlmock.Rows {
	return sqlmock.NewRows(orderColumns).
		AddRow(orderID.String(), userID.String(), email, credits, amount, "mobile_money", "pending", time.Now(), nil, nil, nil)
}

// Scenario A: a success event carrying a direct order reference validates the
// order and grants its credits.
func TestHandleSuccess_DirectReference(t *testing.T) {
	mock := setupReconcileTest(t)

	orderID := uuid.New()
	userID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM credit_orders WHERE id = \$1 AND status = \$2`).
		WithArgs(orderID, "pending").
		WillReturnRows(pendingOrderRow(orderID, userID, "client@example.com", 5, 2000))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE credit_orders\s+SET status = \$1`).
		WithArgs("validated", nil, sqlmock.AnyArg(), orderID, "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT credits FROM profiles WHERE user_id = \$1`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(3))
	mock.ExpectExec(`UPDATE profiles SET credits = \$1 WHERE user_id = \$2`).
		WithArgs(8, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	event := Event{
		Kind:          EventSuccess,
		Name:          "transaction.approved",
		TransactionID: "12345",
		Amount:        2000,
		OrderRef:      orderID.String(),
	}

	order, err := HandleSuccess(context.Background(), event)
	if err != nil {
		t.Fatalf("HandleSuccess returned error: %v", err)
	}
	if order.ID != orderID {
		t.Errorf("Expected order %s, got %s", orderID, order.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

// Scenario B: a duplicate delivery loses the conditional update and must not
// touch the ledger. The zero-row CAS is treated as success.
func TestHandleSuccess_DuplicateDelivery(t *testing.T) {
	mock := setupReconcileTest(t)

	orderID := uuid.New()
	userID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM credit_orders WHERE id = \$1 AND status = \$2`).
		WithArgs(orderID, "pending").
		WillReturnRows(pendingOrderRow(orderID, userID, "client@example.com", 5, 2000))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE credit_orders\s+SET status = \$1`).
		WithArgs("validated", nil, sqlmock.AnyArg(), orderID, "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	event := Event{
		Kind:          EventSuccess,
		Name:          "transaction.approved",
		TransactionID: "12345",
		Amount:        2000,
		OrderRef:      orderID.String(),
	}

	order, err := HandleSuccess(context.Background(), event)
	if err != nil {
		t.Fatalf("Duplicate delivery should be an idempotent no-op, got error: %v", err)
	}
	if order.ID != orderID {
		t.Errorf("Expected order %s, got %s", orderID, order.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Ledger must not be read or written on a lost CAS: %v", err)
	}
}

// Scenario C: no order reference; the event is matched by amount and email.
func TestHandleSuccess_FallbackMatch(t *testing.T) {
	mock := setupReconcileTest(t)

	orderID := uuid.New()
	userID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM credit_orders\s+WHERE status = \$1 AND amount = \$2 AND created_at >= \$3 AND user_email = \$4`).
		WithArgs("pending", int64(1000), sqlmock.AnyArg(), "client@example.com").
		WillReturnRows(pendingOrderRow(orderID, userID, "client@example.com", 2, 1000))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE credit_orders\s+SET status = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT credits FROM profiles WHERE user_id = \$1`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(0))
	mock.ExpectExec(`UPDATE profiles SET credits = \$1 WHERE user_id = \$2`).
		WithArgs(2, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	event := Event{
		Kind:          EventSuccess,
		Name:          "transaction.completed",
		TransactionID: "777",
		Amount:        1000,
		CustomerEmail: "client@example.com",
	}

	order, err := HandleSuccess(context.Background(), event)
	if err != nil {
		t.Fatalf("HandleSuccess returned error: %v", err)
	}
	if order.ID != orderID {
		t.Errorf("Expected fallback to resolve order %s, got %s", orderID, order.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestHandleSuccess_NotFound(t *testing.T) {
	mock := setupReconcileTest(t)

	mock.ExpectQuery(`SELECT .+ FROM credit_orders\s+WHERE status = \$1 AND amount = \$2 AND created_at >= \$3`).
		WithArgs("pending", int64(9999), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(orderColumns))

	event := Event{
		Kind:          EventSuccess,
		Name:          "transaction.approved",
		TransactionID: "42",
		Amount:        9999,
	}

	_, err := HandleSuccess(context.Background(), event)
	if err != ErrOrderNotFound {
		t.Errorf("Expected ErrOrderNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestHandleSuccess_ProfileMissing(t *testing.T) {
	mock := setupReconcileTest(t)

	orderID := uuid.New()
	userID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM credit_orders WHERE id = \$1 AND status = \$2`).
		WithArgs(orderID, "pending").
		WillReturnRows(pendingOrderRow(orderID, userID, "client@example.com", 5, 2000))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE credit_orders\s+SET status = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT credits FROM profiles WHERE user_id = \$1`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}))
	mock.ExpectRollback()

	event := Event{
		Kind:          EventSuccess,
		TransactionID: "12345",
		OrderRef:      orderID.String(),
	}

	_, err := HandleSuccess(context.Background(), event)
	if err != storage.ErrProfileNotFound {
		t.Errorf("Expected ErrProfileNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Order transition must roll back when the profile is missing: %v", err)
	}
}

func TestHandleCancel_Found(t *testing.T) {
	mock := setupReconcileTest(t)

	orderID := uuid.New()
	userID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM credit_orders WHERE id = \$1 AND status = \$2`).
		WithArgs(orderID, "pending").
		WillReturnRows(pendingOrderRow(orderID, userID, "client@example.com", 5, 2000))

	mock.ExpectExec(`UPDATE credit_orders\s+SET status = \$1`).
		WithArgs("rejected", nil, sqlmock.AnyArg(), orderID, "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	event := Event{
		Kind:          EventCancel,
		Name:          "transaction.declined",
		TransactionID: "555",
		OrderRef:      orderID.String(),
		ErrorCode:     "card_declined",
	}

	HandleCancel(context.Background(), event)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Cancel must reject the order without touching the ledger: %v", err)
	}
}

// Scenario D: a cancel with no extractable reference and no match is dropped
// without any state change.
func TestHandleCancel_NoMatch(t *testing.T) {
	mock := setupReconcileTest(t)

	mock.ExpectQuery(`SELECT .+ FROM credit_orders\s+WHERE status = \$1 AND amount = \$2 AND created_at >= \$3`).
		WithArgs("pending", int64(3000), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(orderColumns))

	event := Event{
		Kind:          EventCancel,
		Name:          "transaction.canceled",
		TransactionID: "556",
		Amount:        3000,
	}

	HandleCancel(context.Background(), event)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmatched cancel must be a pure no-op: %v", err)
	}
}

// An invalid order reference must not abort resolution; the fallback still
// runs and the primary path is never preferred over it with bad data.
func TestResolveOrder_BadReferenceFallsBack(t *testing.T) {
	mock := setupReconcileTest(t)

	orderID := uuid.New()
	userID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM credit_orders\s+WHERE status = \$1 AND amount = \$2 AND created_at >= \$3`).
		WithArgs("pending", int64(5000), sqlmock.AnyArg()).
		WillReturnRows(pendingOrderRow(orderID, userID, "client@example.com", 20, 5000))

	event := Event{
		Kind:          EventSuccess,
		TransactionID: "888",
		Amount:        5000,
		OrderRef:      "not-a-uuid",
	}

	order, found, err := ResolveOrder(context.Background(), event)
	if err != nil {
		t.Fatalf("ResolveOrder returned error: %v", err)
	}
	if !found {
		t.Fatal("Expected fallback to find the order")
	}
	if order.ID != orderID {
		t.Errorf("Expected order %s, got %s", orderID, order.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestResolveOrder_NoReferenceNoAmount(t *testing.T) {
	mock := setupReconcileTest(t)

	event := Event{Kind: EventSuccess, TransactionID: "999"}

	_, found, err := ResolveOrder(context.Background(), event)
	if err != nil {
		t.Fatalf("ResolveOrder returned error: %v", err)
	}
	if found {
		t.Error("Expected no match without reference or amount")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("No store access expected: %v", err)
	}
}
