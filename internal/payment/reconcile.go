package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/alheure/alheure/internal/logger"
	"github.com/alheure/alheure/internal/models"
	"github.com/alheure/alheure/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "github.com/lib/pq"
)

var (
	ErrOrderNotFound = errors.New("no matching pending order")
	ErrStoreWrite    = errors.New("store write failed")
)

// HandleSuccess applies a success event: resolve the order, then grant its
// credits through the single conditional transaction in storage. A duplicate
// delivery loses the status condition and returns as a no-op success, so the
// ledger is incremented at most once per order no matter how many times the
// provider redelivers.
func HandleSuccess(ctx context.Context, event Event) (models.CreditOrder, error) {

	order, found, err := ResolveOrder(ctx, event)
	if err != nil {
		logger.Log.Error("Order resolution failed",
			zap.String("transactionID", event.TransactionID),
			zap.Error(err))
		return models.CreditOrder{}, ErrStoreWrite
	}
	if !found {
		logger.Log.Error("No matching order found for transaction",
			zap.String("transactionID", event.TransactionID),
			zap.String("orderRef", event.OrderRef),
			zap.Int64("amount", event.Amount),
			zap.String("customerEmail", event.CustomerEmail))
		return models.CreditOrder{}, ErrOrderNotFound
	}

	note := fmt.Sprintf("Auto-validated via FedaPay. TX: %s, Status: %s", event.TransactionID, event.Status)

	validated, err := storage.ValidateOrder(ctx, order, note, uuid.NullUUID{})
	if err != nil {
		if errors.Is(err, storage.ErrProfileNotFound) {
			logger.Log.Error("Profile not found for order",
				zap.String("orderID", order.ID.String()),
				zap.String("userID", order.UserID.String()))
			return order, storage.ErrProfileNotFound
		}
		logger.Log.Error("Failed to validate order",
			zap.String("orderID", order.ID.String()),
			zap.Error(err))
		return order, ErrStoreWrite
	}

	if !validated {
		logger.Log.Info("Order already processed, skipping credit grant",
			zap.String("orderID", order.ID.String()),
			zap.String("transactionID", event.TransactionID))
		return order, nil
	}

	logger.Log.Info("Credits added automatically",
		zap.String("orderID", order.ID.String()),
		zap.Int("credits", order.Credits),
		zap.String("transactionID", event.TransactionID))

	return order, nil
}

// HandleCancel marks the matching pending order rejected with an audit note.
// No ledger effect. Missing orders and store failures are logged and dropped:
// a cancel that cannot be applied has nothing to roll back.
func HandleCancel(ctx context.Context, event Event) {

	order, found, err := ResolveOrder(ctx, event)
	if err != nil {
		logger.Log.Error("Order resolution failed for cancel event",
			zap.String("transactionID", event.TransactionID),
			zap.Error(err))
		return
	}
	if !found {
		logger.Log.Info("No pending order found to mark as rejected",
			zap.String("transactionID", event.TransactionID),
			zap.Int64("amount", event.Amount))
		return
	}

	reason := event.ErrorCode
	if reason == "" {
		reason = event.Name
	}
	transactionID := event.TransactionID
	if transactionID == "" {
		transactionID = "N/A"
	}
	note := fmt.Sprintf("Annulée automatiquement: %s. Transaction ID: %s", reason, transactionID)

	rejected, err := storage.RejectOrder(ctx, order.ID, note, uuid.NullUUID{})
	if err != nil {
		logger.Log.Error("Failed to update canceled order",
			zap.String("orderID", order.ID.String()),
			zap.Error(err))
		return
	}

	if rejected {
		logger.Log.Info("Order marked as rejected",
			zap.String("orderID", order.ID.String()),
			zap.String("transactionID", event.TransactionID))
	} else {
		logger.Log.Info("Order no longer pending, cancel dropped",
			zap.String("orderID", order.ID.String()))
	}
}
