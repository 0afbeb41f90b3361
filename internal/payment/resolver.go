package payment

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alheure/alheure/internal/logger"
	"github.com/alheure/alheure/internal/models"
	"github.com/alheure/alheure/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResolveOrder maps an event to at most one pending order. A direct lookup by
// the extracted order reference is authoritative; when it yields nothing the
// heuristic amount/email/recency match takes over. Returning found=false is a
// legitimate outcome, not an error.
func ResolveOrder(ctx context.Context, event Event) (models.CreditOrder, bool, error) {

	if event.OrderRef != "" {
		orderID, err := uuid.Parse(event.OrderRef)
		if err != nil {
			logger.Log.Warn("Order reference is not a valid id, trying fallback",
				zap.String("orderRef", event.OrderRef),
				zap.String("transactionID", event.TransactionID))
		} else {
			order, err := storage.GetPendingOrderByID(ctx, orderID)
			if err == nil {
				logger.Log.Info("Found order by reference",
					zap.String("orderID", order.ID.String()),
					zap.String("transactionID", event.TransactionID))
				return order, true, nil
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return models.CreditOrder{}, false, err
			}
			logger.Log.Info("Order not found by reference, trying fallback",
				zap.String("orderRef", event.OrderRef))
		}
	}

	if event.Amount <= 0 {
		return models.CreditOrder{}, false, nil
	}

	logger.Log.Info("Attempting fallback order matching",
		zap.Int64("amount", event.Amount),
		zap.String("customerEmail", event.CustomerEmail))

	order, err := storage.FindPendingOrderByMatch(ctx, event.Amount, event.CustomerEmail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Log.Info("No matching order found via fallback",
				zap.String("transactionID", event.TransactionID))
			return models.CreditOrder{}, false, nil
		}
		return models.CreditOrder{}, false, err
	}

	logger.Log.Info("Fallback found matching order",
		zap.String("orderID", order.ID.String()),
		zap.String("transactionID", event.TransactionID))

	return order, true, nil
}
