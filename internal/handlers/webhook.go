package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alheure/alheure/cmd/config"
	"github.com/alheure/alheure/internal/logger"
	"github.com/alheure/alheure/internal/payment"
	"github.com/alheure/alheure/internal/storage"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const signatureHeader = "X-Fedapay-Signature"

// FedapayWebhookHandler is the only reconciliation trigger: the provider
// posts here after every checkout attempt, possibly multiple times for the
// same transaction and in any order. The response status drives the
// provider's retry policy, so not-found is 404 (the order row may simply not
// exist yet) and store failures are 500.
func FedapayWebhookHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		rawBody := c.Body()
		signature := c.Get(signatureHeader)

		logger.Log.Info("FedaPay webhook received",
			zap.Int("bodyLength", len(rawBody)),
			zap.Bool("signaturePresent", signature != ""))

		if !payment.VerifySignature(rawBody, signature) {
			if config.EnforceSignature {
				logger.Log.Error("Webhook signature verification failed")
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid signature",
				})
			}
			logger.Log.Warn("Webhook signature mismatch, processing anyway")
		}

		event, err := payment.ParseEvent(rawBody)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Malformed payload",
			})
		}

		logger.Log.Info("Webhook event parsed",
			zap.String("event", event.Name),
			zap.String("transactionID", event.TransactionID),
			zap.String("orderRef", event.OrderRef),
			zap.Int64("amount", event.Amount),
			zap.String("customerEmail", event.CustomerEmail))

		switch event.Kind {
		case payment.EventCancel:
			payment.HandleCancel(ctx, event)
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"received": true,
				"action":   "order_canceled",
			})

		case payment.EventSuccess:
			order, err := payment.HandleSuccess(ctx, event)
			if err != nil {
				if errors.Is(err, payment.ErrOrderNotFound) {
					return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
						"error": "Order not found",
						"details": fiber.Map{
							"order_ref":      event.OrderRef,
							"amount":         event.Amount,
							"customer_email": event.CustomerEmail,
						},
					})
				}
				if errors.Is(err, storage.ErrProfileNotFound) {
					return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
						"error": "Profile not found",
					})
				}
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Failed to update credits",
				})
			}

			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"success":        true,
				"message":        fmt.Sprintf("%d credits added to user", order.Credits),
				"order_id":       order.ID.String(),
				"transaction_id": event.TransactionID,
			})

		default:
			logger.Log.Info("Event not of interest, ignoring", zap.String("event", event.Name))
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"received": true,
				"action":   "ignored",
			})
		}
	}
}
