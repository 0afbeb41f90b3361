package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/alheure/alheure/internal/logger"
	"github.com/alheure/alheure/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RedeemCodeRequest struct {
	Code string `json:"code" validate:"required"`
}

func RedeemCodeHandler(c *fiber.Ctx) error {
	var request RedeemCodeRequest
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		userID := c.Locals("userID").(uuid.UUID)

		if err := c.BodyParser(&request); err != nil || request.Code == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		credits, err := storage.RedeemActivationCode(ctx, request.Code, userID)
		if err != nil {
			if errors.Is(err, storage.ErrCodeNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Code invalid or already used",
				})
			}
			if errors.Is(err, storage.ErrProfileNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Profile not found",
				})
			}
			logger.Log.Error("Error redeeming code", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		logger.Log.Info("Activation code redeemed",
			zap.String("userID", userID.String()),
			zap.Int("credits", credits))

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"credits_added": credits,
		})
	}
}
