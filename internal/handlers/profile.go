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

type ProfileResponse struct {
	Credits int  `json:"credits"`
	IsAdmin bool `json:"is_admin"`
}

func GetProfileHandler(c *fiber.Ctx) error {
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

		credits, err := storage.GetProfileCredits(ctx, userID)
		if err != nil {
			if errors.Is(err, storage.ErrProfileNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Profile not found",
				})
			}
			logger.Log.Error("Error getting profile", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		user, err := storage.GetUserByID(ctx, userID)
		if err != nil {
			logger.Log.Error("Error getting user", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		return c.Status(fiber.StatusOK).JSON(ProfileResponse{
			Credits: credits,
			IsAdmin: user.IsAdmin,
		})
	}
}
