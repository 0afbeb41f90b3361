package handlers

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/alheure/alheure/internal/logger"
	"github.com/alheure/alheure/internal/models"
	"github.com/alheure/alheure/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreateMessageRequest struct {
	RecipientName string    `json:"recipient_name" validate:"required"`
	Content       string    `json:"content" validate:"required"`
	UnlockAt      time.Time `json:"unlock_at" validate:"required"`
}

// CreateMessageHandler locks a message behind its unlock time, spending one
// credit. The credit decrement and the insert share a transaction in storage.
func CreateMessageHandler(c *fiber.Ctx) error {
	var request CreateMessageRequest
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

		if err := c.BodyParser(&request); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		if request.Content == "" || request.RecipientName == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Recipient and content are required",
			})
		}

		if !request.UnlockAt.After(time.Now()) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "Unlock time must be in the future",
			})
		}

		message := models.Message{
			ID:            uuid.New(),
			UserID:        userID,
			RecipientName: request.RecipientName,
			Content:       request.Content,
			UnlockAt:      request.UnlockAt,
		}

		err := storage.CreateMessage(ctx, message)
		if err != nil {
			if errors.Is(err, storage.ErrInsufficientCredits) {
				return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
					"error": "Insufficient credits",
				})
			}
			logger.Log.Error("Error creating message", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		logger.Log.Info("Message locked",
			zap.String("messageID", message.ID.String()),
			zap.String("userID", userID.String()),
			zap.Time("unlockAt", message.UnlockAt))

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message_id": message.ID.String(),
			"unlock_at":  message.UnlockAt,
		})
	}
}

// GetMessageHandler is the public share link target. Before the unlock time
// it reveals only the recipient and the countdown target, never the content.
func GetMessageHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		messageID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid message id",
			})
		}

		message, err := storage.GetMessage(ctx, messageID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Message not found",
				})
			}
			logger.Log.Error("Error getting message", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		if time.Now().Before(message.UnlockAt) {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"locked":         true,
				"recipient_name": message.RecipientName,
				"unlock_at":      message.UnlockAt,
			})
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"locked":         false,
			"recipient_name": message.RecipientName,
			"content":        message.Content,
			"unlock_at":      message.UnlockAt,
		})
	}
}
