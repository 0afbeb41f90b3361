package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/alheure/alheure/internal/logger"
	"github.com/alheure/alheure/internal/models"
	"github.com/alheure/alheure/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AdminOrderResponse struct {
	ID          string     `json:"id"`
	UserEmail   string     `json:"user_email"`
	Credits     int        `json:"credits"`
	Amount      int64      `json:"amount"`
	Status      string     `json:"status"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ValidatedAt *time.Time `json:"validated_at,omitempty"`
}

func AdminListOrdersHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		orders, err := storage.ListOrders(ctx)
		if err != nil {
			logger.Log.Error("Error listing orders", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		response := make([]AdminOrderResponse, 0, len(orders))
		for _, order := range orders {
			item := AdminOrderResponse{
				ID:        order.ID.String(),
				UserEmail: order.UserEmail,
				Credits:   order.Credits,
				Amount:    order.Amount,
				Status:    order.Status,
				Notes:     order.Notes.String,
				CreatedAt: order.CreatedAt,
			}
			if order.ValidatedAt.Valid {
				item.ValidatedAt = &order.ValidatedAt.Time
			}
			response = append(response, item)
		}

		return c.Status(fiber.StatusOK).JSON(response)
	}
}

// AdminValidateOrderHandler is manual validation of a pending order. It runs
// through the same conditional transaction as the webhook, so an admin click
// racing a webhook delivery can never grant the credits twice.
func AdminValidateOrderHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		adminID := c.Locals("userID").(uuid.UUID)

		orderID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid order id",
			})
		}

		order, err := storage.GetPendingOrderByID(ctx, orderID)
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Pending order not found",
			})
		}

		validated, err := storage.ValidateOrder(ctx, order, "Validée manuellement par un administrateur",
			uuid.NullUUID{UUID: adminID, Valid: true})
		if err != nil {
			if errors.Is(err, storage.ErrProfileNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Profile not found",
				})
			}
			logger.Log.Error("Error validating order", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		if !validated {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Order already processed",
			})
		}

		logger.Log.Info("Order validated manually",
			zap.String("orderID", orderID.String()),
			zap.String("adminID", adminID.String()),
			zap.Int("credits", order.Credits))

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success":  true,
			"order_id": orderID.String(),
			"credits":  order.Credits,
		})
	}
}

type RejectOrderRequest struct {
	Notes string `json:"notes"`
}

func AdminRejectOrderHandler(c *fiber.Ctx) error {
	var request RejectOrderRequest
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		adminID := c.Locals("userID").(uuid.UUID)

		orderID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid order id",
			})
		}

		if err := c.BodyParser(&request); err != nil && len(c.Body()) > 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		notes := request.Notes
		if notes == "" {
			notes = "Paiement non confirmé"
		}

		rejected, err := storage.RejectOrder(ctx, orderID, notes, uuid.NullUUID{UUID: adminID, Valid: true})
		if err != nil {
			logger.Log.Error("Error rejecting order", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		if !rejected {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Order already processed",
			})
		}

		logger.Log.Info("Order rejected manually",
			zap.String("orderID", orderID.String()),
			zap.String("adminID", adminID.String()))

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success":  true,
			"order_id": orderID.String(),
		})
	}
}

type CreateCodeRequest struct {
	Code    string `json:"code"`
	Credits int    `json:"credits" validate:"required"`
}

func AdminCreateCodeHandler(c *fiber.Ctx) error {
	var request CreateCodeRequest
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		if err := c.BodyParser(&request); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		if request.Credits <= 0 {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "Credits must be positive",
			})
		}

		code := strings.ToUpper(strings.TrimSpace(request.Code))
		if code == "" {
			code = generateCode()
		}

		activationCode := models.ActivationCode{
			ID:      uuid.New(),
			Code:    code,
			Credits: request.Credits,
		}

		err := storage.CreateActivationCode(ctx, activationCode)
		if err != nil {
			logger.Log.Error("Error creating activation code", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Error creating code",
			})
		}

		logger.Log.Info("Activation code created",
			zap.String("code", code),
			zap.Int("credits", request.Credits))

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"code":    code,
			"credits": request.Credits,
		})
	}
}

func generateCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return raw[:4] + "-" + raw[4:8]
}

type CodeResponse struct {
	Code      string    `json:"code"`
	Credits   int       `json:"credits"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

func AdminListCodesHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		codes, err := storage.ListActivationCodes(ctx)
		if err != nil {
			logger.Log.Error("Error listing codes", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		response := make([]CodeResponse, 0, len(codes))
		for _, code := range codes {
			response = append(response, CodeResponse{
				Code:      code.Code,
				Credits:   code.Credits,
				Used:      code.UsedBy.Valid,
				CreatedAt: code.CreatedAt,
			})
		}

		return c.Status(fiber.StatusOK).JSON(response)
	}
}
