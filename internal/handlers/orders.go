package handlers

import (
	"context"
	"time"

	"github.com/alheure/alheure/cmd/config"
	"github.com/alheure/alheure/internal/logger"
	"github.com/alheure/alheure/internal/models"
	"github.com/alheure/alheure/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreateOrderRequest struct {
	PackageID     string `json:"package_id" validate:"required"`
	PaymentMethod string `json:"payment_method"`
}

type OrderResponse struct {
	ID        string    `json:"id"`
	Credits   int       `json:"credits"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateOrderHandler snapshots the chosen package onto a pending order and
// returns the parameters the client passes to the checkout widget. The order
// id travels in the widget's custom metadata so the webhook can correlate the
// eventual payment event back to this row.
func CreateOrderHandler(c *fiber.Ctx) error {
	var request CreateOrderRequest
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

		pkg, ok := models.PackageByID(request.PackageID)
		if !ok {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "Unknown package",
			})
		}

		user, err := storage.GetUserByID(ctx, userID)
		if err != nil {
			logger.Log.Error("Error getting user", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		paymentMethod := request.PaymentMethod
		if paymentMethod == "" {
			paymentMethod = "mobile_money"
		}

		order := models.CreditOrder{
			ID:            uuid.New(),
			UserID:        userID,
			UserEmail:     user.Email,
			Credits:       pkg.Credits,
			Amount:        pkg.Amount,
			PaymentMethod: paymentMethod,
		}

		err = storage.CreateCreditOrder(ctx, order)
		if err != nil {
			logger.Log.Error("Error creating order", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Error creating order",
			})
		}

		logger.Log.Info("Credit order created",
			zap.String("orderID", order.ID.String()),
			zap.String("userID", userID.String()),
			zap.Int("credits", order.Credits),
			zap.Int64("amount", order.Amount))

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"order_id": order.ID.String(),
			"checkout": fiber.Map{
				"public_key":  config.CheckoutPublicKey,
				"environment": config.CheckoutEnvironment,
				"amount":      order.Amount,
				"customer_email": user.Email,
				"custom_metadata": fiber.Map{
					"order_id": order.ID.String(),
				},
			},
		})
	}
}

func GetOrdersHandler(c *fiber.Ctx) error {
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

		orders, err := storage.ListUserOrders(ctx, userID)
		if err != nil {
			logger.Log.Error("Error getting user orders", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		if len(orders) == 0 {
			return c.SendStatus(fiber.StatusNoContent)
		}

		var response []OrderResponse
		for _, order := range orders {
			response = append(response, OrderResponse{
				ID:        order.ID.String(),
				Credits:   order.Credits,
				Amount:    order.Amount,
				Status:    order.Status,
				Notes:     order.Notes.String,
				CreatedAt: order.CreatedAt,
			})
		}

		return c.Status(fiber.StatusOK).JSON(response)
	}
}

func GetPackagesHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(models.Packages)
}
