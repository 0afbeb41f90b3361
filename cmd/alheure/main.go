package main

import (
	"github.com/alheure/alheure/cmd/config"
	"github.com/alheure/alheure/internal/handlers"
	"github.com/alheure/alheure/internal/logger"
	"github.com/alheure/alheure/internal/middleware"
	"github.com/alheure/alheure/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
)

func main() {
	config.ParseFlags()

	if err := logger.Initialize(config.LogLevel); err != nil {
		logger.Log.Fatal("Failed to initialize logger", zap.Error(err))
	}

	if err := storage.Init(); err != nil {
		logger.Log.Error("Failed to init storage", zap.Error(err))
		return
	}

	if err := run(); err != nil {
		logger.Log.Fatal("Failed to run server", zap.Error(err))
	}
}

func run() error {
	app := fiber.New()
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Authorization, Content-Type, X-Fedapay-Signature",
	}))

	app.Post("/api/user/register", handlers.RegisterHandler)
	app.Post("/api/user/login", handlers.LoginHandler)
	app.Post("/webhooks/fedapay", handlers.FedapayWebhookHandler)
	app.Get("/api/packages", handlers.GetPackagesHandler)
	app.Get("/messages/:id", handlers.GetMessageHandler)

	authRoutes := app.Group("/api", middleware.AuthMiddleware)
	authRoutes.Get("/profile", handlers.GetProfileHandler)
	authRoutes.Post("/orders", handlers.CreateOrderHandler)
	authRoutes.Get("/orders", handlers.GetOrdersHandler)
	authRoutes.Post("/messages", handlers.CreateMessageHandler)
	authRoutes.Post("/codes/redeem", handlers.RedeemCodeHandler)

	adminRoutes := app.Group("/api/admin", middleware.AuthMiddleware, middleware.AdminMiddleware)
	adminRoutes.Get("/orders", handlers.AdminListOrdersHandler)
	adminRoutes.Post("/orders/:id/validate", handlers.AdminValidateOrderHandler)
	adminRoutes.Post("/orders/:id/reject", handlers.AdminRejectOrderHandler)
	adminRoutes.Get("/codes", handlers.AdminListCodesHandler)
	adminRoutes.Post("/codes", handlers.AdminCreateCodeHandler)

	logger.Log.Info("Running server", zap.String("address", config.RunAddress))
	return app.Listen(config.RunAddress)
}
