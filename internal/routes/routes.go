// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"time"

	"turapay/internal/config"
	"turapay/internal/handlers"
	"turapay/internal/middleware"
	"turapay/internal/models"
	"turapay/internal/repositories"
	"turapay/internal/services/admin"
	"turapay/internal/services/auth"
	"turapay/internal/services/kyc"
	"turapay/internal/services/payment"
	"turapay/internal/services/rates"
	"turapay/internal/services/settings"
	"turapay/internal/services/transfer"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

// Services is everything the HTTP layer calls into.
type Services struct {
	DB        *gorm.DB
	Cache     handlers.Pinger
	Auth      auth.Service
	Transfers transfer.Service
	Payments  payment.Service
	Callbacks *payment.CallbackProcessor
	Admin     admin.Service
	Settings  settings.Service
	Rates     rates.Service
	KYC       kyc.Service
	Entries   repositories.ReconciliationRepository
}

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, cfg *config.Config, s Services) {
	expose := cfg.ExposeInternalErr

	authHandler := handlers.NewAuthHandler(s.Auth, cfg.IsProduction(), expose)
	transferHandler := handlers.NewTransferHandler(s.Transfers, expose)
	paymentHandler := handlers.NewPaymentHandler(s.Payments, expose)
	webhookHandler := handlers.NewWebhookHandler(s.Callbacks, cfg.Lipila.CallbackSecret, expose)
	settingsHandler := handlers.NewSettingsHandler(s.Settings, s.Rates, expose)
	kycHandler := handlers.NewKYCHandler(s.KYC, expose)
	adminHandler := handlers.NewAdminHandler(s.Transfers, s.Admin, s.Settings, s.Rates, s.KYC, s.Entries, expose)
	healthHandler := handlers.NewHealthHandler(s.DB, s.Cache)

	authMiddleware := middleware.NewAuthMiddleware(s.Auth, cfg.JWTSecret)

	app.Use(CORS(cfg.CORSAllowOrigins))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to TuraPay API",
			"version": "1.0.0",
			"docs":    "/api",
		})
	})
	app.Get("/health", healthHandler.HealthCheck)

	// Gateway function endpoints kept at their original paths for existing clients.
	functions := app.Group("/functions/v1", authMiddleware.Handler)
	functions.Post("/lipila-deposit", middleware.HasPermission(models.PermissionPaymentWrite), paymentHandler.Collect)
	functions.Post("/lipila-disbursement", middleware.HasPermission(models.PermissionPaymentWrite), paymentHandler.Disburse)

	api := app.Group("/api")

	// Public endpoints (no auth required)
	api.Post("/register", authLimiter(), authHandler.Register)
	api.Post("/login", authLimiter(), authHandler.LoginUser)
	api.Post("/refresh", authHandler.RefreshToken)
	api.Post("/webhooks/lipila", webhookHandler.Lipila)

	setupAdminRoutes(api, authMiddleware, adminHandler)

	protected := api.Group("", authMiddleware.Handler)
	setupUserRoutes(protected, authHandler, settingsHandler, kycHandler)
	setupTransferRoutes(protected, transferHandler)
	setupPaymentRoutes(protected, paymentHandler)
}

// CORS answers browser preflights for the web and mobile clients.
func CORS(origins string) fiber.Handler {
	if origins == "" {
		origins = "*"
	}
	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "authorization, x-client-info, apikey, content-type",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	})
}

func authLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        5,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	})
}

func setupUserRoutes(router fiber.Router, authHandler *handlers.AuthHandler, settingsHandler *handlers.SettingsHandler, kycHandler *handlers.KYCHandler) {
	router.Post("/logout", authHandler.LogoutUser)
	router.Post("/change-password", authHandler.ChangePassword)
	router.Get("/profile", authHandler.Profile)

	router.Get("/settings", middleware.HasPermission(models.PermissionSettingsRead), settingsHandler.GetSettings)
	router.Get("/rates", settingsHandler.GetRates)

	router.Post("/kyc", middleware.HasPermission(models.PermissionKYCWrite), kycHandler.Submit)
	router.Get("/kyc", kycHandler.Status)
}

func setupTransferRoutes(router fiber.Router, h *handlers.TransferHandler) {
	transfers := router.Group("/transfers")

	transfers.Get("/quote", h.Quote)
	transfers.Post("/", middleware.HasPermission(models.PermissionTransferWrite), h.Create)
	transfers.Get("/", middleware.HasPermission(models.PermissionTransferRead), h.List)
	transfers.Get("/:id", middleware.HasPermission(models.PermissionTransferRead), h.Get)
	transfers.Post("/:id/proof", middleware.HasPermission(models.PermissionTransferWrite), h.AttachProof)
}

func setupPaymentRoutes(router fiber.Router, h *handlers.PaymentHandler) {
	payments := router.Group("/payments", middleware.HasPermission(models.PermissionPaymentWrite))

	payments.Post("/collections", h.Collect)
	payments.Post("/disbursements", h.Disburse)
}

func setupAdminRoutes(router fiber.Router, authMiddleware *middleware.AuthMiddleware, h *handlers.AdminHandler) {
	admin := router.Group("/admin", authMiddleware.Handler, middleware.AdminAuthMiddleware)

	read := middleware.HasPermission(models.PermissionReadAdmin)
	write := middleware.HasPermission(models.PermissionWriteAdmin)

	admin.Get("/transactions", read, h.ListTransactions)
	admin.Get("/transactions/:id", read, h.GetTransaction)
	admin.Post("/transactions/:id/approve", write, h.ApproveTransaction)
	admin.Post("/transactions/:id/reject", write, h.RejectTransaction)

	admin.Get("/users", read, h.ListUsers)
	admin.Post("/users/:id/verify", write, h.VerifyUser)

	admin.Put("/settings/:key", write, h.UpdateSetting)
	admin.Put("/rates/:currency", write, h.SetRate)
	admin.Delete("/rates/:currency", write, h.DeleteRate)

	admin.Get("/kyc", read, h.ListKYC)
	admin.Post("/kyc/:id/approve", write, h.ApproveKYC)
	admin.Post("/kyc/:id/reject", write, h.RejectKYC)

	admin.Get("/reconciliation", read, h.ListReconciliation)
}
