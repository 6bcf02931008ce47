// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"tekpay/internal/handlers"
	"tekpay/internal/middleware"
	"tekpay/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups every handler the router mounts.
type Handlers struct {
	Auth          *handlers.AuthHandler
	User          *handlers.UserHandler
	Wallet        *handlers.WalletHandler
	Transfer      *handlers.TransferHandler
	Bill          *handlers.BillHandler
	Notification  *handlers.NotificationHandler
	Webhook       *handlers.WebhookHandler
	Admin         *handlers.AdminHandler
	Health        *handlers.HealthHandler
	Middleware    *middleware.AuthMiddleware
	Pins          middleware.PinVerifier
	MetricsSource prometheus.Gatherer
}

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, h Handlers) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to Tekpay API",
			"version": "1.0.0",
			"docs":    "/api",
		})
	})
	app.Get("/health", h.Health.HealthCheck)
	if h.MetricsSource != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(h.MetricsSource, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	// Public endpoints (no auth required)
	api.Post("/register", h.User.RegisterUser)
	api.Post("/login", h.Auth.LoginUser)
	api.Post("/auth/refresh", h.Auth.RefreshToken)

	setupWebhookRoutes(api, h.Webhook)

	protected := api.Group("", h.Middleware.Handler)
	requirePin := middleware.RequirePin(h.Pins)

	setupUserRoutes(protected, h.User, h.Auth)
	setupWalletRoutes(protected, h.Wallet, h.Transfer, requirePin)
	setupBillRoutes(protected, h.Bill, requirePin)
	setupNotificationRoutes(protected, h.Notification)
	setupAdminRoutes(protected, h.Admin)
}

func setupWebhookRoutes(router fiber.Router, h *handlers.WebhookHandler) {
	webhooks := router.Group("/webhooks")
	webhooks.Post("/flutterwave", h.Flutterwave)
	webhooks.Post("/vtpass", h.VTpass)
	webhooks.Post("/stripe", h.Stripe)
}

func setupUserRoutes(router fiber.Router, userHandler *handlers.UserHandler, authHandler *handlers.AuthHandler) {
	router.Post("/logout", authHandler.LogoutUser)
	router.Post("/pin", authHandler.SetPin)

	user := router.Group("/user")
	user.Get("/profile", userHandler.GetProfile)
	user.Get("/referrals", userHandler.ReferralStats)
	user.Post("/virtual-account", userHandler.CreateVirtualAccount)
	user.Get("/lookup", userHandler.LookupRecipient)
}

func setupWalletRoutes(router fiber.Router, walletHandler *handlers.WalletHandler, transferHandler *handlers.TransferHandler, requirePin fiber.Handler) {
	read := middleware.HasPermission(models.PermissionWalletRead)
	write := middleware.HasPermission(models.PermissionWalletWrite)
	transfer := middleware.HasPermission(models.PermissionTransferWrite)

	wallet := router.Group("/wallet")
	wallet.Get("/", read, walletHandler.GetWallet)
	wallet.Get("/balance", read, walletHandler.GetBalance)
	wallet.Post("/fund/card", write, walletHandler.FundWithCard)

	router.Get("/transactions", read, walletHandler.TransactionHistory)
	router.Get("/transactions/:reference", read, walletHandler.GetTransaction)

	transfers := router.Group("/transfers")
	transfers.Get("/", read, walletHandler.TransferHistory)
	transfers.Post("/wallet", transfer, requirePin, transferHandler.Transfer)
	transfers.Post("/bank", transfer, requirePin, transferHandler.BankTransfer)

	banks := router.Group("/banks")
	banks.Get("/", transferHandler.ListBanks)
	banks.Post("/resolve", transferHandler.ResolveAccount)
}

func setupBillRoutes(router fiber.Router, h *handlers.BillHandler, requirePin fiber.Handler) {
	bills := router.Group("/bills")
	bills.Get("/variations", h.Variations)
	bills.Post("/verify", h.VerifyMerchant)
	bills.Get("/requery/:requestId", h.Requery)
	bills.Post("/:category", middleware.HasPermission(models.PermissionBillsPay), requirePin, h.Purchase)
}

func setupNotificationRoutes(router fiber.Router, h *handlers.NotificationHandler) {
	notifications := router.Group("/notifications")
	notifications.Get("/", h.List)
	notifications.Get("/unread-count", h.UnreadCount)
	notifications.Patch("/read-all", h.MarkAllRead)
	notifications.Patch("/:id/read", h.MarkRead)
	notifications.Post("/devices", h.RegisterDevice)
	notifications.Delete("/devices", h.RemoveDevice)
}

func setupAdminRoutes(router fiber.Router, h *handlers.AdminHandler) {
	admin := router.Group("/admin", middleware.AdminAuthMiddleware)
	admin.Post("/sweep", h.Sweep)
	admin.Get("/transactions/:reference", h.GetTransaction)
}
