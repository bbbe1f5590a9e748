package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/storefront-checkout/internal/application/auth"
	"github.com/jhoicas/storefront-checkout/internal/application/checkout"
	"github.com/jhoicas/storefront-checkout/internal/application/settlement"
	"github.com/jhoicas/storefront-checkout/internal/application/stock"
	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CheckoutUC           *checkout.UseCase
	SettlementUC         *settlement.UseCase
	StockService         *stock.Service
	AuthUC               *auth.UseCase // opcional: sin él no hay login ni alta de operadores
	Receipts             ReceiptRenderer
	WebhookLimiter       RateLimiter
	WebhookRatePerMinute int
	JWTSecret            string
	Logger               *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	api := app.Group("/api")

	// Storefront (público, tenant por header)
	checkoutHandler := NewCheckoutHandler(deps.CheckoutUC, deps.SettlementUC, log)
	co := api.Group("/checkout/:provider")
	co.Post("/create", TenantMiddleware(), checkoutHandler.Create)
	co.Post("/cancel", TenantMiddleware(), checkoutHandler.Cancel)
	co.Post("/capture", TenantMiddleware(), checkoutHandler.Capture)

	// Webhooks: el tenant viaja en la metadata firmada del evento
	co.Post("/webhook", RateLimit(deps.WebhookLimiter, deps.WebhookRatePerMinute, KeyByProvider, log), checkoutHandler.Webhook)

	var authHandler *AuthHandler
	if deps.AuthUC != nil {
		authHandler = NewAuthHandler(deps.AuthUC, log)
		api.Post("/auth/login", RateLimit(deps.WebhookLimiter, deps.WebhookRatePerMinute, KeyByIP, log), authHandler.Login)
	}

	// Administración (protegido)
	admin := api.Group("/admin", AuthMiddleware(deps.JWTSecret), RequireRole(RoleOwner, RoleStaff))
	adminHandler := NewAdminHandler(deps.StockService, deps.SettlementUC, deps.Receipts, log)
	admin.Get("/stock/:pieceId", adminHandler.GetStock)
	admin.Get("/stock/:pieceId/movements", adminHandler.GetMovements)
	admin.Post("/stock/adjust", RequireRole(RoleOwner), adminHandler.AdjustStock)
	admin.Get("/reservations/:sessionId", adminHandler.GetReservations)
	admin.Get("/anomalies", adminHandler.ListAnomalies)
	admin.Get("/orders/:id/receipt", adminHandler.OrderReceipt)
	if authHandler != nil {
		admin.Post("/operators", RequireRole(RoleOwner), authHandler.CreateOperator)
	}
}
