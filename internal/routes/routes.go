package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/handlers"
	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/services"
)

// Deps are the services behind the HTTP surface.
type Deps struct {
	Config        *config.Config
	OTP           *services.OTPService
	Signup        *services.SignupService
	Accounts      *services.AccountService
	Orders        *services.OrderService
	Payments      *services.PaymentService
	Notifications handlers.NotificationAdmin
}

// NewApp builds the fiber app with the shared middleware stack and routes.
func NewApp(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      deps.Config.AppName,
		ErrorHandler: handlers.ErrorHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(metrics.Middleware())
	app.Use(middleware.CORS(deps.Config.AllowedOrigins))

	Register(app, deps)
	return app
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, deps Deps) {
	cfg := deps.Config

	authHandler := handlers.NewAuthHandler(deps.OTP, deps.Signup, deps.Accounts)
	accountHandler := handlers.NewAccountHandler(deps.Accounts)
	orderHandler := handlers.NewOrderHandler(deps.Orders)
	paymentHandler := handlers.NewPaymentHandler(deps.Payments)
	adminHandler := handlers.NewAdminHandler(deps.Orders, deps.Notifications)

	requireAuth := middleware.AuthMiddleware(cfg.JWTSecret)
	optionalAuth := middleware.OptionalAuth(cfg.JWTSecret)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "status": "ok"})
	})
	app.Get("/metrics", metrics.Handler())

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/check", authHandler.Check)
	auth.Post("/send-otp", middleware.RateLimit(cfg.OTPRateLimit, time.Minute), authHandler.SendOTP)
	auth.Post("/verify-otp", authHandler.VerifyOTP)
	auth.Post("/signup", authHandler.Signup)
	auth.Get("/me", requireAuth, authHandler.Me)

	// Account
	account := api.Group("/account")
	account.Post("/address", optionalAuth, accountHandler.SaveAddress)
	account.Get("/", requireAuth, accountHandler.GetAccount)
	account.Put("/profile", requireAuth, accountHandler.UpdateProfile)
	account.Get("/addresses", requireAuth, accountHandler.ListAddresses)
	account.Put("/addresses/:id", requireAuth, accountHandler.UpdateAddress)
	account.Delete("/addresses/:id", requireAuth, accountHandler.DeleteAddress)

	// Orders
	orders := api.Group("/orders")
	orders.Post("/", optionalAuth, orderHandler.CreateOrder)
	orders.Post("/cod", optionalAuth, orderHandler.CreateCODOrder)
	orders.Get("/", requireAuth, orderHandler.ListOrders)
	orders.Get("/:id", requireAuth, orderHandler.GetOrder)

	// Payments
	payments := api.Group("/payments")
	payments.Post("/verify", optionalAuth, paymentHandler.Verify)
	payments.Post("/webhook", paymentHandler.Webhook)

	// Admin
	admin := api.Group("/admin", middleware.AdminKey(cfg.AdminKeyHash))
	admin.Get("/stats", adminHandler.DashboardStats)
	admin.Get("/orders", adminHandler.ListOrders)
	admin.Get("/notifications", adminHandler.ListNotifications)
	admin.Post("/notifications/:id/retry", adminHandler.RetryNotification)
}
