// Package app assembles the store, services, outbox and HTTP surface from
// configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/database"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/outbox"
	"github.com/example/storefront/internal/repository"
	"github.com/example/storefront/internal/repository/gormrepo"
	"github.com/example/storefront/internal/repository/mongorepo"
	"github.com/example/storefront/internal/routes"
	"github.com/example/storefront/internal/services"
)

// App holds the long-lived components of one process.
type App struct {
	Config     *config.Config
	Store      repository.Store
	Driver     outbox.Driver
	Dispatcher *outbox.Dispatcher

	OTP      *services.OTPService
	Signup   *services.SignupService
	Accounts *services.AccountService
	Orders   *services.OrderService
	Payments *services.PaymentService
}

// OpenStore connects the store selected by DB_DRIVER.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.DatabaseDriver {
	case "mongo", "mongodb":
		return mongorepo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTransactions)
	case "postgres", "postgresql", "sqlite":
		db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.AppEnv == "development")
		if err != nil {
			return nil, err
		}
		return gormrepo.New(db), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DatabaseDriver)
	}
}

// New opens the store and queue driver and wires every service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	driver, err := outbox.NewDriver(ctx, outbox.DriverConfig{
		Name:     cfg.QueueDriver,
		RedisURL: cfg.RedisURL,
		AMQPURL:  cfg.AMQPURL,
		Queue:    cfg.QueueName,
	})
	if err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("queue driver: %w", err)
	}

	return NewWithStore(cfg, store, driver), nil
}

// NewWithStore wires the services over an already opened store and driver.
func NewWithStore(cfg *config.Config, store repository.Store, driver outbox.Driver) *App {
	local := cfg.LocalOTP()

	mail := services.NewMailService(services.MailConfig{
		Host:         cfg.SMTPHost,
		Port:         cfg.SMTPPort,
		Username:     cfg.SMTPUser,
		Password:     cfg.SMTPPass,
		From:         cfg.EmailFrom,
		FromName:     cfg.EmailFromName,
		SupportEmail: cfg.SupportEmail,
		Local:        local,
	})
	sms := services.NewSMSService(services.SMSConfig{
		BaseURL:    cfg.MSG91BaseURL,
		AuthKey:    cfg.MSG91AuthKey,
		TemplateID: cfg.MSG91TemplateID,
		Local:      local,
		Timeout:    cfg.ProviderTimeout,
	})
	telegram := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	razorpay := services.NewRazorpayClient(services.RazorpayConfig{
		BaseURL:   cfg.RazorpayBaseURL,
		KeyID:     cfg.RazorpayKeyID,
		KeySecret: cfg.RazorpayKeySecret,
		Timeout:   cfg.ProviderTimeout,
	})

	dispatcher := outbox.NewDispatcher(store.Notifications(), driver, outbox.Options{
		Workers:       cfg.OutboxWorkers,
		MaxAttempts:   cfg.OutboxMaxAttempts,
		Backoff:       cfg.OutboxBackoff,
		SweepInterval: cfg.OutboxSweepInterval,
	})
	deliveries := services.NewNotificationHandlers(store, mail, telegram)
	dispatcher.Handle(models.NotificationOrderConfirmation, deliveries.OrderConfirmation)
	dispatcher.Handle(models.NotificationAdminOrderAlert, deliveries.AdminOrderAlert)

	tokens := services.NewTokenIssuer(cfg.JWTSecret, cfg.TokenExpires)
	orders := services.NewOrderService(store, razorpay, dispatcher)

	return &App{
		Config:     cfg,
		Store:      store,
		Driver:     driver,
		Dispatcher: dispatcher,
		OTP:        services.NewOTPService(store, services.NewOTPDispatcher(mail, sms), tokens, cfg.OTPSendTimeout),
		Signup:     services.NewSignupService(store, tokens),
		Accounts:   services.NewAccountService(store),
		Orders:     orders,
		Payments:   services.NewPaymentService(orders, cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret),
	}
}

// HTTP builds the fiber app.
func (a *App) HTTP() *fiber.App {
	return routes.NewApp(routes.Deps{
		Config:        a.Config,
		OTP:           a.OTP,
		Signup:        a.Signup,
		Accounts:      a.Accounts,
		Orders:        a.Orders,
		Payments:      a.Payments,
		Notifications: a.Dispatcher,
	})
}

// Close releases the driver and the store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Driver.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close queue: %w", err))
	}
	if err := a.Store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		zap.L().Warn("shutdown incomplete", zap.Error(err))
		return err
	}
	return nil
}
