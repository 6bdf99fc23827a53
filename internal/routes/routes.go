package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/walletstate/internal/config"
	"github.com/congo-pay/walletstate/internal/middleware"
	"github.com/congo-pay/walletstate/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	Cache  *redis.Client
	Logger *slog.Logger
	Store  *wallet.Store
	Keys   wallet.KeyGenerator
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Store == nil {
		return fmt.Errorf("wallet store is required")
	}
	if d.Cache == nil && !d.Cfg.IsDev() {
		return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	if d.Logger != nil {
		app.Use(middleware.Audit(d.Logger))
	}
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, middleware.IdempotencyConfig{
			TTL:      d.Cfg.IdempotencyTTL,
			Required: d.Cfg.IdempotencyRequired,
		}, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.GetRequestID(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	var limiter fiber.Handler
	if d.Cache != nil {
		limiter = middleware.RateLimit(d.Cache, "wallet", d.Cfg.MutationRateLimit)
	}
	handler := wallet.NewHandler(d.Store, d.Keys,
		wallet.WithKeepAlive(d.Cfg.EventsKeepAlive),
		wallet.WithStreamWriteTimeout(d.Cfg.WriteTimeout),
	)
	RegisterWalletRoutes(api, handler, limiter)

	return nil
}
