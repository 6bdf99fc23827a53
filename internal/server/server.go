package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/walletstate/internal/config"
	"github.com/congo-pay/walletstate/internal/keys"
	"github.com/congo-pay/walletstate/internal/notification"
	"github.com/congo-pay/walletstate/internal/routes"
	"github.com/congo-pay/walletstate/internal/wallet"
)

const relayBuffer = 64

// Server wraps the Fiber application, the wallet container and its change relay.
type Server struct {
	app       *fiber.App
	cfg       config.Config
	store     *wallet.Store
	relayDone chan struct{}
	stopRelay context.CancelFunc
}

// New instantiates the HTTP server around store, starts relaying wallet
// changes to the logger (and Redis when cache is set) and delegates route
// wiring to routes.Setup.
func New(cfg config.Config, store *wallet.Store, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.WriteTimeout,
	})

	deps := routes.Deps{Cfg: cfg, Cache: cache, Logger: logger, Store: store, Keys: keys.Ed25519Generator{}}
	if err := routes.Setup(app, deps); err != nil {
		return nil, err
	}

	notifiers := notification.Multi{notification.NewLoggerNotifier(logger)}
	if cache != nil {
		notifiers = append(notifiers, notification.NewRedisNotifier(cache, cfg.EventsChannel))
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{app: app, cfg: cfg, store: store, relayDone: make(chan struct{}), stopRelay: cancel}
	sub := store.Subscribe(relayBuffer)
	go func() {
		defer close(s.relayDone)
		notification.Relay(ctx, sub, notifiers, logger)
	}()

	return s, nil
}

// App exposes the underlying Fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown closes the wallet container, which ends event streams and the
// relay, then gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.store.Close()
	select {
	case <-s.relayDone:
	case <-ctx.Done():
		s.stopRelay()
	}
	return s.app.ShutdownWithContext(ctx)
}
