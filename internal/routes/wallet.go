package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletstate/internal/wallet"
)

// RegisterWalletRoutes wires the wallet container endpoints. limiter guards
// the mutation routes and may be nil.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, limiter fiber.Handler) {
	group := r.Group("/wallet")
	group.Get("", h.Get)
	group.Get("/events", h.Events)

	if limiter != nil {
		group.Post("/initialize", limiter, h.Initialize)
		group.Put("/balance", limiter, h.UpdateBalance)
		return
	}
	group.Post("/initialize", h.Initialize)
	group.Put("/balance", h.UpdateBalance)
}
