package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/congo-pay/walletstate/internal/middleware"
)

const defaultTimeout = 10 * time.Second

// WalletView mirrors the public wallet representation served by the API.
type WalletView struct {
	PublicKey   string  `json:"public_key"`
	Balance     float64 `json:"balance"`
	Initialized bool    `json:"initialized"`
	Version     uint64  `json:"version"`
}

// InitializeRequest is the body of POST /api/v1/wallet/initialize.
type InitializeRequest struct {
	PublicKey string `json:"public_key,omitempty"`
	SecretKey []byte `json:"secret_key,omitempty"`
	Generate  bool   `json:"generate,omitempty"`
}

// Client talks to a walletstate API over HTTP.
type Client struct {
	BaseURL string
	Timeout time.Duration
}

// Get fetches the current wallet view.
func (c Client) Get() (WalletView, error) {
	var out WalletView
	err := c.do(fiber.Get(c.url("/api/v1/wallet")), &out)
	return out, err
}

// Initialize installs a key pair on the server.
func (c Client) Initialize(req InitializeRequest) (WalletView, error) {
	var out WalletView
	a := fiber.Post(c.url("/api/v1/wallet/initialize")).JSON(req)
	err := c.do(withIdempotencyKey(a), &out)
	return out, err
}

// SetBalance replaces the server-side balance.
func (c Client) SetBalance(balance float64) (WalletView, error) {
	var out WalletView
	a := fiber.Put(c.url("/api/v1/wallet/balance")).JSON(map[string]float64{"balance": balance})
	err := c.do(withIdempotencyKey(a), &out)
	return out, err
}

func (c Client) url(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + path
}

func (c Client) do(a *fiber.Agent, out any) error {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	code, body, errs := a.Timeout(timeout).Bytes()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if code >= fiber.StatusMultipleChoices {
		return fmt.Errorf("server returned %d: %s", code, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func withIdempotencyKey(a *fiber.Agent) *fiber.Agent {
	return a.Set(middleware.IdempotencyKeyHeader, uuid.NewString())
}
