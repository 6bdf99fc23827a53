package wallet

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

const (
	defaultStreamBuffer = 16
	defaultKeepAlive    = 15 * time.Second
)

// Handler exposes the wallet container over HTTP.
type Handler struct {
	store        *Store
	keys         KeyGenerator
	keepAlive    time.Duration
	writeTimeout time.Duration
}

// HandlerOption tunes a Handler.
type HandlerOption func(*Handler)

// WithKeepAlive sets the interval between keep-alive comments on the events
// stream. Non-positive values keep the default.
func WithKeepAlive(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.keepAlive = d
		}
	}
}

// WithStreamWriteTimeout bounds how long a single events frame may take to
// reach the client. Zero disables the bound.
func WithStreamWriteTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

// NewHandler builds a wallet HTTP handler. keys may be nil, in which case
// generate requests are rejected.
func NewHandler(store *Store, keys KeyGenerator, opts ...HandlerOption) *Handler {
	h := &Handler{store: store, keys: keys, keepAlive: defaultKeepAlive}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type initializeRequest struct {
	PublicKey string `json:"public_key"`
	SecretKey []byte `json:"secret_key"`
	Generate  bool   `json:"generate"`
}

type balanceRequest struct {
	Balance *float64 `json:"balance"`
}

type walletResponse struct {
	PublicKey   string  `json:"public_key"`
	Balance     float64 `json:"balance"`
	Initialized bool    `json:"initialized"`
	Version     uint64  `json:"version"`
}

func toResponse(s State) walletResponse {
	return walletResponse{
		PublicKey:   s.PublicKey,
		Balance:     s.Balance,
		Initialized: s.Initialized,
		Version:     s.Version,
	}
}

// Get returns the public view of the wallet. Secret key material never leaves
// the process over HTTP.
func (h *Handler) Get(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(toResponse(h.store.State()))
}

// Initialize installs a caller-supplied key pair, or a generated one when
// generate is set.
func (h *Handler) Initialize(c *fiber.Ctx) error {
	var req initializeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	kp := KeyPair{PublicKey: req.PublicKey, SecretKey: req.SecretKey}
	if req.Generate {
		if h.keys == nil {
			return fiber.NewError(http.StatusNotImplemented, "key generation is not configured")
		}
		generated, err := h.keys.Generate()
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		kp = generated
	}

	h.store.InitializeWallet(kp)
	return c.Status(http.StatusOK).JSON(toResponse(h.store.State()))
}

// UpdateBalance replaces the wallet balance.
func (h *Handler) UpdateBalance(c *fiber.Ctx) error {
	var req balanceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Balance == nil {
		return fiber.NewError(http.StatusBadRequest, "balance is required")
	}

	h.store.UpdateBalance(*req.Balance)
	return c.Status(http.StatusOK).JSON(toResponse(h.store.State()))
}

// Events streams wallet changes as server-sent events. The first frame is the
// current snapshot; the stream ends when the store closes or the client goes
// away.
//
// The server-wide write timeout is armed once per response, so the stream
// pushes the connection's write deadline forward before every frame.
func (h *Handler) Events(c *fiber.Ctx) error {
	sub := h.store.Subscribe(defaultStreamBuffer)
	current := h.store.State()
	keepAlive := h.keepAlive
	conn := c.Context().Conn()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer sub.Unsubscribe()

		h.extendDeadline(conn)
		if err := writeEvent(w, "snapshot", current); err != nil {
			return
		}

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				h.extendDeadline(conn)
				if err := writeEvent(w, string(ev.Kind), ev.State); err != nil {
					return
				}
			case <-ticker.C:
				h.extendDeadline(conn)
				if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

// extendDeadline gives the next frame keepAlive plus writeTimeout to land.
// Without a writeTimeout the deadline is cleared.
func (h *Handler) extendDeadline(conn net.Conn) {
	if conn == nil {
		return
	}
	var deadline time.Time
	if h.writeTimeout > 0 {
		deadline = time.Now().Add(h.keepAlive + h.writeTimeout)
	}
	_ = conn.SetWriteDeadline(deadline)
}

func writeEvent(w *bufio.Writer, name string, s State) error {
	payload, err := json.Marshal(toResponse(s))
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\nid: %d\ndata: %s\n\n", name, s.Version, payload); err != nil {
		return err
	}
	return w.Flush()
}
