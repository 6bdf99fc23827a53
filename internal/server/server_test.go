package server

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/walletstate/internal/config"
	"github.com/congo-pay/walletstate/internal/logging"
	"github.com/congo-pay/walletstate/internal/wallet"
)

func TestServerPublishesChangesAndShutsDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	ctx := context.Background()
	pubsub := cache.Subscribe(ctx, "wallet:events")
	defer pubsub.Close()
	_, err = pubsub.Receive(ctx)
	require.NoError(t, err)

	store := wallet.NewStore(wallet.DefaultBalance, logging.Discard())
	cfg := config.Config{AppEnv: "test", EventsChannel: "wallet:events", IdempotencyTTL: time.Minute}
	srv, err := New(cfg, store, cache, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, 1, store.Subscribers())

	resp, err := srv.App().Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	store.UpdateBalance(12.5)
	select {
	case msg := <-pubsub.Channel():
		assert.Contains(t, msg.Payload, `"balance":12.5`)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for relayed change")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(shutdownCtx))
	assert.Equal(t, 0, store.Subscribers())
}

func TestEventsStreamOutlivesWriteTimeout(t *testing.T) {
	store := wallet.NewStore(wallet.DefaultBalance, logging.Discard())
	cfg := config.Config{
		AppEnv:          "test",
		EventsChannel:   "wallet:events",
		WriteTimeout:    300 * time.Millisecond,
		EventsKeepAlive: 100 * time.Millisecond,
	}
	srv, err := New(cfg, store, nil, logging.Discard())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.App().Listener(ln) }()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/v1/wallet/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	lines := make(chan string, 256)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	// Stay connected for several write timeouts before changing anything.
	idle := time.After(4 * cfg.WriteTimeout)
	keepAlives := 0
wait:
	for {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream ended while idle")
			if line == ": keep-alive" {
				keepAlives++
			}
		case <-idle:
			break wait
		}
	}
	assert.GreaterOrEqual(t, keepAlives, 3)

	store.UpdateBalance(99)
	deadline := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream ended before the balance change arrived")
			if line == "event: balance_updated" {
				return
			}
			if strings.HasPrefix(line, "data:") {
				assert.NotContains(t, line, "secret_key")
			}
		case <-deadline:
			t.Fatal("balance change never reached the stream")
		}
	}
}
