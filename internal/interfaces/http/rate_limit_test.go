package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/jhoicas/storefront-checkout/internal/interfaces/http"
	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

// countingLimiter contador compartido en memoria que registra las claves consultadas.
type countingLimiter struct {
	mu    sync.Mutex
	max   int
	count map[string]int
	err   error
}

func (l *countingLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.count == nil {
		l.count = make(map[string]int)
	}
	l.count[key]++
	return l.count[key] <= l.max, nil
}

func limitedApp(shared apphttp.RateLimiter) *fiber.App {
	// c.IP() lee X-Forwarded-For para simular orígenes distintos
	app := fiber.New(fiber.Config{ProxyHeader: fiber.HeaderXForwardedFor})
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app.Post("/api/checkout/:provider/webhook", apphttp.RateLimit(shared, 2, apphttp.KeyByProvider, logger.Nop()), ok)
	app.Post("/api/auth/login", apphttp.RateLimit(shared, 2, apphttp.KeyByIP, logger.Nop()), ok)
	return app
}

func post(t *testing.T, app *fiber.App, path, ip string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set(fiber.HeaderXForwardedFor, ip)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp.StatusCode
}

func TestRateLimit_WebhookCuentaPorProveedorNoPorIP(t *testing.T) {
	for name, shared := range map[string]apphttp.RateLimiter{
		"memoria":    nil,
		"compartido": &countingLimiter{max: 2},
	} {
		t.Run(name, func(t *testing.T) {
			app := limitedApp(shared)

			// Las IPs del proveedor rotan; el presupuesto es del proveedor.
			assert.Equal(t, http.StatusOK, post(t, app, "/api/checkout/stripe/webhook", "10.0.0.1"))
			assert.Equal(t, http.StatusOK, post(t, app, "/api/checkout/stripe/webhook", "10.0.0.2"))
			assert.Equal(t, http.StatusTooManyRequests, post(t, app, "/api/checkout/stripe/webhook", "10.0.0.3"))

			// Otro proveedor desde la misma IP no se ve afectado
			assert.Equal(t, http.StatusOK, post(t, app, "/api/checkout/paypal/webhook", "10.0.0.3"))
		})
	}
}

func TestRateLimit_LoginCuentaPorIP(t *testing.T) {
	app := limitedApp(nil)

	assert.Equal(t, http.StatusOK, post(t, app, "/api/auth/login", "10.0.0.1"))
	assert.Equal(t, http.StatusOK, post(t, app, "/api/auth/login", "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, post(t, app, "/api/auth/login", "10.0.0.1"))
	assert.Equal(t, http.StatusOK, post(t, app, "/api/auth/login", "10.0.0.2"))
}

func TestRateLimit_ClavesDelContadorCompartido(t *testing.T) {
	shared := &countingLimiter{max: 10}
	app := limitedApp(shared)

	post(t, app, "/api/checkout/stripe/webhook", "10.0.0.1")
	post(t, app, "/api/auth/login", "10.0.0.1")

	assert.Equal(t, 1, shared.count["webhook|stripe"])
	assert.Equal(t, 1, shared.count["/api/auth/login|10.0.0.1"])
}

func TestRateLimit_ContadorCaidoDejaPasar(t *testing.T) {
	app := limitedApp(&countingLimiter{max: 1, err: errors.New("redis caído")})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, post(t, app, "/api/checkout/stripe/webhook", "10.0.0.1"))
	}
}
