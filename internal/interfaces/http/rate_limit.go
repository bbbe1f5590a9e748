package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/jhoicas/storefront-checkout/internal/application/dto"
	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

// RateLimiter contador compartido entre instancias (Redis).
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// KeyFunc clave del contador de rate limit.
type KeyFunc func(c *fiber.Ctx) string

// KeyByIP un contador por ruta e IP (login).
func KeyByIP(c *fiber.Ctx) string { return c.Path() + "|" + c.IP() }

// KeyByProvider un contador por proveedor para los webhooks. Stripe y PayPal envían desde pocas
// IPs compartidas entre todas sus cuentas, así que contar por IP limitaría al proveedor entero
// con el presupuesto de un cliente.
func KeyByProvider(c *fiber.Ctx) string { return "webhook|" + c.Params("provider") }

// RateLimit limita peticiones por la clave que devuelve key. Con shared nil usa el limiter en
// memoria de Fiber (por instancia). Si el contador compartido falla se deja pasar la petición.
func RateLimit(shared RateLimiter, perMinute int, key KeyFunc, log *logger.Logger) fiber.Handler {
	if perMinute <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	if key == nil {
		key = KeyByIP
	}
	if shared == nil {
		return limiter.New(limiter.Config{
			Max:          perMinute,
			Expiration:   time.Minute,
			KeyGenerator: key,
			LimitReached: func(c *fiber.Ctx) error {
				return tooManyRequests(c)
			},
		})
	}
	return func(c *fiber.Ctx) error {
		k := key(c)
		ok, err := shared.Allow(c.UserContext(), k)
		if err != nil {
			log.Warn().Err(err).Str("key", k).Msg("rate limiter no disponible, se permite la petición")
			return c.Next()
		}
		if !ok {
			return tooManyRequests(c)
		}
		return c.Next()
	}
}

func tooManyRequests(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{Code: "RATE_LIMITED", Message: "demasiadas peticiones"})
}
