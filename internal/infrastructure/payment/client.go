// Package payment adaptadores de los proveedores de pago (tarjeta: Stripe sobre stripe-go,
// billetera: PayPal sobre plutov/paypal). Las llamadas al SDK pasan por un circuit breaker por
// proveedor para no acumular checkouts colgados cuando el proveedor está caído.
package payment

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/plutov/paypal/v4"
	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v76"

	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

// BreakerConfig umbrales del circuit breaker.
type BreakerConfig struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// breaker circuit breaker de un proveedor.
type breaker struct {
	provider string
	cb       *gobreaker.CircuitBreaker[any]
}

func newBreaker(provider string, bc BreakerConfig, log *logger.Logger) *breaker {
	if bc.ConsecutiveFailures == 0 {
		bc.ConsecutiveFailures = 5
	}
	if bc.OpenTimeout <= 0 {
		bc.OpenTimeout = 30 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        provider,
		MaxRequests: 1,
		Timeout:     bc.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bc.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("cambio de estado del circuit breaker")
		},
		IsSuccessful: func(err error) bool {
			return !countsAsFailure(err)
		},
	})
	return &breaker{provider: provider, cb: cb}
}

// run ejecuta fn a través del breaker.
func run[T any](b *breaker, fn func() (T, error)) (T, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, fmt.Errorf("%s: circuit breaker abierto: %w", b.provider, err)
	}
	out, _ := res.(T)
	return out, err
}

// countsAsFailure solo 5xx, 429 y errores de red abren el breaker; un 4xx es un rechazo del
// proveedor a esa petición, no una caída.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return serverStatus(stripeErr.HTTPStatusCode)
	}
	var paypalErr *paypal.ErrorResponse
	if errors.As(err, &paypalErr) && paypalErr.Response != nil {
		return serverStatus(paypalErr.Response.StatusCode)
	}
	// red, timeout o respuesta ilegible
	return true
}

func serverStatus(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}
