package settlement

import (
	"context"
	"time"

	"github.com/jhoicas/storefront-checkout/internal/application/ports"
	"github.com/jhoicas/storefront-checkout/internal/domain/repository"
)

// TxRunner ejecuta la liquidación en una transacción: commit de la reserva y alta del pedido
// quedan confirmados juntos o no queda ninguno.
type TxRunner interface {
	RunSettlement(ctx context.Context, fn func(
		store repository.ReservationStore,
		orders repository.OrderRepository,
	) error) error
}

// ProviderLookup resuelve el proveedor de pago por nombre.
type ProviderLookup interface {
	Provider(name string) (ports.PaymentProvider, error)
}

// EventDeduper camino rápido para reentregas de webhooks. Solo se marca un evento después de
// procesarlo con éxito; la restricción única de pedidos sigue siendo la que decide la carrera.
type EventDeduper interface {
	Seen(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string, ttl time.Duration) error
}
