package checkout

import (
	"context"

	"github.com/jhoicas/storefront-checkout/internal/application/ports"
	"github.com/jhoicas/storefront-checkout/internal/application/stock"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
)

// StockReserver operaciones de reserva que usa el checkout (implementada por stock.Service).
type StockReserver interface {
	ReserveMultiple(ctx context.Context, tenantID, sessionID string, items []stock.ReserveItem, holdMinutes int) ([]*entity.Reservation, error)
	CancelReservation(ctx context.Context, tenantID, sessionID string) (bool, error)
}

// ProviderLookup resuelve el proveedor de pago por nombre (stripe, paypal).
type ProviderLookup interface {
	Provider(name string) (ports.PaymentProvider, error)
}
