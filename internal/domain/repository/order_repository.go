package repository

import (
	"context"
	"time"

	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
)

// OrderRepository persistencia de pedidos. La restricción única
// (tenant_id, provider, provider_session_id) es la que realmente rompe la carrera entre
// entregas concurrentes del mismo webhook; FindBySessionRef es solo el camino rápido.
type OrderRepository interface {
	// Create devuelve domain.ErrDuplicate si ya existe un pedido para la misma sesión del proveedor.
	Create(ctx context.Context, order *entity.Order) error
	MarkPaid(ctx context.Context, tenantID, orderID string, paidAt time.Time) error
	FindBySessionRef(ctx context.Context, tenantID, provider, providerSessionID string) (*entity.Order, error)
	GetByID(ctx context.Context, tenantID, orderID string) (*entity.Order, error)
}
