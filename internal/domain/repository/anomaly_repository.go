package repository

import (
	"context"

	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
)

// AnomalyRepository registro de liquidaciones que requieren conciliación manual.
// Una sesión del proveedor tiene a lo sumo una anomalía: la restricción única evita reembolsos
// y avisos repetidos cuando el mismo pago se reentrega.
type AnomalyRepository interface {
	// Create devuelve domain.ErrDuplicate si la sesión del proveedor ya tiene anomalía.
	Create(ctx context.Context, anomaly *entity.SettlementAnomaly) error
	// FindBySessionRef nil, nil si no existe.
	FindBySessionRef(ctx context.Context, tenantID, provider, providerSessionID string) (*entity.SettlementAnomaly, error)
	SetRefundStatus(ctx context.Context, tenantID, anomalyID, status string) error
	ListOpen(ctx context.Context, tenantID string, limit, offset int) ([]*entity.SettlementAnomaly, error)
}
