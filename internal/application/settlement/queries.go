package settlement

import (
	"context"

	"github.com/jhoicas/storefront-checkout/internal/domain"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
)

// ListAnomalies anomalías abiertas del tenant para conciliación manual.
func (uc *UseCase) ListAnomalies(ctx context.Context, tenantID string, limit, offset int) ([]*entity.SettlementAnomaly, error) {
	if tenantID == "" {
		return nil, domain.ErrInvalidInput
	}
	return uc.anomalies.ListOpen(ctx, tenantID, limit, offset)
}

// GetOrder devuelve el pedido del tenant o domain.ErrNotFound.
func (uc *UseCase) GetOrder(ctx context.Context, tenantID, orderID string) (*entity.Order, error) {
	if tenantID == "" || orderID == "" {
		return nil, domain.ErrInvalidInput
	}
	o, err := uc.orders.GetByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.ErrNotFound
	}
	return o, nil
}
