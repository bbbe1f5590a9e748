package repository

import (
	"context"

	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
)

// StockMovementRepository auditoría de ajustes manuales de stock.
type StockMovementRepository interface {
	Create(ctx context.Context, m *entity.StockMovement) error
	// ListByPiece movimientos de la pieza (todas sus variantes), más recientes primero.
	ListByPiece(ctx context.Context, tenantID, pieceID string, limit, offset int) ([]*entity.StockMovement, error)
}
