package repository

import (
	"context"

	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
)

// PieceRepository puerto de lectura del catálogo (colaborador externo getPiece).
// Devuelve nil, nil si la pieza no existe para el tenant.
type PieceRepository interface {
	GetByID(ctx context.Context, tenantID, pieceID string) (*entity.Piece, error)
}
