package postgres

import (
	"context"

	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo auditoría de ajustes de stock sobre PostgreSQL.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador.
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create inserta el movimiento.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_movements (id, tenant_id, piece_id, variant_id, delta, available_after, reason, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.TenantID, m.PieceID, m.VariantID, m.Delta, m.AvailableAfter,
		nullIfEmpty(m.Reason), nullIfEmpty(m.CreatedBy), m.CreatedAt)
	if err != nil {
		return transient("insert stock movement", err)
	}
	return nil
}

// ListByPiece movimientos de la pieza, más recientes primero.
func (r *StockMovementRepo) ListByPiece(ctx context.Context, tenantID, pieceID string, limit, offset int) ([]*entity.StockMovement, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, tenant_id, piece_id, variant_id, delta, available_after, reason, created_by, created_at
		FROM stock_movements
		WHERE tenant_id = $1 AND piece_id = $2
		ORDER BY created_at DESC, seq DESC
		LIMIT $3 OFFSET $4`, tenantID, pieceID, limit, offset)
	if err != nil {
		return nil, transient("list stock movements", err)
	}
	defer rows.Close()

	var out []*entity.StockMovement
	for rows.Next() {
		var (
			m             entity.StockMovement
			reason, actor *string
		)
		if err := rows.Scan(&m.ID, &m.TenantID, &m.PieceID, &m.VariantID, &m.Delta, &m.AvailableAfter,
			&reason, &actor, &m.CreatedAt); err != nil {
			return nil, transient("scan stock movement", err)
		}
		m.Reason = deref(reason)
		m.CreatedBy = deref(actor)
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, transient("list stock movements", err)
	}
	return out, nil
}
