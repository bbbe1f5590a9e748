package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/internal/domain/repository"
)

var _ repository.PieceRepository = (*PieceRepo)(nil)

// PieceRepo lectura del catálogo de piezas.
type PieceRepo struct {
	q Querier
}

// NewPieceRepository construye el adaptador.
func NewPieceRepository(q Querier) *PieceRepo {
	return &PieceRepo{q: q}
}

// GetByID obtiene la pieza con sus variantes (nil, nil si no existe para el tenant).
func (r *PieceRepo) GetByID(ctx context.Context, tenantID, pieceID string) (*entity.Piece, error) {
	var p entity.Piece
	err := r.q.QueryRow(ctx, `
		SELECT id, tenant_id, name, status, price, updated_at
		FROM pieces WHERE tenant_id = $1 AND id = $2`, tenantID, pieceID).Scan(
		&p.ID, &p.TenantID, &p.Name, &p.Status, &p.Price, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, transient("get piece", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, piece_id, name, price, sellable
		FROM piece_variants WHERE tenant_id = $1 AND piece_id = $2
		ORDER BY id`, tenantID, pieceID)
	if err != nil {
		return nil, transient("get piece variants", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v entity.PieceVariant
		if err := rows.Scan(&v.ID, &v.PieceID, &v.Name, &v.Price, &v.Sellable); err != nil {
			return nil, transient("scan piece variant", err)
		}
		p.Variants = append(p.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, transient("get piece variants", err)
	}
	return &p, nil
}

// Upsert guarda la pieza y reemplaza sus variantes (sincronización del catálogo y seeds).
func (r *PieceRepo) Upsert(ctx context.Context, p *entity.Piece) error {
	return withTx(ctx, r.q, "upsert piece", func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO pieces (id, tenant_id, name, status, price, updated_at)
			VALUES ($1, $2, $3, $4, $5, now())
			ON CONFLICT (tenant_id, id) DO UPDATE
			SET name = EXCLUDED.name, status = EXCLUDED.status, price = EXCLUDED.price, updated_at = now()`,
			p.ID, p.TenantID, p.Name, p.Status, p.Price); err != nil {
			return transient("upsert piece", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM piece_variants WHERE tenant_id = $1 AND piece_id = $2`, p.TenantID, p.ID); err != nil {
			return transient("delete piece variants", err)
		}
		for _, v := range p.Variants {
			if _, err := tx.Exec(ctx, `
				INSERT INTO piece_variants (id, tenant_id, piece_id, name, price, sellable)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				v.ID, p.TenantID, p.ID, v.Name, v.Price, v.Sellable); err != nil {
				return transient("insert piece variant", err)
			}
		}
		return nil
	})
}
