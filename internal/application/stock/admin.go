package stock

import (
	"context"

	"github.com/google/uuid"

	"github.com/jhoicas/storefront-checkout/internal/domain"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
)

// StockLevel lee el libro de stock de una (pieza, variante). domain.ErrNotFound si no existe.
func (s *Service) StockLevel(ctx context.Context, tenantID, pieceID, variantID string) (*entity.StockUnit, error) {
	if tenantID == "" || pieceID == "" {
		return nil, domain.ErrInvalidInput
	}
	unit, err := s.store.GetStockUnit(ctx, tenantID, pieceID, variantID)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, domain.ErrNotFound
	}
	return unit, nil
}

// AdjustStock reposición (Delta > 0) o corrección (Delta < 0) del disponible.
// Devuelve domain.ErrInsufficientStock si la corrección dejaría el disponible negativo.
// Con WithMovementLog el ajuste queda auditado; un fallo de auditoría no revierte el ajuste.
func (s *Service) AdjustStock(ctx context.Context, adj entity.StockAdjustment) (*entity.StockUnit, error) {
	if adj.TenantID == "" || adj.PieceID == "" || adj.Delta == 0 {
		return nil, domain.ErrInvalidInput
	}
	unit, err := s.store.AdjustAvailable(ctx, adj.TenantID, adj.PieceID, adj.VariantID, adj.Delta)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("tenant_id", adj.TenantID).
		Str("piece_id", adj.PieceID).
		Str("variant_id", adj.VariantID).
		Int("delta", adj.Delta).
		Int("available", unit.AvailableQuantity).
		Str("actor", adj.ActorID).
		Msg("stock ajustado")

	if s.movements != nil {
		m := &entity.StockMovement{
			ID:             uuid.New().String(),
			TenantID:       adj.TenantID,
			PieceID:        adj.PieceID,
			VariantID:      adj.VariantID,
			Delta:          adj.Delta,
			AvailableAfter: unit.AvailableQuantity,
			Reason:         adj.Reason,
			CreatedBy:      adj.ActorID,
			CreatedAt:      unit.UpdatedAt,
		}
		if err := s.movements.Create(ctx, m); err != nil {
			s.log.Error().Err(err).Str("tenant_id", adj.TenantID).Str("piece_id", adj.PieceID).Msg("no se pudo auditar el ajuste de stock")
		}
	}
	return unit, nil
}

// StockMovements auditoría de ajustes de una pieza. Sin WithMovementLog devuelve lista vacía.
func (s *Service) StockMovements(ctx context.Context, tenantID, pieceID string, limit, offset int) ([]*entity.StockMovement, error) {
	if tenantID == "" || pieceID == "" {
		return nil, domain.ErrInvalidInput
	}
	if s.movements == nil {
		return nil, nil
	}
	return s.movements.ListByPiece(ctx, tenantID, pieceID, limit, offset)
}

// SessionReservations lista las reservas de una sesión. domain.ErrNotFound si no tiene ninguna.
func (s *Service) SessionReservations(ctx context.Context, tenantID, sessionID string) ([]*entity.Reservation, error) {
	if tenantID == "" || sessionID == "" {
		return nil, domain.ErrInvalidInput
	}
	rs, err := s.store.ListBySession(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if len(rs) == 0 {
		return nil, domain.ErrNotFound
	}
	return rs, nil
}
