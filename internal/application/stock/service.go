package stock

import (
	"context"
	"sort"

	"github.com/jhoicas/storefront-checkout/internal/domain"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/internal/domain/repository"
	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

// Service operaciones internas de reserva (reserveStock, cancelReservation, commitReservation)
// usadas tanto por el checkout como por la liquidación.
type Service struct {
	store     repository.ReservationStore
	movements repository.StockMovementRepository
	log       *logger.Logger
}

// NewService construye el servicio.
func NewService(store repository.ReservationStore, log *logger.Logger) *Service {
	return &Service{store: store, log: log.Component("stock")}
}

// WithMovementLog registra cada ajuste manual en el repositorio de auditoría.
func (s *Service) WithMovementLog(movements repository.StockMovementRepository) *Service {
	s.movements = movements
	return s
}

// ReserveItem línea a reservar. Index es la posición en el carrito original (para reportar errores).
type ReserveItem struct {
	Index     int
	PieceID   string
	VariantID string
	Quantity  int
}

func (it ReserveItem) key() entity.StockKey {
	return entity.StockKey{PieceID: it.PieceID, VariantID: it.VariantID}
}

// ReserveStock reserva una sola unidad de stock.
func (s *Service) ReserveStock(ctx context.Context, in entity.ReserveInput) (*entity.Reservation, error) {
	if in.TenantID == "" || in.PieceID == "" || in.SessionID == "" || in.Quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	return s.store.Reserve(ctx, in)
}

// CommitReservation confirma las reservas de la sesión.
func (s *Service) CommitReservation(ctx context.Context, tenantID, sessionID string) (bool, error) {
	ok, err := s.store.Commit(ctx, tenantID, sessionID)
	if err != nil {
		return false, err
	}
	if !ok {
		s.log.Warn().Str("tenant_id", tenantID).Str("session_id", sessionID).Msg("commit sobre reserva no retenida")
	}
	return ok, nil
}

// CancelReservation libera las reservas de la sesión.
func (s *Service) CancelReservation(ctx context.Context, tenantID, sessionID string) (bool, error) {
	return s.store.Cancel(ctx, tenantID, sessionID)
}

// ReserveMultiple reserva todas las líneas bajo una misma sesión, en orden ascendente de
// (pieza, variante) para que checkouts con ítems solapados no se bloqueen mutuamente.
// Líneas repetidas se suman. Ante el primer fallo cancela todas las reservas hechas en esta
// llamada y devuelve un *domain.ItemError con la línea que falló.
func (s *Service) ReserveMultiple(ctx context.Context, tenantID, sessionID string, items []ReserveItem, holdMinutes int) ([]*entity.Reservation, error) {
	if tenantID == "" || sessionID == "" || len(items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	merged := MergeItems(items)
	for _, it := range merged {
		if it.PieceID == "" || it.Quantity <= 0 {
			return nil, &domain.ItemError{Index: it.Index, PieceID: it.PieceID, VariantID: it.VariantID, Err: domain.ErrInvalidInput}
		}
	}

	held := make([]*entity.Reservation, 0, len(merged))
	for _, it := range merged {
		r, err := s.store.Reserve(ctx, entity.ReserveInput{
			TenantID:    tenantID,
			PieceID:     it.PieceID,
			VariantID:   it.VariantID,
			Quantity:    it.Quantity,
			SessionID:   sessionID,
			HoldMinutes: holdMinutes,
		})
		if err != nil {
			if len(held) > 0 {
				s.rollback(ctx, tenantID, sessionID)
			}
			return nil, &domain.ItemError{Index: it.Index, PieceID: it.PieceID, VariantID: it.VariantID, Err: err}
		}
		held = append(held, r)
	}
	return held, nil
}

// rollback libera las reservas parciales. Usa un contexto sin cancelación: si el request ya
// terminó igual hay que devolver el stock. Si falla, el sweeper lo recupera al vencer.
func (s *Service) rollback(ctx context.Context, tenantID, sessionID string) {
	if _, err := s.store.Cancel(context.WithoutCancel(ctx), tenantID, sessionID); err != nil {
		s.log.Error().Err(err).
			Str("tenant_id", tenantID).
			Str("session_id", sessionID).
			Msg("no se pudieron liberar reservas parciales; el sweeper las liberará al vencer")
	}
}

// MergeItems suma líneas con la misma (pieza, variante) conservando el primer índice y
// devuelve las líneas ordenadas por clave.
func MergeItems(items []ReserveItem) []ReserveItem {
	byKey := make(map[entity.StockKey]int, len(items))
	out := make([]ReserveItem, 0, len(items))
	for _, it := range items {
		if pos, ok := byKey[it.key()]; ok {
			out[pos].Quantity += it.Quantity
			continue
		}
		byKey[it.key()] = len(out)
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].key().Less(out[j].key()) })
	return out
}
