// Package memory implementa los puertos de persistencia en memoria (modo dev y tests).
// Una sola sección crítica por operación cumple el mismo contrato atómico que el
// UPDATE condicional de PostgreSQL.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/storefront-checkout/internal/domain"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/internal/domain/repository"
	"github.com/jhoicas/storefront-checkout/internal/domain/reservation"
)

var _ repository.ReservationStore = (*Store)(nil)

type unitKey struct {
	tenantID, pieceID, variantID string
}

type sessionKey struct {
	tenantID, sessionID string
}

// Store libro de stock + reservas en memoria.
type Store struct {
	mu           sync.Mutex
	now          func() time.Time
	units        map[unitKey]*entity.StockUnit
	reservations map[string]*entity.Reservation
	bySession    map[sessionKey][]string
}

// NewStore construye el store. now puede ser nil (usa time.Now).
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:          now,
		units:        make(map[unitKey]*entity.StockUnit),
		reservations: make(map[string]*entity.Reservation),
		bySession:    make(map[sessionKey][]string),
	}
}

// SetStock fija el disponible de una unidad (bootstrap y tests).
func (s *Store) SetStock(tenantID, pieceID, variantID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units[unitKey{tenantID, pieceID, variantID}] = &entity.StockUnit{
		TenantID:          tenantID,
		PieceID:           pieceID,
		VariantID:         variantID,
		AvailableQuantity: quantity,
		UpdatedAt:         s.now(),
	}
}

// Reserve descuenta y crea la reserva en la misma sección crítica.
func (s *Store) Reserve(_ context.Context, in entity.ReserveInput) (*entity.Reservation, error) {
	if in.Quantity <= 0 || in.TenantID == "" || in.PieceID == "" || in.SessionID == "" {
		return nil, domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	unit, ok := s.units[unitKey{in.TenantID, in.PieceID, in.VariantID}]
	if !ok || unit.AvailableQuantity < in.Quantity {
		return nil, domain.ErrInsufficientStock
	}
	now := s.now()
	unit.AvailableQuantity -= in.Quantity
	unit.ReservedQuantity += in.Quantity
	unit.UpdatedAt = now

	r := &entity.Reservation{
		ID:        uuid.New().String(),
		TenantID:  in.TenantID,
		PieceID:   in.PieceID,
		VariantID: in.VariantID,
		Quantity:  in.Quantity,
		SessionID: in.SessionID,
		Status:    entity.ReservationHeld,
		CreatedAt: now,
		ExpiresAt: now.Add(in.HoldDuration()),
	}
	s.reservations[r.ID] = r
	sk := sessionKey{in.TenantID, in.SessionID}
	s.bySession[sk] = append(s.bySession[sk], r.ID)
	return cloneReservation(r), nil
}

// Commit held → committed; el stock ya se descontó al reservar, solo pasa de reservado a vendido.
func (s *Store) Commit(_ context.Context, tenantID, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, _ := s.commitLocked(tenantID, sessionID)
	return ok, nil
}

// commitLocked devuelve además los IDs que esta llamada pasó a committed (rollback de TxRunner).
func (s *Store) commitLocked(tenantID, sessionID string) (bool, []string) {
	rs := s.sessionLocked(tenantID, sessionID)
	d := reservation.DecideCommit(rs)
	var committed []string
	if d.Apply {
		now := s.now()
		for _, r := range reservation.Held(rs) {
			r.Status = entity.ReservationCommitted
			r.SettledAt = &now
			if unit, ok := s.units[unitKey{r.TenantID, r.PieceID, r.VariantID}]; ok {
				unit.ReservedQuantity -= r.Quantity
				unit.SoldQuantity += r.Quantity
				unit.UpdatedAt = now
			}
			committed = append(committed, r.ID)
		}
	}
	return d.Result, committed
}

// undoCommit devuelve a held las reservas indicadas si siguen committed.
func (s *Store) undoCommit(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, id := range ids {
		r, ok := s.reservations[id]
		if !ok || r.Status != entity.ReservationCommitted {
			continue
		}
		r.Status = entity.ReservationHeld
		r.SettledAt = nil
		if unit, ok := s.units[unitKey{r.TenantID, r.PieceID, r.VariantID}]; ok {
			unit.ReservedQuantity += r.Quantity
			unit.SoldQuantity -= r.Quantity
			unit.UpdatedAt = now
		}
	}
}

// Cancel held → cancelled devolviendo stock.
func (s *Store) Cancel(_ context.Context, tenantID, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs := s.sessionLocked(tenantID, sessionID)
	d := reservation.DecideCancel(rs)
	if d.Apply {
		s.releaseLocked(rs, entity.ReservationCancelled)
	}
	return d.Result, nil
}

// Expire held → expired si venció antes de now.
func (s *Store) Expire(_ context.Context, tenantID, sessionID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs := s.sessionLocked(tenantID, sessionID)
	d := reservation.DecideExpire(rs, now)
	if d.Apply {
		s.releaseLocked(rs, entity.ReservationExpired)
	}
	return d.Apply, nil
}

// ListExpiredSessions sesiones con reservas held vencidas, las más antiguas primero.
func (s *Store) ListExpiredSessions(_ context.Context, now time.Time, limit int) ([]entity.SessionRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []*entity.Reservation
	for _, r := range s.reservations {
		if r.Status == entity.ReservationHeld && r.ExpiresAt.Before(now) {
			expired = append(expired, r)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ExpiresAt.Before(expired[j].ExpiresAt) })

	seen := make(map[sessionKey]bool)
	var out []entity.SessionRef
	for _, r := range expired {
		sk := sessionKey{r.TenantID, r.SessionID}
		if seen[sk] {
			continue
		}
		seen[sk] = true
		out = append(out, entity.SessionRef{TenantID: r.TenantID, SessionID: r.SessionID})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ListBySession copia de las reservas de la sesión.
func (s *Store) ListBySession(_ context.Context, tenantID, sessionID string) ([]*entity.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs := s.sessionLocked(tenantID, sessionID)
	out := make([]*entity.Reservation, 0, len(rs))
	for _, r := range rs {
		out = append(out, cloneReservation(r))
	}
	return out, nil
}

// GetStockUnit copia de la unidad (nil si no existe).
func (s *Store) GetStockUnit(_ context.Context, tenantID, pieceID, variantID string) (*entity.StockUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unit, ok := s.units[unitKey{tenantID, pieceID, variantID}]
	if !ok {
		return nil, nil
	}
	cp := *unit
	return &cp, nil
}

// AdjustAvailable suma delta al disponible, creando la unidad si hace falta.
func (s *Store) AdjustAvailable(_ context.Context, tenantID, pieceID, variantID string, delta int) (*entity.StockUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := unitKey{tenantID, pieceID, variantID}
	unit, ok := s.units[k]
	if !ok {
		unit = &entity.StockUnit{TenantID: tenantID, PieceID: pieceID, VariantID: variantID}
	}
	if unit.AvailableQuantity+delta < 0 {
		return nil, domain.ErrInsufficientStock
	}
	unit.AvailableQuantity += delta
	unit.UpdatedAt = s.now()
	s.units[k] = unit
	cp := *unit
	return &cp, nil
}

func (s *Store) sessionLocked(tenantID, sessionID string) []*entity.Reservation {
	ids := s.bySession[sessionKey{tenantID, sessionID}]
	rs := make([]*entity.Reservation, 0, len(ids))
	for _, id := range ids {
		rs = append(rs, s.reservations[id])
	}
	return rs
}

func (s *Store) releaseLocked(rs []*entity.Reservation, status entity.ReservationStatus) {
	now := s.now()
	for _, r := range reservation.Held(rs) {
		r.Status = status
		r.SettledAt = &now
		if unit, ok := s.units[unitKey{r.TenantID, r.PieceID, r.VariantID}]; ok {
			unit.AvailableQuantity += r.Quantity
			unit.ReservedQuantity -= r.Quantity
			unit.UpdatedAt = now
		}
	}
}

func cloneReservation(r *entity.Reservation) *entity.Reservation {
	cp := *r
	if r.SettledAt != nil {
		t := *r.SettledAt
		cp.SettledAt = &t
	}
	return &cp
}
