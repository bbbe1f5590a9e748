package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*MovementLog)(nil)

// MovementLog auditoría de ajustes en memoria, en orden de inserción.
type MovementLog struct {
	mu        sync.RWMutex
	movements []*entity.StockMovement
}

// NewMovementLog construye el registro.
func NewMovementLog() *MovementLog {
	return &MovementLog{}
}

// Create agrega el movimiento.
func (l *MovementLog) Create(_ context.Context, m *entity.StockMovement) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *m
	l.movements = append(l.movements, &cp)
	return nil
}

// ListByPiece más recientes primero.
func (l *MovementLog) ListByPiece(_ context.Context, tenantID, pieceID string, limit, offset int) ([]*entity.StockMovement, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	var out []*entity.StockMovement
	skipped := 0
	for i := len(l.movements) - 1; i >= 0 && len(out) < limit; i-- {
		m := l.movements[i]
		if m.TenantID != tenantID || m.PieceID != pieceID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}
