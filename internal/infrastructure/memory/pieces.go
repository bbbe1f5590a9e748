package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/internal/domain/repository"
)

var _ repository.PieceRepository = (*PieceCatalog)(nil)

// PieceCatalog catálogo en memoria (colaborador getPiece).
type PieceCatalog struct {
	mu     sync.RWMutex
	pieces map[string]*entity.Piece // tenantID|pieceID
}

// NewPieceCatalog construye el catálogo.
func NewPieceCatalog() *PieceCatalog {
	return &PieceCatalog{pieces: make(map[string]*entity.Piece)}
}

// Put agrega o reemplaza una pieza.
func (c *PieceCatalog) Put(p *entity.Piece) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pieces[p.TenantID+"|"+p.ID] = p
}

// GetByID nil, nil si no existe para el tenant.
func (c *PieceCatalog) GetByID(_ context.Context, tenantID, pieceID string) (*entity.Piece, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pieces[tenantID+"|"+pieceID]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.Variants = append([]entity.PieceVariant(nil), p.Variants...)
	return &cp, nil
}
