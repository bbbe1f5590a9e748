package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de publicación de una pieza en la tienda.
const (
	PieceStatusActive   = "active"
	PieceStatusDraft    = "draft"
	PieceStatusArchived = "archived"
	PieceStatusSoldOut  = "sold_out"
)

// Piece representa una pieza (producto) de la tienda de un tenant, tal como la entrega el catálogo.
type Piece struct {
	ID        string
	TenantID  string
	Name      string
	Status    string
	Price     decimal.Decimal
	Variants  []PieceVariant
	UpdatedAt time.Time
}

// PieceVariant variante vendible de una pieza (talla, color...). Price cero hereda el de la pieza.
type PieceVariant struct {
	ID       string
	PieceID  string
	Name     string
	Price    decimal.Decimal
	Sellable bool
}

// IsSellable indica si la pieza puede venderse en checkout.
func (p *Piece) IsSellable() bool {
	return p.Status == PieceStatusActive
}

// Variant busca una variante por ID.
func (p *Piece) Variant(id string) (*PieceVariant, bool) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// PriceFor devuelve el precio vigente para la variante (o la pieza si variant es nil).
func (p *Piece) PriceFor(variant *PieceVariant) decimal.Decimal {
	if variant != nil && variant.Price.GreaterThan(decimal.Zero) {
		return variant.Price
	}
	return p.Price
}
