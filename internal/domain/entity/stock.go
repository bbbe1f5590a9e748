package entity

import "time"

// StockUnit es el registro del libro de stock para una pieza (y variante opcional) de un tenant.
// VariantID vacío representa la pieza sin variante.
// AvailableQuantity solo se modifica vía ReservationStore (reserve/commit/cancel/expire/adjust).
type StockUnit struct {
	TenantID          string
	PieceID           string
	VariantID         string
	AvailableQuantity int
	ReservedQuantity  int // cantidad retenida por reservas en estado held
	SoldQuantity      int
	UpdatedAt         time.Time
}

// StockKey identifica una unidad de stock dentro de un tenant.
type StockKey struct {
	PieceID   string
	VariantID string
}

// Less ordena claves por (PieceID, VariantID); se usa para bloquear filas siempre en el mismo orden.
func (k StockKey) Less(o StockKey) bool {
	if k.PieceID != o.PieceID {
		return k.PieceID < o.PieceID
	}
	return k.VariantID < o.VariantID
}
