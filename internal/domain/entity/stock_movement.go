package entity

import "time"

// StockAdjustment reposición o corrección manual del disponible pedida por un operador.
type StockAdjustment struct {
	TenantID  string
	PieceID   string
	VariantID string
	Delta     int // positivo repone, negativo corrige
	Reason    string
	ActorID   string // operador que hizo el ajuste
}

// StockMovement registro de auditoría de un ajuste aplicado al libro de stock.
type StockMovement struct {
	ID             string
	TenantID       string
	PieceID        string
	VariantID      string
	Delta          int
	AvailableAfter int
	Reason         string
	CreatedBy      string
	CreatedAt      time.Time
}
