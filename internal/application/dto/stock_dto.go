package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockUnitResponse estado del libro de stock de una (pieza, variante).
type StockUnitResponse struct {
	PieceID           string    `json:"piece_id"`
	VariantID         string    `json:"variant_id,omitempty"`
	AvailableQuantity int       `json:"available_quantity"`
	ReservedQuantity  int       `json:"reserved_quantity"`
	SoldQuantity      int       `json:"sold_quantity"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// AdjustStockRequest body para POST /api/admin/stock/adjust (reposición o corrección).
type AdjustStockRequest struct {
	PieceID   string `json:"piece_id"`
	VariantID string `json:"variant_id,omitempty"`
	Delta     int    `json:"delta"`
	Reason    string `json:"reason,omitempty"`
}

// StockMovementResponse ajuste auditado del libro de stock.
type StockMovementResponse struct {
	ID             string    `json:"id"`
	PieceID        string    `json:"piece_id"`
	VariantID      string    `json:"variant_id,omitempty"`
	Delta          int       `json:"delta"`
	AvailableAfter int       `json:"available_after"`
	Reason         string    `json:"reason,omitempty"`
	CreatedBy      string    `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReservationResponse una reserva de la sesión.
type ReservationResponse struct {
	ID        string     `json:"id"`
	PieceID   string     `json:"piece_id"`
	VariantID string     `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
}

// AnomalyResponse liquidación que requiere conciliación manual.
type AnomalyResponse struct {
	ID                   string          `json:"id"`
	Provider             string          `json:"provider"`
	ProviderSessionID    string          `json:"provider_session_id"`
	ReservationSessionID string          `json:"reservation_session_id,omitempty"`
	PaymentRef           string          `json:"payment_ref,omitempty"`
	Reason               string          `json:"reason"`
	RefundStatus         string          `json:"refund_status"`
	Currency             string          `json:"currency,omitempty"`
	Amount               decimal.Decimal `json:"amount"`
	CreatedAt            time.Time       `json:"created_at"`
}

// AnomalyListResponse listado paginado de anomalías.
type AnomalyListResponse struct {
	Items []AnomalyResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
