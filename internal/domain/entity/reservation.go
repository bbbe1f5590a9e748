package entity

import "time"

// ReservationStatus estado de una reserva. held es el único estado no terminal.
type ReservationStatus string

const (
	ReservationHeld      ReservationStatus = "held"
	ReservationCommitted ReservationStatus = "committed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationExpired   ReservationStatus = "expired"
)

// IsTerminal indica si la reserva ya no admite transiciones.
func (s ReservationStatus) IsTerminal() bool {
	return s != ReservationHeld
}

// IsReleased indica si el stock de la reserva volvió a estar disponible.
func (s ReservationStatus) IsReleased() bool {
	return s == ReservationCancelled || s == ReservationExpired
}

// Valid indica si el valor es uno de los estados enumerados.
func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationHeld, ReservationCommitted, ReservationCancelled, ReservationExpired:
		return true
	}
	return false
}

func (s ReservationStatus) String() string { return string(s) }

// DefaultHoldDuration duración de la reserva si el caller no indica otra.
const DefaultHoldDuration = 30 * time.Minute

// Reservation retención temporal de stock ligada a una sesión de checkout.
// Todas las reservas de un mismo checkout comparten SessionID.
type Reservation struct {
	ID        string
	TenantID  string
	PieceID   string
	VariantID string
	Quantity  int
	SessionID string
	Status    ReservationStatus
	CreatedAt time.Time
	ExpiresAt time.Time
	SettledAt *time.Time
}

// Key devuelve la clave de stock de la reserva.
func (r *Reservation) Key() StockKey {
	return StockKey{PieceID: r.PieceID, VariantID: r.VariantID}
}

// ReserveInput parámetros de una reserva individual.
type ReserveInput struct {
	TenantID    string
	PieceID     string
	VariantID   string
	Quantity    int
	SessionID   string
	HoldMinutes int
}

// HoldDuration duración efectiva de la reserva.
func (in ReserveInput) HoldDuration() time.Duration {
	if in.HoldMinutes <= 0 {
		return DefaultHoldDuration
	}
	return time.Duration(in.HoldMinutes) * time.Minute
}

// SessionRef identifica una sesión de reservas pendiente de barrido.
type SessionRef struct {
	TenantID  string
	SessionID string
}
