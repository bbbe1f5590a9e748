package repository

import (
	"context"
	"time"

	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
)

// ReservationStore es el dueño exclusivo del libro de stock: ningún otro componente
// modifica AvailableQuantity. Toda transición terminal es una actualización condicional
// sobre status = held; las operaciones son idempotentes frente a reintentos.
type ReservationStore interface {
	// Reserve descuenta atómicamente la cantidad si hay disponible y crea la reserva held.
	// Devuelve domain.ErrInsufficientStock sin modificar nada si no alcanza.
	Reserve(ctx context.Context, in entity.ReserveInput) (*entity.Reservation, error)
	// Commit pasa las reservas held de la sesión a committed (true). Ya committed: true. Liberadas o inexistentes: false.
	Commit(ctx context.Context, tenantID, sessionID string) (bool, error)
	// Cancel libera las reservas held de la sesión devolviendo el stock una sola vez.
	Cancel(ctx context.Context, tenantID, sessionID string) (bool, error)
	// Expire como Cancel pero marca expired y solo si la reserva venció antes de now.
	// Devuelve true solo si esta llamada realizó la transición.
	Expire(ctx context.Context, tenantID, sessionID string, now time.Time) (bool, error)
	// ListExpiredSessions devuelve sesiones con reservas held vencidas (barrido).
	ListExpiredSessions(ctx context.Context, now time.Time, limit int) ([]entity.SessionRef, error)
	// ListBySession lista las reservas de una sesión (scoped por tenant).
	ListBySession(ctx context.Context, tenantID, sessionID string) ([]*entity.Reservation, error)
	// GetStockUnit lee una unidad de stock (nil si no existe).
	GetStockUnit(ctx context.Context, tenantID, pieceID, variantID string) (*entity.StockUnit, error)
	// AdjustAvailable suma delta al disponible (reposición); nunca deja el disponible negativo.
	AdjustAvailable(ctx context.Context, tenantID, pieceID, variantID string, delta int) (*entity.StockUnit, error)
}
