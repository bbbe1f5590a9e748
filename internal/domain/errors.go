package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrDuplicate           = errors.New("recurso duplicado")
	ErrUnauthorized        = errors.New("no autorizado")
	ErrForbidden           = errors.New("acceso denegado")
	ErrConflict            = errors.New("conflicto con el estado actual")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrNotSellable         = errors.New("pieza no disponible para la venta")
	ErrPriceMismatch       = errors.New("el precio cotizado no coincide con el catálogo")
	ErrTransientStore      = errors.New("almacén de stock no disponible")
	ErrProviderUnavailable = errors.New("proveedor de pago no disponible")
	ErrUnknownProvider     = errors.New("proveedor de pago desconocido")
	ErrInvalidSignature    = errors.New("firma de webhook inválida")
	ErrReservationReleased = errors.New("la reserva ya no está retenida")
)

// ItemError identifica la línea del carrito que hizo fallar el checkout,
// para que la UI pueda quitar solo ese ítem.
type ItemError struct {
	Index     int
	PieceID   string
	VariantID string
	Err       error
}

func (e *ItemError) Error() string {
	if e.VariantID != "" {
		return fmt.Sprintf("ítem %d (pieza %s, variante %s): %v", e.Index, e.PieceID, e.VariantID, e.Err)
	}
	return fmt.Sprintf("ítem %d (pieza %s): %v", e.Index, e.PieceID, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// Transient envuelve un error de I/O del almacén como ErrTransientStore conservando la causa.
func Transient(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransientStore, err)
}
