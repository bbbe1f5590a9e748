package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/storefront-checkout/internal/application/dto"
	"github.com/jhoicas/storefront-checkout/internal/domain"
	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

// writeError traduce errores de dominio a dto.ErrorResponse. Si el error identifica una línea
// del carrito se incluye en Item.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	status, code, msg := fiber.StatusInternalServerError, "INTERNAL", "error interno"
	switch {
	case errors.Is(err, domain.ErrInvalidSignature):
		status, code, msg = fiber.StatusBadRequest, "INVALID_SIGNATURE", "firma de webhook inválida"
	case errors.Is(err, domain.ErrInvalidInput):
		status, code, msg = fiber.StatusBadRequest, "VALIDATION_ERROR", "datos inválidos"
	case errors.Is(err, domain.ErrUnknownProvider):
		status, code, msg = fiber.StatusNotFound, "UNKNOWN_PROVIDER", "proveedor de pago no soportado"
	case errors.Is(err, domain.ErrNotFound):
		status, code, msg = fiber.StatusNotFound, "NOT_FOUND", "recurso no encontrado"
	case errors.Is(err, domain.ErrInsufficientStock):
		status, code, msg = fiber.StatusConflict, "INSUFFICIENT_STOCK", "stock insuficiente"
	case errors.Is(err, domain.ErrNotSellable):
		status, code, msg = fiber.StatusConflict, "NOT_SELLABLE", "pieza no disponible para la venta"
	case errors.Is(err, domain.ErrPriceMismatch):
		status, code, msg = fiber.StatusConflict, "PRICE_CHANGED", "el precio cambió, actualice el carrito"
	case errors.Is(err, domain.ErrReservationReleased):
		status, code, msg = fiber.StatusConflict, "RESERVATION_RELEASED", "la reserva venció o se canceló; el pago no se capturó"
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrDuplicate):
		status, code, msg = fiber.StatusConflict, "CONFLICT", "conflicto con el estado actual"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code, msg = fiber.StatusUnauthorized, "UNAUTHORIZED", "no autorizado"
	case errors.Is(err, domain.ErrForbidden):
		status, code, msg = fiber.StatusForbidden, "FORBIDDEN", "acceso denegado al recurso"
	case errors.Is(err, domain.ErrTransientStore):
		status, code, msg = fiber.StatusServiceUnavailable, "STORE_UNAVAILABLE", "almacén de stock no disponible, reintente"
	case errors.Is(err, domain.ErrProviderUnavailable):
		status, code, msg = fiber.StatusBadGateway, "PROVIDER_ERROR", "el proveedor de pago no respondió"
	}

	resp := dto.ErrorResponse{Code: code, Message: msg}
	var itemErr *domain.ItemError
	if errors.As(err, &itemErr) {
		resp.Item = &dto.ItemErrorDetail{Index: itemErr.Index, PieceID: itemErr.PieceID, VariantID: itemErr.VariantID}
	}
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Int("status", status).Msg("error en petición")
	}
	return c.Status(status).JSON(resp)
}
