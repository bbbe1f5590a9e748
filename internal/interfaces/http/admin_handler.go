package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/storefront-checkout/internal/application/dto"
	"github.com/jhoicas/storefront-checkout/internal/application/settlement"
	"github.com/jhoicas/storefront-checkout/internal/application/stock"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

// ReceiptRenderer genera el comprobante PDF de un pedido.
type ReceiptRenderer interface {
	GenerateReceipt(ctx context.Context, order *entity.Order) ([]byte, error)
}

// AdminHandler rutas de operación de la tienda (JWT, tenant del token).
type AdminHandler struct {
	stock      *stock.Service
	settlement *settlement.UseCase
	receipts   ReceiptRenderer
	log        *logger.Logger
}

// NewAdminHandler construye el handler. receipts puede ser nil (comprobante deshabilitado).
func NewAdminHandler(svc *stock.Service, st *settlement.UseCase, receipts ReceiptRenderer, log *logger.Logger) *AdminHandler {
	return &AdminHandler{stock: svc, settlement: st, receipts: receipts, log: log.Component("http.admin")}
}

// GetStock godoc
// @Summary      Stock de una pieza
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Param        pieceId     path   string  true   "Pieza"
// @Param        variant_id  query  string  false  "Variante"
// @Success      200  {object}  dto.StockUnitResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/admin/stock/{pieceId} [get]
func (h *AdminHandler) GetStock(c *fiber.Ctx) error {
	unit, err := h.stock.StockLevel(c.UserContext(), GetTenantID(c), c.Params("pieceId"), c.Query("variant_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(stockUnitResponse(unit))
}

// AdjustStock godoc
// @Summary      Reponer o corregir stock
// @Description  delta positivo repone, negativo corrige. Nunca deja el disponible negativo.
// @Tags         admin
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustStockRequest  true  "piece_id, variant_id, delta"
// @Success      200  {object}  dto.StockUnitResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/admin/stock/adjust [post]
func (h *AdminHandler) AdjustStock(c *fiber.Ctx) error {
	var in dto.AdjustStockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	unit, err := h.stock.AdjustStock(c.UserContext(), entity.StockAdjustment{
		TenantID:  GetTenantID(c),
		PieceID:   in.PieceID,
		VariantID: in.VariantID,
		Delta:     in.Delta,
		Reason:    in.Reason,
		ActorID:   GetUserID(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(stockUnitResponse(unit))
}

// GetMovements godoc
// @Summary      Auditoría de ajustes de stock de una pieza
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Param        pieceId  path   string  true   "Pieza"
// @Param        limit    query  int     false  "Máximo (por defecto 20, tope 100)"
// @Param        offset   query  int     false  "Desplazamiento"
// @Success      200  {array}   dto.StockMovementResponse
// @Router       /api/admin/stock/{pieceId}/movements [get]
func (h *AdminHandler) GetMovements(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "paginación inválida"})
	}
	page.DefaultPage()
	if page.Limit > 100 {
		page.Limit = 100
	}
	ms, err := h.stock.StockMovements(c.UserContext(), GetTenantID(c), c.Params("pieceId"), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.StockMovementResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, dto.StockMovementResponse{
			ID:             m.ID,
			PieceID:        m.PieceID,
			VariantID:      m.VariantID,
			Delta:          m.Delta,
			AvailableAfter: m.AvailableAfter,
			Reason:         m.Reason,
			CreatedBy:      m.CreatedBy,
			CreatedAt:      m.CreatedAt,
		})
	}
	return c.JSON(out)
}

// GetReservations godoc
// @Summary      Reservas de una sesión de checkout
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Param        sessionId  path  string  true  "reservation_session_id"
// @Success      200  {array}   dto.ReservationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/admin/reservations/{sessionId} [get]
func (h *AdminHandler) GetReservations(c *fiber.Ctx) error {
	rs, err := h.stock.SessionReservations(c.UserContext(), GetTenantID(c), c.Params("sessionId"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.ReservationResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, dto.ReservationResponse{
			ID:        r.ID,
			PieceID:   r.PieceID,
			VariantID: r.VariantID,
			Quantity:  r.Quantity,
			Status:    r.Status.String(),
			CreatedAt: r.CreatedAt,
			ExpiresAt: r.ExpiresAt,
			SettledAt: r.SettledAt,
		})
	}
	return c.JSON(out)
}

// ListAnomalies godoc
// @Summary      Pagos pendientes de conciliación
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "máx. 100"
// @Param        offset  query  int  false  "desplazamiento"
// @Success      200  {object}  dto.AnomalyListResponse
// @Router       /api/admin/anomalies [get]
func (h *AdminHandler) ListAnomalies(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "paginación inválida"})
	}
	page.DefaultPage()
	if page.Limit > 100 {
		page.Limit = 100
	}
	list, err := h.settlement.ListAnomalies(c.UserContext(), GetTenantID(c), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := dto.AnomalyListResponse{Items: make([]dto.AnomalyResponse, 0, len(list)), Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}}
	for _, a := range list {
		out.Items = append(out.Items, dto.AnomalyResponse{
			ID:                   a.ID,
			Provider:             a.Provider,
			ProviderSessionID:    a.ProviderSessionID,
			ReservationSessionID: a.ReservationSessionID,
			PaymentRef:           a.PaymentRef,
			Reason:               a.Reason,
			RefundStatus:         a.RefundStatus,
			Currency:             a.Currency,
			Amount:               a.Amount,
			CreatedAt:            a.CreatedAt,
		})
	}
	return c.JSON(out)
}

// OrderReceipt godoc
// @Summary      Comprobante PDF del pedido
// @Tags         admin
// @Security     Bearer
// @Produce      application/pdf
// @Param        id  path  string  true  "ID del pedido"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/admin/orders/{id}/receipt [get]
func (h *AdminHandler) OrderReceipt(c *fiber.Ctx) error {
	if h.receipts == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{Code: "NOT_AVAILABLE", Message: "comprobantes deshabilitados"})
	}
	order, err := h.settlement.GetOrder(c.UserContext(), GetTenantID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	pdf, err := h.receipts.GenerateReceipt(c.UserContext(), order)
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="pedido-`+order.ID+`.pdf"`)
	return c.Send(pdf)
}

func stockUnitResponse(u *entity.StockUnit) dto.StockUnitResponse {
	return dto.StockUnitResponse{
		PieceID:           u.PieceID,
		VariantID:         u.VariantID,
		AvailableQuantity: u.AvailableQuantity,
		ReservedQuantity:  u.ReservedQuantity,
		SoldQuantity:      u.SoldQuantity,
		UpdatedAt:         u.UpdatedAt,
	}
}
