package http

import (
	"errors"
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/storefront-checkout/internal/application/checkout"
	"github.com/jhoicas/storefront-checkout/internal/application/dto"
	"github.com/jhoicas/storefront-checkout/internal/application/settlement"
	"github.com/jhoicas/storefront-checkout/internal/domain"
	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

// CheckoutHandler rutas públicas del storefront y webhooks de proveedores.
type CheckoutHandler struct {
	checkout   *checkout.UseCase
	settlement *settlement.UseCase
	log        *logger.Logger
}

// NewCheckoutHandler construye el handler.
func NewCheckoutHandler(uc *checkout.UseCase, st *settlement.UseCase, log *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: uc, settlement: st, log: log.Component("http.checkout")}
}

// Create godoc
// @Summary      Crear checkout
// @Description  Valida el carrito contra el catálogo, reserva el stock por 30 minutos y crea la sesión de pago.
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID  header  string                     true  "Tienda"
// @Param        provider     path    string                     true  "stripe | paypal"
// @Param        body         body    dto.CreateCheckoutRequest  true  "Ítems y comprador"
// @Success      201  {object}  dto.CheckoutSessionResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse  "INSUFFICIENT_STOCK con el ítem que falló"
// @Failure      502  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/checkout/{provider}/create [post]
func (h *CheckoutHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateCheckoutRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.checkout.CreateCheckout(c.UserContext(), GetTenantID(c), c.Params("provider"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Cancel godoc
// @Summary      Cancelar checkout
// @Description  Libera de inmediato las reservas de un checkout abandonado. Idempotente.
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID  header  string                     true  "Tienda"
// @Param        provider     path    string                     true  "stripe | paypal"
// @Param        body         body    dto.CancelCheckoutRequest  true  "reservation_session_id"
// @Success      200  {object}  dto.CancelCheckoutResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/checkout/{provider}/cancel [post]
func (h *CheckoutHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelCheckoutRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	released, err := h.checkout.CancelCheckout(c.UserContext(), GetTenantID(c), in.ReservationSessionID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.CancelCheckoutResponse{ReservationSessionID: in.ReservationSessionID, Released: released})
}

// Capture godoc
// @Summary      Capturar pago de billetera
// @Description  Captura la orden aprobada por el comprador y liquida el pedido. Reintentos devuelven el mismo pedido.
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID  header  string               true  "Tienda"
// @Param        provider     path    string               true  "paypal"
// @Param        body         body    dto.CaptureRequest   true  "provider_session_id"
// @Success      200  {object}  dto.SettlementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse  "RESERVATION_RELEASED: la reserva venció o se canceló; no se cobra"
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/checkout/{provider}/capture [post]
func (h *CheckoutHandler) Capture(c *fiber.Ctx) error {
	var in dto.CaptureRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.settlement.Capture(c.UserContext(), GetTenantID(c), c.Params("provider"), in.ProviderSessionID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(settlementResponse(res))
}

// Webhook godoc
// @Summary      Webhook del proveedor de pago
// @Description  Verifica la firma (Stripe-Signature en stripe, verify-webhook-signature en paypal) y liquida o libera
// @Description  la reserva. 200 cuando el evento llegó a un estado terminal (incluye anomalías y duplicados); 500 solo
// @Description  si no se pudo persistir y el proveedor debe reintentar.
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        provider          path    string  true  "stripe | paypal"
// @Param        Stripe-Signature  header  string  false "t=<unix>,v1=<hmac> (stripe)"
// @Success      200  {object}  dto.SettlementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/checkout/{provider}/webhook [post]
func (h *CheckoutHandler) Webhook(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)
	res, err := h.settlement.HandleWebhook(c.UserContext(), c.Params("provider"), payload, requestHeaders(c))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) || errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrUnknownProvider) {
			return writeError(c, h.log, err)
		}
		h.log.Error().Err(err).Str("provider", c.Params("provider")).Msg("webhook no procesado, el proveedor reintentará")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "SETTLEMENT_FAILED", Message: "no se pudo procesar el evento"})
	}
	return c.JSON(settlementResponse(res))
}

// requestHeaders copia las cabeceras de la petición; cada proveedor firma con las suyas.
func requestHeaders(c *fiber.Ctx) nethttp.Header {
	h := make(nethttp.Header)
	for k, vs := range c.GetReqHeaders() {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	return h
}

func settlementResponse(res *settlement.Result) dto.SettlementResponse {
	out := dto.SettlementResponse{Outcome: string(res.Outcome)}
	if res.Order != nil {
		out.OrderID = res.Order.ID
	}
	return out
}
