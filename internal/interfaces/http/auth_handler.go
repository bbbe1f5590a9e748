package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/storefront-checkout/internal/application/auth"
	"github.com/jhoicas/storefront-checkout/internal/application/dto"
	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

// AuthHandler login y alta de operadores.
type AuthHandler struct {
	uc  *auth.UseCase
	log *logger.Logger
}

// NewAuthHandler construye el handler.
func NewAuthHandler(uc *auth.UseCase, log *logger.Logger) *AuthHandler {
	return &AuthHandler{uc: uc, log: log.Component("http.auth")}
}

// Login godoc
// @Summary      Login de operador
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LoginRequest  true  "tenant_id, email, password"
// @Success      200  {object}  dto.LoginResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.Login(c.UserContext(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// CreateOperator godoc
// @Summary      Alta de operador
// @Description  Solo el owner de la tienda puede crear operadores.
// @Tags         auth
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateOperatorRequest  true  "email, password, name, role"
// @Success      201  {object}  dto.OperatorResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/admin/operators [post]
func (h *AuthHandler) CreateOperator(c *fiber.Ctx) error {
	var in dto.CreateOperatorRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.CreateOperator(c.UserContext(), GetTenantID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}
