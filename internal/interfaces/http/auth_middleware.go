package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/storefront-checkout/internal/application/dto"
	"github.com/jhoicas/storefront-checkout/pkg/jwt"
)

// Locals keys para UserID, TenantID y Role en Fiber.
const (
	LocalUserID   = "user_id"
	LocalTenantID = "tenant_id"
	LocalRole     = "role"
)

// Roles de operador de la tienda.
const (
	RoleOwner = "owner"
	RoleStaff = "staff"
)

// HeaderTenantID identifica la tienda en las rutas públicas de checkout.
const HeaderTenantID = "X-Tenant-ID"

// AuthMiddleware valida el Bearer Token JWT y extrae UserID, TenantID y Role a c.Locals.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		claims, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalTenantID, claims.TenantID)
		c.Locals(LocalRole, claims.Role)
		return c.Next()
	}
}

// RequireRole permite el paso solo a los roles indicados. Usar DESPUÉS de AuthMiddleware.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		for _, r := range roles {
			if r == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "rol sin permiso para esta operación"})
	}
}

// TenantMiddleware toma el tenant de X-Tenant-ID (rutas públicas del storefront).
func TenantMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := strings.TrimSpace(c.Get(HeaderTenantID))
		if tenantID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_TENANT", Message: HeaderTenantID + " requerido"})
		}
		c.Locals(LocalTenantID, tenantID)
		return c.Next()
	}
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string { return localString(c, LocalUserID) }

// GetTenantID devuelve el tenant del contexto (token o X-Tenant-ID).
func GetTenantID(c *fiber.Ctx) string { return localString(c, LocalTenantID) }

// GetRole devuelve el rol del contexto (después del middleware de auth).
func GetRole(c *fiber.Ctx) string { return localString(c, LocalRole) }

func localString(c *fiber.Ctx, key string) string {
	v := c.Locals(key)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
