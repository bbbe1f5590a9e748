package dto

import "time"

// CreateOperatorRequest alta de un operador por el owner (password en texto, se hashea en el caso de uso).
type CreateOperatorRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"` // owner | staff; vacío = staff
}

// OperatorResponse salida de un operador (sin password).
type OperatorResponse struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginRequest credenciales de operador dentro de una tienda.
type LoginRequest struct {
	TenantID string `json:"tenant_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse token JWT para las rutas /api/admin.
type LoginResponse struct {
	Token    string           `json:"token"`
	Operator OperatorResponse `json:"operator"`
}
