package entity

import "time"

// Roles de operador de la tienda (rutas de administración).
const (
	OperatorRoleOwner = "owner"
	OperatorRoleStaff = "staff"
)

// Estados de un operador.
const (
	OperatorActive    = "active"
	OperatorSuspended = "suspended"
)

// Operator persona que administra el stock y las conciliaciones de un tenant.
type Operator struct {
	ID           string
	TenantID     string
	Email        string
	PasswordHash string // bcrypt
	Name         string
	Role         string // owner | staff
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsActive indica si el operador puede iniciar sesión.
func (o *Operator) IsActive() bool {
	return o.Status == OperatorActive
}
