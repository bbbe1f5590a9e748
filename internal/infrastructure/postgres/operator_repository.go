package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/storefront-checkout/internal/domain"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/internal/domain/repository"
)

var _ repository.OperatorRepository = (*OperatorRepo)(nil)

// OperatorRepo implementación del puerto OperatorRepository sobre PostgreSQL.
type OperatorRepo struct {
	q Querier
}

// NewOperatorRepository construye el adaptador de persistencia para operadores.
func NewOperatorRepository(q Querier) *OperatorRepo {
	return &OperatorRepo{q: q}
}

// Create persiste un nuevo operador.
func (r *OperatorRepo) Create(ctx context.Context, o *entity.Operator) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO operators (id, tenant_id, email, password_hash, name, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, o.TenantID, o.Email, o.PasswordHash, o.Name, o.Role, o.Status, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return transient("insert operator", err)
	}
	return nil
}

// GetByEmail obtiene un operador por email dentro del tenant.
func (r *OperatorRepo) GetByEmail(ctx context.Context, tenantID, email string) (*entity.Operator, error) {
	var o entity.Operator
	err := r.q.QueryRow(ctx, `
		SELECT id, tenant_id, email, password_hash, name, role, status, created_at, updated_at
		FROM operators WHERE tenant_id = $1 AND email = $2`, tenantID, email).Scan(
		&o.ID, &o.TenantID, &o.Email, &o.PasswordHash, &o.Name, &o.Role, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, transient("get operator by email", err)
	}
	return &o, nil
}
