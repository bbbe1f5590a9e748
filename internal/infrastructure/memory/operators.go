package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/storefront-checkout/internal/domain"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/internal/domain/repository"
)

var _ repository.OperatorRepository = (*OperatorRepo)(nil)

// OperatorRepo operadores en memoria, únicos por (tenant, email).
type OperatorRepo struct {
	mu  sync.RWMutex
	ops map[string]*entity.Operator // tenantID|email
}

// NewOperatorRepo construye el repositorio.
func NewOperatorRepo() *OperatorRepo {
	return &OperatorRepo{ops: make(map[string]*entity.Operator)}
}

// Create inserta el operador; ErrDuplicate si el email ya existe en el tenant.
func (r *OperatorRepo) Create(_ context.Context, o *entity.Operator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := o.TenantID + "|" + o.Email
	if _, exists := r.ops[k]; exists {
		return domain.ErrDuplicate
	}
	cp := *o
	r.ops[k] = &cp
	return nil
}

// GetByEmail nil, nil si no existe.
func (r *OperatorRepo) GetByEmail(_ context.Context, tenantID, email string) (*entity.Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.ops[tenantID+"|"+email]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}
