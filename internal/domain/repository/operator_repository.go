package repository

import (
	"context"

	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
)

// OperatorRepository persistencia de operadores. Los emails son únicos por tenant.
type OperatorRepository interface {
	Create(ctx context.Context, o *entity.Operator) error
	// GetByEmail nil, nil si no existe en el tenant.
	GetByEmail(ctx context.Context, tenantID, email string) (*entity.Operator, error)
}
