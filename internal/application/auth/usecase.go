package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/storefront-checkout/internal/application/dto"
	"github.com/jhoicas/storefront-checkout/internal/domain"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/internal/domain/repository"
	"github.com/jhoicas/storefront-checkout/pkg/jwt"
	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

const minPasswordLen = 8

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// UseCase autenticación de operadores: alta y login.
type UseCase struct {
	operators repository.OperatorRepository
	jwtCfg    JWTConfig
	log       *logger.Logger
	now       func() time.Time
}

// NewUseCase construye el caso de uso de auth.
func NewUseCase(operators repository.OperatorRepository, jwtCfg JWTConfig, log *logger.Logger) *UseCase {
	return &UseCase{operators: operators, jwtCfg: jwtCfg, log: log.Component("auth"), now: time.Now}
}

// CreateOperator hashea el password con bcrypt y persiste el operador en el tenant.
// Devuelve ErrDuplicate si el email ya existe en ese tenant.
func (uc *UseCase) CreateOperator(ctx context.Context, tenantID string, in dto.CreateOperatorRequest) (*dto.OperatorResponse, error) {
	email := normalizeEmail(in.Email)
	if tenantID == "" || email == "" || len(in.Password) < minPasswordLen {
		return nil, domain.ErrInvalidInput
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: email inválido", domain.ErrInvalidInput)
	}
	role := in.Role
	if role == "" {
		role = entity.OperatorRoleStaff
	}
	if role != entity.OperatorRoleOwner && role != entity.OperatorRoleStaff {
		return nil, fmt.Errorf("%w: rol %q", domain.ErrInvalidInput, role)
	}

	existing, err := uc.operators.GetByEmail(ctx, tenantID, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	name := in.Name
	if name == "" {
		name = email
	}
	op := &entity.Operator{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
		Status:       entity.OperatorActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.operators.Create(ctx, op); err != nil {
		return nil, err
	}
	uc.log.Info().Str("tenant_id", tenantID).Str("operator_id", op.ID).Str("role", role).Msg("operador creado")
	return toOperatorResponse(op), nil
}

// Login verifica email/password dentro del tenant y emite un JWT con el rol del operador.
// Email desconocido y password incorrecto devuelven el mismo ErrUnauthorized.
func (uc *UseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	email := normalizeEmail(in.Email)
	if in.TenantID == "" || email == "" || in.Password == "" {
		return nil, domain.ErrInvalidInput
	}
	op, err := uc.operators.GetByEmail(ctx, in.TenantID, email)
	if err != nil {
		return nil, err
	}
	if op == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(in.Password)); err != nil {
		uc.log.Warn().Str("tenant_id", in.TenantID).Str("operator_id", op.ID).Msg("login con password incorrecto")
		return nil, domain.ErrUnauthorized
	}
	if !op.IsActive() {
		return nil, domain.ErrForbidden
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, op.ID, op.TenantID, op.Role, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{Token: token, Operator: *toOperatorResponse(op)}, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func toOperatorResponse(o *entity.Operator) *dto.OperatorResponse {
	return &dto.OperatorResponse{
		ID:        o.ID,
		TenantID:  o.TenantID,
		Email:     o.Email,
		Name:      o.Name,
		Role:      o.Role,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
	}
}
