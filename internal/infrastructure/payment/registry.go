package payment

import (
	"fmt"
	"sort"

	"github.com/jhoicas/storefront-checkout/internal/application/ports"
	"github.com/jhoicas/storefront-checkout/internal/domain"
)

// Registry proveedores habilitados, por nombre.
type Registry struct {
	providers map[string]ports.PaymentProvider
}

// NewRegistry registra los proveedores recibidos (los nil se ignoran).
func NewRegistry(providers ...ports.PaymentProvider) *Registry {
	r := &Registry{providers: make(map[string]ports.PaymentProvider)}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// Provider devuelve el proveedor o domain.ErrUnknownProvider.
func (r *Registry) Provider(name string) (ports.PaymentProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, name)
	}
	return p, nil
}

// Names nombres registrados, ordenados.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
