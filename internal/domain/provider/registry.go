package provider

import (
	"fmt"
	"sort"

	domainerrors "github.com/wekeepgrowing/jobportal-payment/internal/domain/errors"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
)

// Registry resolves configured providers by type
type Registry struct {
	providers map[model.ProviderType]PaymentProvider
}

func NewRegistry(providers ...PaymentProvider) *Registry {
	r := &Registry{providers: make(map[model.ProviderType]PaymentProvider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns ErrProviderNotConfigured when no credentials were supplied for t.
func (r *Registry) Get(t model.ProviderType) (PaymentProvider, error) {
	p, ok := r.providers[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domainerrors.ErrProviderNotConfigured, t)
	}
	return p, nil
}

func (r *Registry) Names() []model.ProviderType {
	names := make([]model.ProviderType, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
