package adapters

import (
	"strings"

	"github.com/smallbiznis/certihub/internal/payment/domain"
)

type Registry struct {
	adapters map[string]domain.Adapter
}

func NewRegistry(adapters ...domain.Adapter) *Registry {
	registry := &Registry{adapters: map[string]domain.Adapter{}}
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		provider := normalize(adapter.Provider())
		if provider == "" {
			continue
		}
		registry.adapters[provider] = adapter
	}
	return registry
}

func (r *Registry) ProviderExists(provider string) bool {
	if r == nil {
		return false
	}
	_, ok := r.adapters[normalize(provider)]
	return ok
}

func (r *Registry) Adapter(provider string) (domain.Adapter, error) {
	if r == nil {
		return nil, domain.ErrProviderNotFound
	}
	adapter, ok := r.adapters[normalize(provider)]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	return adapter, nil
}

// StatusChecker returns the provider's adapter when it can poll invoice state.
func (r *Registry) StatusChecker(provider string) (domain.StatusChecker, error) {
	adapter, err := r.Adapter(provider)
	if err != nil {
		return nil, err
	}
	checker, ok := adapter.(domain.StatusChecker)
	if !ok {
		return nil, domain.ErrSyncUnsupported
	}
	return checker, nil
}

func normalize(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}
