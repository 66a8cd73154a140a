package provider

import (
	"fmt"

	"github.com/modelfork/modelfork/pkg/catalog"
)

// Registry resolves a catalog model label to the gateway that serves it.
// Gateways are registered per provider at startup; a provider with no
// configured credentials is simply absent.
type Registry struct {
	gateways map[catalog.Provider]Gateway
}

func NewRegistry() *Registry {
	return &Registry{gateways: make(map[catalog.Provider]Gateway)}
}

// Register installs the gateway for a provider, replacing any previous one.
func (r *Registry) Register(p catalog.Provider, g Gateway) {
	r.gateways[p] = g
}

// ForModel returns the gateway serving the given model label.
// Unknown labels return ErrUnsupportedModel; known labels whose provider has
// no registered gateway return ErrModelNotAvailable.
func (r *Registry) ForModel(label string) (Gateway, error) {
	p, ok := catalog.ProviderFor(label)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, label)
	}
	g, ok := r.gateways[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s (provider %s)", ErrModelNotAvailable, label, p)
	}
	return g, nil
}
