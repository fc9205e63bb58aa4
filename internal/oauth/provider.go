// Package oauth define el contrato de los adapters de proveedores de
// identidad y el registry por nombre. Los adapters normalizan el perfil
// de cada proveedor a la forma canónica identity.Identity; el resto del
// gateway no conoce detalles de protocolo.
package oauth

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/dropDatabas3/hellogate/internal/identity"
)

// Provider es un proveedor de identidad externo (Google, GitHub, ...).
type Provider interface {
	// Name es el nombre canónico del provider (coincide con identity.Provider).
	Name() identity.Provider

	// AuthURL arma la URL de autorización a la que redirigir el browser.
	AuthURL(ctx context.Context, state, nonce string) (string, error)

	// Authenticate completa el callback: intercambia el code y devuelve
	// la identidad verificada y normalizada.
	Authenticate(ctx context.Context, code, nonce string) (identity.Identity, error)
}

var ErrProviderNotRegistered = errors.New("oauth: provider not registered")

// Registry mapa thread-safe de providers habilitados.
type Registry struct {
	mu        sync.RWMutex
	providers map[identity.Provider]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[identity.Provider]Provider)}
}

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

func (r *Registry) Get(name identity.Provider) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrProviderNotRegistered
	}
	return p, nil
}

// Names lista los providers registrados, ordenados (para logs y /readyz).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, string(name))
	}
	sort.Strings(out)
	return out
}
