// Package identity define la forma canónica de una identidad externa
// tal como la normalizan los adapters de proveedores (Google, GitHub, ...).
package identity

import (
	"errors"
	"strings"
)

// Provider identifica al proveedor de identidad upstream.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderGitHub Provider = "github"
)

// Known reporta si el provider es uno de los soportados.
func (p Provider) Known() bool {
	switch p {
	case ProviderGoogle, ProviderGitHub:
		return true
	}
	return false
}

func (p Provider) String() string { return string(p) }

// ParseProvider normaliza y valida un nombre de provider.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	if !p.Known() {
		return "", ErrUnknownProvider
	}
	return p, nil
}

var (
	ErrUnknownProvider = errors.New("identity: unknown provider")
	ErrInvalid         = errors.New("identity: missing external id or provider")
)

// Identity es el perfil normalizado que entrega un provider tras el
// callback OAuth. (ExternalID, Provider) es la clave natural del principal.
// Email y AvatarURL pueden venir vacíos: no todos los providers los entregan.
type Identity struct {
	ExternalID  string   `json:"external_id"`
	Provider    Provider `json:"provider"`
	DisplayName string   `json:"display_name"`
	Email       string   `json:"email"`
	AvatarURL   string   `json:"avatar_url,omitempty"`
}

// Key es la clave natural (external_id, provider) del principal.
type Key struct {
	ExternalID string
	Provider   Provider
}

func (i Identity) Key() Key {
	return Key{ExternalID: i.ExternalID, Provider: i.Provider}
}

// Validate rechaza identidades sin clave natural completa. DisplayName,
// Email y AvatarURL son opcionales.
func (i Identity) Validate() error {
	if strings.TrimSpace(i.ExternalID) == "" || !i.Provider.Known() {
		return ErrInvalid
	}
	return nil
}
