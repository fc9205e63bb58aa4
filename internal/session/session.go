// Package session materializa principals autenticados y hace de puente
// entre el callback OAuth, el ledger de remember tokens y la capa HTTP.
package session

import (
	"context"
	"time"

	"github.com/dropDatabas3/hellogate/internal/identity"
)

// Principal es la identidad autenticada asociada a una sesión activa.
type Principal struct {
	SessionID string            `json:"session_id"`
	Identity  identity.Identity `json:"identity"`
	IssuedAt  time.Time         `json:"issued_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Store guarda sesiones con TTL. Implementaciones: redis (producción) y
// memoria de proceso (dev / modo degradado). Get devuelve nil sin error
// cuando la sesión no existe o venció.
type Store interface {
	Create(ctx context.Context, p Principal) error
	Get(ctx context.Context, sessionID string) (*Principal, error)
	Delete(ctx context.Context, sessionID string) error
}
