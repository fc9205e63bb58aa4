// Package store define el contrato de persistencia del gateway y su
// taxonomía de errores. La única entidad persistida es el remember token;
// todo el estado del ledger vive acá, no en memoria.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/hellogate/internal/identity"
)

var (
	// ErrNotFound: el token no existe (o ya expiró y fue removido).
	// Es un resultado normal de Get/Delete, no una falla.
	ErrNotFound = errors.New("store: not found")

	// ErrUnavailable: el pool no puede alcanzar el backend (startup o
	// runtime). Degrada la feature remember-me, no tumba el proceso.
	ErrUnavailable = errors.New("store: unavailable")

	// ErrInvalid: input malformado rechazado antes de tocar storage.
	ErrInvalid = errors.New("store: invalid input")
)

// OpError envuelve la falla de una operación individual (query/tx) una vez
// adquirida la conexión. Siempre tipada, nunca tragada en silencio salvo
// donde el ledger marca la operación como best-effort.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }
func (e *OpError) Unwrap() error { return e.Err }

// RememberToken es la fila persistida. Snapshot desnormalizado del perfil
// al momento de emisión: la validación responde sin volver al provider.
type RememberToken struct {
	Token       string
	ExternalID  string
	Provider    identity.Provider
	Email       string
	DisplayName string
	AvatarURL   string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	LastUsedAt  time.Time
}

// Identity reconstruye la identidad canónica desde el snapshot.
func (t RememberToken) Identity() identity.Identity {
	return identity.Identity{
		ExternalID:  t.ExternalID,
		Provider:    t.Provider,
		DisplayName: t.DisplayName,
		Email:       t.Email,
		AvatarURL:   t.AvatarURL,
	}
}

// RememberTokens es el repositorio del ledger. Todas las operaciones son
// seguras para invocación concurrente; cada una implica al menos un round
// trip al backend.
type RememberTokens interface {
	// Replace borra todos los tokens de la identidad e inserta el nuevo,
	// en una única transacción. O commitea ambos pasos o ninguno.
	Replace(ctx context.Context, t RememberToken) error

	// Get busca por valor exacto de token. ErrNotFound si no existe.
	Get(ctx context.Context, token string) (RememberToken, error)

	// Touch actualiza last_used_at. No toca expires_at.
	Touch(ctx context.Context, token string, at time.Time) error

	// Delete borra por token. Devuelve si había fila ("ya no estaba" no
	// es error).
	Delete(ctx context.Context, token string) (bool, error)

	// DeleteExpired borra todas las filas con expires_at < before y
	// devuelve cuántas removió.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Store agrega el ciclo de vida del handle de conexión al repositorio.
// Se construye una vez en el entry point y se inyecta; nada de globals.
type Store interface {
	RememberTokens

	// Bootstrap crea tabla e índices si no existen. Idempotente: correr
	// en cada arranque no tiene efectos si el schema ya coincide.
	Bootstrap(ctx context.Context) error

	// Ping verifica conectividad (readiness / arranque).
	Ping(ctx context.Context) error

	// Close drena operaciones en vuelo y cierra el pool.
	Close()
}
