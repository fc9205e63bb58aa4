package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/hellogate/internal/identity"
	"github.com/dropDatabas3/hellogate/internal/store"
)

// TokenLedger es lo que el Bridge necesita del ledger de remember tokens.
type TokenLedger interface {
	Create(ctx context.Context, id identity.Identity, days int) (string, error)
	Validate(ctx context.Context, token string) (identity.Identity, error)
	Delete(ctx context.Context, token string) (bool, error)
}

// DefaultSessionTTL vida de la sesión local (no del remember token).
const DefaultSessionTTL = 12 * time.Hour

// Bridge traduce identidades autenticadas en principals con sesión y,
// en sentido inverso, remember tokens en principals.
type Bridge struct {
	sessions Store
	ledger   TokenLedger
	log      *zap.Logger
	ttl      time.Duration
	now      func() time.Time
}

type BridgeOption func(*Bridge)

func WithSessionTTL(ttl time.Duration) BridgeOption {
	return func(b *Bridge) {
		if ttl > 0 {
			b.ttl = ttl
		}
	}
}

func WithBridgeClock(now func() time.Time) BridgeOption {
	return func(b *Bridge) { b.now = now }
}

func NewBridge(sessions Store, ledger TokenLedger, log *zap.Logger, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		sessions: sessions,
		ledger:   ledger,
		log:      log,
		ttl:      DefaultSessionTTL,
		now:      time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// OnAuthenticated crea la sesión para una identidad recién autenticada vía
// OAuth. Si remember es true además emite un remember token; una falla del
// ledger NUNCA bloquea el login: se loguea y se devuelve token vacío
// (persistencia salteada, sesión igual establecida).
func (b *Bridge) OnAuthenticated(ctx context.Context, id identity.Identity, remember bool) (Principal, string, error) {
	p, err := b.newSession(ctx, id)
	if err != nil {
		return Principal{}, "", err
	}

	var token string
	if remember {
		token, err = b.ledger.Create(ctx, id, 0)
		if err != nil {
			b.log.Warn("remember_token_issue_failed_login_continues",
				zap.String("provider", id.Provider.String()),
				zap.Error(err))
			token = ""
		}
	}
	return p, token, nil
}

// OnCookiePresented intenta restablecer sesión desde un remember token.
// false significa "caer al login normal": token ausente, expirado, inválido
// o storage caído — nunca un error visible para el usuario.
func (b *Bridge) OnCookiePresented(ctx context.Context, token string) (Principal, bool) {
	id, err := b.ledger.Validate(ctx, token)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrInvalid) {
			b.log.Warn("remember_token_validation_error", zap.Error(err))
		}
		return Principal{}, false
	}

	p, err := b.newSession(ctx, id)
	if err != nil {
		b.log.Error("session_create_failed_after_valid_token", zap.Error(err))
		return Principal{}, false
	}
	return p, true
}

// OnLogout revoca el remember token (best-effort: el logout del usuario
// tiene que salir bien aunque el delete falle) y borra la sesión local.
func (b *Bridge) OnLogout(ctx context.Context, sessionID, rememberToken string) {
	if rememberToken != "" {
		if _, err := b.ledger.Delete(ctx, rememberToken); err != nil {
			b.log.Warn("remember_token_delete_failed_on_logout", zap.Error(err))
		}
	}
	if sessionID != "" {
		if err := b.sessions.Delete(ctx, sessionID); err != nil {
			b.log.Warn("session_delete_failed_on_logout", zap.Error(err))
		}
	}
}

// Resolve busca la sesión activa por ID (middleware).
func (b *Bridge) Resolve(ctx context.Context, sessionID string) (*Principal, error) {
	if sessionID == "" {
		return nil, nil
	}
	return b.sessions.Get(ctx, sessionID)
}

func (b *Bridge) newSession(ctx context.Context, id identity.Identity) (Principal, error) {
	now := b.now()
	p := Principal{
		SessionID: uuid.NewString(),
		Identity:  id,
		IssuedAt:  now,
		ExpiresAt: now.Add(b.ttl),
	}
	if err := b.sessions.Create(ctx, p); err != nil {
		return Principal{}, err
	}
	return p, nil
}
