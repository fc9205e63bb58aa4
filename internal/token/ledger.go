// Package token implementa el ledger de remember tokens: emisión,
// validación con touch, revocación y sweep de expirados. El ledger no
// guarda estado entre llamadas; todo vive en el store inyectado.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/hellogate/internal/identity"
	"github.com/dropDatabas3/hellogate/internal/store"
)

// DefaultRememberDays vida del token si el caller no pide otra cosa.
const DefaultRememberDays = 30

type Ledger struct {
	repo    store.RememberTokens
	log     *zap.Logger
	metrics *Metrics
	now     func() time.Time
	days    int
}

// Option configura el Ledger.
type Option func(*Ledger)

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithRememberDays cambia la vida default del token.
func WithRememberDays(days int) Option {
	return func(l *Ledger) {
		if days > 0 {
			l.days = days
		}
	}
}

// WithMetrics registra contadores de operaciones.
func WithMetrics(m *Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

func NewLedger(repo store.RememberTokens, log *zap.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		repo: repo,
		log:  log,
		now:  time.Now,
		days: DefaultRememberDays,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Create emite un token fresco para la identidad, reemplazando cualquier
// token previo de la misma (external_id, provider) en la misma transacción.
// days <= 0 usa el default. La expiración es aritmética de calendario
// (AddDate), no duración fija: cruza DST como lo haría el reloj del host.
func (l *Ledger) Create(ctx context.Context, id identity.Identity, days int) (string, error) {
	if err := id.Validate(); err != nil {
		return "", store.ErrInvalid
	}
	if days <= 0 {
		days = l.days
	}

	now := l.now()
	rec := store.RememberToken{
		Token:       generateToken(),
		ExternalID:  id.ExternalID,
		Provider:    id.Provider,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		AvatarURL:   id.AvatarURL,
		ExpiresAt:   now.AddDate(0, 0, days),
		CreatedAt:   now,
		LastUsedAt:  now,
	}

	if err := l.repo.Replace(ctx, rec); err != nil {
		return "", err
	}
	l.metrics.issued()
	l.log.Debug("remember_token_issued",
		zap.String("provider", id.Provider.String()),
		zap.Time("expires_at", rec.ExpiresAt))
	return rec.Token, nil
}

// Validate busca el token y devuelve el snapshot de identidad.
//
//   - token vacío/malformado: store.ErrInvalid, sin tocar storage.
//   - ausente o expirado: store.ErrNotFound (resultado normal, el caller
//     cae al login común). Un token expirado se borra en el acto.
//   - vivo: refresca last_used_at (best-effort: si el touch falla la
//     validación igual es exitosa) y devuelve la identidad.
func (l *Ledger) Validate(ctx context.Context, token string) (identity.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return identity.Identity{}, store.ErrInvalid
	}

	rec, err := l.repo.Get(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		l.metrics.validated("miss")
		return identity.Identity{}, store.ErrNotFound
	}
	if err != nil {
		return identity.Identity{}, err
	}

	now := l.now()
	if rec.ExpiresAt.Before(now) {
		// Expiración self-healing: remover la fila acá evita depender
		// del sweep. El delete es best-effort.
		if _, derr := l.repo.Delete(ctx, token); derr != nil {
			l.log.Warn("expired_token_cleanup_failed", zap.Error(derr))
		}
		l.metrics.validated("expired")
		return identity.Identity{}, store.ErrNotFound
	}

	// Touch best-effort: el token sigue siendo válido aunque no podamos
	// registrar el uso. No extiende expires_at.
	if terr := l.repo.Touch(ctx, token, now); terr != nil {
		l.log.Warn("remember_token_touch_failed", zap.Error(terr))
	}

	l.metrics.validated("ok")
	return rec.Identity(), nil
}

// Delete revoca por valor de token. (false, nil) si ya no estaba.
func (l *Ledger) Delete(ctx context.Context, token string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, store.ErrInvalid
	}
	removed, err := l.repo.Delete(ctx, token)
	if err != nil {
		return false, err
	}
	if removed {
		l.metrics.revoked()
	}
	return removed, nil
}

// SweepExpired borra todas las filas vencidas. Housekeeping: la validación
// ya se auto-sanea, esto solo acota el crecimiento de la tabla.
func (l *Ledger) SweepExpired(ctx context.Context) (int64, error) {
	n, err := l.repo.DeleteExpired(ctx, l.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		l.log.Info("remember_tokens_swept", zap.Int64("removed", n))
	}
	l.metrics.swept(n)
	return n, nil
}

// RunSweeper corre SweepExpired cada interval hasta que el ctx se cancele.
// Pensado para colgarse de un errgroup en el entry point.
func (l *Ledger) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := l.SweepExpired(ctx); err != nil {
				l.log.Warn("remember_token_sweep_failed", zap.Error(err))
			}
		}
	}
}

// generateToken crea un token de 32 bytes (256 bits) como hex.
func generateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("failed to generate secure random token: " + err.Error())
	}
	return hex.EncodeToString(b)
}
