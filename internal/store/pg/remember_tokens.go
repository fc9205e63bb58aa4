package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/hellogate/internal/identity"
	"github.com/dropDatabas3/hellogate/internal/store"
)

// Replace ejecuta delete-por-identidad + insert en una sola transacción.
// El DELETE corre contra el estado actual dentro de la tx: si dos emisiones
// para la misma identidad corren en paralelo, gana la última en commitear y
// sobrevive a lo sumo un token.
func (s *Store) Replace(ctx context.Context, t store.RememberToken) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		const del = `DELETE FROM remember_tokens WHERE external_id = $1 AND provider = $2`
		if _, err := tx.Exec(ctx, del, t.ExternalID, string(t.Provider)); err != nil {
			return err
		}
		const ins = `
			INSERT INTO remember_tokens
				(token, external_id, provider, email, display_name, avatar_url,
				 expires_at, created_at, last_used_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
		_, err := tx.Exec(ctx, ins,
			t.Token, t.ExternalID, string(t.Provider),
			t.Email, t.DisplayName, nullIfEmpty(t.AvatarURL),
			t.ExpiresAt, t.CreatedAt, t.LastUsedAt)
		return err
	})
	if err != nil {
		return opErr("replace_token", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, token string) (store.RememberToken, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	const q = `
		SELECT token, external_id, provider, email, display_name, avatar_url,
		       expires_at, created_at, last_used_at
		FROM remember_tokens WHERE token = $1`

	var (
		t      store.RememberToken
		prov   string
		avatar *string
	)
	err := s.pool.QueryRow(ctx, q, token).Scan(
		&t.Token, &t.ExternalID, &prov, &t.Email, &t.DisplayName, &avatar,
		&t.ExpiresAt, &t.CreatedAt, &t.LastUsedAt)
	if err != nil {
		return store.RememberToken{}, opErr("get_token", err)
	}
	t.Provider = identity.Provider(prov)
	t.AvatarURL = deref(avatar)
	return t, nil
}

func (s *Store) Touch(ctx context.Context, token string, at time.Time) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	const q = `UPDATE remember_tokens SET last_used_at = $2 WHERE token = $1`
	ct, err := s.pool.Exec(ctx, q, token, at)
	if err != nil {
		return opErr("touch_token", err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, token string) (bool, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	const q = `DELETE FROM remember_tokens WHERE token = $1`
	ct, err := s.pool.Exec(ctx, q, token)
	if err != nil {
		return false, opErr("delete_token", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (s *Store) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	const q = `DELETE FROM remember_tokens WHERE expires_at < $1`
	ct, err := s.pool.Exec(ctx, q, before)
	if err != nil {
		return 0, opErr("delete_expired", err)
	}
	return ct.RowsAffected(), nil
}
