package pg

import "context"

// Schema DDL del ledger. Todo IF NOT EXISTS: correr Bootstrap en cada
// arranque es seguro aunque el schema ya exista.
//
// Índices:
//   - token: PK / lookup de validación
//   - (external_id, provider): soporta el replace-on-issue
//   - expires_at: soporta el sweep
const schemaDDL = `
CREATE TABLE IF NOT EXISTS remember_tokens (
	token        TEXT PRIMARY KEY,
	external_id  TEXT        NOT NULL,
	provider     TEXT        NOT NULL,
	email        TEXT        NOT NULL DEFAULT '',
	display_name TEXT        NOT NULL DEFAULT '',
	avatar_url   TEXT,
	expires_at   TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_used_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_remember_tokens_identity
	ON remember_tokens (external_id, provider);

CREATE INDEX IF NOT EXISTS idx_remember_tokens_expires_at
	ON remember_tokens (expires_at);
`

// Bootstrap crea tabla e índices si faltan.
func (s *Store) Bootstrap(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return opErr("bootstrap", err)
	}
	return nil
}
