package token

import (
	"context"

	"github.com/dropDatabas3/hellogate/internal/identity"
	"github.com/dropDatabas3/hellogate/internal/store"
)

// DisabledLedger reemplaza al ledger cuando no hay storage configurado:
// el login sigue funcionando, solo que sin "recordarme". Create falla con
// ErrUnavailable (el Bridge lo degrada), Validate nunca encuentra nada.
type DisabledLedger struct{}

func (DisabledLedger) Create(context.Context, identity.Identity, int) (string, error) {
	return "", store.ErrUnavailable
}

func (DisabledLedger) Validate(context.Context, string) (identity.Identity, error) {
	return identity.Identity{}, store.ErrNotFound
}

func (DisabledLedger) Delete(context.Context, string) (bool, error) {
	return false, nil
}
