package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dropDatabas3/hellogate/internal/identity"
	"github.com/dropDatabas3/hellogate/internal/store"
)

// fakeLedger implementación mínima de TokenLedger.
type fakeLedger struct {
	createErr   error
	validateErr error
	deleteErr   error

	created  int
	deleted  []string
	identity identity.Identity
	token    string
}

func (f *fakeLedger) Create(_ context.Context, id identity.Identity, _ int) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created++
	f.identity = id
	return f.token, nil
}

func (f *fakeLedger) Validate(_ context.Context, token string) (identity.Identity, error) {
	if f.validateErr != nil {
		return identity.Identity{}, f.validateErr
	}
	if token != f.token {
		return identity.Identity{}, store.ErrNotFound
	}
	return f.identity, nil
}

func (f *fakeLedger) Delete(_ context.Context, token string) (bool, error) {
	f.deleted = append(f.deleted, token)
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	return true, nil
}

func anaID() identity.Identity {
	return identity.Identity{
		ExternalID:  "777",
		Provider:    identity.ProviderGitHub,
		DisplayName: "Ana",
		Email:       "ana@example.com",
	}
}

func TestOnAuthenticatedCreatesSessionAndToken(t *testing.T) {
	ledger := &fakeLedger{token: "tok-abc"}
	b := NewBridge(NewMemoryStore(), ledger, zap.NewNop())

	p, tok, err := b.OnAuthenticated(context.Background(), anaID(), true)
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", tok)
	assert.NotEmpty(t, p.SessionID)
	assert.Equal(t, anaID(), p.Identity)

	got, err := b.Resolve(context.Background(), p.SessionID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.SessionID, got.SessionID)
}

func TestOnAuthenticatedWithoutPersistence(t *testing.T) {
	ledger := &fakeLedger{token: "tok-abc"}
	b := NewBridge(NewMemoryStore(), ledger, zap.NewNop())

	_, tok, err := b.OnAuthenticated(context.Background(), anaID(), false)
	require.NoError(t, err)
	assert.Empty(t, tok)
	assert.Zero(t, ledger.created)
}

func TestLedgerFailureDoesNotBlockLogin(t *testing.T) {
	ledger := &fakeLedger{createErr: &store.OpError{Op: "replace_token", Err: errors.New("down")}}
	b := NewBridge(NewMemoryStore(), ledger, zap.NewNop())

	p, tok, err := b.OnAuthenticated(context.Background(), anaID(), true)
	require.NoError(t, err, "login must succeed with persistence skipped")
	assert.Empty(t, tok)
	assert.NotEmpty(t, p.SessionID)
}

func TestOnCookiePresentedRestoresSession(t *testing.T) {
	ledger := &fakeLedger{token: "tok-abc", identity: anaID()}
	b := NewBridge(NewMemoryStore(), ledger, zap.NewNop())

	p, ok := b.OnCookiePresented(context.Background(), "tok-abc")
	require.True(t, ok)
	assert.Equal(t, anaID(), p.Identity)

	got, err := b.Resolve(context.Background(), p.SessionID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestOnCookiePresentedMissFallsThrough(t *testing.T) {
	ledger := &fakeLedger{token: "tok-abc"}
	b := NewBridge(NewMemoryStore(), ledger, zap.NewNop())

	_, ok := b.OnCookiePresented(context.Background(), "otro")
	assert.False(t, ok)

	// Storage caído tampoco es error visible: solo fall-through.
	ledger.validateErr = store.ErrUnavailable
	_, ok = b.OnCookiePresented(context.Background(), "tok-abc")
	assert.False(t, ok)
}

func TestOnLogoutBestEffort(t *testing.T) {
	ledger := &fakeLedger{token: "tok-abc", identity: anaID()}
	mem := NewMemoryStore()
	b := NewBridge(mem, ledger, zap.NewNop())

	p, tok, err := b.OnAuthenticated(context.Background(), anaID(), true)
	require.NoError(t, err)

	// Aunque el delete del token falle, la sesión local se limpia.
	ledger.deleteErr = &store.OpError{Op: "delete_token", Err: errors.New("timeout")}
	b.OnLogout(context.Background(), p.SessionID, tok)

	assert.Equal(t, []string{"tok-abc"}, ledger.deleted)
	got, err := b.Resolve(context.Background(), p.SessionID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionTTLApplied(t *testing.T) {
	ledger := &fakeLedger{}
	now := time.Now().Truncate(time.Second)
	b := NewBridge(NewMemoryStore(), ledger, zap.NewNop(),
		WithSessionTTL(2*time.Hour),
		WithBridgeClock(func() time.Time { return now }))

	p, _, err := b.OnAuthenticated(context.Background(), anaID(), false)
	require.NoError(t, err)
	assert.Equal(t, now.Add(2*time.Hour), p.ExpiresAt)
}
