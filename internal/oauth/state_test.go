package oauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellogate/internal/identity"
)

func TestStateRoundTrip(t *testing.T) {
	s := NewStateSigner([]byte("super-secret"), "hellogate")

	raw, err := s.Sign(State{
		Provider: identity.ProviderGoogle,
		Nonce:    NewNonce(),
		Remember: true,
		Redirect: "/panel",
	})
	require.NoError(t, err)

	got, err := s.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, identity.ProviderGoogle, got.Provider)
	assert.True(t, got.Remember)
	assert.Equal(t, "/panel", got.Redirect)
	assert.NotEmpty(t, got.Nonce)
}

func TestStateRejectsWrongSecret(t *testing.T) {
	a := NewStateSigner([]byte("secret-a"), "hellogate")
	b := NewStateSigner([]byte("secret-b"), "hellogate")

	raw, err := a.Sign(State{Provider: identity.ProviderGitHub, Nonce: NewNonce()})
	require.NoError(t, err)

	_, err = b.Verify(raw)
	assert.ErrorIs(t, err, ErrBadState)
}

func TestStateRejectsExpired(t *testing.T) {
	base := time.Now()
	s := NewStateSigner([]byte("secret"), "hellogate").WithNow(func() time.Time { return base })

	raw, err := s.Sign(State{Provider: identity.ProviderGoogle, Nonce: NewNonce()})
	require.NoError(t, err)

	// 5m de TTL + 30s de skew: a los 10 minutos tiene que estar vencido.
	s.WithNow(func() time.Time { return base.Add(10 * time.Minute) })
	_, err = s.Verify(raw)
	assert.ErrorIs(t, err, ErrBadState)
}

func TestStateRejectsUnknownProvider(t *testing.T) {
	s := NewStateSigner([]byte("secret"), "hellogate")

	raw, err := s.Sign(State{Provider: "mispace", Nonce: NewNonce()})
	require.NoError(t, err)

	_, err = s.Verify(raw)
	assert.ErrorIs(t, err, ErrBadState)
}

func TestStateRejectsGarbage(t *testing.T) {
	s := NewStateSigner([]byte("secret"), "hellogate")
	_, err := s.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrBadState)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get(identity.ProviderGoogle)
	assert.ErrorIs(t, err, ErrProviderNotRegistered)
}
