package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dropDatabas3/hellogate/internal/identity"
)

// El state viaja firmado como JWT: anti-CSRF más transporte del nonce y
// del flag remember entre /start y /callback sin estado server-side.
const (
	stateAudience = "login-state"
	stateTTL      = 5 * time.Minute
	stateSkew     = 30 * time.Second
)

var ErrBadState = errors.New("oauth: invalid state")

// State es lo que va dentro del JWT de state.
type State struct {
	Provider identity.Provider
	Nonce    string
	Remember bool
	Redirect string // destino post-login (opcional, solo paths relativos)
}

// StateSigner firma y verifica states con HMAC-SHA256.
type StateSigner struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewStateSigner(secret []byte, issuer string) *StateSigner {
	return &StateSigner{secret: secret, issuer: issuer, now: time.Now}
}

// WithNow reemplaza el reloj (tests).
func (s *StateSigner) WithNow(now func() time.Time) *StateSigner {
	s.now = now
	return s
}

func (s *StateSigner) Sign(st State) (string, error) {
	now := s.now()
	claims := jwtv5.MapClaims{
		"iss":   s.issuer,
		"aud":   stateAudience,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(stateTTL).Unix(),
		"prv":   string(st.Provider),
		"non":   st.Nonce,
		"rem":   st.Remember,
		"redir": st.Redirect,
	}
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

func (s *StateSigner) Verify(raw string) (State, error) {
	tok, err := jwtv5.Parse(raw,
		func(t *jwtv5.Token) (any, error) { return s.secret, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithIssuer(s.issuer),
		jwtv5.WithAudience(stateAudience),
		jwtv5.WithTimeFunc(s.now),
		jwtv5.WithLeeway(stateSkew),
	)
	if err != nil || !tok.Valid {
		return State{}, ErrBadState
	}
	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return State{}, ErrBadState
	}

	prv, _ := claims["prv"].(string)
	provider, err := identity.ParseProvider(prv)
	if err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrBadState, err)
	}
	nonce, _ := claims["non"].(string)
	if nonce == "" {
		return State{}, ErrBadState
	}
	remember, _ := claims["rem"].(bool)
	redirect, _ := claims["redir"].(string)

	return State{Provider: provider, Nonce: nonce, Remember: remember, Redirect: redirect}, nil
}

// NewNonce valor aleatorio de 128 bits, base64url.
func NewNonce() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("failed to generate nonce: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
