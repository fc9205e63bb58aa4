package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dropDatabas3/hellogate/internal/email"
	"github.com/dropDatabas3/hellogate/internal/identity"
	"github.com/dropDatabas3/hellogate/internal/oauth"
	"github.com/dropDatabas3/hellogate/internal/session"
)

// Handlers concentra las dependencias de la capa HTTP. Todo inyectado.
type Handlers struct {
	bridge   *session.Bridge
	registry *oauth.Registry
	signer   *oauth.StateSigner
	log      *zap.Logger
	cookies  CookieConfig

	rememberDays int
	// storePing nil cuando el storage no está configurado (modo degradado).
	storePing func(ctx context.Context) error
	mailer    email.Sender
}

type HandlersConfig struct {
	Bridge       *session.Bridge
	Registry     *oauth.Registry
	Signer       *oauth.StateSigner
	Log          *zap.Logger
	Cookies      CookieConfig
	RememberDays int
	StorePing    func(ctx context.Context) error
	Mailer       email.Sender
}

func NewHandlers(cfg HandlersConfig) *Handlers {
	h := &Handlers{
		bridge:       cfg.Bridge,
		registry:     cfg.Registry,
		signer:       cfg.Signer,
		log:          cfg.Log,
		cookies:      cfg.Cookies,
		rememberDays: cfg.RememberDays,
		storePing:    cfg.StorePing,
		mailer:       cfg.Mailer,
	}
	if h.rememberDays <= 0 {
		h.rememberDays = 30
	}
	return h
}

// LoginStart arma el state firmado y redirige al provider.
// GET /login/{provider}/start?remember=1&redirect=/destino
func (h *Handlers) LoginStart(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	prov, err := identity.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, stdhttp.StatusNotFound, "unknown_provider")
		return
	}
	p, err := h.registry.Get(prov)
	if err != nil {
		writeError(w, stdhttp.StatusNotFound, "provider_not_enabled")
		return
	}

	remember := r.URL.Query().Get("remember") == "1" || r.URL.Query().Get("remember") == "true"
	redirect := sanitizeRedirect(r.URL.Query().Get("redirect"))

	nonce := oauth.NewNonce()
	state, err := h.signer.Sign(oauth.State{
		Provider: prov,
		Nonce:    nonce,
		Remember: remember,
		Redirect: redirect,
	})
	if err != nil {
		h.log.Error("state_sign_failed", zap.Error(err))
		writeError(w, stdhttp.StatusInternalServerError, "internal_error")
		return
	}

	authURL, err := p.AuthURL(r.Context(), state, nonce)
	if err != nil {
		h.log.Error("auth_url_failed", zap.String("provider", prov.String()), zap.Error(err))
		writeError(w, stdhttp.StatusBadGateway, "idp_unreachable")
		return
	}
	stdhttp.Redirect(w, r, authURL, stdhttp.StatusFound)
}

// LoginCallback completa el handshake: valida state, autentica contra el
// provider y establece sesión (+ remember token si el state lo pedía).
// GET /login/{provider}/callback?state=...&code=...
func (h *Handlers) LoginCallback(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		h.log.Warn("idp_error_on_callback", zap.String("error", e))
		writeError(w, stdhttp.StatusBadGateway, "idp_error")
		return
	}
	rawState, code := q.Get("state"), q.Get("code")
	if rawState == "" || code == "" {
		writeError(w, stdhttp.StatusBadRequest, "missing_state_or_code")
		return
	}

	st, err := h.signer.Verify(rawState)
	if err != nil {
		writeError(w, stdhttp.StatusBadRequest, "invalid_state")
		return
	}

	prov, err := identity.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil || prov != st.Provider {
		writeError(w, stdhttp.StatusBadRequest, "provider_mismatch")
		return
	}

	p, err := h.registry.Get(prov)
	if err != nil {
		writeError(w, stdhttp.StatusNotFound, "provider_not_enabled")
		return
	}

	id, err := p.Authenticate(r.Context(), code, st.Nonce)
	if err != nil {
		h.log.Warn("provider_authenticate_failed",
			zap.String("provider", prov.String()), zap.Error(err))
		writeError(w, stdhttp.StatusUnauthorized, "authentication_failed")
		return
	}

	principal, rememberToken, err := h.bridge.OnAuthenticated(r.Context(), id, st.Remember)
	if err != nil {
		h.log.Error("session_establish_failed", zap.Error(err))
		writeError(w, stdhttp.StatusInternalServerError, "session_failed")
		return
	}

	h.cookies.setSession(w, principal.SessionID, principal.ExpiresAt)
	if rememberToken != "" {
		// Vida restante al momento de emisión = vida completa del token.
		maxAge := time.Until(time.Now().AddDate(0, 0, h.rememberDays))
		h.cookies.setRemember(w, rememberToken, maxAge)
	}

	dest := st.Redirect
	if dest == "" {
		dest = "/me"
	}
	stdhttp.Redirect(w, r, dest, stdhttp.StatusFound)
}

// Logout revoca el remember token (best-effort) y limpia sesión y cookies.
// POST /logout
func (h *Handlers) Logout(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	sid := cookieValue(r, h.cookies.SessionName)
	tok := cookieValue(r, h.cookies.RememberName)

	h.bridge.OnLogout(r.Context(), sid, tok)

	h.cookies.clear(w, h.cookies.SessionName)
	h.cookies.clear(w, h.cookies.RememberName)
	w.WriteHeader(stdhttp.StatusNoContent)
}

// Me devuelve el principal autenticado.
// GET /me
func (h *Handlers) Me(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, stdhttp.StatusUnauthorized, "not_authenticated")
		return
	}
	writeJSON(w, stdhttp.StatusOK, map[string]any{
		"session_id":   p.SessionID,
		"provider":     p.Identity.Provider,
		"external_id":  p.Identity.ExternalID,
		"display_name": p.Identity.DisplayName,
		"email":        p.Identity.Email,
		"avatar_url":   p.Identity.AvatarURL,
		"expires_at":   p.ExpiresAt,
	})
}

// Healthz liveness.
func (h *Handlers) Healthz(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
	w.WriteHeader(stdhttp.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Readyz readiness: reporta el estado del storage. El gateway sirve logins
// aunque el storage esté caído (remember-me degradado), así que storage
// down NO baja el readiness, solo se refleja en el payload.
func (h *Handlers) Readyz(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	storage := "disabled"
	if h.storePing != nil {
		storage = "ok"
		if err := h.storePing(r.Context()); err != nil {
			storage = "unreachable"
		}
	}
	writeJSON(w, stdhttp.StatusOK, map[string]any{
		"status":    "ok",
		"storage":   storage,
		"providers": h.registry.Names(),
	})
}

func writeJSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w stdhttp.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// sanitizeRedirect solo admite paths relativos del propio gateway; todo lo
// demás (URLs absolutas, protocol-relative) se descarta.
func sanitizeRedirect(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return ""
	}
	return raw
}
