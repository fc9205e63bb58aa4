package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/hellogate/internal/session"
)

type ctxKey int

const (
	ctxKeyPrincipal ctxKey = iota
	ctxKeyRequestID
)

// PrincipalFrom devuelve el principal autenticado del request, si hay.
func PrincipalFrom(ctx context.Context) (*session.Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(*session.Principal)
	return p, ok && p != nil
}

// RequestID middleware: asigna un ID a cada request y lo propaga en el
// header de respuesta.
func RequestID(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", rid)
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger loguea cada request con zap.
func RequestLogger(log *zap.Logger) func(stdhttp.Handler) stdhttp.Handler {
	return func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, status: stdhttp.StatusOK}
			next.ServeHTTP(rw, r)

			rid, _ := r.Context().Value(ctxKeyRequestID).(string)
			log.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rw.status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", rid),
			)
		})
	}
}

// SessionRestore resuelve el principal del request: primero por cookie de
// sesión, y si no hay sesión activa intenta la cookie remember-me contra el
// ledger (el camino "volví con el browser de siempre"). Una cookie remember
// inválida se limpia y el request sigue anónimo: el usuario simplemente ve
// el login normal.
func (h *Handlers) SessionRestore(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		ctx := r.Context()

		if sid := cookieValue(r, h.cookies.SessionName); sid != "" {
			if p, err := h.bridge.Resolve(ctx, sid); err == nil && p != nil {
				next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, ctxKeyPrincipal, p)))
				return
			}
		}

		if tok := cookieValue(r, h.cookies.RememberName); tok != "" {
			if p, ok := h.bridge.OnCookiePresented(ctx, tok); ok {
				h.cookies.setSession(w, p.SessionID, p.ExpiresAt)
				next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, ctxKeyPrincipal, &p)))
				return
			}
			h.cookies.clear(w, h.cookies.RememberName)
		}

		next.ServeHTTP(w, r)
	})
}
