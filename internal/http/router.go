package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter arma el router del gateway.
func NewRouter(h *Handlers, log *zap.Logger, metricsHandler stdhttp.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(RequestID)
	r.Use(MetricsMiddleware(chiRoutePattern))
	r.Use(RequestLogger(log))

	// Health y métricas, fuera del SessionRestore.
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	if metricsHandler != nil {
		r.Method(stdhttp.MethodGet, "/metrics", metricsHandler)
	}

	// OAuth dance (no necesita sesión previa).
	r.Get("/login/{provider}/start", h.LoginStart)
	r.Get("/login/{provider}/callback", h.LoginCallback)

	// Rutas con resolución de principal (sesión o remember cookie).
	r.Group(func(r chi.Router) {
		r.Use(h.SessionRestore)

		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
		r.Get("/account/delete", h.DeleteAccountForm)
		r.Post("/account/delete", h.DeleteAccount)
	})

	// Contenido estático.
	r.Get("/privacy", h.PrivacyPage)
	r.Get("/terms", h.TermsPage)

	return r
}

// chiRoutePattern devuelve el pattern de la ruta (p.ej.
// /login/{provider}/start) para etiquetar métricas sin cardinalidad libre.
func chiRoutePattern(r *stdhttp.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
