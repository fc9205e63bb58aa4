package http

import (
	stdhttp "net/http"
	"time"
)

// CookieConfig nombres y flags de las cookies que emite el gateway.
// Ambas son HttpOnly + SameSite=Lax; Secure solo en prod.
type CookieConfig struct {
	SessionName  string
	RememberName string
	Secure       bool
}

func (c CookieConfig) setSession(w stdhttp.ResponseWriter, sessionID string, expiresAt time.Time) {
	stdhttp.SetCookie(w, &stdhttp.Cookie{
		Name:     c.SessionName,
		Value:    sessionID,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: stdhttp.SameSiteLaxMode,
	})
}

// setRemember emite la cookie del remember token con max-age igual a la
// vida restante del token al momento de emisión.
func (c CookieConfig) setRemember(w stdhttp.ResponseWriter, token string, maxAge time.Duration) {
	stdhttp.SetCookie(w, &stdhttp.Cookie{
		Name:     c.RememberName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: stdhttp.SameSiteLaxMode,
	})
}

func (c CookieConfig) clear(w stdhttp.ResponseWriter, name string) {
	stdhttp.SetCookie(w, &stdhttp.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: stdhttp.SameSiteLaxMode,
	})
}

func cookieValue(r *stdhttp.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil || ck == nil {
		return ""
	}
	return ck.Value
}
