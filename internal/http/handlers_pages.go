package http

import (
	stdhttp "net/http"

	"go.uber.org/zap"
)

// Páginas estáticas que los providers exigen tener publicadas (privacy,
// terms) y el formulario de borrado de cuenta.

const privacyHTML = `<!DOCTYPE html>
<html lang="es">
<head><meta charset="utf-8"><title>Política de privacidad</title></head>
<body>
<h1>Política de privacidad</h1>
<p>Este servicio guarda únicamente el perfil básico que entrega tu proveedor
de identidad (nombre, email, avatar) y, si lo pedís, una credencial
"recordarme" para no repetir el login. No almacenamos tokens de acceso del
proveedor ni llamamos a sus APIs en tu nombre.</p>
<p>Podés borrar tus datos en cualquier momento desde
<a href="/account/delete">borrar cuenta</a>.</p>
</body>
</html>`

const termsHTML = `<!DOCTYPE html>
<html lang="es">
<head><meta charset="utf-8"><title>Términos de servicio</title></head>
<body>
<h1>Términos de servicio</h1>
<p>El servicio se provee tal cual, sin garantías. El acceso se autentica
contra tu proveedor de identidad; sos responsable de la seguridad de esa
cuenta.</p>
</body>
</html>`

const deleteFormHTML = `<!DOCTYPE html>
<html lang="es">
<head><meta charset="utf-8"><title>Borrar cuenta</title></head>
<body>
<h1>Borrar cuenta</h1>
<p>Esto revoca tu credencial "recordarme" y cierra tu sesión. Tu cuenta en
el proveedor de identidad no se toca.</p>
<form method="post" action="/account/delete">
<button type="submit">Borrar mis datos</button>
</form>
</body>
</html>`

func (h *Handlers) PrivacyPage(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
	writeHTML(w, privacyHTML)
}

func (h *Handlers) TermsPage(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
	writeHTML(w, termsHTML)
}

func (h *Handlers) DeleteAccountForm(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	if _, ok := PrincipalFrom(r.Context()); !ok {
		writeError(w, stdhttp.StatusUnauthorized, "not_authenticated")
		return
	}
	writeHTML(w, deleteFormHTML)
}

// DeleteAccount borra lo único que este gateway persiste del usuario: el
// remember token y la sesión. Manda un mail de confirmación si hay SMTP.
// POST /account/delete
func (h *Handlers) DeleteAccount(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, stdhttp.StatusUnauthorized, "not_authenticated")
		return
	}

	sid := cookieValue(r, h.cookies.SessionName)
	tok := cookieValue(r, h.cookies.RememberName)
	h.bridge.OnLogout(r.Context(), sid, tok)

	h.cookies.clear(w, h.cookies.SessionName)
	h.cookies.clear(w, h.cookies.RememberName)

	if h.mailer != nil && p.Identity.Email != "" {
		// Best-effort y fuera del camino del request.
		go func(to string) {
			if err := h.mailer.Send(to, "Cuenta eliminada",
				"Tus datos en el gateway de login fueron eliminados."); err != nil {
				h.log.Warn("delete_confirmation_email_failed", zap.Error(err))
			}
		}(p.Identity.Email)
	}

	writeJSON(w, stdhttp.StatusOK, map[string]string{"status": "deleted"})
}

func writeHTML(w stdhttp.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(stdhttp.StatusOK)
	_, _ = w.Write([]byte(body))
}
