package pg

// nullIfEmpty devuelve nil si el string está vacío. Útil para columnas
// opcionales (avatar_url).
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
