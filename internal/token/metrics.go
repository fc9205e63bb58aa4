package token

import "github.com/prometheus/client_golang/prometheus"

// Metrics contadores de operaciones del ledger. Nil-safe: un Ledger sin
// métricas registradas no paga nada.
type Metrics struct {
	issuedTotal    prometheus.Counter
	validatedTotal *prometheus.CounterVec
	revokedTotal   prometheus.Counter
	sweptTotal     prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		issuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remember_tokens_issued_total",
			Help: "Tokens remember-me emitidos",
		}),
		validatedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remember_tokens_validated_total",
			Help: "Validaciones de tokens por resultado",
		}, []string{"result"}), // ok | miss | expired
		revokedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remember_tokens_revoked_total",
			Help: "Tokens revocados explícitamente",
		}),
		sweptTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remember_tokens_swept_total",
			Help: "Filas expiradas removidas por el sweep",
		}),
	}
	reg.MustRegister(m.issuedTotal, m.validatedTotal, m.revokedTotal, m.sweptTotal)
	return m
}

func (m *Metrics) issued() {
	if m != nil {
		m.issuedTotal.Inc()
	}
}

func (m *Metrics) validated(result string) {
	if m != nil {
		m.validatedTotal.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) revoked() {
	if m != nil {
		m.revokedTotal.Inc()
	}
}

func (m *Metrics) swept(n int64) {
	if m != nil && n > 0 {
		m.sweptTotal.Add(float64(n))
	}
}
