package auth

import "github.com/prometheus/client_golang/prometheus"

const (
	OutcomeSuccess         = "success"
	OutcomeNotFound        = "not_found"
	OutcomeTooManyAttempts = "too_many_attempts"
	OutcomeExpired         = "expired"
	OutcomeInvalidCode     = "invalid_code"
)

// Metrics holds the authentication counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	codesIssued   *prometheus.CounterVec
	verifications *prometheus.CounterVec
	mailFailures  prometheus.Counter
	sessions      *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		codesIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tunishield",
			Subsystem: "auth",
			Name:      "codes_issued_total",
			Help:      "One-time login codes issued, by intent.",
		}, []string{"intent"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tunishield",
			Subsystem: "auth",
			Name:      "code_verifications_total",
			Help:      "One-time code verification attempts, by outcome.",
		}, []string{"outcome"}),
		mailFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tunishield",
			Subsystem: "auth",
			Name:      "mail_failures_total",
			Help:      "Login code emails that could not be delivered.",
		}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tunishield",
			Subsystem: "auth",
			Name:      "sessions_total",
			Help:      "Session lifecycle events.",
		}, []string{"event"}),
	}
	reg.MustRegister(m.codesIssued, m.verifications, m.mailFailures, m.sessions)
	return m
}

func (m *Metrics) codeIssued(intent string) {
	if m != nil {
		m.codesIssued.WithLabelValues(intent).Inc()
	}
}

func (m *Metrics) verification(outcome string) {
	if m != nil {
		m.verifications.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) mailFailed() {
	if m != nil {
		m.mailFailures.Inc()
	}
}

func (m *Metrics) session(event string) {
	if m != nil {
		m.sessions.WithLabelValues(event).Inc()
	}
}
