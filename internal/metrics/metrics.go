// Package metrics defines the optional operational counters exposed at
// /metrics, grounded in server/server.go's PrometheusRegistry-gated
// CounterVec construction (requestCounter/durationHist there; tokens,
// mail failures, and auth-gate rejections here).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every counter this system exposes. A nil *Metrics is
// valid everywhere one is accepted: every method becomes a no-op, so
// components work the same whether or not metrics were wired.
type Metrics struct {
	tokensIssued     *prometheus.CounterVec
	mailSendFailures *prometheus.CounterVec
	authGateRejects  *prometheus.CounterVec
}

// New builds the counter families and registers them on reg.
func New(reg *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authd_tokens_issued_total",
			Help: "Count of Token Objects issued, by kind.",
		}, []string{"kind"}),
		mailSendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authd_mail_send_failures_total",
			Help: "Count of Mailer.Send failures, by message kind.",
		}, []string{"kind"}),
		authGateRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authd_auth_gate_rejections_total",
			Help: "Count of Auth Gate rejections, by reason.",
		}, []string{"reason"}),
	}
	for _, c := range []prometheus.Collector{m.tokensIssued, m.mailSendFailures, m.authGateRejects} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// TokenIssued records a Token Object creation of the given kind.
func (m *Metrics) TokenIssued(kind string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(kind).Inc()
}

// MailSendFailed records a failed Mailer.Send for the given message kind.
func (m *Metrics) MailSendFailed(kind string) {
	if m == nil {
		return
	}
	m.mailSendFailures.WithLabelValues(kind).Inc()
}

// AuthGateRejected records an Auth Gate rejection for the given reason.
func (m *Metrics) AuthGateRejected(reason string) {
	if m == nil {
		return
	}
	m.authGateRejects.WithLabelValues(reason).Inc()
}
