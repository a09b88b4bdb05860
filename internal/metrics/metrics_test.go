package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoOp(t *testing.T) {
	var m *Metrics
	m.TokenIssued("Signin")
	m.MailSendFailed("email_verification")
	m.AuthGateRejected("missing_credentials")
}

func TestMetricsIncrementCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.TokenIssued("Signin")
	m.TokenIssued("Signin")
	m.MailSendFailed("password_reset")
	m.AuthGateRejected("invalid_token")

	families, err := reg.Gather()
	require.NoError(t, err)

	var sawTokens, sawMail, sawGate bool
	for _, fam := range families {
		switch fam.GetName() {
		case "authd_tokens_issued_total":
			sawTokens = true
			require.Equal(t, float64(2), fam.GetMetric()[0].GetCounter().GetValue())
		case "authd_mail_send_failures_total":
			sawMail = true
			require.Equal(t, float64(1), fam.GetMetric()[0].GetCounter().GetValue())
		case "authd_auth_gate_rejections_total":
			sawGate = true
			require.Equal(t, float64(1), fam.GetMetric()[0].GetCounter().GetValue())
		}
	}
	require.True(t, sawTokens)
	require.True(t, sawMail)
	require.True(t, sawGate)
}
