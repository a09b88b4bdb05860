package mailer

import (
	"context"

	"github.com/exampleauth/authd/internal/frontendurl"
	"github.com/exampleauth/authd/internal/metrics"
	"github.com/exampleauth/authd/pkg/log"
)

// DevMailer logs the rendered message instead of sending it, matching
// email/interface.go's FakeEmailer: "Should only be used
// in development."
type DevMailer struct {
	URLs   frontendurl.Builder
	Logger log.Logger

	// Metrics is optional; nil disables the mail-send-failures counter.
	Metrics *metrics.Metrics
}

func (d DevMailer) Send(_ context.Context, msg Message) error {
	r, err := Render(msg, d.URLs)
	if err != nil {
		d.Metrics.MailSendFailed(kindLabel(msg.Kind))
		return err
	}
	d.Logger.Infof("dev mailer: to=%s subject=%q text=%q", msg.Recipient, r.Subject, r.Text)
	return nil
}
