package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/exampleauth/authd/internal/frontendurl"
	"github.com/exampleauth/authd/internal/metrics"
)

// DKIM is the signing triple the relay envelope carries per message,
// grounded in original_source's workers/api/src/mailer.rs envelope.
type DKIM struct {
	Domain     string
	Selector   string
	PrivateKey string
}

// RelayConfig configures the production mail-relay POST.
type RelayConfig struct {
	Endpoint string
	APIKey   string
	Sender   string
	DKIM     DKIM
}

// RelayMailer posts a single HTTPS request per message to the
// configured mail-relay endpoint. A non-2xx response is a fatal
// handler error; this package does not retry.
type RelayMailer struct {
	Config     RelayConfig
	URLs       frontendurl.Builder
	HTTPClient *http.Client

	// Metrics is optional; nil disables the mail-send-failures counter.
	Metrics *metrics.Metrics
}

type envelopePersonalization struct {
	To []envelopeAddress `json:"to"`
}

type envelopeAddress struct {
	Email string `json:"email"`
}

type envelopeContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type envelopeDKIM struct {
	Domain     string `json:"dkim_domain"`
	Selector   string `json:"dkim_selector"`
	PrivateKey string `json:"dkim_private_key"`
}

type envelope struct {
	Personalizations []envelopePersonalization `json:"personalizations"`
	From             envelopeAddress            `json:"from"`
	Subject          string                     `json:"subject"`
	Content          []envelopeContent          `json:"content"`
	envelopeDKIM
}

func (r RelayMailer) Send(ctx context.Context, msg Message) (err error) {
	defer func() {
		if err != nil {
			r.Metrics.MailSendFailed(kindLabel(msg.Kind))
		}
	}()

	rendered, err := Render(msg, r.URLs)
	if err != nil {
		return err
	}

	env := envelope{
		Personalizations: []envelopePersonalization{{To: []envelopeAddress{{Email: msg.Recipient}}}},
		From:             envelopeAddress{Email: r.Config.Sender},
		Subject:          rendered.Subject,
		Content: []envelopeContent{
			{Type: "text/plain", Value: rendered.Text},
			{Type: "text/html", Value: rendered.HTML},
		},
		envelopeDKIM: envelopeDKIM{
			Domain:     r.Config.DKIM.Domain,
			Selector:   r.Config.DKIM.Selector,
			PrivateKey: r.Config.DKIM.PrivateKey,
		},
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("mailer: encoding envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mailer: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.Config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.Config.APIKey)
	}

	client := r.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("mailer: posting to relay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mailer: relay responded %d", resp.StatusCode)
	}
	return nil
}
