// Package mailer implements the Mailer: renders a
// subject/body pair from a 2x2 (kind x locale) template matrix and
// posts it to a mail-relay endpoint, grounded in
// email.TemplatizedEmailer (email/template.go) and email.FakeEmailer
// dev-mode path (email/interface.go). The JSON envelope shape is
// grounded in original_source's workers/api/src/mailer.rs.
package mailer

import (
	"context"

	"github.com/exampleauth/authd/internal/frontendurl"
)

// Locale is one of the two supported locales.
type Locale string

const (
	English Locale = "en"
	Hebrew  Locale = "he"
)

func (l Locale) dir() string {
	if l == Hebrew {
		return "rtl"
	}
	return "ltr"
}

// Kind is the message kind.
type Kind int

const (
	EmailVerification Kind = iota
	PasswordReset
)

// Message is the Mailer's input.
type Message struct {
	Recipient string
	Kind      Kind
	Locale    Locale
	TokenID   string
	TokenKey  string
}

// Mailer sends rendered messages. DevMailer and RelayMailer are the
// two implementations; which one is wired is a deployment decision
// (in development builds, mail is logged rather than sent).
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// rendered is the subject/body pair produced by Render.
type rendered struct {
	Subject string
	Text    string
	HTML    string
}

func kindLabel(k Kind) string {
	switch k {
	case EmailVerification:
		return "email_verification"
	case PasswordReset:
		return "password_reset"
	default:
		return "unknown"
	}
}

// Render executes the template matrix for msg, building the embedded
// link from urls.
func Render(msg Message, urls frontendurl.Builder) (rendered, error) {
	var link string
	switch msg.Kind {
	case EmailVerification:
		link = urls.VerifyEmailConfirm(msg.TokenID, msg.TokenKey)
	case PasswordReset:
		link = urls.ResetPasswordConfirm(msg.TokenID, msg.TokenKey)
	}
	return renderTemplates(msg.Kind, msg.Locale, link)
}
