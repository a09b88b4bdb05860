package handler

import (
	"net/http"

	"github.com/exampleauth/authd/internal/apierr"
	"github.com/exampleauth/authd/internal/authgate"
	"github.com/exampleauth/authd/internal/authtoken"
	"github.com/exampleauth/authd/internal/httperr"
	"github.com/exampleauth/authd/internal/mailer"
)

// SendEmailValidation implements the SendEmailValidation orchestration:
// issue a VerifyEmail OOB token for the authenticated account and
// email it.
func (d *Deps) SendEmailValidation(w http.ResponseWriter, r *http.Request, authed *authgate.AuthenticatedUser) {
	ctx := r.Context()
	account, err := d.Users.LoadByID(ctx, authed.Account.ID)
	if err != nil {
		d.Logger.Errorf("send-email-validation: loading account: %v", err)
		httperr.Write(w, d.Logger, apierr.Unknownf("internal error"))
		return
	}

	created, err := d.Tokens.Create(authtoken.VerifyEmail, account.ID, account.UserToken, authtoken.VerifyEmailExpiry)
	if err != nil {
		d.Logger.Errorf("send-email-validation: issuing token: %v", err)
		httperr.Write(w, d.Logger, apierr.Unknownf("internal error"))
		return
	}

	err = d.Mailer.Send(ctx, mailer.Message{
		Recipient: account.Email,
		Kind:      mailer.EmailVerification,
		Locale:    resolveLocale(r),
		TokenID:   created.ID,
		TokenKey:  created.Key,
	})
	if err != nil {
		d.Logger.Errorf("send-email-validation: sending mail: %v", err)
		httperr.Write(w, d.Logger, apierr.Unknownf("failed to send email"))
		return
	}
	httperr.WriteEmpty(w)
}

type oobTokenRequest struct {
	OOBTokenID  string `json:"oob_token_id"`
	OOBTokenKey string `json:"oob_token_key"`
}

// ConfirmEmailValidation implements the ConfirmEmailValidation
// orchestration: a consuming validation of the VerifyEmail token.
func (d *Deps) ConfirmEmailValidation(w http.ResponseWriter, r *http.Request) {
	var req oobTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		httperr.Write(w, d.Logger, apierr.Unknownf("invalid request body"))
		return
	}

	validated, err := d.Tokens.Validate(req.OOBTokenID, req.OOBTokenKey, authtoken.VerifyEmail, authtoken.Delete, 0)
	if err != nil {
		d.Logger.Errorf("confirm-email-validation: %v", err)
		httperr.Write(w, d.Logger, apierr.Auth(apierr.NotAuthorized))
		return
	}

	account, err := d.Users.LoadByID(r.Context(), validated.UID)
	if err != nil {
		d.Logger.Errorf("confirm-email-validation: loading account: %v", err)
		httperr.Write(w, d.Logger, apierr.Unknownf("internal error"))
		return
	}
	if validated.UserToken != account.UserToken {
		d.Logger.Errorf("confirm-email-validation: stale user_token for %s", validated.UID)
		httperr.Write(w, d.Logger, apierr.Auth(apierr.NotAuthorized))
		return
	}

	if err := d.Users.UpdateEmailVerified(r.Context(), validated.UID, true); err != nil {
		d.Logger.Errorf("confirm-email-validation: updating account: %v", err)
		httperr.Write(w, d.Logger, apierr.Unknownf("internal error"))
		return
	}
	httperr.WriteEmpty(w)
}
