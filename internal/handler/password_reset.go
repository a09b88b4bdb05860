package handler

import (
	"context"
	"net/http"

	"github.com/exampleauth/authd/internal/apierr"
	"github.com/exampleauth/authd/internal/authgate"
	"github.com/exampleauth/authd/internal/authtoken"
	"github.com/exampleauth/authd/internal/httperr"
	"github.com/exampleauth/authd/internal/mailer"
	"github.com/exampleauth/authd/internal/password"
	"github.com/exampleauth/authd/internal/store"
)

type sendPasswordResetAnyRequest struct {
	Email string `json:"email"`
}

// SendPasswordResetAny implements SendPasswordResetAny: resolve
// email->account, returning Auth(NoUserPasswordReset) if absent. This
// is a known privacy leak, preserved intentionally: see the
// password_reset.go row of DESIGN.md's C8 table.
func (d *Deps) SendPasswordResetAny(w http.ResponseWriter, r *http.Request) {
	var req sendPasswordResetAnyRequest
	if err := decodeJSON(r, &req); err != nil {
		httperr.Write(w, d.Logger, apierr.Unknownf("invalid request body"))
		return
	}

	ctx := r.Context()
	account, err := d.Users.LoadByEmail(ctx, req.Email)
	if err == store.ErrNotFound {
		httperr.Write(w, d.Logger, apierr.Auth(apierr.NoUserPasswordReset))
		return
	}
	if err != nil {
		d.Logger.Errorf("send-password-reset-any: loading account: %v", err)
		httperr.Write(w, d.Logger, apierr.Unknownf("internal error"))
		return
	}

	d.issuePasswordResetOOB(ctx, account, r)
	httperr.WriteEmpty(w)
}

// SendPasswordResetMe implements SendPasswordResetMe: same as
// SendPasswordResetAny but uses the authenticated account.
func (d *Deps) SendPasswordResetMe(w http.ResponseWriter, r *http.Request, authed *authgate.AuthenticatedUser) {
	d.issuePasswordResetOOB(r.Context(), authed.Account, r)
	httperr.WriteEmpty(w)
}

func (d *Deps) issuePasswordResetOOB(ctx context.Context, account store.UserAccount, r *http.Request) {
	created, err := d.Tokens.Create(authtoken.PasswordReset, account.ID, account.UserToken, authtoken.PasswordResetExpiry)
	if err != nil {
		d.Logger.Errorf("issuePasswordResetOOB: issuing token: %v", err)
		return
	}
	err = d.Mailer.Send(ctx, mailer.Message{
		Recipient: account.Email,
		Kind:      mailer.PasswordReset,
		Locale:    resolveLocale(r),
		TokenID:   created.ID,
		TokenKey:  created.Key,
	})
	if err != nil {
		d.Logger.Errorf("issuePasswordResetOOB: sending mail: %v", err)
	}
}

type checkPasswordResetResponse struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// CheckPasswordReset implements CheckPasswordReset: validate the
// PasswordReset token with ExtendExpiresMs so it survives the
// subsequent Confirm call.
func (d *Deps) CheckPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req oobTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		httperr.Write(w, d.Logger, apierr.Unknownf("invalid request body"))
		return
	}

	validated, err := d.Tokens.Validate(req.OOBTokenID, req.OOBTokenKey, authtoken.PasswordReset, authtoken.ExtendExpiresMs, authtoken.PasswordResetExpiry)
	if err != nil {
		d.Logger.Errorf("check-password-reset: %v", err)
		httperr.Write(w, d.Logger, apierr.Auth(apierr.NotAuthorized))
		return
	}

	account, err := d.Users.LoadByID(r.Context(), validated.UID)
	if err != nil {
		d.Logger.Errorf("check-password-reset: loading account: %v", err)
		httperr.Write(w, d.Logger, apierr.Unknownf("internal error"))
		return
	}
	if validated.UserToken != account.UserToken {
		d.Logger.Errorf("check-password-reset: stale user_token for %s", validated.UID)
		httperr.Write(w, d.Logger, apierr.Auth(apierr.NotAuthorized))
		return
	}

	httperr.WriteJSON(w, d.Logger, checkPasswordResetResponse{UID: account.ID, Email: account.Email})
}

type confirmPasswordResetRequest struct {
	OOBTokenID  string `json:"oob_token_id"`
	OOBTokenKey string `json:"oob_token_key"`
	Password    string `json:"password"`
}

// ConfirmPasswordReset implements ConfirmPasswordReset: a consuming
// validation of the PasswordReset token, atomic password+user_token
// update, and issuance of a fresh Signin token.
func (d *Deps) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req confirmPasswordResetRequest
	if err := decodeJSON(r, &req); err != nil {
		httperr.Write(w, d.Logger, apierr.Unknownf("invalid request body"))
		return
	}

	ctx := r.Context()

	validated, err := d.Tokens.Validate(req.OOBTokenID, req.OOBTokenKey, authtoken.PasswordReset, authtoken.Delete, 0)
	if err != nil {
		d.Logger.Errorf("confirm-password-reset: %v", err)
		httperr.Write(w, d.Logger, apierr.Auth(apierr.NotAuthorized))
		return
	}

	preResetAccount, err := d.Users.LoadByID(ctx, validated.UID)
	if err != nil {
		d.Logger.Errorf("confirm-password-reset: loading account: %v", err)
		httperr.Write(w, d.Logger, apierr.Unknownf("internal error"))
		return
	}
	if validated.UserToken != preResetAccount.UserToken {
		d.Logger.Errorf("confirm-password-reset: stale user_token for %s", validated.UID)
		httperr.Write(w, d.Logger, apierr.Auth(apierr.NotAuthorized))
		return
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		d.Logger.Errorf("confirm-password-reset: hashing: %v", err)
		httperr.Write(w, d.Logger, apierr.Unknownf("internal error"))
		return
	}

	newUserToken, err := randomUserToken()
	if err != nil {
		d.Logger.Errorf("confirm-password-reset: generating user_token: %v", err)
		httperr.Write(w, d.Logger, apierr.Unknownf("internal error"))
		return
	}

	if err := d.Users.ResetPassword(ctx, validated.UID, hashed, newUserToken); err != nil {
		d.Logger.Errorf("confirm-password-reset: resetting password: %v", err)
		httperr.Write(w, d.Logger, apierr.Unknownf("internal error"))
		return
	}

	account, err := d.Users.LoadByID(ctx, validated.UID)
	if err != nil {
		d.Logger.Errorf("confirm-password-reset: reloading account: %v", err)
		httperr.Write(w, d.Logger, apierr.Unknownf("internal error"))
		return
	}

	created, err := d.Tokens.Create(authtoken.Signin, account.ID, account.UserToken, authtoken.SigninExpiry)
	if err != nil {
		d.Logger.Errorf("confirm-password-reset: issuing signin token: %v", err)
		httperr.Write(w, d.Logger, apierr.Unknownf("internal error"))
		return
	}

	authgate.SetTokenCookie(w, created.ID, d.Prod)
	httperr.WriteJSON(w, d.Logger, authResponse{
		UID:           account.ID,
		EmailVerified: account.EmailVerified,
		AuthKey:       created.Key,
	})
}
