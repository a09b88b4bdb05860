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
	"github.com/google/uuid"
)

// signinLikeRequest is the body shape both Register and Signin accept
// (the "AuthSigninLike" body shape).
type signinLikeRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` // client-side H1, base64url
}

type authResponse struct {
	UID           string `json:"uid"`
	EmailVerified bool   `json:"email_verified"`
	AuthKey       string `json:"auth_key"`
}

// Register implements the Register orchestration:
// reject if the email exists, insert, issue a Signin token, send the
// verification email, and set the session cookie.
func (d *Deps) Register(w http.ResponseWriter, r *http.Request) {
	var req signinLikeRequest
	if err := decodeJSON(r, &req); err != nil {
		httperr.Write(w, d.Logger, apierr.Unknownf("invalid request body"))
		return
	}

	ctx := r.Context()
	exists, err := d.Users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		d.Logger.Errorf("register: checking existence: %v", err)
		httperr.Write(w, d.Logger, apierr.Unknownf("internal error"))
		return
	}
	if exists {
		httperr.Write(w, d.Logger, apierr.Auth(apierr.EmailAlreadyExists))
		return
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		d.Logger.Errorf("register: hashing password: %v", err)
		httperr.Write(w, d.Logger, apierr.Unknownf("internal error"))
		return
	}

	uid := uuid.Must(uuid.NewV7()).String()
	userToken, err := randomUserToken()
	if err != nil {
		d.Logger.Errorf("register: generating user_token: %v", err)
		httperr.Write(w, d.Logger, apierr.Unknownf("internal error"))
		return
	}

	if err := d.Users.Insert(ctx, uid, hashed, req.Email, userToken); err != nil {
		if err == store.ErrAlreadyExists {
			httperr.Write(w, d.Logger, apierr.Auth(apierr.EmailAlreadyExists))
			return
		}
		d.Logger.Errorf("register: inserting account: %v", err)
		httperr.Write(w, d.Logger, apierr.Unknownf("internal error"))
		return
	}

	created, err := d.Tokens.Create(authtoken.Signin, uid, userToken, authtoken.SigninExpiry)
	if err != nil {
		d.Logger.Errorf("register: issuing signin token: %v", err)
		httperr.Write(w, d.Logger, apierr.Unknownf("internal error"))
		return
	}

	d.sendVerificationEmail(ctx, uid, store.CanonicalEmail(req.Email), userToken, r)

	authgate.SetTokenCookie(w, created.ID, d.Prod)
	httperr.WriteJSON(w, d.Logger, authResponse{
		UID:           uid,
		EmailVerified: false,
		AuthKey:       created.Key,
	})
}

// Signin implements the Signin orchestration. Every
// internal failure on this path flattens to Auth(InvalidSignin); the
// real cause is logged, never returned.
func (d *Deps) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinLikeRequest
	if err := decodeJSON(r, &req); err != nil {
		d.Logger.Errorf("signin: decoding request body: %v", err)
		httperr.Write(w, d.Logger, apierr.FlattenSignin(err))
		return
	}

	ctx := r.Context()
	account, err := d.Users.LoadByEmail(ctx, req.Email)
	if err != nil {
		d.Logger.Errorf("signin: loading account for %s: %v", req.Email, err)
		httperr.Write(w, d.Logger, apierr.FlattenSignin(err))
		return
	}

	ok, err := password.Verify(account.Password, req.Password)
	if err != nil {
		d.Logger.Errorf("signin: verifying password for %s: %v", req.Email, err)
		httperr.Write(w, d.Logger, apierr.FlattenSignin(err))
		return
	}
	if !ok {
		d.Logger.Errorf("signin: wrong password for %s", req.Email)
		httperr.Write(w, d.Logger, apierr.FlattenSignin(nil))
		return
	}

	created, err := d.Tokens.Create(authtoken.Signin, account.ID, account.UserToken, authtoken.SigninExpiry)
	if err != nil {
		d.Logger.Errorf("signin: issuing signin token: %v", err)
		httperr.Write(w, d.Logger, apierr.FlattenSignin(err))
		return
	}

	authgate.SetTokenCookie(w, created.ID, d.Prod)
	httperr.WriteJSON(w, d.Logger, authResponse{
		UID:           account.ID,
		EmailVerified: account.EmailVerified,
		AuthKey:       created.Key,
	})
}

// Signout implements the Signout orchestration: destroy the Signin
// token and delete the cookie.
func (d *Deps) Signout(w http.ResponseWriter, r *http.Request, authed *authgate.AuthenticatedUser) {
	d.Tokens.Destroy(authed.TokenID)
	authgate.ClearTokenCookie(w, d.Prod)
	httperr.WriteEmpty(w)
}

type checkResponse struct {
	UID string `json:"uid"`
}

// Check implements the Check orchestration.
func (d *Deps) Check(w http.ResponseWriter, r *http.Request, authed *authgate.AuthenticatedUser) {
	httperr.WriteJSON(w, d.Logger, checkResponse{UID: authed.Account.ID})
}

func (d *Deps) sendVerificationEmail(ctx context.Context, uid, email, userToken string, r *http.Request) {
	created, err := d.Tokens.Create(authtoken.VerifyEmail, uid, userToken, authtoken.VerifyEmailExpiry)
	if err != nil {
		d.Logger.Errorf("sendVerificationEmail: issuing token for %s: %v", uid, err)
		return
	}
	msg := mailer.Message{
		Recipient: email,
		Kind:      mailer.EmailVerification,
		Locale:    resolveLocale(r),
		TokenID:   created.ID,
		TokenKey:  created.Key,
	}
	if err := d.Mailer.Send(ctx, msg); err != nil {
		d.Logger.Errorf("sendVerificationEmail: sending to %s: %v", email, err)
	}
}
