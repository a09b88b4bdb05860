package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/exampleauth/authd/internal/apierr"
	"github.com/exampleauth/authd/internal/authgate"
	"github.com/exampleauth/authd/internal/authtoken"
	"github.com/exampleauth/authd/internal/httperr"
	"github.com/exampleauth/authd/internal/openidsession"
	"github.com/exampleauth/authd/internal/store"
)

type openIdConnectRequest struct {
	Provider openidsession.Provider `json:"provider"`
}

type openIdConnectResponse struct {
	URL string `json:"url"`
}

// OpenIdConnect implements the OpenIdConnect orchestration: build
// the authorize URL for the requested provider.
func (d *Deps) OpenIdConnect(w http.ResponseWriter, r *http.Request) {
	var req openIdConnectRequest
	if err := decodeJSON(r, &req); err != nil {
		httperr.Write(w, d.Logger, apierr.Unknownf("invalid request body"))
		return
	}

	url, err := d.OIDC.BuildAuthorizationURL(r.Context(), req.Provider)
	if err != nil {
		d.Logger.Errorf("openid-connect: building authorize url: %v", err)
		httperr.Write(w, d.Logger, apierr.Unknownf("unsupported provider"))
		return
	}
	httperr.WriteJSON(w, d.Logger, openIdConnectResponse{URL: url})
}

// OpenIdAccessTokenHook implements the OpenIdAccessTokenHook
// orchestration: the identity provider's callback. Always responds
// with a redirect, never a JSON body.
func (d *Deps) OpenIdAccessTokenHook(w http.ResponseWriter, r *http.Request) {
	provider := openidsession.Provider(mux.Vars(r)["provider"])
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	result, err := d.OIDC.HandleCallback(r.Context(), provider, code, state)
	if err != nil {
		d.Logger.Errorf("openid-access-token-hook: %v", err)
		http.Redirect(w, r, d.URLs.NoAuth(), http.StatusFound)
		return
	}
	http.Redirect(w, r, d.URLs.OpenIDFinalize(result.SessionID, result.SessionKey), http.StatusFound)
}

type sessionRequest struct {
	SessionID  string `json:"session_id"`
	SessionKey string `json:"session_key"`
}

type openIdFinalizeQueryResponse struct {
	Email      string `json:"email"`
	UserExists bool   `json:"user_exists"`
}

// OpenIdFinalizeQuery implements the OpenIdFinalizeQuery
// orchestration: a non-destructive read of the finished session.
func (d *Deps) OpenIdFinalizeQuery(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		httperr.Write(w, d.Logger, apierr.Unknownf("invalid request body"))
		return
	}

	finalized, err := d.Sessions.FinalizeQuery(req.SessionID, req.SessionKey)
	if err != nil {
		d.Logger.Errorf("openid-finalize-query: %v", err)
		httperr.Write(w, d.Logger, apierr.Auth(apierr.NotAuthorized))
		return
	}

	exists, err := d.Users.ExistsByEmail(r.Context(), finalized.Email)
	if err != nil {
		d.Logger.Errorf("openid-finalize-query: checking existence: %v", err)
		httperr.Write(w, d.Logger, apierr.Unknownf("internal error"))
		return
	}

	httperr.WriteJSON(w, d.Logger, openIdFinalizeQueryResponse{Email: finalized.Email, UserExists: exists})
}

// OpenIdFinalizeExec implements the OpenIdFinalizeExec orchestration:
// consume the session, upsert the account,
// upgrade the verified flag if the provider reports it, and issue a
// fresh Signin token.
func (d *Deps) OpenIdFinalizeExec(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		httperr.Write(w, d.Logger, apierr.Unknownf("invalid request body"))
		return
	}

	finalized, err := d.Sessions.FinalizeExec(req.SessionID, req.SessionKey)
	if err != nil {
		d.Logger.Errorf("openid-finalize-exec: %v", err)
		httperr.Write(w, d.Logger, apierr.Auth(apierr.NotAuthorized))
		return
	}

	ctx := r.Context()
	account, err := d.Users.LoadByEmail(ctx, finalized.Email)
	switch {
	case err == nil:
		if finalized.EmailVerified && !account.EmailVerified {
			if err := d.Users.UpdateEmailVerified(ctx, account.ID, true); err != nil {
				d.Logger.Errorf("openid-finalize-exec: upgrading verified flag: %v", err)
				httperr.Write(w, d.Logger, apierr.Unknownf("internal error"))
				return
			}
			account.EmailVerified = true
		}
	case isNotFound(err):
		account, err = d.upsertOIDCAccount(ctx, finalized)
		if err != nil {
			httperr.Write(w, d.Logger, apierr.Unknownf("internal error"))
			return
		}
	default:
		d.Logger.Errorf("openid-finalize-exec: loading account: %v", err)
		httperr.Write(w, d.Logger, apierr.Unknownf("internal error"))
		return
	}

	created, err := d.Tokens.Create(authtoken.Signin, account.ID, account.UserToken, authtoken.SigninExpiry)
	if err != nil {
		d.Logger.Errorf("openid-finalize-exec: issuing signin token: %v", err)
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

func isNotFound(err error) bool {
	return err == store.ErrNotFound
}

// upsertOIDCAccount creates an account for a first-time OIDC sign-in:
// a random 32-byte password (the account has
// no client-chosen password) and a fresh user_token.
func (d *Deps) upsertOIDCAccount(ctx context.Context, finalized openidsession.Finalized) (store.UserAccount, error) {
	randomPw, err := randomPassword()
	if err != nil {
		d.Logger.Errorf("upsertOIDCAccount: generating password: %v", err)
		return store.UserAccount{}, err
	}
	userToken, err := randomUserToken()
	if err != nil {
		d.Logger.Errorf("upsertOIDCAccount: generating user_token: %v", err)
		return store.UserAccount{}, err
	}

	uid := uuid.Must(uuid.NewV7()).String()
	if err := d.Users.Insert(ctx, uid, randomPw, finalized.Email, userToken); err != nil {
		d.Logger.Errorf("upsertOIDCAccount: inserting account: %v", err)
		return store.UserAccount{}, err
	}
	if finalized.EmailVerified {
		if err := d.Users.UpdateEmailVerified(ctx, uid, true); err != nil {
			d.Logger.Errorf("upsertOIDCAccount: setting verified flag: %v", err)
			return store.UserAccount{}, err
		}
	}
	return d.Users.LoadByID(ctx, uid)
}
