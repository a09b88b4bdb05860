// Package authgate implements the Auth Gate: extraction
// of credentials from the request and validation against the Token
// Object per the route's declared auth-kind, grounded in the shape of
// server/auth_middleware.go's clientTokenMiddleware and
// the exact extraction/flattening rules of original_source's
// auth/user.rs.
package authgate

import (
	"context"
	"net/http"
	"strings"

	"github.com/exampleauth/authd/internal/apierr"
	"github.com/exampleauth/authd/internal/authtoken"
	"github.com/exampleauth/authd/internal/metrics"
	"github.com/exampleauth/authd/internal/store"
	"github.com/exampleauth/authd/pkg/log"
)

// AuthKind is a route's declared authentication contract.
type AuthKind int

const (
	None AuthKind = iota
	CookiesOnly
	PartialAuthTokenOnly
	PartialAuthAndUserTokenOnly
	Full
)

// Header and cookie names.
const (
	HeaderTokenID  = "X-EXAMPLE-TOKEN-ID"
	HeaderTokenKey = "X-EXAMPLE-TOKEN-KEY"
	CookieName     = HeaderTokenID
)

// AuthenticatedUser is the request-scoped result of a successful gate
// check.
type AuthenticatedUser struct {
	Account  store.UserAccount
	TokenID  string
	TokenKey string
}

// Gate validates requests against the Token Object registry and the
// User Store.
type Gate struct {
	tokens *authtoken.Registry
	users  store.UserStore
	logger log.Logger

	// Metrics is optional; nil disables the auth-gate-rejections counter.
	Metrics *metrics.Metrics
}

func New(tokens *authtoken.Registry, users store.UserStore, logger log.Logger) *Gate {
	return &Gate{tokens: tokens, users: users, logger: logger}
}

// Authenticate runs the validation the route's kind requires. A nil
// result with a nil error means the route is public (None) or merely
// cookie-capable (CookiesOnly) and no credentials were required.
func (g *Gate) Authenticate(ctx context.Context, r *http.Request, kind AuthKind) (*AuthenticatedUser, error) {
	if kind == None || kind == CookiesOnly {
		return nil, nil
	}

	tokenID := extractTokenID(r)
	tokenKey := r.Header.Get(HeaderTokenKey)
	if tokenID == "" || tokenKey == "" {
		g.logger.Errorf("auth gate: missing token id or key")
		g.Metrics.AuthGateRejected("missing_credentials")
		return nil, apierr.Auth(apierr.NotAuthorized)
	}

	// Every authenticated request slides the Signin token's expiry
	// forward.
	validated, err := g.tokens.Validate(tokenID, tokenKey, authtoken.Signin, authtoken.ExtendExpiresMs, authtoken.SigninExpiry)
	if err != nil {
		g.logger.Errorf("auth gate: token validation failed: %v", err)
		g.Metrics.AuthGateRejected("invalid_token")
		return nil, apierr.Auth(apierr.NotAuthorized)
	}

	if kind == PartialAuthTokenOnly {
		// Does not verify user_token match or require verified email.
		return &AuthenticatedUser{
			Account:  store.UserAccount{ID: validated.UID, UserToken: validated.UserToken},
			TokenID:  tokenID,
			TokenKey: tokenKey,
		}, nil
	}

	account, err := g.users.LoadByID(ctx, validated.UID)
	if err != nil {
		g.logger.Errorf("auth gate: loading account %s: %v", validated.UID, err)
		g.Metrics.AuthGateRejected("account_load_failed")
		return nil, apierr.Auth(apierr.NotAuthorized)
	}
	if account.UserToken != validated.UserToken {
		g.logger.Errorf("auth gate: user_token mismatch for account %s", account.ID)
		g.Metrics.AuthGateRejected("user_token_mismatch")
		return nil, apierr.Auth(apierr.NotAuthorized)
	}

	if kind == Full && !account.EmailVerified {
		g.Metrics.AuthGateRejected("email_not_verified")
		return nil, apierr.Auth(apierr.EmailNotVerified)
	}

	return &AuthenticatedUser{Account: account, TokenID: tokenID, TokenKey: tokenKey}, nil
}

// extractTokenID implements the extraction rule: header
// first, else the Cookie header split on ';' picking the name-matched
// segment.
func extractTokenID(r *http.Request) string {
	if v := r.Header.Get(HeaderTokenID); v != "" {
		return v
	}
	for _, part := range strings.Split(r.Header.Get("Cookie"), ";") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) == 2 && kv[0] == CookieName {
			return kv[1]
		}
	}
	return ""
}
