// Package handler implements the per-endpoint orchestrations,
// grounded in the handler shape of server/email_verification.go,
// server/create_account.go, and server/password.go: decode JSON body,
// call into the business-logic packages, write either a JSON body or
// an empty response plus an optional Set-Cookie.
package handler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/exampleauth/authd/internal/authgate"
	"github.com/exampleauth/authd/internal/authtoken"
	"github.com/exampleauth/authd/internal/frontendurl"
	"github.com/exampleauth/authd/internal/mailer"
	"github.com/exampleauth/authd/internal/oidcproc"
	"github.com/exampleauth/authd/internal/openidsession"
	"github.com/exampleauth/authd/internal/store"
	"github.com/exampleauth/authd/pkg/log"
)

// Deps are the dependencies every handler closes over: password
// hashing, the user store, token and session objects, the OIDC
// processor, and the mailer.
type Deps struct {
	Users     store.UserStore
	Tokens    *authtoken.Registry
	Sessions  *openidsession.Registry
	OIDC      *oidcproc.Processor
	Mailer    mailer.Mailer
	Gate      *authgate.Gate
	URLs      frontendurl.Builder
	Logger    log.Logger
	Prod      bool // selects cookie SameSite
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// resolveLocale implements the supplemented Content-Language
// negotiation (SPEC_FULL.md): Content-Language first, Accept-Language
// as a fallback, defaulting to English.
func resolveLocale(r *http.Request) mailer.Locale {
	v := r.Header.Get("Content-Language")
	if v == "" {
		v = r.Header.Get("Accept-Language")
	}
	if strings.HasPrefix(strings.ToLower(v), "he") {
		return mailer.Hebrew
	}
	return mailer.English
}

func randomUserToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func randomPassword() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
