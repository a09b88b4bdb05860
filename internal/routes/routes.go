// Package routes wires every endpoint in the HTTP surface
// to its handler and declared AuthKind, grounded in
// server/server.go's router construction (mux.NewRouter plus a
// gorilla/handlers CORS wrapper) generalized to this system's single
// flat /auth/... namespace and its own Auth Gate in place of the
// connector login flow's bearer-token scheme.
package routes

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/exampleauth/authd/internal/apierr"
	"github.com/exampleauth/authd/internal/authgate"
	"github.com/exampleauth/authd/internal/handler"
	"github.com/exampleauth/authd/internal/httperr"
)

// CORSConfig configures the allowed origins for the CORS wrapper
// applied to every route. The allowed headers are fixed in New: the
// two token headers, Content-Type and Content-Language.
type CORSConfig struct {
	AllowedOrigins []string
}

// noAuthHandler is implemented by handlers that don't need a gate
// check (AuthKind None or CookiesOnly).
type noAuthHandler func(w http.ResponseWriter, r *http.Request)

// gatedHandler is implemented by handlers that require an
// *authgate.AuthenticatedUser from a successful gate check.
type gatedHandler func(w http.ResponseWriter, r *http.Request, authed *authgate.AuthenticatedUser)

// New builds the full router for the service.
func New(d *handler.Deps, cors CORSConfig) http.Handler {
	r := mux.NewRouter().SkipClean(true)

	gate := func(kind authgate.AuthKind, h gatedHandler) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authed, err := d.Gate.Authenticate(r.Context(), r, kind)
			if err != nil {
				httperr.Write(w, d.Logger, apierr.FlattenAuthGate(err))
				return
			}
			h(w, r, authed)
		}
	}
	plain := func(h noAuthHandler) http.HandlerFunc { return h }

	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", plain(d.Register)).Methods(http.MethodPost)
	auth.HandleFunc("/signin", plain(d.Signin)).Methods(http.MethodPost)
	auth.HandleFunc("/signout", gate(authgate.PartialAuthTokenOnly, d.Signout)).Methods(http.MethodPost)
	auth.HandleFunc("/check", gate(authgate.Full, d.Check)).Methods(http.MethodPost)
	auth.HandleFunc("/send-email-validation", gate(authgate.PartialAuthAndUserTokenOnly, d.SendEmailValidation)).Methods(http.MethodPost)
	auth.HandleFunc("/confirm-email-validation", plain(d.ConfirmEmailValidation)).Methods(http.MethodPost)
	auth.HandleFunc("/send-password-reset-any", plain(d.SendPasswordResetAny)).Methods(http.MethodPost)
	auth.HandleFunc("/send-password-reset-me", gate(authgate.Full, d.SendPasswordResetMe)).Methods(http.MethodPost)
	auth.HandleFunc("/check-password-reset", plain(d.CheckPasswordReset)).Methods(http.MethodPost)
	auth.HandleFunc("/confirm-password-reset", plain(d.ConfirmPasswordReset)).Methods(http.MethodPost)
	auth.HandleFunc("/openid-connect", plain(d.OpenIdConnect)).Methods(http.MethodPost)
	auth.HandleFunc("/openid-access-token-hook/{provider}", plain(d.OpenIdAccessTokenHook)).Methods(http.MethodGet)
	auth.HandleFunc("/openid-finalize-query", plain(d.OpenIdFinalizeQuery)).Methods(http.MethodPost)
	auth.HandleFunc("/openid-finalize-exec", plain(d.OpenIdFinalizeExec)).Methods(http.MethodPost)

	r.NotFoundHandler = http.NotFoundHandler()

	var h http.Handler = r
	if len(cors.AllowedOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(cors.AllowedOrigins),
			handlers.AllowedHeaders([]string{authgate.HeaderTokenID, authgate.HeaderTokenKey, "Content-Type", "Content-Language"}),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
		)(r)
	}
	return h
}
