// Package oidcproc implements the OIDC Processor: the
// standard authorization-code flow against a closed provider set,
// grounded in the connector/oidc and connector/google
// packages (provider discovery, verifier construction, broken-endpoint
// fallback registration), ported onto coreos/go-oidc/v3 + x/oauth2.
package oidcproc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	oidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/exampleauth/authd/internal/openidsession"
	"github.com/exampleauth/authd/pkg/log"
)

func randomNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// issuerURLs is the closed provider set.
var issuerURLs = map[openidsession.Provider]string{
	openidsession.Google:   "https://accounts.google.com",
	openidsession.Facebook: "https://www.facebook.com",
}

// fallbackTokenEndpoints plug the gap when provider discovery omits
// token_endpoint.
var fallbackTokenEndpoints = map[openidsession.Provider]string{
	openidsession.Google:   "https://oauth2.googleapis.com/token",
	openidsession.Facebook: "https://graph.facebook.com/oauth/access_token",
}

// ProviderConfig is the per-provider secret configuration, read from
// the service config by provider name.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
}

// Config is the closed map of provider configurations.
type Config struct {
	Providers map[openidsession.Provider]ProviderConfig
}

type providerClient struct {
	provider     *oidc.Provider
	verifier     *oidc.IDTokenVerifier
	oauth2Config oauth2.Config
}

// Processor builds authorization URLs and processes the OIDC callback
// for every configured provider.
type Processor struct {
	sessions  *openidsession.Registry
	logger    log.Logger
	clients   map[openidsession.Provider]*providerClient
}

// New discovers provider metadata for every provider named in cfg and
// returns a ready Processor. Discovery happens once, at startup,
// matching storage/sql's one-shot Config.Open pattern.
func New(ctx context.Context, cfg Config, sessions *openidsession.Registry, redirectURI func(openidsession.Provider) string, logger log.Logger) (*Processor, error) {
	p := &Processor{
		sessions: sessions,
		logger:   logger,
		clients:  make(map[openidsession.Provider]*providerClient),
	}

	for provider, pc := range cfg.Providers {
		issuer, ok := issuerURLs[provider]
		if !ok {
			return nil, fmt.Errorf("oidcproc: unknown provider %q", provider)
		}

		upstream, err := oidc.NewProvider(ctx, issuer)
		if err != nil {
			return nil, fmt.Errorf("oidcproc: discovering %s: %w", provider, err)
		}

		endpoint := upstream.Endpoint()
		if endpoint.TokenURL == "" {
			endpoint.TokenURL = fallbackTokenEndpoints[provider]
		}
		if endpoint.AuthStyle == oauth2.AuthStyleAutoDetect {
			// Default to client_secret_post when discovery is silent
			// about token_endpoint_auth_methods_supported.
			endpoint.AuthStyle = oauth2.AuthStyleInParams
		}

		p.clients[provider] = &providerClient{
			provider: upstream,
			verifier: upstream.Verifier(&oidc.Config{ClientID: pc.ClientID}),
			oauth2Config: oauth2.Config{
				ClientID:     pc.ClientID,
				ClientSecret: pc.ClientSecret,
				Endpoint:     endpoint,
				Scopes:       []string{"email"},
				RedirectURL:  redirectURI(provider),
			},
		}
	}
	return p, nil
}

var errUnknownProvider = errors.New("oidcproc: unconfigured provider")

// BuildAuthorizationURL builds the provider's authorize-URL redirect target.
func (p *Processor) BuildAuthorizationURL(ctx context.Context, provider openidsession.Provider) (string, error) {
	c, ok := p.clients[provider]
	if !ok {
		return "", errUnknownProvider
	}

	id, key, err := p.sessions.Create(provider)
	if err != nil {
		return "", fmt.Errorf("oidcproc: creating session: %w", err)
	}

	nonce, err := randomNonce()
	if err != nil {
		return "", fmt.Errorf("oidcproc: generating nonce: %w", err)
	}
	if err := p.sessions.SetNonce(id, key, nonce); err != nil {
		return "", fmt.Errorf("oidcproc: persisting nonce: %w", err)
	}

	state := openidsession.ToCSRFToken(id, key)
	return c.oauth2Config.AuthCodeURL(state, oauth2.SetAuthURLParam("nonce", nonce)), nil
}

// CallbackResult is returned by HandleCallback on success.
type CallbackResult struct {
	SessionID  string
	SessionKey string
}

// HandleCallback handles the identity provider's callback. routeProvider is the
// provider named in the callback route's own path, and must match the
// provider recorded on the session at Create time.
func (p *Processor) HandleCallback(ctx context.Context, routeProvider openidsession.Provider, code, state string) (CallbackResult, error) {
	id, key, err := openidsession.ParseCSRFToken(state)
	if err != nil {
		return CallbackResult{}, fmt.Errorf("oidcproc: parsing state: %w", err)
	}

	ex, err := p.sessions.GetTokenExchange(id, key)
	if err != nil {
		return CallbackResult{}, fmt.Errorf("oidcproc: loading session: %w", err)
	}
	if ex.Provider != routeProvider {
		return CallbackResult{}, fmt.Errorf("oidcproc: provider mismatch: session=%s route=%s", ex.Provider, routeProvider)
	}

	c, ok := p.clients[routeProvider]
	if !ok {
		return CallbackResult{}, errUnknownProvider
	}

	token, err := c.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return CallbackResult{}, fmt.Errorf("oidcproc: exchanging code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return CallbackResult{}, errors.New("oidcproc: token response carried no id_token")
	}
	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return CallbackResult{}, fmt.Errorf("oidcproc: verifying id_token: %w", err)
	}
	if idToken.Nonce != ex.Nonce {
		return CallbackResult{}, errors.New("oidcproc: nonce mismatch")
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return CallbackResult{}, fmt.Errorf("oidcproc: decoding claims: %w", err)
	}
	if claims.Email == "" {
		return CallbackResult{}, errors.New("oidcproc: id_token carried no email claim")
	}
	// Facebook does not emit email_verified; this defaults it
	// to false when absent, which the zero value already gives us.

	if err := p.sessions.SetAccessToken(id, key, token.AccessToken, claims.Email, claims.EmailVerified); err != nil {
		return CallbackResult{}, fmt.Errorf("oidcproc: persisting access token: %w", err)
	}

	return CallbackResult{SessionID: id, SessionKey: key}, nil
}
