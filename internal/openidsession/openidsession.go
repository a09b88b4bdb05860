// Package openidsession implements the OpenIdSession Object: a
// per-flow state machine that survives the redirect
// round-trip to an external identity provider, built on the same
// internal/alarmstore primitive as internal/authtoken.
package openidsession

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/exampleauth/authd/internal/alarmstore"
)

// Expiry is the fixed 1-hour alarm window for a pending OIDC session.
const Expiry = time.Hour

// Provider is the closed provider set.
type Provider string

const (
	Google   Provider = "Google"
	Facebook Provider = "Facebook"
)

// state tags where in the Created -> NonceSet -> TokenSet machine an
// object currently is.
type state int

const (
	stateCreated state = iota
	stateNonceSet
	stateTokenSet
)

var (
	// ErrInvalid covers any key mismatch or missing object.
	ErrInvalid = errors.New("openidsession: invalid session")
	// ErrWrongState covers an action invoked out of order.
	ErrWrongState = errors.New("openidsession: action invalid in current state")
)

type record struct {
	key      string
	provider Provider
	st       state

	nonce string

	accessToken   string
	email         string
	emailVerified bool
}

// Registry holds every live OpenIdSession Object.
type Registry struct {
	store *alarmstore.Store
}

func NewRegistry(clock clockwork.Clock) *Registry {
	return &Registry{store: alarmstore.New(clock)}
}

// Create mints a new session for provider and arms its alarm.
func (r *Registry) Create(provider Provider) (id, key string, err error) {
	id = uuid.Must(uuid.NewV7()).String()
	key, err = randomKey()
	if err != nil {
		return "", "", err
	}
	r.store.Create(id, Expiry, record{key: key, provider: provider, st: stateCreated})
	return id, key, nil
}

// SetNonce transitions Created -> NonceSet.
func (r *Registry) SetNonce(id, key, nonce string) error {
	return r.mutate(id, func(rec record) (record, error) {
		if rec.key != key {
			return rec, ErrInvalid
		}
		if rec.st != stateCreated {
			return rec, ErrWrongState
		}
		rec.nonce = nonce
		rec.st = stateNonceSet
		return rec, nil
	})
}

// TokenExchange is the (provider, nonce) pair GetTokenExchange returns.
type TokenExchange struct {
	Provider Provider
	Nonce    string
}

// GetTokenExchange verifies key and returns the stored provider/nonce
// without advancing state.
func (r *Registry) GetTokenExchange(id, key string) (TokenExchange, error) {
	var out TokenExchange
	err := r.read(id, func(rec record) error {
		if rec.key != key {
			return ErrInvalid
		}
		if rec.st != stateNonceSet {
			return ErrWrongState
		}
		out = TokenExchange{Provider: rec.provider, Nonce: rec.nonce}
		return nil
	})
	return out, err
}

// SetAccessToken transitions NonceSet -> TokenSet.
func (r *Registry) SetAccessToken(id, key, accessToken, email string, emailVerified bool) error {
	return r.mutate(id, func(rec record) (record, error) {
		if rec.key != key {
			return rec, ErrInvalid
		}
		if rec.st != stateNonceSet {
			return rec, ErrWrongState
		}
		rec.accessToken = accessToken
		rec.email = email
		rec.emailVerified = emailVerified
		rec.st = stateTokenSet
		return rec, nil
	})
}

// Finalized is what FinalizeQuery/FinalizeExec return.
type Finalized struct {
	Provider      Provider
	AccessToken   string
	Email         string
	EmailVerified bool
}

// FinalizeQuery is the non-destructive read of the final state.
func (r *Registry) FinalizeQuery(id, key string) (Finalized, error) {
	var out Finalized
	err := r.read(id, func(rec record) error {
		if rec.key != key {
			return ErrInvalid
		}
		if rec.st != stateTokenSet {
			return ErrWrongState
		}
		out = finalizedOf(rec)
		return nil
	})
	return out, err
}

// FinalizeExec is the consuming read: it returns the same payload as
// FinalizeQuery and then clears the alarm and erases the object, so a
// second FinalizeExec (or any further action) fails.
func (r *Registry) FinalizeExec(id, key string) (Finalized, error) {
	out, err := r.FinalizeQuery(id, key)
	if err != nil {
		return Finalized{}, err
	}
	r.store.Destroy(id)
	return out, nil
}

func finalizedOf(rec record) Finalized {
	return Finalized{
		Provider:      rec.provider,
		AccessToken:   rec.accessToken,
		Email:         rec.email,
		EmailVerified: rec.emailVerified,
	}
}

func (r *Registry) mutate(id string, fn func(record) (record, error)) error {
	var outErr error
	ok := r.store.With(id, func(state interface{}) (interface{}, bool) {
		rec := state.(record)
		newRec, err := fn(rec)
		if err != nil {
			outErr = err
			return state, false
		}
		return newRec, true
	})
	if !ok {
		if outErr != nil {
			return outErr
		}
		return ErrInvalid
	}
	return nil
}

func (r *Registry) read(id string, fn func(record) error) error {
	var outErr error
	ok := r.store.With(id, func(state interface{}) (interface{}, bool) {
		rec := state.(record)
		if err := fn(rec); err != nil {
			outErr = err
			return state, false
		}
		return state, true
	})
	if !ok {
		if outErr != nil {
			return outErr
		}
		return ErrInvalid
	}
	return nil
}

// ToCSRFToken encodes (id, key) as the OIDC `state` parameter: id, a
// literal dot, then key. The dot is neither URL-encoded nor part of
// the URL-safe base64 alphabet, so it survives as an unambiguous
// delimiter through every hop of the redirect round-trip.
func ToCSRFToken(id, key string) string {
	return id + "." + key
}

// ParseCSRFToken splits on the first dot, the inverse of ToCSRFToken.
func ParseCSRFToken(token string) (id, key string, err error) {
	i := strings.IndexByte(token, '.')
	if i < 0 {
		return "", "", errors.New("openidsession: malformed csrf token")
	}
	return token[:i], token[i+1:], nil
}

func randomKey() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
