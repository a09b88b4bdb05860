// Package authtoken implements the Token Object: one
// isolated, alarm-backed stateful object per issued token, grounded
// in internal/alarmstore and generalized from session/manager.go's
// SessionManager — a GenerateCode hook over
// crypto/rand plus a clockwork.Clock for testable expiry.
package authtoken

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/exampleauth/authd/internal/alarmstore"
	"github.com/exampleauth/authd/internal/metrics"
)

// Kind identifies what a token authorizes.
type Kind string

const (
	Signin        Kind = "Signin"
	PasswordReset Kind = "PasswordReset"
	VerifyEmail   Kind = "VerifyEmail"
)

// Expiry constants for the three token kinds.
const (
	SigninExpiry        = 14 * 24 * time.Hour
	PasswordResetExpiry = time.Hour
	VerifyEmailExpiry   = 3 * 24 * time.Hour
)

// After selects the post-validation action.
type After int

const (
	Delete After = iota
	ExtendExpiresMs
)

var (
	// ErrInvalid is returned for any Validate failure: wrong kind,
	// wrong key, or no such object. Validation is fatal on any
	// mismatch; handlers must flatten this to
	// apierr.NotAuthorized or apierr.InvalidSignin as their route
	// requires — this package never returns apierr types itself.
	ErrInvalid = errors.New("authtoken: invalid token")
)

type record struct {
	kind      Kind
	uid       string
	userToken string
	key       string
}

// Registry holds every live Token Object.
type Registry struct {
	store *alarmstore.Store

	// Metrics is optional; nil disables the tokens-issued counter.
	Metrics *metrics.Metrics
}

func NewRegistry(clock clockwork.Clock) *Registry {
	return &Registry{store: alarmstore.New(clock)}
}

// Created is the return value of Create. ID travels to the client only
// via Set-Cookie (authgate.SetTokenCookie); Key is the bare value
// returned to the client as "auth_key" and replayed in the
// X-EXAMPLE-TOKEN-KEY header.
type Created struct {
	ID  string
	Key string
}

// Create mints a new Token Object. id is a fresh UUIDv7; key is 16
// random bytes, URL-safe base64, no padding.
func (r *Registry) Create(kind Kind, uid, userToken string, expiry time.Duration) (Created, error) {
	id := uuid.Must(uuid.NewV7()).String()
	key, err := randomKey()
	if err != nil {
		return Created{}, err
	}
	r.store.Create(id, expiry, record{kind: kind, uid: uid, userToken: userToken, key: key})
	r.Metrics.TokenIssued(string(kind))
	return Created{ID: id, Key: key}, nil
}

// Validated is the return value of a successful Validate.
type Validated struct {
	UID       string
	UserToken string
}

// Validate checks (id, key, kind) against the stored object and
// applies after. Any mismatch, including a missing object, is
// ErrInvalid.
func (r *Registry) Validate(id, key string, kind Kind, after After, extendExpiry time.Duration) (Validated, error) {
	var out Validated
	var matched bool

	ok := r.store.With(id, func(state interface{}) (interface{}, bool) {
		rec := state.(record)
		if rec.kind != kind || rec.key != key {
			return state, false
		}
		matched = true
		out = Validated{UID: rec.uid, UserToken: rec.userToken}
		return state, true
	})
	if !ok || !matched {
		return Validated{}, ErrInvalid
	}

	switch after {
	case Delete:
		r.store.Destroy(id)
	case ExtendExpiresMs:
		r.store.Extend(id, extendExpiry)
	}
	return out, nil
}

// Destroy erases the object unconditionally (used by Signout).
func (r *Registry) Destroy(id string) {
	r.store.Destroy(id)
}

func randomKey() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
