// Package store defines the User Store contract: CRUD
// over user accounts keyed by uid and email, generalized from
// storage.Storage's interface shape (same ErrNotFound/ErrAlreadyExists
// sentinel errors), narrowed to the
// single UserAccount table this system needs.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup finds no matching row.
var ErrNotFound = errors.New("authd/store: not found")

// ErrAlreadyExists is returned by Insert when the email is already taken.
var ErrAlreadyExists = errors.New("authd/store: already exists")

// UserAccount is the persistent record for one registered user.
type UserAccount struct {
	ID            string
	Email         string
	Password      string // opaque encoded blob, see internal/password
	EmailVerified bool
	UserToken     string
	CreatedAt     time.Time
}

// UserStore is the contract every backend (sqlstore, memstore) implements.
type UserStore interface {
	LoadByID(ctx context.Context, uid string) (UserAccount, error)
	LoadByEmail(ctx context.Context, email string) (UserAccount, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Insert fails with ErrAlreadyExists if email is already taken.
	Insert(ctx context.Context, uid, hashedPassword, email, userToken string) error

	UpdateEmailVerified(ctx context.Context, uid string, verified bool) error

	// ResetPassword atomically updates both password and user_token,
	// atomically, so a reset never leaves the pair inconsistent.
	ResetPassword(ctx context.Context, uid, hashedPassword, newUserToken string) error

	Close() error
}

// CanonicalEmail lowercases an email for use as the store's uniqueness key,
// since email uniqueness treats lowercased addresses as canonical.
func CanonicalEmail(email string) string {
	b := []byte(email)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
