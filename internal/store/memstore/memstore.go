// Package memstore is an in-memory UserStore for tests and local
// development, grounded in user/password.go's memPasswordInfoRepo
// (user/password.go): a plain map guarded by a mutex, no persistence.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/exampleauth/authd/internal/store"
)

type Store struct {
	mu       sync.RWMutex
	byID     map[string]store.UserAccount
	emailIdx map[string]string // canonical email -> id
}

func New() *Store {
	return &Store{
		byID:     make(map[string]store.UserAccount),
		emailIdx: make(map[string]string),
	}
}

func (s *Store) LoadByID(_ context.Context, uid string) (store.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[uid]
	if !ok {
		return store.UserAccount{}, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) LoadByEmail(_ context.Context, email string) (store.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emailIdx[store.CanonicalEmail(email)]
	if !ok {
		return store.UserAccount{}, store.ErrNotFound
	}
	return s.byID[id], nil
}

func (s *Store) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.emailIdx[store.CanonicalEmail(email)]
	return ok, nil
}

func (s *Store) Insert(_ context.Context, uid, hashedPassword, email, userToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ce := store.CanonicalEmail(email)
	if _, ok := s.emailIdx[ce]; ok {
		return store.ErrAlreadyExists
	}
	s.byID[uid] = store.UserAccount{
		ID:            uid,
		Email:         ce,
		Password:      hashedPassword,
		EmailVerified: false,
		UserToken:     userToken,
		CreatedAt:     time.Now(),
	}
	s.emailIdx[ce] = uid
	return nil
}

func (s *Store) UpdateEmailVerified(_ context.Context, uid string, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[uid]
	if !ok {
		return store.ErrNotFound
	}
	u.EmailVerified = verified
	s.byID[uid] = u
	return nil
}

func (s *Store) ResetPassword(_ context.Context, uid, hashedPassword, newUserToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[uid]
	if !ok {
		return store.ErrNotFound
	}
	// Both fields are updated under the same lock acquisition, so the
	// pair never observes a partial update.
	u.Password = hashedPassword
	u.UserToken = newUserToken
	s.byID[uid] = u
	return nil
}

func (s *Store) Close() error { return nil }
