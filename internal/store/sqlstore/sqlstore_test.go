package sqlstore

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exampleauth/authd/internal/store"
	"github.com/exampleauth/authd/pkg/log"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", log.NewLogrusLogger(logrus.New()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLStoreInsertAndLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "uid-1", "hashed", "A@B.com", "tok-1"))

	u, err := s.LoadByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", u.ID)
	assert.False(t, u.EmailVerified)
}

func TestSQLStoreDuplicateEmail(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, "uid-1", "hashed", "a@b.c", "tok-1"))

	err := s.Insert(ctx, "uid-2", "hashed", "a@b.c", "tok-2")
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestSQLStoreResetPasswordAtomic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, "uid-1", "old", "a@b.c", "tok-1"))

	require.NoError(t, s.ResetPassword(ctx, "uid-1", "new", "tok-2"))

	u, err := s.LoadByID(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "new", u.Password)
	assert.Equal(t, "tok-2", u.UserToken)
}

func TestSQLStoreResetPasswordMissingUser(t *testing.T) {
	s := openTestStore(t)
	err := s.ResetPassword(context.Background(), "nope", "x", "y")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
