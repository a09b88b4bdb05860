package authtoken

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateThenValidate(t *testing.T) {
	r := NewRegistry(clockwork.NewFakeClock())

	created, err := r.Create(Signin, "uid-1", "tok-1", SigninExpiry)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.Key)

	got, err := r.Validate(created.ID, created.Key, Signin, ExtendExpiresMs, SigninExpiry)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", got.UID)
	assert.Equal(t, "tok-1", got.UserToken)
}

func TestValidateWrongKeyFails(t *testing.T) {
	r := NewRegistry(clockwork.NewFakeClock())
	created, err := r.Create(VerifyEmail, "uid-1", "tok-1", VerifyEmailExpiry)
	require.NoError(t, err)

	_, err = r.Validate(created.ID, "wrong-key", VerifyEmail, Delete, 0)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidateWrongKindFails(t *testing.T) {
	r := NewRegistry(clockwork.NewFakeClock())
	created, err := r.Create(VerifyEmail, "uid-1", "tok-1", VerifyEmailExpiry)
	require.NoError(t, err)

	_, err = r.Validate(created.ID, created.Key, Signin, ExtendExpiresMs, SigninExpiry)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidateWithDeleteConsumesOnce(t *testing.T) {
	r := NewRegistry(clockwork.NewFakeClock())
	created, err := r.Create(PasswordReset, "uid-1", "tok-1", PasswordResetExpiry)
	require.NoError(t, err)

	_, err = r.Validate(created.ID, created.Key, PasswordReset, Delete, 0)
	require.NoError(t, err)

	_, err = r.Validate(created.ID, created.Key, PasswordReset, Delete, 0)
	assert.ErrorIs(t, err, ErrInvalid, "a second Validate with after=Delete must fail")
}

func TestDestroyInvalidatesToken(t *testing.T) {
	r := NewRegistry(clockwork.NewFakeClock())
	created, err := r.Create(Signin, "uid-1", "tok-1", SigninExpiry)
	require.NoError(t, err)

	r.Destroy(created.ID)

	_, err = r.Validate(created.ID, created.Key, Signin, ExtendExpiresMs, SigninExpiry)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestAlarmExpiresToken(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewRegistry(clock)
	created, err := r.Create(PasswordReset, "uid-1", "tok-1", PasswordResetExpiry)
	require.NoError(t, err)

	clock.BlockUntil(1)
	clock.Advance(2 * PasswordResetExpiry)

	require.Eventually(t, func() bool {
		_, err := r.Validate(created.ID, created.Key, PasswordReset, Delete, 0)
		return err == ErrInvalid
	}, time.Second, time.Millisecond)
}
