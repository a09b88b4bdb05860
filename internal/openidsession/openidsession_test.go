package openidsession

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return NewRegistry(clockwork.NewFakeClock())
}

func TestFullLifecycle(t *testing.T) {
	r := newTestRegistry()

	id, key, err := r.Create(Google)
	require.NoError(t, err)

	require.NoError(t, r.SetNonce(id, key, "nonce-1"))

	ex, err := r.GetTokenExchange(id, key)
	require.NoError(t, err)
	assert.Equal(t, Google, ex.Provider)
	assert.Equal(t, "nonce-1", ex.Nonce)

	require.NoError(t, r.SetAccessToken(id, key, "access-tok", "user@example.com", true))

	q1, err := r.FinalizeQuery(id, key)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", q1.Email)

	// FinalizeQuery is idempotent until FinalizeExec consumes it.
	q2, err := r.FinalizeQuery(id, key)
	require.NoError(t, err)
	assert.Equal(t, q1, q2)

	exec1, err := r.FinalizeExec(id, key)
	require.NoError(t, err)
	assert.True(t, exec1.EmailVerified)

	_, err = r.FinalizeExec(id, key)
	assert.Error(t, err, "FinalizeExec must succeed at most once")
}

func TestWrongKeyRejected(t *testing.T) {
	r := newTestRegistry()
	id, _, err := r.Create(Facebook)
	require.NoError(t, err)

	err = r.SetNonce(id, "wrong-key", "nonce")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestActionOutOfOrderRejected(t *testing.T) {
	r := newTestRegistry()
	id, key, err := r.Create(Google)
	require.NoError(t, err)

	_, err = r.FinalizeQuery(id, key)
	assert.ErrorIs(t, err, ErrWrongState)
}

func TestCSRFTokenRoundTrip(t *testing.T) {
	id, key, err := newTestRegistry().Create(Google)
	require.NoError(t, err)

	token := ToCSRFToken(id, key)
	gotID, gotKey, err := ParseCSRFToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	assert.Equal(t, key, gotKey)
}

func TestParseCSRFTokenRejectsMalformed(t *testing.T) {
	_, _, err := ParseCSRFToken("no-dot-here")
	assert.Error(t, err)
}
