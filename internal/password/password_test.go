package password

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeH1(t *testing.T, raw string) string {
	t.Helper()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func TestHashThenVerifyRoundTrip(t *testing.T) {
	h1 := fakeH1(t, "client-side-argon2-output")

	stored, err := Hash(h1)
	require.NoError(t, err)

	ok, err := Verify(stored, h1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsWrongHash(t *testing.T) {
	stored, err := Hash(fakeH1(t, "correct-hash"))
	require.NoError(t, err)

	ok, err := Verify(stored, fakeH1(t, "wrong-hash"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashIsSaltedPerCall(t *testing.T) {
	h1 := fakeH1(t, "same-input-both-times")

	a, err := Hash(h1)
	require.NoError(t, err)
	b, err := Hash(h1)
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "distinct fresh salts must produce distinct encoded blobs")

	okA, err := Verify(a, h1)
	require.NoError(t, err)
	okB, err := Verify(b, h1)
	require.NoError(t, err)
	assert.True(t, okA)
	assert.True(t, okB)
}

func TestVerifyRejectsMalformedStoredBlob(t *testing.T) {
	_, err := Verify("not-base64-!!!", fakeH1(t, "x"))
	assert.Error(t, err)
}
