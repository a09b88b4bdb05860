package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exampleauth/authd/internal/oidcproc"
	"github.com/exampleauth/authd/internal/openidsession"
)

func TestOpenIdConnectUnconfiguredProvider(t *testing.T) {
	d, _ := newTestDeps(t)
	d.Sessions = openidsession.NewRegistry(clockwork.NewFakeClock())
	d.OIDC = &oidcproc.Processor{}

	rr := postJSON(t, d.OpenIdConnect, openIdConnectRequest{Provider: openidsession.Google})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestOpenIdFinalizeNewUser(t *testing.T) {
	d, _ := newTestDeps(t)
	sessions := openidsession.NewRegistry(clockwork.NewFakeClock())
	d.Sessions = sessions

	id, key, err := sessions.Create(openidsession.Google)
	require.NoError(t, err)
	require.NoError(t, sessions.SetNonce(id, key, "nonce"))
	require.NoError(t, sessions.SetAccessToken(id, key, "access-tok", "grace@example.com", true))

	rrQuery := postJSON(t, d.OpenIdFinalizeQuery, sessionRequest{SessionID: id, SessionKey: key})
	require.Equal(t, http.StatusOK, rrQuery.Code)
	var queried openIdFinalizeQueryResponse
	require.NoError(t, json.Unmarshal(rrQuery.Body.Bytes(), &queried))
	assert.Equal(t, "grace@example.com", queried.Email)
	assert.False(t, queried.UserExists)

	rrExec := postJSON(t, d.OpenIdFinalizeExec, sessionRequest{SessionID: id, SessionKey: key})
	require.Equal(t, http.StatusOK, rrExec.Code)
	var execd authResponse
	require.NoError(t, json.Unmarshal(rrExec.Body.Bytes(), &execd))
	assert.NotEmpty(t, execd.UID)
	assert.True(t, execd.EmailVerified)
	assert.NotEmpty(t, execd.AuthKey)

	// The session is consumed; a second exec must fail.
	rrExec2 := postJSON(t, d.OpenIdFinalizeExec, sessionRequest{SessionID: id, SessionKey: key})
	assert.Equal(t, http.StatusUnauthorized, rrExec2.Code)
}

func TestOpenIdFinalizeExistingUserUpgradesVerified(t *testing.T) {
	d, _ := newTestDeps(t)
	reg, _ := registerAccount(t, d, "hank@example.com")
	sessions := openidsession.NewRegistry(clockwork.NewFakeClock())
	d.Sessions = sessions

	id, key, err := sessions.Create(openidsession.Google)
	require.NoError(t, err)
	require.NoError(t, sessions.SetNonce(id, key, "nonce"))
	require.NoError(t, sessions.SetAccessToken(id, key, "access-tok", "hank@example.com", true))

	rrExec := postJSON(t, d.OpenIdFinalizeExec, sessionRequest{SessionID: id, SessionKey: key})
	require.Equal(t, http.StatusOK, rrExec.Code)
	var execd authResponse
	require.NoError(t, json.Unmarshal(rrExec.Body.Bytes(), &execd))
	assert.Equal(t, reg.UID, execd.UID)
	assert.True(t, execd.EmailVerified)
}
