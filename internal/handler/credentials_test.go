package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exampleauth/authd/internal/authgate"
	"github.com/exampleauth/authd/internal/authtoken"
)

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestRegisterThenSignin(t *testing.T) {
	d, fm := newTestDeps(t)

	rr := postJSON(t, d.Register, signinLikeRequest{Email: "Alice@Example.com", Password: "h1-blob"})
	require.Equal(t, http.StatusOK, rr.Code)

	var reg authResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &reg))
	assert.NotEmpty(t, reg.UID)
	assert.False(t, reg.EmailVerified)
	assert.NotEmpty(t, reg.AuthKey)

	msg, ok := fm.last()
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", msg.Recipient)

	exists, err := d.Users.ExistsByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	rr2 := postJSON(t, d.Register, signinLikeRequest{Email: "alice@example.com", Password: "h1-blob"})
	assert.Equal(t, http.StatusUnauthorized, rr2.Code)

	rr3 := postJSON(t, d.Signin, signinLikeRequest{Email: "alice@example.com", Password: "h1-blob"})
	require.Equal(t, http.StatusOK, rr3.Code)
	var in authResponse
	require.NoError(t, json.Unmarshal(rr3.Body.Bytes(), &in))
	assert.Equal(t, reg.UID, in.UID)

	rr4 := postJSON(t, d.Signin, signinLikeRequest{Email: "alice@example.com", Password: "wrong-blob"})
	assert.Equal(t, http.StatusUnauthorized, rr4.Code)
}

func TestSignoutClearsCookie(t *testing.T) {
	d, _ := newTestDeps(t)
	rr := postJSON(t, d.Register, signinLikeRequest{Email: "bob@example.com", Password: "h1-blob"})
	require.Equal(t, http.StatusOK, rr.Code)
	var reg authResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &reg))

	tokenID := cookieTokenID(t, rr)
	tokenKey := reg.AuthKey

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(authgate.HeaderTokenID, tokenID)
	req.Header.Set(authgate.HeaderTokenKey, tokenKey)
	authed, err := d.Gate.Authenticate(context.Background(), req, authgate.PartialAuthTokenOnly)
	require.NoError(t, err)
	require.NotNil(t, authed)

	rr2 := httptest.NewRecorder()
	d.Signout(rr2, req, authed)
	assert.Contains(t, rr2.Header().Get("Set-Cookie"), "1970")

	_, err = d.Tokens.Validate(tokenID, tokenKey, authtoken.Signin, authtoken.Delete, 0)
	assert.Error(t, err)
}
