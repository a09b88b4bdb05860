package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exampleauth/authd/internal/authgate"
	"github.com/exampleauth/authd/internal/authtoken"
	"github.com/exampleauth/authd/internal/frontendurl"
	"github.com/exampleauth/authd/internal/handler"
	"github.com/exampleauth/authd/internal/mailer"
	"github.com/exampleauth/authd/internal/store/memstore"
	"github.com/exampleauth/authd/pkg/log"
)

type devNullMailer struct{}

func (devNullMailer) Send(_ context.Context, _ mailer.Message) error { return nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	users := memstore.New()
	tokens := authtoken.NewRegistry(clockwork.NewFakeClock())
	logger := log.NewLogrusLogger(logrus.New())
	d := &handler.Deps{
		Users:  users,
		Tokens: tokens,
		Gate:   authgate.New(tokens, users, logger),
		URLs:   frontendurl.Builder{Base: "https://app.example.test"},
		Logger: logger,
		Mailer: devNullMailer{},
	}
	return New(d, CORSConfig{AllowedOrigins: []string{"https://app.example.test"}})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRegisterSigninCheckFlow(t *testing.T) {
	r := newTestRouter(t)

	rr := doJSON(t, r, http.MethodPost, "/auth/register", map[string]string{
		"email": "ruth@example.com", "password": "h1-blob",
	}, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var reg struct {
		UID     string `json:"uid"`
		AuthKey string `json:"auth_key"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &reg))

	var tokenID string
	for _, c := range rr.Result().Cookies() {
		if c.Name == authgate.CookieName {
			tokenID = c.Value
		}
	}
	require.NotEmpty(t, tokenID)
	tokenKey := reg.AuthKey

	// Check requires Full (verified email); a fresh registration isn't
	// verified yet, so this must be rejected.
	rrCheck := doJSON(t, r, http.MethodPost, "/auth/check", nil, map[string]string{
		authgate.HeaderTokenID:  tokenID,
		authgate.HeaderTokenKey: tokenKey,
	})
	assert.Equal(t, http.StatusUnauthorized, rrCheck.Code)

	// Without credentials at all, signout (PartialAuthTokenOnly) is
	// also rejected.
	rrSignoutNoAuth := doJSON(t, r, http.MethodPost, "/auth/signout", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rrSignoutNoAuth.Code)

	rrSignout := doJSON(t, r, http.MethodPost, "/auth/signout", nil, map[string]string{
		authgate.HeaderTokenID:  tokenID,
		authgate.HeaderTokenKey: tokenKey,
	})
	assert.Equal(t, http.StatusOK, rrSignout.Code)
}

func TestUnknownRouteIs404(t *testing.T) {
	r := newTestRouter(t)
	rr := doJSON(t, r, http.MethodPost, "/auth/does-not-exist", nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
