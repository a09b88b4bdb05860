package handler

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/exampleauth/authd/internal/authgate"
	"github.com/exampleauth/authd/internal/authtoken"
	"github.com/exampleauth/authd/internal/frontendurl"
	"github.com/exampleauth/authd/internal/mailer"
	"github.com/exampleauth/authd/internal/store/memstore"
	"github.com/exampleauth/authd/pkg/log"
)

// cookieTokenID extracts the signin token id authgate.SetTokenCookie
// wrote into rr's Set-Cookie header.
func cookieTokenID(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == authgate.CookieName {
			return c.Value
		}
	}
	require.Fail(t, "no "+authgate.CookieName+" cookie set")
	return ""
}

// fakeMailer records every message it is asked to send, for assertions
// in handler tests that don't care about actual rendering/delivery.
type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (f *fakeMailer) Send(ctx context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) last() (mailer.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return mailer.Message{}, false
	}
	return f.sent[len(f.sent)-1], true
}

func newTestDeps(t *testing.T) (*Deps, *fakeMailer) {
	t.Helper()
	users := memstore.New()
	tokens := authtoken.NewRegistry(clockwork.NewFakeClock())
	fm := &fakeMailer{}
	logger := log.NewLogrusLogger(logrus.New())
	d := &Deps{
		Users:  users,
		Tokens: tokens,
		Mailer: fm,
		Gate:   authgate.New(tokens, users, logger),
		URLs:   frontendurl.Builder{Base: "https://app.example.test"},
		Logger: logger,
		Prod:   false,
	}
	return d, fm
}
