// Package clienthash reproduces the client-side password hashing stage
// for use by integration tests. Production traffic never
// calls this package: the real client (out of scope here)
// performs this computation in the browser. It exists here only so
// tests can exercise the full registration/sign-in pipeline without a
// browser in the loop.
package clienthash

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

var enc = base64.RawURLEncoding

// GlobalSalt is the shared compile-time salt mixed into every hash;
// rotating it invalidates every existing password (deliberate).
var GlobalSalt = []byte("authd-global-salt-v1")

// H1 computes Argon2id(password, salt=SHA256(email || globalSalt)) and
// returns the URL-safe base64 encoding of the raw hash, matching what
// the real client sends as the "password" field.
func H1(email, password string) string {
	s := sha256.New()
	s.Write([]byte(email))
	s.Write(GlobalSalt)
	salt := s.Sum(nil)

	raw := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return enc.EncodeToString(raw)
}
