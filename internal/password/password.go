// Package password implements the server-side half of the two-stage
// password hashing scheme used throughout this system. The client stage
// (Argon2id under a per-email salt) happens entirely outside this
// process; this package only ever sees H1, the client's hash output,
// base64url-encoded.
package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

const saltSize = 32

// enc is the URL-safe, unpadded base64 alphabet used for both the
// client hash and the stored blob, matching the original's use of
// base64::URL_SAFE_NO_PAD throughout the credential pipeline.
var enc = base64.RawURLEncoding

// Hash computes the server-side stage for a freshly submitted client
// hash h1 (base64url text) and returns the encoded blob to persist:
// encode(salt || sha256(salt || decode(h1))).
func Hash(h1 string) (string, error) {
	raw, err := enc.DecodeString(h1)
	if err != nil {
		return "", fmt.Errorf("decoding client hash: %w", err)
	}
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	return encodeBlob(salt, raw), nil
}

// Verify re-derives the server stage from h1 using the salt embedded
// in the stored blob and compares it byte-for-byte in constant time.
func Verify(stored, h1 string) (bool, error) {
	blob, err := enc.DecodeString(stored)
	if err != nil {
		return false, fmt.Errorf("decoding stored blob: %w", err)
	}
	if len(blob) < saltSize {
		return false, fmt.Errorf("stored blob too short: %d bytes", len(blob))
	}
	salt := blob[:saltSize]
	want := blob[saltSize:]

	raw, err := enc.DecodeString(h1)
	if err != nil {
		return false, fmt.Errorf("decoding client hash: %w", err)
	}
	got := rehash(salt, raw)
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

func rehash(salt, raw []byte) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write(raw)
	return h.Sum(nil)
}

func encodeBlob(salt, raw []byte) string {
	h2 := rehash(salt, raw)
	blob := make([]byte, 0, len(salt)+len(h2))
	blob = append(blob, salt...)
	blob = append(blob, h2...)
	return enc.EncodeToString(blob)
}
