package authgate

import (
	"fmt"
	"net/http"
)

// farFutureExpires is the literal cookie-date string the original
// system uses for its long-lived session cookie.
const farFutureExpires = "Tue, 19 Jan 2038 03:14:07 GMT"

// epochPastExpires deletes a cookie by expiring it in the past.
const epochPastExpires = "Thu, 01 Jan 1970 00:00:00 GMT"

// SetTokenCookie writes the session cookie for tokenID. The Partitioned attribute (CHIPS) and the
// literal far-future/epoch-past expiry strings aren't expressible
// through http.Cookie's typed fields, so the header is built by hand
// exactly as the original composes it.
func SetTokenCookie(w http.ResponseWriter, tokenID string, prod bool) {
	w.Header().Add("Set-Cookie", buildCookie(CookieName+"="+tokenID, farFutureExpires, prod))
}

// ClearTokenCookie deletes the session cookie via an epoch-past expiry.
func ClearTokenCookie(w http.ResponseWriter, prod bool) {
	w.Header().Add("Set-Cookie", buildCookie(CookieName+"=", epochPastExpires, prod))
}

func buildCookie(nameValue, expires string, prod bool) string {
	sameSite := "None"
	if prod {
		sameSite = "Strict"
	}
	return fmt.Sprintf("%s; Path=/; HttpOnly; Secure; SameSite=%s; Partitioned; Expires=%s",
		nameValue, sameSite, expires)
}
