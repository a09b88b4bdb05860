// Package apierr defines the closed error taxonomy returned across the
// API boundary. Internal causes are logged server-side and never
// reach the client in plain text; only one of the variants below does.
package apierr

import "net/http"

// Kind enumerates the Auth(*) variants. The zero value is not a valid
// Kind; use Unknown for non-auth failures instead.
type Kind string

const (
	EmailNotVerified   Kind = "EmailNotVerified"
	EmailAlreadyExists Kind = "EmailAlreadyExists"
	NotAuthorized      Kind = "NotAuthorized"
	InvalidSignin      Kind = "InvalidSignin"
	NoUserPasswordReset Kind = "NoUserPasswordReset"
)

// Error is the API-facing error. Auth errors carry a Kind; Unknown
// errors carry only an opaque message with no further structure.
type Error struct {
	auth bool
	kind Kind
	msg  string
}

func (e *Error) Error() string {
	if e.auth {
		return "Auth(" + string(e.kind) + ")"
	}
	return "Unknown(" + e.msg + ")"
}

// Auth constructs one of the Auth(*) variants.
func Auth(kind Kind) *Error {
	return &Error{auth: true, kind: kind}
}

// Unknownf constructs an Unknown(string) error from a message. Callers
// should pass an opaque, non-sensitive description; log the real cause
// separately via pkg/log before returning this.
func Unknownf(msg string) *Error {
	return &Error{auth: false, msg: msg}
}

// IsKind reports whether err is an Auth error of exactly this kind.
func IsKind(err error, kind Kind) bool {
	ae, ok := err.(*Error)
	return ok && ae.auth && ae.kind == kind
}

// StatusCode maps an Error to the wire status code per spec: 401 for
// every Auth(*) variant, 500 for Unknown.
func (e *Error) StatusCode() int {
	if e.auth {
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// Body is the JSON-serializable wire shape of this error.
type Body struct {
	Auth  string `json:"auth,omitempty"`
	Error string `json:"error,omitempty"`
}

// WireBody returns the JSON body the handler layer should write.
func (e *Error) WireBody() Body {
	if e.auth {
		return Body{Auth: string(e.kind)}
	}
	return Body{Error: e.msg}
}

// FlattenSignin implements the sign-in propagation policy: every
// internal failure on the sign-in path becomes
// Auth(InvalidSignin), regardless of its original shape. The caller
// is expected to have already logged the real cause.
func FlattenSignin(_ error) *Error {
	return Auth(InvalidSignin)
}

// FlattenAuthGate implements the Auth Gate propagation policy: every
// internal failure flattens to Auth(NotAuthorized) except
// EmailNotVerified, which is surfaced distinctly.
func FlattenAuthGate(err error) *Error {
	if IsKind(err, EmailNotVerified) {
		return Auth(EmailNotVerified)
	}
	return Auth(NotAuthorized)
}
