// Package frontendurl builds the handful of frontend URLs this service
// ever needs to construct, grounded in original_source's
// shared/src/frontend/route.rs. The frontend itself is out of scope;
// only these URL shapes are fixed.
package frontendurl

import "strings"

// Builder constructs frontend URLs under a configured base.
type Builder struct {
	Base string
}

func (b Builder) join(segments ...string) string {
	return strings.TrimRight(b.Base, "/") + "/" + strings.Join(segments, "/")
}

// VerifyEmailConfirm is the link embedded in the verification email.
func (b Builder) VerifyEmailConfirm(id, key string) string {
	return b.join("verify-email-confirm", id, key)
}

// ResetPasswordConfirm is the link embedded in the password-reset email.
func (b Builder) ResetPasswordConfirm(id, key string) string {
	return b.join("reset-password-confirm", id, key)
}

// OpenIDFinalize is the redirect target on a successful OIDC callback.
func (b Builder) OpenIDFinalize(id, key string) string {
	return b.join("openid-finalize", id, key)
}

// NoAuth is the redirect target on a failed OIDC callback.
func (b Builder) NoAuth() string {
	return b.join("no-auth")
}
