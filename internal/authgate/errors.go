package authgate

import "errors"

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password; callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("auth.invalid_credentials")
	// ErrTokenInvalid covers missing, malformed, tampered, and expired
	// tokens uniformly.
	ErrTokenInvalid = errors.New("auth.token_invalid")
	// ErrUserNotFound indicates the user referenced by a refresh token no
	// longer exists.
	ErrUserNotFound = errors.New("auth.user_not_found")
	// ErrUpstream indicates the credential store was unreachable; the call
	// is retryable.
	ErrUpstream = errors.New("auth.upstream_failure")
)
