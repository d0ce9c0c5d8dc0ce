package authcore

import "errors"

var (
	// ErrConfigurationInvalid is returned by New when the Config cannot produce a
	// working Auth. It is a construction-time failure and is never retried.
	ErrConfigurationInvalid = errors.New("invalid configuration")

	// ErrCapabilityMissing is returned when the host storage does not implement
	// an interface the selected configuration needs.
	ErrCapabilityMissing = errors.New("storage capability missing")

	// ErrDuplicateUser is returned by UserStore.CreateUser implementations (and
	// surfaced by Register) when the username is already taken.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrUnsupportedOperation is returned when an operation is not available in
	// the active session mode, e.g. DeleteSession with stateless tokens.
	ErrUnsupportedOperation = errors.New("operation not supported in this session mode")

	// ErrNotConfigured is returned when an optional component (local auth or
	// OAuth) was not wired at construction.
	ErrNotConfigured = errors.New("component not configured")

	// OAuth specific
	ErrExchangeFailed  = errors.New("token exchange failed")
	ErrVerifierMissing = errors.New("code verifier is not set")
)
