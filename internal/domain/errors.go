package domain

import "errors"

var (
	// ErrAuthentication hides whether email or password failed.
	// The reason is to prevent account-enumeration side channels.
	ErrAuthentication = errors.New("invalid email or password")
	// ErrAuthorization signals a valid identity without sufficient standing
	// (locked, suspended, unverified, or insufficient privilege).
	ErrAuthorization = errors.New("not authorized")
	// ErrAccountLocked signals temporary lockout after repeated failed attempts.
	// Kept distinct from ErrAuthorization so adapters can map it to 429.
	ErrAccountLocked = errors.New("account locked")
	// ErrNotFound is returned when a resource requested by id does not exist.
	// Email-keyed lookups never surface this error to callers.
	ErrNotFound = errors.New("resource not found")
	ErrConflict = errors.New("conflict")
	// ErrInvalidInput covers malformed or failed-validation requests.
	ErrInvalidInput = errors.New("invalid input")
	// ErrExternalService wraps provider and mail-delivery failures; these are
	// retryable from the caller's point of view.
	ErrExternalService = errors.New("external service failure")
	// ErrDatabase wraps persistence failures so raw driver errors never
	// escape the core.
	ErrDatabase = errors.New("database failure")

	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
	// ErrWrongPurpose rejects a well-formed token presented under the wrong
	// purpose, e.g. a password-reset token used as an access token.
	ErrWrongPurpose = errors.New("token purpose mismatch")

	ErrRateLimited = errors.New("rate limited")
)
