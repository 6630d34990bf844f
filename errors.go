package authclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jarvis-home/go-auth-client/authority"
	"github.com/jarvis-home/go-auth-client/validator"
)

var (
	// ErrNotConfigured is returned when an authentication mode is used
	// without the configuration it needs: superuser verification without a
	// secret key, or app validation without an auth service base URL.
	ErrNotConfigured = errors.New("auth client not configured for this mode")

	// ErrMissingToken is returned when no bearer token is present.
	ErrMissingToken = errors.New("authorization token missing")

	// ErrInvalidToken is returned when a token fails verification for any
	// reason other than expiry.
	ErrInvalidToken = validator.ErrTokenInvalid

	// ErrExpiredToken is returned when a token is past its expiry.
	ErrExpiredToken = validator.ErrTokenExpired

	// ErrNotSuperuser is returned when a verified token does not carry the
	// superuser claim.
	ErrNotSuperuser = validator.ErrSuperuserRequired

	// ErrMissingCredentials is returned when one or both app credential
	// headers are absent.
	ErrMissingCredentials = errors.New("app credentials missing")

	// ErrInvalidCredentials is returned when jarvis-auth rejects the app
	// credentials.
	ErrInvalidCredentials = errors.New("invalid app credentials")

	// ErrAuthorityUnavailable is returned when jarvis-auth could not be
	// reached for a verdict. Callers should answer 503, not 401.
	ErrAuthorityUnavailable = authority.ErrUnavailable
)

// Machine-readable codes for each error class, as emitted in HTTP error
// bodies and usable by clients for branching.
const (
	CodeNotConfigured      = "not_configured"
	CodeTokenMissing       = "token_missing"
	CodeTokenInvalid       = "token_invalid"
	CodeTokenExpired       = "token_expired"
	CodeSuperuserRequired  = "superuser_required"
	CodeCredentialsMissing = "credentials_missing"
	CodeCredentialsInvalid = "credentials_invalid"
	CodeAuthUnavailable    = "auth_unavailable"
	CodeInternalError      = "internal_error"
)

// ErrorCode maps an error returned by this package to its machine-readable
// code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return CodeNotConfigured
	case errors.Is(err, ErrMissingToken):
		return CodeTokenMissing
	case errors.Is(err, ErrExpiredToken):
		return CodeTokenExpired
	case errors.Is(err, ErrInvalidToken):
		return CodeTokenInvalid
	case errors.Is(err, ErrNotSuperuser):
		return CodeSuperuserRequired
	case errors.Is(err, ErrMissingCredentials):
		return CodeCredentialsMissing
	case errors.Is(err, ErrInvalidCredentials):
		return CodeCredentialsInvalid
	case errors.Is(err, ErrAuthorityUnavailable):
		return CodeAuthUnavailable
	default:
		return CodeInternalError
	}
}

// StatusCode maps an error returned by this package to the HTTP status a
// handler should answer with. Authentication failures are 401, a valid but
// non-superuser token is 403, an unreachable auth service is 503, and
// misconfiguration or unknown errors are 500.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrMissingToken),
		errors.Is(err, ErrExpiredToken),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrMissingCredentials),
		errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotSuperuser):
		return http.StatusForbidden
	case errors.Is(err, ErrAuthorityUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// credentialsError handles wrapping a credential denial with the concrete
// error ErrInvalidCredentials. We do not expose this publicly because the
// interface methods of Is and Unwrap should give the user all they need.
type credentialsError struct {
	details error
}

// Is allows the error to support equality to ErrInvalidCredentials.
func (e *credentialsError) Is(target error) bool {
	return target == ErrInvalidCredentials
}

// Error returns a string representation of the error.
func (e *credentialsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidCredentials, e.details)
}

// Unwrap allows the error to support equality to the underlying error and
// not just ErrInvalidCredentials.
func (e *credentialsError) Unwrap() error {
	return e.details
}
