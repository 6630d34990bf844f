package authclient

import (
	"encoding/json"
	"net/http"
)

// ErrorHandler is called when authentication fails in the middleware. The
// err can be checked against the exported sentinel errors. The default
// handler answers 401 for missing or bad credentials, 403 for a valid token
// without the superuser claim, 503 when jarvis-auth is unreachable, and 500
// for everything else. A custom handler MUST keep the distinction between
// denial and unavailability, or clients will treat outages as revocations.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// DefaultErrorHandler writes a JSON body with a machine-readable error code
// and the status from StatusCode.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusCode(err))

	body := map[string]string{
		"error":   ErrorCode(err),
		"message": errorMessage(err),
	}
	_ = json.NewEncoder(w).Encode(body)
}

func errorMessage(err error) string {
	switch ErrorCode(err) {
	case CodeTokenMissing:
		return "Authorization token is missing."
	case CodeTokenExpired:
		return "Authorization token has expired."
	case CodeTokenInvalid:
		return "Authorization token is invalid."
	case CodeSuperuserRequired:
		return "Superuser privileges are required."
	case CodeCredentialsMissing:
		return "App credentials are missing."
	case CodeCredentialsInvalid:
		return "App credentials are invalid."
	case CodeAuthUnavailable:
		return "Authentication service is unavailable."
	default:
		return "Something went wrong while authenticating the request."
	}
}
