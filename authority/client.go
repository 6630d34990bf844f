// Package authority validates app credentials against the jarvis-auth
// service. Client performs the remote call; CachingClient adds time-bounded
// memoization of the verdicts so repeated calls from the same app do not
// hammer jarvis-auth.
package authority

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jarvis-home/go-auth-client/headers"
)

// ErrUnavailable is returned when jarvis-auth cannot produce a verdict:
// network failure, timeout, a 5xx response, or an unparseable body. It is
// deliberately distinct from a credential denial so callers can answer 503
// instead of 401.
var ErrUnavailable = errors.New("auth service unavailable")

// validatePath is the jarvis-auth endpoint that answers credential checks.
const validatePath = "/internal/app-ping"

// DefaultTimeout bounds a single validation call.
const DefaultTimeout = 10 * time.Second

// maxResponseBytes caps how much of a validation response is read.
const maxResponseBytes = 1 << 20

// AppValidationResult is jarvis-auth's verdict on one credential pair.
type AppValidationResult struct {
	Valid    bool                   `json:"valid"`
	AppID    string                 `json:"app_id,omitempty"`
	Name     string                 `json:"name,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// Reason describes the denial when Valid is false.
	Reason string `json:"reason,omitempty"`
}

// Client asks jarvis-auth for credential verdicts, without caching. Most
// deployments want CachingClient instead.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client) error

// WithBaseURL sets the jarvis-auth base URL (REQUIRED).
func WithBaseURL(rawURL string) ClientOption {
	return func(c *Client) error {
		u, err := url.Parse(rawURL)
		if err != nil {
			return fmt.Errorf("invalid base URL: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("base URL %q must be absolute", rawURL)
		}
		c.baseURL = u
		return nil
	}
}

// WithHTTPClient replaces the HTTP client used for validation calls. The
// per-call timeout still applies through the request context.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) error {
		if client == nil {
			return errors.New("http client cannot be nil")
		}
		c.httpClient = client
		return nil
	}
}

// WithTimeout bounds each validation call.
//
// Default: DefaultTimeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		c.timeout = d
		return nil
	}
}

// NewClient builds and returns a new *Client.
//
// Required options:
//   - WithBaseURL: jarvis-auth base URL
//
// Optional options:
//   - WithHTTPClient: custom HTTP client
//   - WithTimeout: per-call timeout (default: DefaultTimeout)
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if c.baseURL == nil {
		return nil, errors.New("base URL is required (use WithBaseURL)")
	}

	return c, nil
}

// Validate asks jarvis-auth whether the credential pair identifies a known
// app. A definitive verdict (valid or denied) is returned as a result; an
// error is returned only when no verdict could be obtained, and it always
// matches ErrUnavailable. No retries are performed here; retry policy
// belongs to the caller.
func (c *Client) Validate(ctx context.Context, appID, appKey string) (*AppValidationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL.JoinPath(validatePath).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &unavailableError{details: fmt.Errorf("could not build validation request: %w", err)}
	}
	req.Header.Set(headers.AppID, appID)
	req.Header.Set(headers.AppKey, appKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &unavailableError{details: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var body struct {
			AppID    string                 `json:"app_id"`
			Name     string                 `json:"name"`
			Metadata map[string]interface{} `json:"metadata"`
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
			return nil, &unavailableError{details: fmt.Errorf("could not decode validation response: %w", err)}
		}
		return &AppValidationResult{
			Valid:    true,
			AppID:    body.AppID,
			Name:     body.Name,
			Metadata: body.Metadata,
		}, nil

	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return &AppValidationResult{Valid: false, Reason: "invalid app credentials"}, nil

	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, &unavailableError{details: fmt.Errorf("auth service returned status %d", resp.StatusCode)}

	default:
		return &AppValidationResult{
			Valid:  false,
			Reason: fmt.Sprintf("auth service returned status %d", resp.StatusCode),
		}, nil
	}
}

// unavailableError wraps the cause of a failed call with ErrUnavailable.
type unavailableError struct {
	details error
}

// Is allows the error to support equality to ErrUnavailable.
func (e *unavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// Error returns a string representation of the error.
func (e *unavailableError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnavailable, e.details)
}

// Unwrap allows the error to support equality to the underlying error and
// not just ErrUnavailable.
func (e *unavailableError) Unwrap() error {
	return e.details
}
