package authclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jarvis-home/go-auth-client/authority"
	"github.com/jarvis-home/go-auth-client/headers"
	"github.com/jarvis-home/go-auth-client/validator"
)

// AuthTypeAppCredentials identifies a caller authenticated with app
// credential headers.
const AuthTypeAppCredentials = "app_credentials"

// Metric names emitted by the client.
const (
	metricSuperuserChecks = "auth_superuser_checks_total"
	metricAppChecks       = "auth_app_checks_total"
	metricCheckDuration   = "auth_check_duration_seconds"
)

// AppAuthResult describes a caller authenticated with app credentials.
type AppAuthResult struct {
	AppID    string                 `json:"app_id"`
	Name     string                 `json:"name"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	AuthType string                 `json:"auth_type"`
}

// Client authenticates callers in two independent modes: superuser bearer
// tokens, verified locally against a shared secret, and app credential
// headers, validated against jarvis-auth. Each mode works only when its
// configuration was supplied; using an unconfigured mode returns
// ErrNotConfigured.
type Client struct {
	tokenValidator *validator.Validator
	appValidator   *authority.CachingClient

	logger       Logger
	metrics      Metrics
	tracer       Tracer
	errorHandler ErrorHandler
	clock        func() time.Time

	// Construction-only fields consumed by New.
	secretKey         []byte
	algorithm         validator.SignatureAlgorithm
	allowedClockSkew  time.Duration
	authBaseURL       string
	cacheTTL          time.Duration
	hasCacheTTL       bool
	validationTimeout time.Duration
	httpClient        *http.Client
	appID             string
	appKey            string
}

// New builds and returns a new *Client.
//
// At least one mode must be configured:
//   - WithSecretKey enables superuser token verification
//   - WithAuthBaseURL enables app credential validation
//
// Optional options:
//   - WithAlgorithm: token signature algorithm (default: HS256)
//   - WithAllowedClockSkew: leeway for token time claims
//   - WithCacheTTL: app verdict cache lifetime (default: authority.DefaultCacheTTL)
//   - WithValidationTimeout: per-call timeout for jarvis-auth
//   - WithHTTPClient: custom HTTP client for jarvis-auth calls
//   - WithLogger, WithMetrics, WithTracer, WithErrorHandler, WithClockFunc
func New(opts ...Option) (*Client, error) {
	c := &Client{
		logger:       &NoopLogger{},
		metrics:      &NoopMetrics{},
		tracer:       &NoopTracer{},
		errorHandler: DefaultErrorHandler,
		algorithm:    validator.HS256,
		clock:        time.Now,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if len(c.secretKey) == 0 && c.authBaseURL == "" {
		return nil, errors.New("at least one of WithSecretKey and WithAuthBaseURL is required")
	}

	if len(c.secretKey) > 0 {
		v, err := validator.New(
			validator.WithSecretKey(c.secretKey),
			validator.WithAlgorithm(c.algorithm),
			validator.WithAllowedClockSkew(c.allowedClockSkew),
			validator.WithClockFunc(c.clock),
		)
		if err != nil {
			return nil, fmt.Errorf("could not set up token verification: %w", err)
		}
		c.tokenValidator = v
	}

	if c.authBaseURL != "" {
		authorityOpts := []interface{}{
			authority.WithBaseURL(c.authBaseURL),
			authority.WithLogger(c.logger),
			authority.WithMetrics(c.metrics),
			authority.WithClockFunc(c.clock),
		}
		if c.hasCacheTTL {
			authorityOpts = append(authorityOpts, authority.WithCacheTTL(c.cacheTTL))
		}
		if c.validationTimeout != 0 {
			authorityOpts = append(authorityOpts, authority.WithTimeout(c.validationTimeout))
		}
		if c.httpClient != nil {
			authorityOpts = append(authorityOpts, authority.WithHTTPClient(c.httpClient))
		}

		a, err := authority.NewCachingClient(authorityOpts...)
		if err != nil {
			return nil, fmt.Errorf("could not set up app credential validation: %w", err)
		}
		c.appValidator = a
	}

	return c, nil
}

// ParseBearer extracts the token from an Authorization header value. An
// empty header yields ErrMissingToken; a present but malformed header
// yields ErrInvalidToken.
func ParseBearer(authorizationHeader string) (string, error) {
	if authorizationHeader == "" {
		return "", ErrMissingToken
	}

	parts := strings.Fields(authorizationHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", fmt.Errorf("%w: authorization header format must be Bearer {token}", ErrInvalidToken)
	}

	return parts[1], nil
}

// VerifySuperuser verifies the bearer token in an Authorization header value
// and returns the superuser it identifies. The errors it returns match
// ErrMissingToken, ErrInvalidToken, ErrExpiredToken or ErrNotSuperuser.
func (c *Client) VerifySuperuser(ctx context.Context, authorizationHeader string) (*validator.SuperuserUser, error) {
	span := c.tracer.StartSpan("authclient.verify_superuser")
	defer span.Finish()

	start := c.clock()
	user, err := c.verifySuperuser(ctx, authorizationHeader)
	c.observe(metricSuperuserChecks, start, err)

	if err != nil {
		span.SetTag("outcome", ErrorCode(err))
		c.logger.Debugf("superuser verification failed: %v", err)
		return nil, err
	}

	span.SetTag("outcome", "granted")
	c.logger.Debugf("superuser %d verified", user.UserID)
	return user, nil
}

func (c *Client) verifySuperuser(ctx context.Context, authorizationHeader string) (*validator.SuperuserUser, error) {
	if c.tokenValidator == nil {
		return nil, fmt.Errorf("%w: no secret key", ErrNotConfigured)
	}

	token, err := ParseBearer(authorizationHeader)
	if err != nil {
		return nil, err
	}

	return c.tokenValidator.ValidateToken(ctx, token)
}

// ValidateApp validates the app credential headers on a request and returns
// the app they identify. The errors it returns match ErrMissingCredentials,
// ErrInvalidCredentials or ErrAuthorityUnavailable.
func (c *Client) ValidateApp(ctx context.Context, h http.Header) (*AppAuthResult, error) {
	span := c.tracer.StartSpan("authclient.validate_app")
	defer span.Finish()

	start := c.clock()
	app, err := c.validateApp(ctx, h)
	c.observe(metricAppChecks, start, err)

	if err != nil {
		span.SetTag("outcome", ErrorCode(err))
		c.logger.Debugf("app credential validation failed: %v", err)
		return nil, err
	}

	span.SetTag("outcome", "granted")
	span.SetTag("app_id", app.AppID)
	c.logger.Debugf("app %q validated", app.AppID)
	return app, nil
}

func (c *Client) validateApp(ctx context.Context, h http.Header) (*AppAuthResult, error) {
	if c.appValidator == nil {
		return nil, fmt.Errorf("%w: no auth service base URL", ErrNotConfigured)
	}

	appID, appKey, ok := headers.Credentials(h)
	if !ok {
		return nil, ErrMissingCredentials
	}

	result, err := c.appValidator.Validate(ctx, appID, appKey)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, &credentialsError{details: errors.New(result.Reason)}
	}

	return &AppAuthResult{
		AppID:    result.AppID,
		Name:     result.Name,
		Metadata: result.Metadata,
		AuthType: AuthTypeAppCredentials,
	}, nil
}

// AppHeaders returns the credential headers this service sends when calling
// other Jarvis services. It fails with ErrNotConfigured when no credentials
// were supplied via WithAppCredentials.
func (c *Client) AppHeaders() (http.Header, error) {
	if c.appID == "" {
		return nil, fmt.Errorf("%w: no app credentials", ErrNotConfigured)
	}
	return headers.AppCredentialHeaders(c.appID, c.appKey), nil
}

// DecodeRequestContext reads the forwarded X-Context-* headers. Malformed
// numeric values are dropped rather than failing the request; a malformed
// member id list is logged since it usually means a misbehaving caller.
func (c *Client) DecodeRequestContext(h http.Header) headers.RequestContext {
	if raw := h.Get(headers.ContextHouseholdMemberIDs); raw != "" {
		if _, ok := headers.ParseMemberIDs(raw); !ok {
			c.logger.Warnf("malformed %s header %q, ignoring", headers.ContextHouseholdMemberIDs, raw)
		}
	}
	return headers.DecodeContext(h)
}

func (c *Client) observe(metric string, start time.Time, err error) {
	outcome := "granted"
	if err != nil {
		outcome = ErrorCode(err)
	}
	tags := map[string]string{"outcome": outcome}
	c.metrics.IncCounter(metric, tags)
	c.metrics.ObserveHistogram(metricCheckDuration, c.clock().Sub(start).Seconds(), map[string]string{"check": metric})
}
