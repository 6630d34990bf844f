package authclient

import (
	"errors"
	"net/http"
	"time"

	"github.com/jarvis-home/go-auth-client/validator"
)

// Option is how options for the Client are set up.
type Option func(*Client) error

// WithSecretKey sets the shared secret used to verify superuser tokens and
// enables superuser verification.
func WithSecretKey(key []byte) Option {
	return func(c *Client) error {
		if len(key) == 0 {
			return errors.New("secret key cannot be empty")
		}
		c.secretKey = key
		return nil
	}
}

// WithAlgorithm sets the token signature algorithm.
//
// Default: HS256.
func WithAlgorithm(alg validator.SignatureAlgorithm) Option {
	return func(c *Client) error {
		c.algorithm = alg
		return nil
	}
}

// WithAllowedClockSkew sets the leeway applied when checking token time
// claims.
func WithAllowedClockSkew(skew time.Duration) Option {
	return func(c *Client) error {
		if skew < 0 {
			return errors.New("allowed clock skew cannot be negative")
		}
		c.allowedClockSkew = skew
		return nil
	}
}

// WithAuthBaseURL sets the jarvis-auth base URL and enables app credential
// validation.
func WithAuthBaseURL(rawURL string) Option {
	return func(c *Client) error {
		if rawURL == "" {
			return errors.New("auth base URL cannot be empty")
		}
		c.authBaseURL = rawURL
		return nil
	}
}

// WithAppCredentials sets this service's own credential pair, used by
// AppHeaders to build outbound headers for calls to other Jarvis services.
func WithAppCredentials(appID, appKey string) Option {
	return func(c *Client) error {
		if appID == "" || appKey == "" {
			return errors.New("app credentials cannot be empty")
		}
		c.appID = appID
		c.appKey = appKey
		return nil
	}
}

// WithCacheTTL sets how long app credential verdicts are reused. A zero TTL
// disables caching.
//
// Default: authority.DefaultCacheTTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) error {
		if ttl < 0 {
			return errors.New("cache TTL cannot be negative")
		}
		c.cacheTTL = ttl
		c.hasCacheTTL = true
		return nil
	}
}

// WithValidationTimeout bounds each call to jarvis-auth.
//
// Default: authority.DefaultTimeout.
func WithValidationTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return errors.New("validation timeout must be positive")
		}
		c.validationTimeout = d
		return nil
	}
}

// WithHTTPClient replaces the HTTP client used for jarvis-auth calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) error {
		if client == nil {
			return errors.New("http client cannot be nil")
		}
		c.httpClient = client
		return nil
	}
}

// WithLogger sets the logger used by the client.
//
// Default: NoopLogger.
func WithLogger(logger Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink used by the client.
//
// Default: NoopMetrics.
func WithMetrics(metrics Metrics) Option {
	return func(c *Client) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		c.metrics = metrics
		return nil
	}
}

// WithTracer sets the tracer used by the client.
//
// Default: NoopTracer.
func WithTracer(tracer Tracer) Option {
	return func(c *Client) error {
		if tracer == nil {
			return errors.New("tracer cannot be nil")
		}
		c.tracer = tracer
		return nil
	}
}

// WithErrorHandler sets the handler the middleware calls when
// authentication fails.
//
// Default: DefaultErrorHandler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *Client) error {
		if h == nil {
			return errors.New("error handler cannot be nil")
		}
		c.errorHandler = h
		return nil
	}
}

// WithClockFunc overrides the clock used for token validation and cache
// expiry. Intended for tests.
func WithClockFunc(now func() time.Time) Option {
	return func(c *Client) error {
		if now == nil {
			return errors.New("clock function cannot be nil")
		}
		c.clock = now
		return nil
	}
}
