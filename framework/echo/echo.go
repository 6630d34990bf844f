// Package echoauth adapts the auth client to Echo middleware chains.
package echoauth

import (
	"github.com/labstack/echo/v4"

	authclient "github.com/jarvis-home/go-auth-client"
	"github.com/jarvis-home/go-auth-client/headers"
	"github.com/jarvis-home/go-auth-client/validator"
)

// Keys under which the middleware stores results on the Echo context.
const (
	SuperuserKey      = "auth_superuser"
	AppKey            = "auth_app"
	RequestContextKey = "auth_request_context"
)

// ErrorHandler answers the request when authentication fails.
type ErrorHandler func(c echo.Context, err error) error

type config struct {
	errorHandler ErrorHandler
}

// Option configures the middleware.
type Option func(*config)

// WithErrorHandler replaces the default error response.
func WithErrorHandler(h ErrorHandler) Option {
	return func(cfg *config) {
		cfg.errorHandler = h
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{errorHandler: defaultErrorHandler}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func defaultErrorHandler(c echo.Context, err error) error {
	return c.JSON(authclient.StatusCode(err), map[string]string{
		"error": authclient.ErrorCode(err),
	})
}

// RequireSuperuser only lets requests with a valid superuser bearer token
// through. The verified user is stored on the Echo context under
// SuperuserKey and on the request context for handlers that take a
// context.Context.
func RequireSuperuser(client *authclient.Client, opts ...Option) echo.MiddlewareFunc {
	cfg := newConfig(opts)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			request := c.Request()

			user, err := client.VerifySuperuser(request.Context(), request.Header.Get("Authorization"))
			if err != nil {
				return cfg.errorHandler(c, err)
			}

			c.Set(SuperuserKey, user)
			c.SetRequest(request.WithContext(authclient.ContextWithSuperuser(request.Context(), user)))
			return next(c)
		}
	}
}

// RequireAppAuth only lets requests with valid app credential headers
// through. The validated app is stored under AppKey and the decoded
// forwarded request context under RequestContextKey.
func RequireAppAuth(client *authclient.Client, opts ...Option) echo.MiddlewareFunc {
	cfg := newConfig(opts)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			request := c.Request()

			app, err := client.ValidateApp(request.Context(), request.Header)
			if err != nil {
				return cfg.errorHandler(c, err)
			}

			rc := client.DecodeRequestContext(request.Header)

			c.Set(AppKey, app)
			c.Set(RequestContextKey, rc)

			ctx := authclient.ContextWithApp(request.Context(), app)
			ctx = authclient.ContextWithRequestContext(ctx, rc)
			c.SetRequest(request.WithContext(ctx))
			return next(c)
		}
	}
}

// SuperuserFrom returns the verified superuser stored by RequireSuperuser.
func SuperuserFrom(c echo.Context) (*validator.SuperuserUser, bool) {
	user, ok := c.Get(SuperuserKey).(*validator.SuperuserUser)
	return user, ok
}

// AppFrom returns the validated app stored by RequireAppAuth.
func AppFrom(c echo.Context) (*authclient.AppAuthResult, bool) {
	app, ok := c.Get(AppKey).(*authclient.AppAuthResult)
	return app, ok
}

// RequestContextFrom returns the forwarded request context stored by
// RequireAppAuth.
func RequestContextFrom(c echo.Context) (headers.RequestContext, bool) {
	rc, ok := c.Get(RequestContextKey).(headers.RequestContext)
	return rc, ok
}
