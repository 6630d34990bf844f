// Package ginauth adapts the auth client to Gin handler chains.
package ginauth

import (
	"github.com/gin-gonic/gin"

	authclient "github.com/jarvis-home/go-auth-client"
	"github.com/jarvis-home/go-auth-client/headers"
	"github.com/jarvis-home/go-auth-client/validator"
)

// Keys under which the middleware stores results on the Gin context.
const (
	SuperuserKey      = "auth_superuser"
	AppKey            = "auth_app"
	RequestContextKey = "auth_request_context"
)

// ErrorHandler answers the request when authentication fails.
type ErrorHandler func(c *gin.Context, err error)

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

func defaultErrorHandler(c *gin.Context, err error) {
	c.AbortWithStatusJSON(authclient.StatusCode(err), gin.H{
		"error": authclient.ErrorCode(err),
	})
}

// RequireSuperuser only lets requests with a valid superuser bearer token
// through. The verified user is stored on the Gin context under SuperuserKey
// and on the request context for handlers that take a context.Context.
func RequireSuperuser(client *authclient.Client, opts ...Option) gin.HandlerFunc {
	cfg := newConfig(opts)

	return func(c *gin.Context) {
		user, err := client.VerifySuperuser(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			cfg.errorHandler(c, err)
			return
		}

		c.Set(SuperuserKey, user)
		c.Request = c.Request.WithContext(authclient.ContextWithSuperuser(c.Request.Context(), user))
		c.Next()
	}
}

// RequireAppAuth only lets requests with valid app credential headers
// through. The validated app is stored under AppKey and the decoded
// forwarded request context under RequestContextKey.
func RequireAppAuth(client *authclient.Client, opts ...Option) gin.HandlerFunc {
	cfg := newConfig(opts)

	return func(c *gin.Context) {
		app, err := client.ValidateApp(c.Request.Context(), c.Request.Header)
		if err != nil {
			cfg.errorHandler(c, err)
			return
		}

		rc := client.DecodeRequestContext(c.Request.Header)

		c.Set(AppKey, app)
		c.Set(RequestContextKey, rc)

		ctx := authclient.ContextWithApp(c.Request.Context(), app)
		ctx = authclient.ContextWithRequestContext(ctx, rc)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// SuperuserFrom returns the verified superuser stored by RequireSuperuser.
func SuperuserFrom(c *gin.Context) (*validator.SuperuserUser, bool) {
	value, exists := c.Get(SuperuserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*validator.SuperuserUser)
	return user, ok
}

// AppFrom returns the validated app stored by RequireAppAuth.
func AppFrom(c *gin.Context) (*authclient.AppAuthResult, bool) {
	value, exists := c.Get(AppKey)
	if !exists {
		return nil, false
	}
	app, ok := value.(*authclient.AppAuthResult)
	return app, ok
}

// RequestContextFrom returns the forwarded request context stored by
// RequireAppAuth.
func RequestContextFrom(c *gin.Context) (headers.RequestContext, bool) {
	value, exists := c.Get(RequestContextKey)
	if !exists {
		return headers.RequestContext{}, false
	}
	rc, ok := value.(headers.RequestContext)
	return rc, ok
}
