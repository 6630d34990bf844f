package authclient

import (
	"context"

	"github.com/jarvis-home/go-auth-client/headers"
	"github.com/jarvis-home/go-auth-client/validator"
)

type contextKey int

const (
	superuserContextKey contextKey = iota
	appContextKey
	requestContextKey
)

// ContextWithSuperuser stores a verified superuser in the context.
func ContextWithSuperuser(ctx context.Context, user *validator.SuperuserUser) context.Context {
	return context.WithValue(ctx, superuserContextKey, user)
}

// SuperuserFromContext returns the verified superuser stored by the
// middleware, if any.
func SuperuserFromContext(ctx context.Context) (*validator.SuperuserUser, bool) {
	user, ok := ctx.Value(superuserContextKey).(*validator.SuperuserUser)
	return user, ok
}

// ContextWithApp stores a validated app in the context.
func ContextWithApp(ctx context.Context, app *AppAuthResult) context.Context {
	return context.WithValue(ctx, appContextKey, app)
}

// AppFromContext returns the validated app stored by the middleware, if any.
func AppFromContext(ctx context.Context) (*AppAuthResult, bool) {
	app, ok := ctx.Value(appContextKey).(*AppAuthResult)
	return app, ok
}

// ContextWithRequestContext stores the decoded forwarded request context.
func ContextWithRequestContext(ctx context.Context, rc headers.RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// RequestContextFromContext returns the forwarded request context stored by
// the middleware, if any.
func RequestContextFromContext(ctx context.Context) (headers.RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey).(headers.RequestContext)
	return rc, ok
}
