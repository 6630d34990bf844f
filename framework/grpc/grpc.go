// Package grpcauth adapts the auth client to gRPC server interceptors.
package grpcauth

import (
	"context"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	authclient "github.com/jarvis-home/go-auth-client"
)

// Flow selects which authentication mode an interceptor enforces.
type Flow int

const (
	// FlowSuperuser verifies a superuser bearer token from the
	// authorization metadata entry.
	FlowSuperuser Flow = iota

	// FlowAppAuth validates the app credential metadata entries against
	// jarvis-auth.
	FlowAppAuth
)

type config struct {
	excluded func(fullMethod string) bool
}

// Option configures an interceptor.
type Option func(*config)

// WithExclusionFunc skips authentication for methods the given function
// returns true for.
func WithExclusionFunc(excluded func(fullMethod string) bool) Option {
	return func(cfg *config) {
		cfg.excluded = excluded
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// headersFromMetadata converts incoming gRPC metadata to an http.Header so
// the same credential and context header names work on both transports.
func headersFromMetadata(md metadata.MD) http.Header {
	h := http.Header{}
	for key, values := range md {
		for _, value := range values {
			h.Add(key, value)
		}
	}
	return h
}

// statusFromError converts an authentication error to the gRPC status a
// handler should answer with, preserving the denial versus unavailability
// distinction.
func statusFromError(err error) *status.Status {
	var code codes.Code
	switch authclient.StatusCode(err) {
	case http.StatusUnauthorized:
		code = codes.Unauthenticated
	case http.StatusForbidden:
		code = codes.PermissionDenied
	case http.StatusServiceUnavailable:
		code = codes.Unavailable
	default:
		code = codes.Internal
	}
	return status.New(code, authclient.ErrorCode(err))
}

// authenticate runs the selected flow against the incoming metadata and
// returns a context carrying the authenticated identity.
func authenticate(ctx context.Context, client *authclient.Client, flow Flow) (context.Context, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	h := headersFromMetadata(md)

	switch flow {
	case FlowAppAuth:
		app, err := client.ValidateApp(ctx, h)
		if err != nil {
			return nil, statusFromError(err).Err()
		}
		ctx = authclient.ContextWithApp(ctx, app)
		ctx = authclient.ContextWithRequestContext(ctx, client.DecodeRequestContext(h))
		return ctx, nil

	default:
		user, err := client.VerifySuperuser(ctx, h.Get("Authorization"))
		if err != nil {
			return nil, statusFromError(err).Err()
		}
		return authclient.ContextWithSuperuser(ctx, user), nil
	}
}
