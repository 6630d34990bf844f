package grpcauth

import (
	"context"

	"google.golang.org/grpc"

	authclient "github.com/jarvis-home/go-auth-client"
)

// UnaryServerInterceptor enforces the selected authentication flow on unary
// calls. The authenticated identity is stored on the handler context and can
// be read with authclient.SuperuserFromContext or authclient.AppFromContext.
func UnaryServerInterceptor(client *authclient.Client, flow Flow, opts ...Option) grpc.UnaryServerInterceptor {
	cfg := newConfig(opts)

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if cfg.excluded != nil && cfg.excluded(info.FullMethod) {
			return handler(ctx, req)
		}

		ctx, err := authenticate(ctx, client, flow)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor enforces the selected authentication flow on
// streaming calls.
func StreamServerInterceptor(client *authclient.Client, flow Flow, opts ...Option) grpc.StreamServerInterceptor {
	cfg := newConfig(opts)

	return func(
		srv interface{},
		stream grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if cfg.excluded != nil && cfg.excluded(info.FullMethod) {
			return handler(srv, stream)
		}

		ctx, err := authenticate(stream.Context(), client, flow)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: stream, ctx: ctx})
	}
}

// wrappedServerStream overrides the stream context with one carrying the
// authenticated identity.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *wrappedServerStream) Context() context.Context {
	return s.ctx
}
