package grpcauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	authclient "github.com/jarvis-home/go-auth-client"
	"github.com/jarvis-home/go-auth-client/headers"
)

const testSecret = "test-signing-secret"

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func signSuperuserToken(t *testing.T) string {
	t.Helper()

	token, err := jwt.NewBuilder().
		Subject("42").
		Expiration(testNow.Add(30*time.Minute)).
		Claim("email", "ada@example.com").
		Claim("is_superuser", true).
		Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, []byte(testSecret)))
	require.NoError(t, err)

	return string(signed)
}

func newTestClient(t *testing.T, opts ...authclient.Option) *authclient.Client {
	t.Helper()

	opts = append([]authclient.Option{
		authclient.WithClockFunc(func() time.Time { return testNow }),
	}, opts...)

	client, err := authclient.New(opts...)
	require.NoError(t, err)
	return client
}

func TestUnaryServerInterceptor(t *testing.T) {
	unaryInfo := &grpc.UnaryServerInfo{FullMethod: "/jarvis.admin.v1.AdminService/ListUsers"}

	t.Run("it passes a superuser through with the user in context", func(t *testing.T) {
		client := newTestClient(t, authclient.WithSecretKey([]byte(testSecret)))
		interceptor := UnaryServerInterceptor(client, FlowSuperuser)

		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
			"authorization", "Bearer "+signSuperuserToken(t),
		))

		resp, err := interceptor(ctx, "request", unaryInfo, func(ctx context.Context, req interface{}) (interface{}, error) {
			user, ok := authclient.SuperuserFromContext(ctx)
			require.True(t, ok)
			assert.Equal(t, int64(42), user.UserID)
			return "response", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "response", resp)
	})

	t.Run("it answers Unauthenticated for a missing token", func(t *testing.T) {
		client := newTestClient(t, authclient.WithSecretKey([]byte(testSecret)))
		interceptor := UnaryServerInterceptor(client, FlowSuperuser)

		resp, err := interceptor(context.Background(), "request", unaryInfo, func(ctx context.Context, req interface{}) (interface{}, error) {
			t.Fatal("handler should not run")
			return nil, nil
		})

		assert.Nil(t, resp)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
		assert.Contains(t, err.Error(), authclient.CodeTokenMissing)
	})

	t.Run("it answers PermissionDenied for a non-superuser", func(t *testing.T) {
		client := newTestClient(t, authclient.WithSecretKey([]byte(testSecret)))
		interceptor := UnaryServerInterceptor(client, FlowSuperuser)

		token, err := jwt.NewBuilder().
			Subject("42").
			Expiration(testNow.Add(30*time.Minute)).
			Claim("is_superuser", false).
			Build()
		require.NoError(t, err)
		signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, []byte(testSecret)))
		require.NoError(t, err)

		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
			"authorization", "Bearer "+string(signed),
		))

		_, err = interceptor(ctx, "request", unaryInfo, func(ctx context.Context, req interface{}) (interface{}, error) {
			return nil, nil
		})

		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})

	t.Run("it validates app credentials", func(t *testing.T) {
		authServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(headers.AppKey) != "secret-key" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"app_id":"thermostat","name":"Thermostat Service"}`))
		}))
		defer authServer.Close()

		client := newTestClient(t, authclient.WithAuthBaseURL(authServer.URL))
		interceptor := UnaryServerInterceptor(client, FlowAppAuth)

		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
			strings.ToLower(headers.AppID), "thermostat",
			strings.ToLower(headers.AppKey), "secret-key",
			strings.ToLower(headers.ContextHouseholdID), "house-1",
		))

		_, err := interceptor(ctx, "request", unaryInfo, func(ctx context.Context, req interface{}) (interface{}, error) {
			app, ok := authclient.AppFromContext(ctx)
			require.True(t, ok)
			assert.Equal(t, "thermostat", app.AppID)

			rc, ok := authclient.RequestContextFromContext(ctx)
			require.True(t, ok)
			assert.Equal(t, "house-1", rc.HouseholdID)
			return nil, nil
		})
		require.NoError(t, err)
	})

	t.Run("it answers Unavailable when the auth service is unreachable", func(t *testing.T) {
		authServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		authServer.Close()

		client := newTestClient(t, authclient.WithAuthBaseURL(authServer.URL))
		interceptor := UnaryServerInterceptor(client, FlowAppAuth)

		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
			strings.ToLower(headers.AppID), "thermostat",
			strings.ToLower(headers.AppKey), "secret-key",
		))

		_, err := interceptor(ctx, "request", unaryInfo, func(ctx context.Context, req interface{}) (interface{}, error) {
			return nil, nil
		})

		assert.Equal(t, codes.Unavailable, status.Code(err))
	})

	t.Run("it skips excluded methods", func(t *testing.T) {
		client := newTestClient(t, authclient.WithSecretKey([]byte(testSecret)))
		interceptor := UnaryServerInterceptor(client, FlowSuperuser, WithExclusionFunc(func(fullMethod string) bool {
			return fullMethod == "/grpc.health.v1.Health/Check"
		}))

		healthInfo := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

		resp, err := interceptor(context.Background(), "request", healthInfo, func(ctx context.Context, req interface{}) (interface{}, error) {
			return "healthy", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "healthy", resp)
	})
}

type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *fakeServerStream) Context() context.Context {
	return s.ctx
}

func TestStreamServerInterceptor(t *testing.T) {
	streamInfo := &grpc.StreamServerInfo{FullMethod: "/jarvis.admin.v1.AdminService/WatchEvents"}

	t.Run("it passes a superuser through with the user on the stream context", func(t *testing.T) {
		client := newTestClient(t, authclient.WithSecretKey([]byte(testSecret)))
		interceptor := StreamServerInterceptor(client, FlowSuperuser)

		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
			"authorization", "Bearer "+signSuperuserToken(t),
		))

		err := interceptor(nil, &fakeServerStream{ctx: ctx}, streamInfo, func(srv interface{}, stream grpc.ServerStream) error {
			user, ok := authclient.SuperuserFromContext(stream.Context())
			require.True(t, ok)
			assert.Equal(t, int64(42), user.UserID)
			return nil
		})

		require.NoError(t, err)
	})

	t.Run("it answers Unauthenticated for a missing token", func(t *testing.T) {
		client := newTestClient(t, authclient.WithSecretKey([]byte(testSecret)))
		interceptor := StreamServerInterceptor(client, FlowSuperuser)

		err := interceptor(nil, &fakeServerStream{ctx: context.Background()}, streamInfo, func(srv interface{}, stream grpc.ServerStream) error {
			t.Fatal("handler should not run")
			return nil
		})

		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})
}
