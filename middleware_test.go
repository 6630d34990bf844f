package authclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarvis-home/go-auth-client/headers"
	"github.com/jarvis-home/go-auth-client/validator"
)

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRequireSuperuser(t *testing.T) {
	newHandler := func(t *testing.T, opts ...Option) (http.Handler, *validator.SuperuserUser) {
		client := newTestClient(t, opts...)

		seen := &validator.SuperuserUser{}
		handler := client.RequireSuperuser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := SuperuserFromContext(r.Context())
			require.True(t, ok)
			*seen = *user
			w.WriteHeader(http.StatusOK)
		}))
		return handler, seen
	}

	t.Run("it passes a superuser through with the user in context", func(t *testing.T) {
		handler, seen := newHandler(t, WithSecretKey([]byte(testSecret)))

		request := httptest.NewRequest(http.MethodGet, "/admin", nil)
		request.Header.Set("Authorization", "Bearer "+signSuperuserToken(t, true))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, request)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, &validator.SuperuserUser{
			UserID:   42,
			Email:    "ada@example.com",
			AuthType: validator.AuthTypeSuperuserJWT,
		}, seen)
	})

	t.Run("it answers 401 with a code for a missing token", func(t *testing.T) {
		handler, _ := newHandler(t, WithSecretKey([]byte(testSecret)))

		request := httptest.NewRequest(http.MethodGet, "/admin", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, request)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.Equal(t, CodeTokenMissing, decodeErrorBody(t, w)["error"])
	})

	t.Run("it answers 403 for a non-superuser", func(t *testing.T) {
		handler, _ := newHandler(t, WithSecretKey([]byte(testSecret)))

		request := httptest.NewRequest(http.MethodGet, "/admin", nil)
		request.Header.Set("Authorization", "Bearer "+signSuperuserToken(t, false))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, request)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, CodeSuperuserRequired, decodeErrorBody(t, w)["error"])
	})

	t.Run("it uses a custom error handler", func(t *testing.T) {
		var handledErr error
		client := newTestClient(t,
			WithSecretKey([]byte(testSecret)),
			WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				handledErr = err
				w.WriteHeader(http.StatusTeapot)
			}),
		)

		handler := client.RequireSuperuser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not run")
		}))

		request := httptest.NewRequest(http.MethodGet, "/admin", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, request)

		assert.Equal(t, http.StatusTeapot, w.Code)
		assert.ErrorIs(t, handledErr, ErrMissingToken)
	})
}

func TestRequireAppAuth(t *testing.T) {
	newAuthServer := func(t *testing.T) *httptest.Server {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(headers.AppKey) != "secret-key" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"app_id":"thermostat","name":"Thermostat Service"}`))
		}))
		t.Cleanup(server.Close)
		return server
	}

	t.Run("it passes a valid app through with app and context stored", func(t *testing.T) {
		server := newAuthServer(t)
		client := newTestClient(t, WithAuthBaseURL(server.URL))

		var seenApp *AppAuthResult
		var seenContext headers.RequestContext
		handler := client.RequireAppAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			app, ok := AppFromContext(r.Context())
			require.True(t, ok)
			seenApp = app

			rc, ok := RequestContextFromContext(r.Context())
			require.True(t, ok)
			seenContext = rc

			w.WriteHeader(http.StatusOK)
		}))

		request := httptest.NewRequest(http.MethodGet, "/internal/devices", nil)
		request.Header.Set(headers.AppID, "thermostat")
		request.Header.Set(headers.AppKey, "secret-key")
		request.Header.Set(headers.ContextHouseholdID, "house-1")
		request.Header.Set(headers.ContextNodeID, "node-3")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, request)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "thermostat", seenApp.AppID)
		assert.Equal(t, AuthTypeAppCredentials, seenApp.AuthType)
		assert.Equal(t, "house-1", seenContext.HouseholdID)
		assert.Equal(t, "node-3", seenContext.NodeID)
	})

	t.Run("it answers 401 for missing credentials", func(t *testing.T) {
		server := newAuthServer(t)
		client := newTestClient(t, WithAuthBaseURL(server.URL))

		handler := client.RequireAppAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not run")
		}))

		request := httptest.NewRequest(http.MethodGet, "/internal/devices", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, request)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, CodeCredentialsMissing, decodeErrorBody(t, w)["error"])
	})

	t.Run("it answers 401 for denied credentials", func(t *testing.T) {
		server := newAuthServer(t)
		client := newTestClient(t, WithAuthBaseURL(server.URL))

		handler := client.RequireAppAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not run")
		}))

		request := httptest.NewRequest(http.MethodGet, "/internal/devices", nil)
		request.Header.Set(headers.AppID, "thermostat")
		request.Header.Set(headers.AppKey, "wrong-key")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, request)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, CodeCredentialsInvalid, decodeErrorBody(t, w)["error"])
	})

	t.Run("it answers 503 when the auth service is unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		client := newTestClient(t, WithAuthBaseURL(server.URL))

		handler := client.RequireAppAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not run")
		}))

		request := httptest.NewRequest(http.MethodGet, "/internal/devices", nil)
		request.Header.Set(headers.AppID, "thermostat")
		request.Header.Set(headers.AppKey, "secret-key")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, request)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, CodeAuthUnavailable, decodeErrorBody(t, w)["error"])
	})
}
