package authclient

import (
	"net/http"
)

// RequireSuperuser wraps an http.Handler so it only runs for requests
// carrying a valid superuser bearer token. The verified user is stored in
// the request context and can be read with SuperuserFromContext.
func (c *Client) RequireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := c.VerifySuperuser(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			c.errorHandler(w, r, err)
			return
		}

		ctx := ContextWithSuperuser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAppAuth wraps an http.Handler so it only runs for requests carrying
// valid app credential headers. The validated app and the decoded forwarded
// request context are stored in the request context and can be read with
// AppFromContext and RequestContextFromContext.
func (c *Client) RequireAppAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app, err := c.ValidateApp(r.Context(), r.Header)
		if err != nil {
			c.errorHandler(w, r, err)
			return
		}

		ctx := ContextWithApp(r.Context(), app)
		ctx = ContextWithRequestContext(ctx, c.DecodeRequestContext(r.Header))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
