// Package authclient authenticates callers of Jarvis services in two
// independent modes.
//
// Superuser bearer tokens are verified locally against a shared secret; no
// network call is made. App credential headers are validated against the
// jarvis-auth service, with verdicts cached for a bounded time.
//
// Configure the modes you need and mount the middleware:
//
//	client, err := authclient.New(
//		authclient.WithSecretKey([]byte(secret)),
//		authclient.WithAuthBaseURL("http://jarvis-auth.internal"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	mux.Handle("/admin/", client.RequireSuperuser(adminHandler))
//	mux.Handle("/internal/", client.RequireAppAuth(internalHandler))
//
// Adapters for Gin, Echo and gRPC live under framework/.
package authclient
