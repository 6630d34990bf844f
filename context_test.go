package authclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarvis-home/go-auth-client/headers"
	"github.com/jarvis-home/go-auth-client/validator"
)

func TestSuperuserContext(t *testing.T) {
	user := &validator.SuperuserUser{UserID: 42, Email: "ada@example.com"}

	ctx := ContextWithSuperuser(context.Background(), user)

	got, ok := SuperuserFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, user, got)

	_, ok = SuperuserFromContext(context.Background())
	assert.False(t, ok)
}

func TestAppContext(t *testing.T) {
	app := &AppAuthResult{AppID: "thermostat", AuthType: AuthTypeAppCredentials}

	ctx := ContextWithApp(context.Background(), app)

	got, ok := AppFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, app, got)

	_, ok = AppFromContext(context.Background())
	assert.False(t, ok)
}

func TestRequestContextContext(t *testing.T) {
	userID := int64(7)
	rc := headers.RequestContext{
		HouseholdID:        "house-1",
		NodeID:             "node-3",
		UserID:             &userID,
		HouseholdMemberIDs: []int64{7, 8},
	}

	ctx := ContextWithRequestContext(context.Background(), rc)

	got, ok := RequestContextFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, rc, got)

	_, ok = RequestContextFromContext(context.Background())
	assert.False(t, ok)
}
