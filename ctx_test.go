package authflow_test

import (
	"context"
	"testing"

	authflow "github.com/goliatone/go-authflow"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserContextRoundTrip(t *testing.T) {
	user := &authflow.User{ID: uuid.New(), Email: "person@example.com"}

	ctx := authflow.WithContext(context.Background(), user)
	got, ok := authflow.FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, user, got)

	_, ok = authflow.FromContext(context.Background())
	assert.False(t, ok)
}

func TestClaimsContextRoundTrip(t *testing.T) {
	claims := (&authflow.SessionClaims{Email: "person@example.com"}).
		SetMetadata("role", "member")

	ctx := authflow.WithClaimsContext(context.Background(), claims)
	got, ok := authflow.GetClaims(ctx)
	require.True(t, ok)
	assert.Equal(t, "person@example.com", got.Email)
	assert.Equal(t, "member", got.Metadata["role"])

	_, ok = authflow.GetClaims(context.Background())
	assert.False(t, ok)
}
