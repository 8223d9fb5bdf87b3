package authflow

import (
	"context"
	"net/http"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSessionGuardAllowsValidSession(t *testing.T) {
	store := newStubStore()
	o := newTestOrchestrator(t, store, testConfig(),
		WithProvider(oauthProvider(githubExchanger())),
	)

	out := o.Complete(context.Background(), oauthRequest())
	require.NotNil(t, out.Cookie)

	guard := SessionGuard(o, SessionGuardConfig{})

	nextCalled := false
	handler := guard(func(ctx router.Context) error {
		nextCalled = true
		return nil
	})

	ctx := router.NewMockContext()
	ctx.CookiesM["authflow.session"] = out.Cookie.Value
	ctx.On("Context").Return(context.Background())
	ctx.On("Locals", "user", mock.AnythingOfType("*authflow.User")).Return(nil)
	ctx.On("SetContext", mock.Anything).Return()

	require.NoError(t, handler(ctx))
	assert.True(t, nextCalled)
}

func TestSessionGuardRejectsMissingSession(t *testing.T) {
	o := newTestOrchestrator(t, newStubStore(), testConfig())
	guard := SessionGuard(o, SessionGuardConfig{})

	handler := guard(func(ctx router.Context) error {
		t.Fatal("next must not run without a session")
		return nil
	})

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())
	ctx.On("JSON", http.StatusUnauthorized, mock.Anything).Return(nil)

	require.NoError(t, handler(ctx))
}

func TestSessionGuardOptionalLetsRequestThrough(t *testing.T) {
	o := newTestOrchestrator(t, newStubStore(), testConfig())
	guard := SessionGuard(o, SessionGuardConfig{Optional: true})

	nextCalled := false
	handler := guard(func(ctx router.Context) error {
		nextCalled = true
		return nil
	})

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())

	require.NoError(t, handler(ctx))
	assert.True(t, nextCalled)
}
