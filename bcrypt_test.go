package authflow_test

import (
	"context"
	"errors"
	"testing"

	authflow "github.com/goliatone/go-authflow"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
			wantErr:  false,
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true, // bcrypt can hash empty strings!
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := authflow.HashPassword(tt.password)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, hash)

			err = authflow.ComparePasswordAndHash(tt.password, hash)
			assert.NoError(t, err)
		})
	}
}

func TestComparePasswordAndHash(t *testing.T) {
	password := "testPassword123!"
	hash, err := authflow.HashPassword(password)
	assert.NoError(t, err)

	assert.NoError(t, authflow.ComparePasswordAndHash(password, hash))

	err = authflow.ComparePasswordAndHash("wrongPassword", hash)
	assert.ErrorIs(t, err, authflow.ErrMismatchedHashAndPassword)

	err = authflow.ComparePasswordAndHash(password, "not-a-bcrypt-hash")
	assert.Error(t, err)
}

func TestBcryptAuthorizer(t *testing.T) {
	user := &authflow.User{ID: uuid.New(), Email: "person@example.com"}
	hash, err := authflow.HashPassword("secret")
	require.NoError(t, err)

	lookup := func(ctx context.Context, identifier string) (*authflow.User, string, error) {
		if identifier == "person@example.com" {
			return user, hash, nil
		}
		return nil, "", authflow.ErrNotFound
	}

	authorizer := authflow.NewBcryptAuthorizer(lookup)

	t.Run("valid credentials", func(t *testing.T) {
		got, err := authorizer.Authorize(context.Background(), map[string]string{
			"identifier": "person@example.com",
			"password":   "secret",
		})
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("wrong password is a plain rejection", func(t *testing.T) {
		got, err := authorizer.Authorize(context.Background(), map[string]string{
			"identifier": "person@example.com",
			"password":   "wrong",
		})
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("unknown identifier is a plain rejection", func(t *testing.T) {
		got, err := authorizer.Authorize(context.Background(), map[string]string{
			"identifier": "ghost@example.com",
			"password":   "secret",
		})
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("missing fields are a plain rejection", func(t *testing.T) {
		got, err := authorizer.Authorize(context.Background(), map[string]string{})
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("lookup fault propagates", func(t *testing.T) {
		faulting := authflow.NewBcryptAuthorizer(func(ctx context.Context, identifier string) (*authflow.User, string, error) {
			return nil, "", errors.New("db down")
		})
		_, err := faulting.Authorize(context.Background(), map[string]string{
			"identifier": "person@example.com",
			"password":   "secret",
		})
		require.Error(t, err)
	})
}
