package authflow

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// materialized is the outcome of user materialization.
type materialized struct {
	user      *User
	isNewUser bool
	linked    bool
}

// materializer owns the policy of locating, creating and linking the durable
// user for a resolved identity. Persistence stays in the Store; uniqueness
// under concurrent linkage is the Store's constraint to enforce.
type materializer struct {
	store            Store
	logger           Logger
	deterministicIDs bool
}

// materialize resolves the durable user for the resolved identity.
// presented is the user bound to a presented session cookie, when any.
func (m *materializer) materialize(ctx context.Context, presented *User, res *resolution) (*materialized, error) {
	account := res.account

	// Credentials flows carry no adapter-backed account: the authorizer
	// already produced the durable user.
	if account.Type == AccountTypeCredentials {
		return &materialized{user: res.user}, nil
	}

	owner, err := m.store.GetUserByProviderAccountID(ctx, account.Provider, account.ProviderAccountID)
	if err != nil && !IsNotFound(err) {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to find linked account")
	}
	if owner != nil {
		// Already linked; the account's owner wins even over a presented
		// session for a different user.
		return &materialized{user: owner}, nil
	}

	user := presented
	if user == nil {
		user = res.user
	}

	if user == nil && res.profile.Email != "" {
		existing, err := m.store.GetUserByEmail(ctx, res.profile.Email)
		if err != nil && !IsNotFound(err) {
			return nil, errors.Wrap(err, errors.CategoryOperation, "failed to find user by email")
		}
		if existing != nil {
			if account.Type == AccountTypeOAuth {
				// The email belongs to a user whose accounts were created
				// under a different provider. Linking silently would hand
				// the account to whoever controls this provider identity.
				return nil, ErrAccountNotLinked
			}
			user = existing
		}
	}

	isNew := false
	if user == nil {
		created, err := m.createUser(ctx, res.profile)
		if err != nil {
			return nil, wrapError(ErrCreateUserFailed, err)
		}
		user = created
		isNew = true
	}

	link := *account
	link.UserID = user.ID
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	if err := m.store.LinkAccount(ctx, &link); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to link account")
	}

	return &materialized{user: user, isNewUser: isNew, linked: true}, nil
}

func (m *materializer) createUser(ctx context.Context, profile *Profile) (*User, error) {
	user := &User{
		Name:          profile.DisplayName(),
		Email:         profile.Email,
		Image:         profile.Image,
		EmailVerified: profile.EmailVerified,
	}

	if m.deterministicIDs && profile.Email != "" {
		if id, err := hashid.NewUUID(profile.Email); err == nil {
			user.ID = id
		}
	}

	return m.store.CreateUser(ctx, user)
}
