package authflow

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// resolution is the normalized output of the identity step. user is set when
// the flow already pins a durable user: an existing email-flow user or the
// authorizer's return value.
type resolution struct {
	profile *Profile
	account *Account
	user    *User
	token   *ProviderToken
}

type identityResolver struct {
	store  Store
	logger Logger
}

func (r *identityResolver) resolve(ctx context.Context, provider Provider, req CompletionRequest) (*resolution, error) {
	switch provider.Kind {
	case ProviderOAuth:
		return r.resolveOAuth(ctx, provider, req)
	case ProviderEmail:
		return r.resolveEmail(ctx, provider, req)
	case ProviderCredentials:
		return r.resolveCredentials(ctx, provider, req)
	default:
		return nil, errors.Wrap(ErrMisconfigured, ErrMisconfigured.Category, "unknown provider kind").
			WithTextCode(ErrMisconfigured.TextCode).
			WithMetadata(map[string]any{"provider": provider.ID, "kind": string(provider.Kind)})
	}
}

func (r *identityResolver) resolveOAuth(ctx context.Context, provider Provider, req CompletionRequest) (*resolution, error) {
	if provider.Exchanger == nil {
		return nil, ErrMisconfigured
	}

	token, err := provider.Exchanger.Exchange(ctx, req.Query["code"], WithStateToken(req.CSRFToken))
	if err != nil {
		r.logger.Error("oauth exchange failed for provider %s: %v", provider.ID, err)
		return nil, wrapProviderError(ErrProviderFailure, provider.ID, "exchange", err)
	}

	profile, err := provider.Exchanger.Profile(ctx, token)
	if err != nil {
		r.logger.Error("oauth profile fetch failed for provider %s: %v", provider.ID, err)
		return nil, wrapProviderError(ErrProviderFailure, provider.ID, "user_info", err)
	}
	if profile == nil {
		// Cancelled consent and a silent provider look the same from here.
		return nil, ErrNoProfile
	}

	return &resolution{
		profile: profile,
		account: &Account{
			Type:              AccountTypeOAuth,
			Provider:          provider.ID,
			ProviderAccountID: profile.ProviderAccountID,
		},
		token: token,
	}, nil
}

func (r *identityResolver) resolveEmail(ctx context.Context, provider Provider, req CompletionRequest) (*resolution, error) {
	email := req.Query["email"]
	rawToken := req.Query["token"]
	if email == "" || rawToken == "" {
		return nil, ErrVerificationInvalid
	}

	// The token is consumed here, before anything downstream can fail, so a
	// replay of the same request can never pass verification again.
	vt, err := r.store.UseVerificationToken(ctx, email, HashVerificationToken(rawToken))
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrVerificationInvalid
		}
		return nil, errors.Wrap(err, errors.CategoryOperation, "verification token lookup failed")
	}
	if vt.Expired(time.Now()) {
		return nil, ErrVerificationInvalid
	}

	res := &resolution{
		profile: &Profile{Email: email, EmailVerified: true},
		account: &Account{
			Type:              AccountTypeEmail,
			Provider:          provider.ID,
			ProviderAccountID: email,
		},
	}

	user, err := r.store.GetUserByEmail(ctx, email)
	if err != nil && !IsNotFound(err) {
		return nil, errors.Wrap(err, errors.CategoryOperation, "user lookup failed")
	}
	if user != nil {
		res.user = user
		res.profile.Name = user.Name
		res.profile.Image = user.Image
	}

	return res, nil
}

func (r *identityResolver) resolveCredentials(ctx context.Context, provider Provider, req CompletionRequest) (*resolution, error) {
	if provider.Authorizer == nil {
		return nil, ErrMisconfigured
	}

	user, err := provider.Authorizer.Authorize(ctx, req.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryAuth, "credentials authorize faulted").
			WithTextCode(TextCodeResolutionFault)
	}
	if user == nil {
		return nil, ErrCredentialsRejected
	}

	return &resolution{
		profile: &Profile{
			ProviderAccountID: user.ID.String(),
			Name:              user.Name,
			Email:             user.Email,
			Image:             user.Image,
		},
		account: &Account{
			Type:              AccountTypeCredentials,
			Provider:          provider.ID,
			ProviderAccountID: user.ID.String(),
		},
		user: user,
	}, nil
}
