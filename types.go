package authflow

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Store is the persistence collaborator. Implementations own their own
// consistency guarantees; in particular the unique constraint on
// (provider, provider_account_id) that backs account linkage, and the
// atomic delete-and-return semantics of UseVerificationToken.
type Store interface {
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByProviderAccountID(ctx context.Context, provider, providerAccountID string) (*User, error)
	CreateUser(ctx context.Context, user *User) (*User, error)
	LinkAccount(ctx context.Context, account *Account) error

	CreateSession(ctx context.Context, session *SessionRecord) (*SessionRecord, error)
	GetSession(ctx context.Context, token string) (*SessionRecord, error)
	DeleteSession(ctx context.Context, token string) error

	CreateVerificationToken(ctx context.Context, token *VerificationToken) error
	// UseVerificationToken deletes and returns the verification token for
	// (identifier, tokenHash). The delete succeeds at most once: a replayed
	// request observes ErrNotFound regardless of the first request's
	// downstream outcome.
	UseVerificationToken(ctx context.Context, identifier, tokenHash string) (*VerificationToken, error)
}

// OAuthExchanger performs the wire-level authorization-code exchange and
// profile fetch for one provider. State/CSRF binding is verified by the
// exchanger; the orchestrator only passes the token through.
type OAuthExchanger interface {
	Exchange(ctx context.Context, code string, opts ...ExchangeOption) (*ProviderToken, error)
	Profile(ctx context.Context, token *ProviderToken) (*Profile, error)
}

// CredentialsAuthorizer verifies submitted credentials and returns the
// authenticated user. A (nil, nil) return means the credentials were
// rejected without a fault.
type CredentialsAuthorizer interface {
	Authorize(ctx context.Context, credentials map[string]string) (*User, error)
}

// CredentialsAuthorizerFunc adapts a function to CredentialsAuthorizer.
type CredentialsAuthorizerFunc func(ctx context.Context, credentials map[string]string) (*User, error)

func (f CredentialsAuthorizerFunc) Authorize(ctx context.Context, credentials map[string]string) (*User, error) {
	if f == nil {
		return nil, nil
	}
	return f(ctx, credentials)
}

// SignInInput is handed to the sign-in policy. User is the durable user when
// one is already known (presented session or email flow); Profile carries the
// provider claims either way.
type SignInInput struct {
	User    *User
	Profile *Profile
	Account *Account
	Token   *ProviderToken
}

// PolicyDecision is the sign-in policy result. RedirectTo short-circuits the
// flow to an arbitrary destination and takes precedence over Allow.
type PolicyDecision struct {
	Allow      bool
	RedirectTo string
}

// SignInPolicy decides whether a resolved identity may sign in. A returned
// error surfaces its message, urlencoded, as the terminal error code.
type SignInPolicy func(ctx context.Context, input SignInInput) (PolicyDecision, error)

// ClaimsInput is handed to the claims policy in stateless-session mode.
type ClaimsInput struct {
	Claims    *SessionClaims
	User      *User
	Account   *Account
	Profile   *Profile
	IsNewUser bool
}

// ClaimsPolicy reshapes the default claim set before it is sealed. Returning
// nil keeps the defaults.
type ClaimsPolicy func(ctx context.Context, input ClaimsInput) (*SessionClaims, error)

// ExchangeOption configures the token exchange.
type ExchangeOption func(*exchangeConfig)

// WithCodeVerifier sets the PKCE code verifier for token exchange.
func WithCodeVerifier(verifier string) ExchangeOption {
	return func(c *exchangeConfig) {
		c.codeVerifier = verifier
	}
}

// WithStateToken passes the CSRF state token through to exchangers that
// verify the binding themselves.
func WithStateToken(state string) ExchangeOption {
	return func(c *exchangeConfig) {
		c.stateToken = state
	}
}

type exchangeConfig struct {
	codeVerifier string
	stateToken   string
}

// ExchangeConfig represents applied exchange options in a provider-friendly form.
type ExchangeConfig struct {
	CodeVerifier string
	StateToken   string
}

// ApplyExchangeOptions applies ExchangeOption values and returns a normalized config.
func ApplyExchangeOptions(opts ...ExchangeOption) ExchangeConfig {
	cfg := exchangeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return ExchangeConfig{
		CodeVerifier: cfg.codeVerifier,
		StateToken:   cfg.stateToken,
	}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHFLOW "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHFLOW "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHFLOW "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHFLOW "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
