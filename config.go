package authflow

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
)

// SessionMode selects how an established session is represented. Exactly one
// mode is active per deployment; flows never mix them.
type SessionMode string

const (
	// SessionStateless seals the whole session into a client-held token.
	SessionStateless SessionMode = "stateless"
	// SessionPersisted stores a session record referenced by an opaque token.
	SessionPersisted SessionMode = "persisted"
)

// ProviderKind is the closed set of identity flows.
type ProviderKind string

const (
	ProviderOAuth       ProviderKind = "oauth"
	ProviderEmail       ProviderKind = "email"
	ProviderCredentials ProviderKind = "credentials"
)

// Provider binds a provider id to its flow kind and collaborator.
type Provider struct {
	ID   string
	Kind ProviderKind

	// Exchanger is required for ProviderOAuth.
	Exchanger OAuthExchanger
	// Authorizer is required for ProviderCredentials.
	Authorizer CredentialsAuthorizer
}

// Config is the immutable orchestrator configuration. It is passed by value
// at construction; nothing mutates it afterwards.
type Config struct {
	// BaseURL is the absolute origin of the deployment, e.g. "https://app.example.com".
	BaseURL string

	// SignInURL is the neutral re-entry page. Path or absolute URL.
	SignInURL string

	// ErrorURL is the error page; terminal error codes land on it as
	// ?error=<code>. Path or absolute URL.
	ErrorURL string

	// NewUserURL, when set, is where first-time users land after sign-in.
	NewUserURL string

	CookieName     string
	CookieSecure   bool
	CookieSameSite string

	SessionMode   SessionMode
	SessionMaxAge time.Duration

	// VerificationMaxAge bounds emailed sign-in tokens.
	VerificationMaxAge time.Duration

	// SigningKey signs the stateless session claim set (HS256).
	SigningKey []byte
	// EncryptionKey seals the signed claim set (AES-256-GCM). 32 bytes.
	EncryptionKey []byte
	// HMACKey authenticates the sealed envelope. Defaults to SigningKey.
	HMACKey []byte

	// DeterministicIDs mints user ids from the email via hashid instead of
	// random UUIDs.
	DeterministicIDs bool
}

func (c Config) withDefaults() Config {
	if c.SignInURL == "" {
		c.SignInURL = "/signin"
	}
	if c.ErrorURL == "" {
		c.ErrorURL = "/error"
	}
	if c.CookieName == "" {
		c.CookieName = "authflow.session"
	}
	if c.CookieSameSite == "" {
		c.CookieSameSite = "Lax"
	}
	if c.SessionMode == "" {
		c.SessionMode = SessionStateless
	}
	if c.SessionMaxAge == 0 {
		c.SessionMaxAge = 30 * 24 * time.Hour
	}
	if c.VerificationMaxAge == 0 {
		c.VerificationMaxAge = 24 * time.Hour
	}
	if len(c.HMACKey) == 0 {
		c.HMACKey = c.SigningKey
	}
	return c
}

// Validate checks the configuration. Key material is only required in
// stateless mode.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.SessionMode, validation.In(SessionStateless, SessionPersisted)),
		validation.Field(&c.CookieSameSite, validation.In("Lax", "Strict", "None")),
	)
	if err != nil {
		return err
	}

	if c.SessionMode == SessionStateless {
		if len(c.SigningKey) < 32 {
			return errors.New("stateless sessions need a signing key of at least 32 bytes", errors.CategoryValidation)
		}
		if len(c.EncryptionKey) != 32 {
			return errors.New("stateless sessions need a 32 byte encryption key", errors.CategoryValidation)
		}
	}

	return nil
}
