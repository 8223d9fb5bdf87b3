package authflow

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AccountType tags the identity flow an account came from.
type AccountType string

const (
	AccountTypeOAuth       AccountType = "oauth"
	AccountTypeEmail       AccountType = "email"
	AccountTypeCredentials AccountType = "credentials"
)

// User is the durable principal. Storage is owned by the Store adapter;
// this struct is the transport-neutral view of it.
type User struct {
	ID            uuid.UUID      `json:"id,omitempty"`
	Name          string         `json:"name,omitempty"`
	Email         string         `json:"email,omitempty"`
	Image         string         `json:"image,omitempty"`
	EmailVerified bool           `json:"email_verified,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at,omitempty"`
}

// Account represents one identity-provider linkage. Immutable once created
// except for provider token refresh fields, which are out of scope here.
type Account struct {
	ID                uuid.UUID   `json:"id,omitempty"`
	UserID            uuid.UUID   `json:"user_id,omitempty"`
	Type              AccountType `json:"type"`
	Provider          string      `json:"provider"`
	ProviderAccountID string      `json:"provider_account_id"`
	CreatedAt         time.Time   `json:"created_at,omitempty"`
}

// Profile carries normalized identity claims from a provider. Ephemeral,
// produced once per completion request.
type Profile struct {
	ProviderAccountID string
	Name              string
	Email             string
	Image             string
	EmailVerified     bool
	Raw               map[string]any
}

// DisplayName falls back to the email local part when the provider did not
// supply a name.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.Name != "" {
		return p.Name
	}
	if p.Email != "" {
		return strings.Split(p.Email, "@")[0]
	}
	return ""
}

// SessionRecord is a persisted session referenced by an opaque token.
type SessionRecord struct {
	Token     string    `json:"session_token"`
	UserID    uuid.UUID `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Expired reports whether the record is past its expiry.
func (s *SessionRecord) Expired(now time.Time) bool {
	return s == nil || !s.ExpiresAt.After(now)
}

// VerificationToken is the single-use email sign-in token. Only the hash is
// stored; the raw token travels in the emailed link.
type VerificationToken struct {
	Identifier string    `json:"identifier"`
	TokenHash  string    `json:"-"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the token is past its expiry.
func (v *VerificationToken) Expired(now time.Time) bool {
	return v == nil || !v.ExpiresAt.After(now)
}

// ProviderToken is the provider token set returned by an exchange.
type ProviderToken struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	ExpiresAt    time.Time
	Scopes       []string
	Raw          map[string]any
}
