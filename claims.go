package authflow

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the stateless session claim set: registered JWT claims
// plus the profile defaults and whatever the claims policy adds.
type SessionClaims struct {
	jwt.RegisteredClaims
	Name     string         `json:"name,omitempty"`
	Email    string         `json:"email,omitempty"`
	Picture  string         `json:"picture,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// UserID returns the subject claim.
func (c *SessionClaims) UserID() string {
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time, zero when unset.
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// Issued returns the issued-at time, zero when unset.
func (c *SessionClaims) Issued() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// SetMetadata appends a custom claim, allocating the map on first use.
func (c *SessionClaims) SetMetadata(key string, val any) *SessionClaims {
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	c.Metadata[key] = val
	return c
}

// defaultSessionClaims builds the claim set every stateless session starts
// from: subject, name, email and picture taken from the materialized user.
func defaultSessionClaims(user *User, issuer string) *SessionClaims {
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:  issuer,
			Subject: user.ID.String(),
		},
		Name:    user.Name,
		Email:   user.Email,
		Picture: user.Image,
	}
	return claims
}
