package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	authflow "github.com/goliatone/go-authflow"
)

// UserModel is the Bun model for users.
type UserModel struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid"`
	Name          string         `bun:"name"`
	Email         string         `bun:"email,notnull,unique"`
	Image         string         `bun:"image"`
	EmailVerified bool           `bun:"is_email_verified"`
	Metadata      map[string]any `bun:"metadata,type:jsonb"`
	CreatedAt     time.Time      `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt     time.Time      `bun:"updated_at,nullzero,default:current_timestamp"`
}

// AccountModel is the Bun model for provider linkages. The unique constraint
// on (provider, provider_account_id) backs the one-user-per-account
// invariant under concurrent linking.
type AccountModel struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`

	ID                uuid.UUID `bun:"id,pk,nullzero,type:uuid"`
	UserID            uuid.UUID `bun:"user_id,notnull,type:uuid"`
	Type              string    `bun:"type,notnull"`
	Provider          string    `bun:"provider,notnull,unique:provider_account"`
	ProviderAccountID string    `bun:"provider_account_id,notnull,unique:provider_account"`
	CreatedAt         time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// SessionModel is the Bun model for persisted sessions.
type SessionModel struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`

	Token     string    `bun:"session_token,pk"`
	UserID    uuid.UUID `bun:"user_id,notnull,type:uuid"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// VerificationTokenModel is the Bun model for single-use email tokens,
// keyed by (identifier, token_hash).
type VerificationTokenModel struct {
	bun.BaseModel `bun:"table:verification_tokens,alias:vrt"`

	Identifier string    `bun:"identifier,pk"`
	TokenHash  string    `bun:"token_hash,pk"`
	ExpiresAt  time.Time `bun:"expires_at,notnull"`
}

func (m *UserModel) toUser() *authflow.User {
	return &authflow.User{
		ID:            m.ID,
		Name:          m.Name,
		Email:         m.Email,
		Image:         m.Image,
		EmailVerified: m.EmailVerified,
		Metadata:      m.Metadata,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func fromUser(user *authflow.User) *UserModel {
	return &UserModel{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		Image:         user.Image,
		EmailVerified: user.EmailVerified,
		Metadata:      user.Metadata,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}

func (m *AccountModel) toAccount() *authflow.Account {
	return &authflow.Account{
		ID:                m.ID,
		UserID:            m.UserID,
		Type:              authflow.AccountType(m.Type),
		Provider:          m.Provider,
		ProviderAccountID: m.ProviderAccountID,
		CreatedAt:         m.CreatedAt,
	}
}

func fromAccount(account *authflow.Account) *AccountModel {
	return &AccountModel{
		ID:                account.ID,
		UserID:            account.UserID,
		Type:              string(account.Type),
		Provider:          account.Provider,
		ProviderAccountID: account.ProviderAccountID,
		CreatedAt:         account.CreatedAt,
	}
}

func (m *SessionModel) toSession() *authflow.SessionRecord {
	return &authflow.SessionRecord{
		Token:     m.Token,
		UserID:    m.UserID,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
	}
}

func (m *VerificationTokenModel) toVerificationToken() *authflow.VerificationToken {
	return &authflow.VerificationToken{
		Identifier: m.Identifier,
		TokenHash:  m.TokenHash,
		ExpiresAt:  m.ExpiresAt,
	}
}
