package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	authflow "github.com/goliatone/go-authflow"
)

// Store implements authflow.Store on top of Bun. The users table goes
// through go-repository-bun so identifier lookups (id or email) share one
// code path; the remaining tables use Bun directly.
type Store struct {
	db    *bun.DB
	users repository.Repository[*UserModel]
}

var _ authflow.Store = (*Store)(nil)

// NewStore creates a Store over the given database.
func NewStore(db *bun.DB) *Store {
	users := repository.NewRepository[*UserModel](db, repository.ModelHandlers[*UserModel]{
		NewRecord: func() *UserModel { return &UserModel{} },
		GetID: func(m *UserModel) uuid.UUID {
			if m == nil {
				return uuid.Nil
			}
			return m.ID
		},
		SetID: func(m *UserModel, id uuid.UUID) {
			if m != nil {
				m.ID = id
			}
		},
		GetIdentifier: func() string { return "email" },
	})

	return &Store{db: db, users: users}
}

// RegisterModels registers every model with Bun; call before creating
// tables.
func RegisterModels(db *bun.DB) {
	db.RegisterModel(
		(*UserModel)(nil),
		(*AccountModel)(nil),
		(*SessionModel)(nil),
		(*VerificationTokenModel)(nil),
	)
}

// GetUserByID implements authflow.Store.
func (s *Store) GetUserByID(ctx context.Context, id string) (*authflow.User, error) {
	model, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapNotFound(err)
	}
	return model.toUser(), nil
}

// GetUserByEmail implements authflow.Store.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*authflow.User, error) {
	model, err := s.users.GetByIdentifier(ctx, email)
	if err != nil {
		return nil, s.mapNotFound(err)
	}
	return model.toUser(), nil
}

// GetUserByProviderAccountID implements authflow.Store.
func (s *Store) GetUserByProviderAccountID(ctx context.Context, provider, providerAccountID string) (*authflow.User, error) {
	var model UserModel
	err := s.db.NewSelect().
		Model(&model).
		Join("JOIN accounts AS acc ON acc.user_id = usr.id").
		Where("acc.provider = ? AND acc.provider_account_id = ?", provider, providerAccountID).
		Scan(ctx)
	if err != nil {
		return nil, s.mapNotFound(err)
	}
	return model.toUser(), nil
}

// CreateUser implements authflow.Store.
func (s *Store) CreateUser(ctx context.Context, user *authflow.User) (*authflow.User, error) {
	model := fromUser(user)
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
	}
	model.CreatedAt = time.Now()
	model.UpdatedAt = model.CreatedAt

	created, err := s.users.Create(ctx, model)
	if err != nil {
		return nil, err
	}
	return created.toUser(), nil
}

// LinkAccount implements authflow.Store. The unique constraint on
// (provider, provider_account_id) rejects concurrent double-linking.
func (s *Store) LinkAccount(ctx context.Context, account *authflow.Account) error {
	model := fromAccount(account)
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
	}
	model.CreatedAt = time.Now()

	_, err := s.db.NewInsert().Model(model).Exec(ctx)
	return err
}

// CreateSession implements authflow.Store.
func (s *Store) CreateSession(ctx context.Context, session *authflow.SessionRecord) (*authflow.SessionRecord, error) {
	model := &SessionModel{
		Token:     session.Token,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: time.Now(),
	}

	if _, err := s.db.NewInsert().Model(model).Exec(ctx); err != nil {
		return nil, err
	}
	return model.toSession(), nil
}

// GetSession implements authflow.Store.
func (s *Store) GetSession(ctx context.Context, token string) (*authflow.SessionRecord, error) {
	var model SessionModel
	err := s.db.NewSelect().
		Model(&model).
		Where("session_token = ?", token).
		Scan(ctx)
	if err != nil {
		return nil, s.mapNotFound(err)
	}
	return model.toSession(), nil
}

// DeleteSession implements authflow.Store.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	res, err := s.db.NewDelete().
		Model((*SessionModel)(nil)).
		Where("session_token = ?", token).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return authflow.ErrNotFound
	}
	return nil
}

// CreateVerificationToken implements authflow.Store.
func (s *Store) CreateVerificationToken(ctx context.Context, token *authflow.VerificationToken) error {
	model := &VerificationTokenModel{
		Identifier: token.Identifier,
		TokenHash:  token.TokenHash,
		ExpiresAt:  token.ExpiresAt,
	}
	_, err := s.db.NewInsert().Model(model).Exec(ctx)
	return err
}

// UseVerificationToken implements authflow.Store. The single DELETE with
// RETURNING makes consumption atomic: a concurrent replay of the same
// token observes zero rows.
func (s *Store) UseVerificationToken(ctx context.Context, identifier, tokenHash string) (*authflow.VerificationToken, error) {
	model := &VerificationTokenModel{}
	_, err := s.db.NewDelete().
		Model(model).
		Where("identifier = ? AND token_hash = ?", identifier, tokenHash).
		Returning("*").
		Exec(ctx, model)
	if err != nil {
		return nil, s.mapNotFound(err)
	}
	return model.toVerificationToken(), nil
}

func (s *Store) mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
		return authflow.ErrNotFound
	}
	return err
}
