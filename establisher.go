package authflow

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SessionArtifact is the committed session: the value that goes into the
// transport cookie and its absolute expiry.
type SessionArtifact struct {
	Token     string
	ExpiresAt time.Time
	Mode      SessionMode
}

type sessionEstablisher struct {
	codec  TokenCodec
	store  Store
	mode   SessionMode
	maxAge time.Duration
	logger Logger
}

// establish produces the session artifact for the materialized user. In
// stateless mode claims must already be shaped; the codec stamps expiry.
func (e *sessionEstablisher) establish(ctx context.Context, user *User, claims *SessionClaims) (*SessionArtifact, error) {
	switch e.mode {
	case SessionPersisted:
		record := &SessionRecord{
			Token:     uuid.NewString(),
			UserID:    user.ID,
			ExpiresAt: time.Now().Add(e.maxAge),
		}
		created, err := e.store.CreateSession(ctx, record)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryOperation, "failed to create session record")
		}
		return &SessionArtifact{
			Token:     created.Token,
			ExpiresAt: created.ExpiresAt,
			Mode:      SessionPersisted,
		}, nil
	default:
		token, err := e.codec.Encode(claims, e.maxAge)
		if err != nil {
			return nil, err
		}
		return &SessionArtifact{
			Token:     token,
			ExpiresAt: claims.Expires(),
			Mode:      SessionStateless,
		}, nil
	}
}
