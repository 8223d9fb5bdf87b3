package authflow

import (
	"context"
	"sync"
)

// stubStore is an in-memory Store for flow tests. Error fields force
// failures on specific operations.
type stubStore struct {
	mu sync.Mutex

	usersByID    map[string]*User
	usersByEmail map[string]*User
	accountOwner map[string]*User
	sessions     map[string]*SessionRecord
	tokens       map[string]*VerificationToken

	created []*User
	linked  []*Account

	userLookupErr    error
	createUserErr    error
	linkErr          error
	createSessionErr error
}

func newStubStore() *stubStore {
	return &stubStore{
		usersByID:    map[string]*User{},
		usersByEmail: map[string]*User{},
		accountOwner: map[string]*User{},
		sessions:     map[string]*SessionRecord{},
		tokens:       map[string]*VerificationToken{},
	}
}

func (s *stubStore) addUser(user *User) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usersByID[user.ID.String()] = user
	if user.Email != "" {
		s.usersByEmail[user.Email] = user
	}
	return user
}

func (s *stubStore) addAccountOwner(provider, providerAccountID string, user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accountOwner[provider+"|"+providerAccountID] = user
}

func (s *stubStore) addVerification(vt *VerificationToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[vt.Identifier+"|"+vt.TokenHash] = vt
}

func (s *stubStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userLookupErr != nil {
		return nil, s.userLookupErr
	}
	user, ok := s.usersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *stubStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userLookupErr != nil {
		return nil, s.userLookupErr
	}
	user, ok := s.usersByEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *stubStore) GetUserByProviderAccountID(ctx context.Context, provider, providerAccountID string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.accountOwner[provider+"|"+providerAccountID]
	if !ok {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *stubStore) CreateUser(ctx context.Context, user *User) (*User, error) {
	s.mu.Lock()
	if s.createUserErr != nil {
		defer s.mu.Unlock()
		return nil, s.createUserErr
	}
	s.created = append(s.created, user)
	s.mu.Unlock()
	return s.addUser(user), nil
}

func (s *stubStore) LinkAccount(ctx context.Context, account *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.linkErr != nil {
		return s.linkErr
	}
	s.linked = append(s.linked, account)
	if user, ok := s.usersByID[account.UserID.String()]; ok {
		s.accountOwner[account.Provider+"|"+account.ProviderAccountID] = user
	}
	return nil
}

func (s *stubStore) CreateSession(ctx context.Context, session *SessionRecord) (*SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createSessionErr != nil {
		return nil, s.createSessionErr
	}
	s.sessions[session.Token] = session
	return session, nil
}

func (s *stubStore) GetSession(ctx context.Context, token string) (*SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.sessions[token]
	if !ok {
		return nil, ErrNotFound
	}
	return record, nil
}

func (s *stubStore) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[token]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, token)
	return nil
}

func (s *stubStore) CreateVerificationToken(ctx context.Context, token *VerificationToken) error {
	s.addVerification(token)
	return nil
}

func (s *stubStore) UseVerificationToken(ctx context.Context, identifier, tokenHash string) (*VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := identifier + "|" + tokenHash
	vt, ok := s.tokens[key]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.tokens, key)
	return vt, nil
}

// stubExchanger is a canned OAuthExchanger.
type stubExchanger struct {
	token   *ProviderToken
	profile *Profile

	exchangeErr error
	profileErr  error

	lastCode  string
	lastState string
}

func (e *stubExchanger) Exchange(ctx context.Context, code string, opts ...ExchangeOption) (*ProviderToken, error) {
	e.lastCode = code
	cfg := ApplyExchangeOptions(opts...)
	e.lastState = cfg.StateToken
	if e.exchangeErr != nil {
		return nil, e.exchangeErr
	}
	if e.token != nil {
		return e.token, nil
	}
	return &ProviderToken{AccessToken: "access-token"}, nil
}

func (e *stubExchanger) Profile(ctx context.Context, token *ProviderToken) (*Profile, error) {
	if e.profileErr != nil {
		return nil, e.profileErr
	}
	return e.profile, nil
}

// captureListener records delivered events; Close the dispatcher before
// reading.
type captureListener struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (l *captureListener) Handle(ctx context.Context, event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return l.err
}

func (l *captureListener) all() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

func (l *captureListener) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Kind)
	}
	return out
}

func testConfig() Config {
	return Config{
		BaseURL:       "https://app.example.com",
		SigningKey:    []byte("0123456789abcdef0123456789abcdef"),
		EncryptionKey: []byte("fedcba9876543210fedcba9876543210"),
	}
}
