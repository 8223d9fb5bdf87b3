package authflow

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
)

// Terminal error codes carried on the error page as ?error=<code>.
const (
	ErrorCodeConfiguration         = "Configuration"
	ErrorCodeAccessDenied          = "AccessDenied"
	ErrorCodeVerification          = "Verification"
	ErrorCodeOAuthAccountNotLinked = "OAuthAccountNotLinked"
	ErrorCodeOAuthCreateAccount    = "OAuthCreateAccount"
	ErrorCodeEmailCreateAccount    = "EmailCreateAccount"
	ErrorCodeCredentialsSignin     = "CredentialsSignin"
	ErrorCodeCallback              = "Callback"
)

// CompletionRequest is the transport-neutral completion of a sign-in attempt.
// CallbackURL must arrive already validated as same-origin, or empty.
type CompletionRequest struct {
	ProviderID   string
	Method       string
	Query        map[string]string
	Body         map[string]string
	CallbackURL  string
	SessionToken string
	CSRFToken    string
}

// Validate checks the request shape before the flow starts.
func (r CompletionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ProviderID, validation.Required),
		validation.Field(&r.Method, validation.Required, validation.In(http.MethodGet, http.MethodPost)),
	)
}

// CookieInstruction tells the transport layer what to set. Cookie transport
// itself is not owned here.
type CookieInstruction struct {
	Name     string
	Value    string
	Expires  time.Time
	Path     string
	HTTPOnly bool
	Secure   bool
	SameSite string
}

// Outcome is the single terminal action of a completion: a redirect, plus an
// optional cookie-set instruction, or a direct rejection for unsupported
// provider/method combinations.
type Outcome struct {
	Status      int
	RedirectURL string
	Cookie      *CookieInstruction
	IsNewUser   bool

	Rejected     bool
	RejectStatus int
	RejectReason string
}

// Orchestrator drives a completion request through resolution,
// authorization, materialization and session establishment to exactly one
// terminal outcome. Safe for concurrent use; every invocation is
// independent.
type Orchestrator struct {
	store     Store
	codec     TokenCodec
	config    Config
	providers map[string]Provider

	signInPolicy     SignInPolicy
	claimsPolicy     ClaimsPolicy
	dispatcher       *Dispatcher
	ownsDispatch     bool
	pendingListeners []EventListener
	logger           Logger

	resolver     *identityResolver
	materializer *materializer
	establisher  *sessionEstablisher
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a custom logger.
func WithLogger(logger Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithProvider registers a provider.
func WithProvider(p Provider) Option {
	return func(o *Orchestrator) {
		if p.ID != "" {
			o.providers[p.ID] = p
		}
	}
}

// WithSignInPolicy sets the pluggable sign-in decision.
func WithSignInPolicy(policy SignInPolicy) Option {
	return func(o *Orchestrator) {
		o.signInPolicy = policy
	}
}

// WithClaimsPolicy sets the pluggable claims-shaping decision.
func WithClaimsPolicy(policy ClaimsPolicy) Option {
	return func(o *Orchestrator) {
		o.claimsPolicy = policy
	}
}

// WithListeners registers lifecycle event listeners on the internal
// dispatcher. Ignored when WithDispatcher supplies an external one.
func WithListeners(listeners ...EventListener) Option {
	return func(o *Orchestrator) {
		o.pendingListeners = append(o.pendingListeners, listeners...)
	}
}

// WithDispatcher supplies an externally owned event dispatcher. The caller
// is responsible for closing it.
func WithDispatcher(d *Dispatcher) Option {
	return func(o *Orchestrator) {
		o.dispatcher = d
		o.ownsDispatch = false
	}
}

// New creates an Orchestrator. The config is validated and then never
// mutated.
func New(store Store, codec TokenCodec, cfg Config, opts ...Option) (*Orchestrator, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid orchestrator config")
	}

	o := &Orchestrator{
		store:     store,
		codec:     codec,
		config:    cfg,
		providers: map[string]Provider{},
		logger:    defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	if o.dispatcher == nil {
		o.dispatcher = NewDispatcher(o.logger, o.pendingListeners...)
		o.ownsDispatch = true
	}
	o.pendingListeners = nil

	o.resolver = &identityResolver{store: store, logger: o.logger}
	o.materializer = &materializer{
		store:            store,
		logger:           o.logger,
		deterministicIDs: cfg.DeterministicIDs,
	}
	o.establisher = &sessionEstablisher{
		codec:  codec,
		store:  store,
		mode:   cfg.SessionMode,
		maxAge: cfg.SessionMaxAge,
		logger: o.logger,
	}

	return o, nil
}

// Close releases the internal dispatcher, draining pending events.
// Dispatchers supplied via WithDispatcher stay open.
func (o *Orchestrator) Close() {
	if o.ownsDispatch && o.dispatcher != nil {
		o.dispatcher.Close()
	}
}

// Complete runs the callback state machine to its terminal outcome. It never
// returns an error: every failure maps to a redirect or a direct rejection.
func (o *Orchestrator) Complete(ctx context.Context, req CompletionRequest) Outcome {
	if err := req.Validate(); err != nil {
		return o.reject(http.StatusBadRequest, "invalid completion request")
	}

	provider, ok := o.providers[req.ProviderID]
	if !ok {
		return o.reject(http.StatusBadRequest, "unknown provider: "+req.ProviderID)
	}

	if !methodAllowed(provider.Kind, req.Method) {
		return o.reject(http.StatusMethodNotAllowed, "method not allowed for provider")
	}

	// Persisted sessions have no durable principal to bind before
	// authorization completes, so credentials flows require stateless mode.
	if provider.Kind == ProviderCredentials && o.config.SessionMode != SessionStateless {
		return o.errorOutcome(ErrorCodeConfiguration)
	}

	res, err := o.resolver.resolve(ctx, provider, req)
	if err != nil {
		return o.resolutionOutcome(provider, err)
	}

	presented := o.presentedUser(ctx, req.SessionToken)

	known := presented
	if known == nil {
		known = res.user
	}

	decision, err := o.decideSignIn(ctx, SignInInput{
		User:    known,
		Profile: res.profile,
		Account: res.account,
		Token:   res.token,
	})
	if err != nil {
		// Policy faulted; its message becomes the outward error code,
		// urlencoded by the redirect construction.
		return o.errorOutcome(err.Error())
	}
	if decision.RedirectTo != "" {
		return Outcome{Status: http.StatusFound, RedirectURL: decision.RedirectTo}
	}
	if !decision.Allow {
		return o.errorOutcome(ErrorCodeAccessDenied)
	}

	mat, err := o.materializer.materialize(ctx, presented, res)
	if err != nil {
		return o.materializeOutcome(provider, err)
	}

	var claims *SessionClaims
	if o.config.SessionMode == SessionStateless {
		claims = defaultSessionClaims(mat.user, o.config.BaseURL)
		if o.claimsPolicy != nil {
			shaped, err := o.claimsPolicy(ctx, ClaimsInput{
				Claims:    claims,
				User:      mat.user,
				Account:   res.account,
				Profile:   res.profile,
				IsNewUser: mat.isNewUser,
			})
			if err != nil {
				o.logger.Error("claims policy failed for provider %s: %v", provider.ID, err)
				return o.errorOutcome(ErrorCodeCallback)
			}
			if shaped != nil {
				claims = shaped
			}
		}
	}

	artifact, err := o.establisher.establish(ctx, mat.user, claims)
	if err != nil {
		o.logger.Error("session establishment failed for provider %s: %v", provider.ID, err)
		return o.errorOutcome(ErrorCodeCallback)
	}

	o.dispatchLifecycle(provider, res, mat)

	return Outcome{
		Status:      http.StatusFound,
		RedirectURL: o.successURL(req, mat.isNewUser),
		Cookie:      o.cookieFor(artifact),
		IsNewUser:   mat.isNewUser,
	}
}

// SessionFromToken opens a stateless session token, honoring expiry.
func (o *Orchestrator) SessionFromToken(token string) (*SessionClaims, error) {
	if o.codec == nil {
		return nil, ErrTokenInvalid
	}
	return o.codec.Decode(token)
}

// SessionUser resolves the user behind a presented session token in either
// session mode.
func (o *Orchestrator) SessionUser(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	if o.config.SessionMode == SessionPersisted {
		record, err := o.store.GetSession(ctx, token)
		if err != nil {
			return nil, err
		}
		if record.Expired(time.Now()) {
			return nil, ErrTokenExpired
		}
		return o.store.GetUserByID(ctx, record.UserID.String())
	}

	claims, err := o.SessionFromToken(token)
	if err != nil {
		return nil, err
	}
	return o.store.GetUserByID(ctx, claims.UserID())
}

// SignOut tears down a presented session. In persisted mode the record is
// deleted; a missing record counts as already signed out. The signOut event
// is best-effort like every other lifecycle event.
func (o *Orchestrator) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	user, _ := o.SessionUser(ctx, token)

	if o.config.SessionMode == SessionPersisted {
		if err := o.store.DeleteSession(ctx, token); err != nil && !IsNotFound(err) {
			return errors.Wrap(err, errors.CategoryOperation, "failed to delete session")
		}
	}

	o.dispatcher.Dispatch(Event{Kind: EventSignOut, User: user})
	return nil
}

// IssueVerificationToken mints a single-use email sign-in token, stores its
// hash and returns the raw token for the mailer.
func (o *Orchestrator) IssueVerificationToken(ctx context.Context, identifier string) (string, error) {
	raw, hash, err := GenerateVerificationToken()
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate verification token")
	}

	vt := &VerificationToken{
		Identifier: identifier,
		TokenHash:  hash,
		ExpiresAt:  time.Now().Add(o.config.VerificationMaxAge),
	}
	if err := o.store.CreateVerificationToken(ctx, vt); err != nil {
		return "", errors.Wrap(err, errors.CategoryOperation, "failed to store verification token")
	}

	return raw, nil
}

// Config returns the orchestrator configuration.
func (o *Orchestrator) Config() Config {
	return o.config
}

func (o *Orchestrator) decideSignIn(ctx context.Context, input SignInInput) (PolicyDecision, error) {
	if o.signInPolicy == nil {
		return PolicyDecision{Allow: true}, nil
	}
	return o.signInPolicy(ctx, input)
}

func (o *Orchestrator) presentedUser(ctx context.Context, token string) *User {
	if token == "" {
		return nil
	}
	user, err := o.SessionUser(ctx, token)
	if err != nil {
		o.logger.Debug("presented session not usable: %v", err)
		return nil
	}
	return user
}

func (o *Orchestrator) dispatchLifecycle(provider Provider, res *resolution, mat *materialized) {
	if mat.isNewUser {
		o.dispatcher.Dispatch(Event{
			Kind:    EventCreateUser,
			User:    mat.user,
			Account: res.account,
		})
	}
	if mat.linked {
		o.dispatcher.Dispatch(Event{
			Kind:    EventLinkAccount,
			User:    mat.user,
			Account: res.account,
		})
	}
	o.dispatcher.Dispatch(Event{
		Kind:      EventSignIn,
		User:      mat.user,
		Account:   res.account,
		IsNewUser: mat.isNewUser,
		Metadata: map[string]any{
			"provider": provider.ID,
		},
	})
}

func (o *Orchestrator) resolutionOutcome(provider Provider, err error) Outcome {
	switch {
	case errors.Is(err, ErrNoProfile):
		// Neutral re-entry: cancel and provider failure are conflated
		// upstream, so neither gets an error page.
		return Outcome{Status: http.StatusFound, RedirectURL: o.resolveURL(o.config.SignInURL)}
	case errors.Is(err, ErrVerificationInvalid):
		return o.errorOutcome(ErrorCodeVerification)
	case errors.Is(err, ErrMisconfigured):
		return o.errorOutcome(ErrorCodeConfiguration)
	case errors.Is(err, ErrCredentialsRejected):
		return o.errorOutcome(ErrorCodeCredentialsSignin)
	default:
		o.logger.Error("identity resolution failed for provider %s: %v", provider.ID, err)
		return o.errorOutcome(ErrorCodeCallback)
	}
}

func (o *Orchestrator) materializeOutcome(provider Provider, err error) Outcome {
	switch {
	case errors.Is(err, ErrAccountNotLinked):
		return o.errorOutcome(ErrorCodeOAuthAccountNotLinked)
	case errors.Is(err, ErrCreateUserFailed):
		if provider.Kind == ProviderEmail {
			return o.errorOutcome(ErrorCodeEmailCreateAccount)
		}
		return o.errorOutcome(ErrorCodeOAuthCreateAccount)
	default:
		o.logger.Error("materialization failed for provider %s: %v", provider.ID, err)
		return o.errorOutcome(ErrorCodeCallback)
	}
}

func (o *Orchestrator) successURL(req CompletionRequest, isNewUser bool) string {
	if isNewUser && o.config.NewUserURL != "" {
		target := o.resolveURL(o.config.NewUserURL)
		if req.CallbackURL != "" {
			// Keep the original destination resumable from the landing page.
			target = appendQueryParam(target, "callbackUrl", req.CallbackURL)
		}
		return target
	}
	if req.CallbackURL != "" {
		return req.CallbackURL
	}
	return o.config.BaseURL
}

func (o *Orchestrator) cookieFor(artifact *SessionArtifact) *CookieInstruction {
	return &CookieInstruction{
		Name:     o.config.CookieName,
		Value:    artifact.Token,
		Expires:  artifact.ExpiresAt,
		Path:     "/",
		HTTPOnly: true,
		Secure:   o.config.CookieSecure,
		SameSite: o.config.CookieSameSite,
	}
}

func (o *Orchestrator) errorOutcome(code string) Outcome {
	return Outcome{
		Status:      http.StatusFound,
		RedirectURL: appendQueryParam(o.resolveURL(o.config.ErrorURL), "error", code),
	}
}

func (o *Orchestrator) reject(status int, reason string) Outcome {
	return Outcome{
		Rejected:     true,
		RejectStatus: status,
		RejectReason: reason,
	}
}

func (o *Orchestrator) resolveURL(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimRight(o.config.BaseURL, "/") + target
	}
	return target
}

func methodAllowed(kind ProviderKind, method string) bool {
	switch kind {
	case ProviderCredentials:
		// Only explicit submissions start a credentials flow; a passive
		// visit must not.
		return method == http.MethodPost
	case ProviderOAuth, ProviderEmail:
		return method == http.MethodGet || method == http.MethodPost
	default:
		return false
	}
}

func appendQueryParam(target, key, value string) string {
	parsed, err := url.Parse(target)
	if err != nil {
		return target
	}
	query := parsed.Query()
	query.Set(key, value)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
