package authflow

import (
	"database/sql"
	stderrors "errors"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

const (
	TextCodeProviderFailure  = "authflow_provider_failure"
	TextCodeNoProfile        = "authflow_no_profile"
	TextCodeVerification     = "authflow_verification_invalid"
	TextCodeMisconfigured    = "authflow_misconfigured"
	TextCodeCredentials      = "authflow_credentials_rejected"
	TextCodeResolutionFault  = "authflow_resolution_fault"
	TextCodeAccountNotLinked = "authflow_account_not_linked"
	TextCodeCreateUserFailed = "authflow_create_user_failed"
	TextCodeSigningFailed    = "authflow_signing_failed"
	TextCodeTokenExpired     = "authflow_token_expired"
	TextCodeTokenInvalid     = "authflow_token_invalid"
	TextCodeNotFound         = "authflow_not_found"
)

// ErrProviderFailure is returned when the provider exchange or profile fetch fails.
var ErrProviderFailure = errors.New("provider exchange failed", errors.CategoryAuth).
	WithTextCode(TextCodeProviderFailure).
	WithCode(errors.CodeUnauthorized)

// ErrNoProfile is returned when the provider completed without a profile.
// Cancel and provider error are indistinguishable here; callers route this
// to a neutral re-entry, not a hard failure.
var ErrNoProfile = errors.New("provider returned no profile", errors.CategoryAuth).
	WithTextCode(TextCodeNoProfile).
	WithCode(errors.CodeUnauthorized)

// ErrVerificationInvalid is returned for a missing, mismatched, consumed or
// expired verification token.
var ErrVerificationInvalid = errors.New("verification token invalid or expired", errors.CategoryAuth).
	WithTextCode(TextCodeVerification).
	WithCode(errors.CodeUnauthorized)

// ErrMisconfigured is returned when a flow is entered without its required
// collaborator or session mode.
var ErrMisconfigured = errors.New("flow is not configured", errors.CategoryBadInput).
	WithTextCode(TextCodeMisconfigured).
	WithCode(errors.CodeBadRequest)

// ErrCredentialsRejected is returned when the authorizer rejects the
// submitted credentials without a fault.
var ErrCredentialsRejected = errors.New("credentials rejected", errors.CategoryAuth).
	WithTextCode(TextCodeCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrAccountNotLinked is returned when the resolved email already belongs to
// a user under a different provider. Prevents silent account takeover.
var ErrAccountNotLinked = errors.New("email belongs to an account under a different provider", errors.CategoryConflict).
	WithTextCode(TextCodeAccountNotLinked).
	WithCode(errors.CodeConflict)

// ErrCreateUserFailed is returned when user creation fails, e.g. on a
// unique-constraint collision.
var ErrCreateUserFailed = errors.New("could not create user", errors.CategoryConflict).
	WithTextCode(TextCodeCreateUserFailed).
	WithCode(errors.CodeConflict)

// ErrSigningFailed is returned when the session claim set cannot be sealed.
var ErrSigningFailed = errors.New("failed to sign session token", errors.CategoryInternal).
	WithTextCode(TextCodeSigningFailed)

// ErrTokenExpired is returned when a sealed session token is past expiry.
var ErrTokenExpired = errors.New("session token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenInvalid is returned when a sealed session token fails decryption,
// signature verification or claim parsing.
var ErrTokenInvalid = errors.New("session token invalid", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrNotFound is the canonical miss for Store lookups. Adapters may also
// surface sql.ErrNoRows or go-repository-bun record-not-found errors;
// IsNotFound accepts all three.
var ErrNotFound = errors.New("record not found", errors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(errors.CodeNotFound)

// wrapError wraps base over cause. The sentinel stays in the chain, so
// errors.Is(result, base) still matches; the cause survives as metadata.
func wrapError(base *errors.Error, cause error) error {
	wrapped := errors.Wrap(base, base.Category, base.Message).
		WithTextCode(base.TextCode).
		WithCode(base.Code)
	if cause != nil {
		wrapped = wrapped.WithMetadata(map[string]any{"error": cause.Error()})
	}
	return wrapped
}

// IsNotFound reports whether err is a Store lookup miss.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNotFound) ||
		stderrors.Is(err, sql.ErrNoRows) ||
		repository.IsRecordNotFound(err)
}
