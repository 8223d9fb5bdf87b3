// Package authflow completes sign-in attempts. It takes the callback leg of
// oauth, email magic-link, and credentials flows and drives each completion
// through identity resolution, authorization policy, account linking, and
// session establishment to exactly one terminal outcome: a redirect with an
// optional session cookie, or a direct rejection.
//
// Flows:
//   - OAuth: the registered OAuthExchanger swaps the authorization code for a
//     provider token and fetches the normalized profile.
//   - Email: the single-use verification token is consumed atomically before
//     anything else can fail, so a replayed link never verifies twice.
//   - Credentials: the registered CredentialsAuthorizer checks the submitted
//     fields. Credentials flows need stateless sessions; with persisted
//     sessions the completion fails as a configuration error.
//
// Sessions come in two modes. Stateless sessions seal a JWT claim set in an
// AES-GCM envelope via SealedCodec; persisted sessions store an opaque token
// through the Store. Authorization is pluggable through SignInPolicy (allow,
// deny, or redirect) and ClaimsPolicy (reshape claims before sealing).
//
// Lifecycle events (sign-in, sign-out, user created, account linked) are
// dispatched fire-and-forget: listener errors and panics are logged and never
// affect the completion outcome.
package authflow
