package authflow

import (
	"github.com/goliatone/go-router"
)

// SessionGuardConfig configures the session middleware.
type SessionGuardConfig struct {
	// ContextKey is the Locals key the user is stored under. Defaults to "user".
	ContextKey string

	// Optional lets requests without a usable session through, with no user
	// in the context.
	Optional bool

	// ErrorHandler handles rejected requests. Defaults to a 401 JSON body.
	ErrorHandler func(ctx router.Context, err error) error
}

// SessionGuard returns a middleware that resolves the user behind the
// session cookie and stores it in both the router Locals and the request
// context. Requests without a usable session get a 401 unless Optional.
func SessionGuard(o *Orchestrator, cfg SessionGuardConfig) router.MiddlewareFunc {
	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(ctx router.Context, err error) error {
			return ctx.JSON(router.StatusUnauthorized, map[string]string{
				"error": "unauthorized",
			})
		}
	}

	cookieName := o.Config().CookieName

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			token := ctx.Cookies(cookieName)

			user, err := o.SessionUser(ctx.Context(), token)
			if err != nil {
				if cfg.Optional {
					return next(ctx)
				}
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, user)
			ctx.SetContext(WithContext(ctx.Context(), user))

			return next(ctx)
		}
	}
}
