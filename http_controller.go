package authflow

import (
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// ValidateCallbackURL decides whether a requested callback URL may be
	// honored. Defaults to same-origin against the orchestrator BaseURL.
	ValidateCallbackURL func(raw string) bool

	// ErrorHandler handles controller-level errors (optional).
	ErrorHandler func(ctx router.Context, err error) error
}

// HTTPController exposes the completion flow over HTTP: it translates
// transport requests into CompletionRequests and outcomes back into
// redirects, cookies and rejections.
type HTTPController struct {
	orchestrator *Orchestrator
	config       HTTPConfig
	logger       Logger
}

// NewHTTPController creates a controller for the orchestrator.
func NewHTTPController(o *Orchestrator, cfg HTTPConfig) *HTTPController {
	if cfg.ValidateCallbackURL == nil {
		base := strings.TrimRight(o.Config().BaseURL, "/")
		cfg.ValidateCallbackURL = func(raw string) bool {
			return strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, base+"/") || raw == base
		}
	}

	return &HTTPController{
		orchestrator: o,
		config:       cfg,
		logger:       o.logger,
	}
}

// RegisterRoutes registers the completion and sign-out routes.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Get("/callback/:provider", func(ctx router.Context) error {
		return c.callback(ctx, http.MethodGet)
	})
	group.Post("/callback/:provider", func(ctx router.Context) error {
		return c.callback(ctx, http.MethodPost)
	})
	group.Post("/signout", c.SignOut)
}

type credentialsForm struct {
	Identifier string `json:"identifier" form:"identifier"`
	Password   string `json:"password" form:"password"`
}

func (c *HTTPController) callback(ctx router.Context, method string) error {
	req := CompletionRequest{
		ProviderID: ctx.Param("provider"),
		Method:     method,
		Query: map[string]string{
			"code":  ctx.Query("code"),
			"email": ctx.Query("email"),
			"token": ctx.Query("token"),
		},
		SessionToken: ctx.Cookies(c.orchestrator.Config().CookieName),
		CSRFToken:    ctx.Query("state"),
	}

	if callbackURL := ctx.Query("callback_url"); callbackURL != "" && c.config.ValidateCallbackURL(callbackURL) {
		req.CallbackURL = callbackURL
	}

	if method == http.MethodPost {
		form := &credentialsForm{}
		if err := ctx.Bind(form); err == nil {
			req.Body = map[string]string{
				"identifier": form.Identifier,
				"password":   form.Password,
			}
		}
	}

	return c.apply(ctx, c.orchestrator.Complete(ctx.Context(), req))
}

// SignOut tears down the presented session and clears the cookie.
func (c *HTTPController) SignOut(ctx router.Context) error {
	cookieName := c.orchestrator.Config().CookieName

	if err := c.orchestrator.SignOut(ctx.Context(), ctx.Cookies(cookieName)); err != nil {
		c.logger.Error("sign out failed: %v", err)
		if c.config.ErrorHandler != nil {
			return c.config.ErrorHandler(ctx, err)
		}
	}

	c.clearCookie(ctx, cookieName)
	return ctx.Redirect(c.signInURL(), http.StatusFound)
}

func (c *HTTPController) apply(ctx router.Context, out Outcome) error {
	if out.Rejected {
		return ctx.JSON(out.RejectStatus, map[string]string{
			"error": out.RejectReason,
		})
	}

	if out.Cookie != nil {
		ctx.Cookie(&router.Cookie{
			Name:     out.Cookie.Name,
			Value:    out.Cookie.Value,
			Expires:  out.Cookie.Expires,
			Path:     out.Cookie.Path,
			HTTPOnly: out.Cookie.HTTPOnly,
			Secure:   out.Cookie.Secure,
			SameSite: out.Cookie.SameSite,
		})
	}

	return ctx.Redirect(out.RedirectURL, out.Status)
}

func (c *HTTPController) clearCookie(ctx router.Context, name string) {
	ctx.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		Path:     "/",
		HTTPOnly: true,
	})
}

func (c *HTTPController) signInURL() string {
	cfg := c.orchestrator.Config()
	if strings.HasPrefix(cfg.SignInURL, "/") {
		return strings.TrimRight(cfg.BaseURL, "/") + cfg.SignInURL
	}
	return cfg.SignInURL
}
