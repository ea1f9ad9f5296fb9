package auth

import (
	"net/http"
	"time"

	"github.com/goliatone/go-router"
)

// GuardAction is the outcome of a guard decision.
type GuardAction int

const (
	// GuardAllow lets the request through untouched.
	GuardAllow GuardAction = iota
	// GuardRedirectHome bounces an authenticated user off an auth route.
	GuardRedirectHome
	// GuardRedirectSignIn sends an unauthenticated user to the sign-in page.
	GuardRedirectSignIn
)

// GuardDecision pairs the action with its redirect target, empty for allow.
type GuardDecision struct {
	Action GuardAction
	Target string
}

// RouteGuard classifies request paths and decides, from session presence
// alone, whether a request passes or redirects. Decide is pure, the
// middleware adapter wires it to cookie-borne session tokens.
type RouteGuard struct {
	routes *RouteTable
	tokens TokenService
	cfg    Config
	home   string
	signIn string
	Logger Logger
}

func NewRouteGuard(tokens TokenService, cfg Config) *RouteGuard {
	return &RouteGuard{
		routes: NewRouteTable(),
		tokens: tokens,
		cfg:    cfg,
		home:   DefaultRedirectAfterSignIn,
		signIn: DefaultRedirectBeforeSignIn,
		Logger: defLogger{},
	}
}

// WithRoutes overrides the default route classification.
func (g *RouteGuard) WithRoutes(routes *RouteTable) *RouteGuard {
	if routes != nil {
		g.routes = routes
	}
	return g
}

// Decide evaluates path against the route tables. Order matters: the API
// exchange prefix always passes, auth routes bounce authenticated users
// home, then anything neither public nor authenticated redirects to
// sign-in.
func (g *RouteGuard) Decide(path string, authenticated bool) GuardDecision {
	if g.routes.IsAPIAuth(path) {
		return GuardDecision{Action: GuardAllow}
	}

	if g.routes.IsAuthRoute(path) {
		if authenticated {
			return GuardDecision{Action: GuardRedirectHome, Target: g.home}
		}
		return GuardDecision{Action: GuardAllow}
	}

	if !authenticated && !g.routes.IsPublic(path) {
		return GuardDecision{Action: GuardRedirectSignIn, Target: g.signIn}
	}

	return GuardDecision{Action: GuardAllow}
}

// Middleware adapts Decide to an HTTP middleware. Session presence means a
// session cookie that validates against the token service; expired or
// malformed tokens count as absent. Requests that pass with a session get
// it stored under the configured context key for downstream handlers.
func (g *RouteGuard) Middleware() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			session := g.sessionFromCookie(ctx)
			decision := g.Decide(ctx.Path(), session != nil)

			switch decision.Action {
			case GuardRedirectHome:
				return ctx.Redirect(decision.Target, http.StatusFound)
			case GuardRedirectSignIn:
				g.setRejectedRoute(ctx)
				statusCode := http.StatusSeeOther
				if ctx.Method() == string(router.GET) {
					statusCode = http.StatusFound
				}
				return ctx.Redirect(decision.Target, statusCode)
			default:
				if session != nil {
					ctx.Locals(g.cfg.GetContextKey(), session)
				}
				return hf(ctx)
			}
		}
	}
}

func (g *RouteGuard) sessionFromCookie(ctx router.Context) Session {
	raw := ctx.Cookies(g.cfg.GetContextKey())
	if raw == "" {
		return nil
	}

	session, err := SessionFromToken(g.tokens, raw)
	if err != nil {
		g.Logger.Debug("Session token rejected", "path", ctx.Path(), "error", err)
		return nil
	}

	return session
}

// setRejectedRoute remembers the denied path so sign-in can send the user
// back afterwards.
func (g *RouteGuard) setRejectedRoute(ctx router.Context) {
	ctx.Cookie(&router.Cookie{
		Name:     g.cfg.GetRejectedRouteKey(),
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}
