package auth

import "strings"

// Redirect targets used by the session broker and route guard.
const (
	// DefaultRedirectAfterSignIn is where authenticated users land.
	DefaultRedirectAfterSignIn = "/"
	// DefaultRedirectBeforeSignIn is where unauthenticated users are sent
	// when they hit a protected route.
	DefaultRedirectBeforeSignIn = "/sign-in"
	// DefaultRedirectAfterEmailVerification is where a freshly verified
	// account is sent to authenticate.
	DefaultRedirectAfterEmailVerification = "/sign-in"
)

// APIAuthPrefix marks the token exchange endpoints. Requests under this
// prefix are always allowed through the guard so the exchange itself can run.
const APIAuthPrefix = "/api/auth"

// PublicRoutes are reachable with or without a session.
var PublicRoutes = []string{
	"/verify-email",
}

// AuthRoutes host the credential flows. An authenticated user visiting one
// of these is bounced back to DefaultRedirectAfterSignIn.
var AuthRoutes = []string{
	"/sign-in",
	"/sign-up",
	"/reset-password",
	"/new-password",
}

// RouteTable resolves a request path against the public and auth route sets.
// Matching is by exact path, query strings stripped by the caller.
type RouteTable struct {
	public map[string]struct{}
	auth   map[string]struct{}
	prefix string
}

// NewRouteTable builds a table from the default route sets.
func NewRouteTable() *RouteTable {
	return NewRouteTableFrom(PublicRoutes, AuthRoutes, APIAuthPrefix)
}

// NewRouteTableFrom builds a table from caller supplied route sets.
func NewRouteTableFrom(public, auth []string, apiPrefix string) *RouteTable {
	t := &RouteTable{
		public: make(map[string]struct{}, len(public)),
		auth:   make(map[string]struct{}, len(auth)),
		prefix: apiPrefix,
	}
	for _, route := range public {
		t.public[normalizePath(route)] = struct{}{}
	}
	for _, route := range auth {
		t.auth[normalizePath(route)] = struct{}{}
	}
	return t
}

// IsPublic reports whether path needs no session.
func (t *RouteTable) IsPublic(path string) bool {
	_, ok := t.public[normalizePath(path)]
	return ok
}

// IsAuthRoute reports whether path hosts a credential flow.
func (t *RouteTable) IsAuthRoute(path string) bool {
	_, ok := t.auth[normalizePath(path)]
	return ok
}

// IsAPIAuth reports whether path sits under the exchange prefix.
func (t *RouteTable) IsAPIAuth(path string) bool {
	return strings.HasPrefix(normalizePath(path), t.prefix)
}

func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
