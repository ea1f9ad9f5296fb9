package auth

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetContextKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
	GetClientURL() string
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
}

// Notifier delivers a rendered message to a user. Failures are not
// swallowed anywhere in this package; they propagate to the caller.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// SessionExchanger is the session issuance collaborator. Given a user that
// passed every orchestrator gate it re-checks the account invariants,
// establishes a session, and returns the token plus a redirect target.
type SessionExchanger interface {
	Exchange(ctx context.Context, user *User, provider string) (*SessionResult, error)
}

// SessionResult is the outcome of a successful exchange.
type SessionResult struct {
	Token    string
	Redirect string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
