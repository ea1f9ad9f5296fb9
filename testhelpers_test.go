package auth_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	auth "github.com/goliatone/go-authflow"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	sqliteCreateUsers = `CREATE TABLE users (
    id TEXT NOT NULL PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT,
    user_role TEXT NOT NULL,
    email_verified_at TIMESTAMP NULL,
    is_two_factor_enabled BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    deleted_at TIMESTAMP NULL
);`

	sqliteCreateVerificationTokens = `CREATE TABLE verification_tokens (
    id TEXT NOT NULL PRIMARY KEY,
    email TEXT NOT NULL,
    token TEXT NOT NULL UNIQUE,
    expires_at TIMESTAMP NOT NULL
);`

	sqliteCreateResetTokens = `CREATE TABLE reset_tokens (
    id TEXT NOT NULL PRIMARY KEY,
    email TEXT NOT NULL,
    token TEXT NOT NULL UNIQUE,
    expires_at TIMESTAMP NOT NULL
);`

	sqliteCreateTwoFactorTokens = `CREATE TABLE two_factor_tokens (
    id TEXT NOT NULL PRIMARY KEY,
    email TEXT NOT NULL,
    token TEXT NOT NULL,
    expires_at TIMESTAMP NOT NULL
);`

	sqliteCreateTwoFactorConfirmations = `CREATE TABLE two_factor_confirmations (
    id TEXT NOT NULL PRIMARY KEY,
    user_id TEXT NOT NULL UNIQUE
);`
)

func setupRepoManager(t *testing.T) auth.RepositoryManager {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	for _, ddl := range []string{
		sqliteCreateUsers,
		sqliteCreateVerificationTokens,
		sqliteCreateResetTokens,
		sqliteCreateTwoFactorTokens,
		sqliteCreateTwoFactorConfirmations,
	} {
		_, err = bunDB.Exec(ddl)
		require.NoError(t, err)
	}

	return auth.NewRepositoryManager(bunDB)
}

type userOpt func(*auth.User)

func withVerifiedEmail() userOpt {
	return func(u *auth.User) {
		at := time.Now().Add(-time.Hour)
		u.EmailVerifiedAt = &at
	}
}

func withTwoFactor() userOpt {
	return func(u *auth.User) {
		u.IsTwoFactorEnabled = true
	}
}

func createUser(t *testing.T, repo auth.RepositoryManager, email, password string, opts ...userOpt) *auth.User {
	t.Helper()

	user := &auth.User{
		Name:  "Test User",
		Email: email,
	}

	if password != "" {
		hash, err := auth.HashPassword(password)
		require.NoError(t, err)
		user.PasswordHash = hash
	}

	for _, opt := range opts {
		opt(user)
	}

	created, err := repo.Users().Create(context.Background(), user)
	require.NoError(t, err)

	return created
}

// testConfig satisfies auth.Config with fixed values.
type testConfig struct{}

func (testConfig) GetSigningKey() string           { return "test-signing-key" }
func (testConfig) GetContextKey() string           { return "app_session" }
func (testConfig) GetTokenExpiration() int         { return 24 }
func (testConfig) GetIssuer() string               { return "authflow-test" }
func (testConfig) GetAudience() []string           { return []string{"test-app"} }
func (testConfig) GetClientURL() string            { return "https://app.example.com" }
func (testConfig) GetRejectedRouteKey() string     { return "rejected_route" }
func (testConfig) GetRejectedRouteDefault() string { return "/" }

// recordingNotifier captures every message, optionally failing instead.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []auth.Message
	fail error
}

func (n *recordingNotifier) Send(_ context.Context, msg auth.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.fail != nil {
		return n.fail
	}

	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) messages() []auth.Message {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]auth.Message, len(n.sent))
	copy(out, n.sent)
	return out
}

func (n *recordingNotifier) last(t *testing.T) auth.Message {
	t.Helper()

	msgs := n.messages()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

// stubExchanger records the exchange call and returns canned values.
type stubExchanger struct {
	result       *auth.SessionResult
	err          error
	calls        int
	lastProvider string
	lastUser     *auth.User
}

func (s *stubExchanger) Exchange(_ context.Context, user *auth.User, provider string) (*auth.SessionResult, error) {
	s.calls++
	s.lastUser = user
	s.lastProvider = provider

	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &auth.SessionResult{Token: "stub-token", Redirect: auth.DefaultRedirectAfterSignIn}, nil
}
