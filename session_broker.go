package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ProviderCredentials names the password credential path. Any other provider
// string is treated as an OAuth-style external credential.
const ProviderCredentials = "credentials"

// SessionBroker is the default SessionExchanger. Independent of whatever the
// orchestrator already checked, it re-validates the account invariants before
// issuing a session: the email must be verified for every provider, and a
// two factor account signing in with credentials must hold a live
// TwoFactorConfirmation, which is consumed here.
type SessionBroker struct {
	repo     RepositoryManager
	tokens   TokenService
	redirect string
	logger   Logger
}

var _ SessionExchanger = (*SessionBroker)(nil)

func NewSessionBroker(repo RepositoryManager, cfg Config) *SessionBroker {
	return &SessionBroker{
		repo: repo,
		tokens: NewTokenService(
			[]byte(cfg.GetSigningKey()),
			cfg.GetTokenExpiration(),
			cfg.GetIssuer(),
			cfg.GetAudience(),
			defLogger{},
		),
		redirect: DefaultRedirectAfterSignIn,
		logger:   defLogger{},
	}
}

func (b *SessionBroker) WithLogger(logger Logger) *SessionBroker {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// WithTokenService overrides the session token service.
func (b *SessionBroker) WithTokenService(tokens TokenService) *SessionBroker {
	if tokens != nil {
		b.tokens = tokens
	}
	return b
}

// WithRedirect overrides the post sign-in redirect target.
func (b *SessionBroker) WithRedirect(redirect string) *SessionBroker {
	if redirect != "" {
		b.redirect = redirect
	}
	return b
}

func (b *SessionBroker) Exchange(ctx context.Context, user *User, provider string) (*SessionResult, error) {
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsEmailVerified() {
		return nil, ErrEmailNotVerified
	}

	if user.IsTwoFactorEnabled && provider == ProviderCredentials {
		if err := b.consumeConfirmation(ctx, user); err != nil {
			return nil, err
		}
	}

	token, err := b.tokens.Generate(user)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session token")
	}

	return &SessionResult{
		Token:    token,
		Redirect: b.redirect,
	}, nil
}

func (b *SessionBroker) consumeConfirmation(ctx context.Context, user *User) error {
	confirmation, err := b.repo.TwoFactorConfirmations().GetByUserID(ctx, user.ID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrTwoFactorRequired
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read two factor confirmation")
	}

	err = b.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return b.repo.TwoFactorConfirmations().DeleteByIDTx(ctx, tx, confirmation.ID)
	})

	if err != nil {
		// A concurrent sign-in consumed it first; the marker is single use.
		if goerrors.IsNotFound(err) {
			return ErrTwoFactorRequired
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume two factor confirmation")
	}

	return nil
}
