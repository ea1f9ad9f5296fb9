package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type OAuthSignInMessage struct {
	Provider   string `json:"provider" example:"google" doc:"External identity provider."`
	ExternalID string `json:"external_id" doc:"Subject identifier at the provider."`
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Provider-asserted email."`
	Name       string `json:"name" example:"Pepe Rone" doc:"Provider-asserted display name."`
	OnResponse func(resp *SignInResponse)
}

func (e OAuthSignInMessage) Type() string { return "user.oauth_sign_in" }

func (e OAuthSignInMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Provider, validation.Required),
		validation.Field(&e.ExternalID, validation.Required),
		validation.Field(&e.Email, validation.Required, is.Email),
	)
}

// OAuthSignInHandler signs in through an external identity provider. A first
// visit provisions the account with the email already verified, the provider
// vouches for it. An existing unverified account still hits the verification
// gate; the two factor gate does not apply to external providers.
type OAuthSignInHandler struct {
	repo     RepositoryManager
	issuer   *Issuer
	notifier Notifier
	sessions SessionExchanger
	cfg      Config
	logger   Logger
	now      func() time.Time
}

func NewOAuthSignInHandler(repo RepositoryManager, issuer *Issuer, notifier Notifier, sessions SessionExchanger, cfg Config) *OAuthSignInHandler {
	return &OAuthSignInHandler{
		repo:     repo,
		issuer:   issuer,
		notifier: notifier,
		sessions: sessions,
		cfg:      cfg,
		logger:   defLogger{},
		now:      time.Now,
	}
}

func (h *OAuthSignInHandler) WithLogger(logger Logger) *OAuthSignInHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *OAuthSignInHandler) WithClock(now func() time.Time) *OAuthSignInHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *OAuthSignInHandler) Execute(ctx context.Context, event OAuthSignInMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during oauth sign in",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *OAuthSignInHandler) execute(ctx context.Context, event OAuthSignInMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid oauth sign in payload")
	}

	user, err := h.repo.Users().GetByEmail(ctx, event.Email)
	if err != nil {
		if !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for oauth sign in")
		}

		if user, err = h.provision(ctx, event); err != nil {
			return err
		}
	}

	if !user.IsEmailVerified() {
		token, err := h.issuer.IssueVerificationToken(ctx, user.Email)
		if err != nil {
			return err
		}

		if err := h.notifier.Send(ctx, VerificationMessage(user, token, h.cfg.GetClientURL())); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to send verification email")
		}

		if event.OnResponse != nil {
			event.OnResponse(&SignInResponse{
				Status:  StatusVerificationSent,
				Success: true,
			})
		}
		return nil
	}

	result, err := h.sessions.Exchange(ctx, user, event.Provider)
	if err != nil {
		return mapExchangeError(h.logger, err)
	}

	resp := &SignInResponse{
		Status:   StatusAuthenticated,
		Token:    result.Token,
		Redirect: result.Redirect,
		Success:  true,
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *OAuthSignInHandler) provision(ctx context.Context, event OAuthSignInMessage) (*User, error) {
	verifiedAt := h.now()
	user := &User{
		Name:            event.Name,
		Email:           event.Email,
		EmailVerifiedAt: &verifiedAt,
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := h.repo.Users().CreateTx(ctx, tx, user)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}
		user = created
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "oauth account provisioning failed")
	}

	h.logger.Info("Provisioned account from external provider", "provider", event.Provider, "email", event.Email)
	return user, nil
}
