package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// SignInStatus is the terminal state of a sign-in or sign-up attempt.
type SignInStatus string

const (
	// StatusVerificationSent means the attempt stopped at the email
	// verification gate and a fresh verification link went out.
	StatusVerificationSent SignInStatus = "verification_sent"
	// StatusAwaitingTwoFactor means the password checked out and a code was
	// emailed; the caller must resubmit with the code.
	StatusAwaitingTwoFactor SignInStatus = "awaiting_two_factor"
	// StatusAuthenticated means a session was issued.
	StatusAuthenticated SignInStatus = "authenticated"
)

type SignInMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	Password   string `json:"password" doc:"Plaintext password."`
	Code       string `json:"code,omitempty" doc:"Two factor code, when challenged."`
	OnResponse func(resp *SignInResponse)
}

func (e SignInMessage) Type() string { return "user.sign_in" }

func (e SignInMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Password, validation.Required),
		validation.Field(&e.Code, validation.Length(6, 6), is.Digit),
	)
}

type SignInResponse struct {
	Status   SignInStatus
	Token    string
	Redirect string
	Success  bool
}

// SignInHandler walks a credential sign-in through the gates in fixed
// order: password, then email verification, then two factor, then session
// issuance. Verification short-circuits two factor: an unverified account
// with two factor enabled only ever receives a verification link.
type SignInHandler struct {
	repo     RepositoryManager
	issuer   *Issuer
	notifier Notifier
	sessions SessionExchanger
	cfg      Config
	logger   Logger
	now      func() time.Time
}

func NewSignInHandler(repo RepositoryManager, issuer *Issuer, notifier Notifier, sessions SessionExchanger, cfg Config) *SignInHandler {
	return &SignInHandler{
		repo:     repo,
		issuer:   issuer,
		notifier: notifier,
		sessions: sessions,
		cfg:      cfg,
		logger:   defLogger{},
		now:      time.Now,
	}
}

func (h *SignInHandler) WithLogger(logger Logger) *SignInHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock overrides the time source used for code expiry checks.
func (h *SignInHandler) WithClock(now func() time.Time) *SignInHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *SignInHandler) Execute(ctx context.Context, event SignInMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during sign in",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignInHandler) execute(ctx context.Context, event SignInMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid sign in payload")
	}

	user, err := h.repo.Users().GetByEmail(ctx, event.Email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			h.logger.Debug("Sign in for unknown email", "email", event.Email)
			return ErrInvalidCredentials
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for sign in")
	}

	if !user.HasPassword() {
		h.logger.Debug("Sign in for account without password", "email", event.Email)
		return ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(event.Password, user.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	if !user.IsEmailVerified() {
		return h.sendVerification(ctx, user, event.OnResponse)
	}

	if user.IsTwoFactorEnabled {
		if event.Code == "" {
			return h.sendTwoFactorChallenge(ctx, user, event.OnResponse)
		}

		if err := h.confirmTwoFactor(ctx, user, event.Code); err != nil {
			return err
		}
	}

	result, err := h.sessions.Exchange(ctx, user, ProviderCredentials)
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

func (h *SignInHandler) sendVerification(ctx context.Context, user *User, onResponse func(*SignInResponse)) error {
	token, err := h.issuer.IssueVerificationToken(ctx, user.Email)
	if err != nil {
		return err
	}

	if err := h.notifier.Send(ctx, VerificationMessage(user, token, h.cfg.GetClientURL())); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to send verification email")
	}

	if onResponse != nil {
		onResponse(&SignInResponse{
			Status:  StatusVerificationSent,
			Success: true,
		})
	}

	return nil
}

func (h *SignInHandler) sendTwoFactorChallenge(ctx context.Context, user *User, onResponse func(*SignInResponse)) error {
	token, err := h.issuer.IssueTwoFactorToken(ctx, user.Email)
	if err != nil {
		return err
	}

	if err := h.notifier.Send(ctx, TwoFactorMessage(user, token)); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to send two factor code")
	}

	if onResponse != nil {
		onResponse(&SignInResponse{
			Status:  StatusAwaitingTwoFactor,
			Success: true,
		})
	}

	return nil
}

// confirmTwoFactor checks the submitted code against the live token,
// consumes the token, and leaves a fresh confirmation for the session
// exchange to consume in turn.
func (h *SignInHandler) confirmTwoFactor(ctx context.Context, user *User, code string) error {
	token, err := h.repo.TwoFactorTokens().GetByEmail(ctx, user.Email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrInvalidTwoFactorCode
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve two factor token")
	}

	if token.Token != code {
		return ErrInvalidTwoFactorCode
	}

	if token.Expired(h.now()) {
		return ErrTokenExpired
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := h.repo.TwoFactorTokens().DeleteByIDTx(ctx, tx, token.ID); err != nil {
			return err
		}

		// clear any stale marker left over from an abandoned attempt
		if err := h.repo.TwoFactorConfirmations().DeleteByUserIDTx(ctx, tx, user.ID); err != nil {
			return err
		}

		_, err := h.repo.TwoFactorConfirmations().CreateTx(ctx, tx, &TwoFactorConfirmation{
			UserID: user.ID,
		})
		return err
	})

	if err != nil {
		// The token row vanished between the read and the delete: a
		// concurrent attempt consumed it first.
		if goerrors.IsNotFound(err) {
			return ErrInvalidTwoFactorCode
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to confirm two factor code")
	}

	return nil
}

// mapExchangeError keeps gate failures intact and collapses everything else
// into a generic authentication failure, detail stays in the logs.
func mapExchangeError(logger Logger, err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryAuth {
		return richErr
	}

	logger.Error("Session exchange failed", "error", err)
	return ErrAuthFailed
}
