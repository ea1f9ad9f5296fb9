package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

type RequestPasswordResetMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	OnResponse func(resp *RequestPasswordResetResponse)
}

func (e RequestPasswordResetMessage) Type() string { return "user.password_reset_request" }

func (e RequestPasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
	)
}

type RequestPasswordResetResponse struct {
	Email   string
	Success bool
}

// RequestPasswordResetHandler rotates a reset token for the account and
// mails the reset link. Unknown emails fail with a not found error, which
// does tell a caller whether an account exists; see DESIGN.md.
type RequestPasswordResetHandler struct {
	repo     RepositoryManager
	issuer   *Issuer
	notifier Notifier
	cfg      Config
}

func NewRequestPasswordResetHandler(repo RepositoryManager, issuer *Issuer, notifier Notifier, cfg Config) *RequestPasswordResetHandler {
	return &RequestPasswordResetHandler{
		repo:     repo,
		issuer:   issuer,
		notifier: notifier,
		cfg:      cfg,
	}
}

func (h *RequestPasswordResetHandler) Execute(ctx context.Context, event RequestPasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestPasswordResetHandler) execute(ctx context.Context, event RequestPasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password reset payload")
	}

	user, err := h.repo.Users().GetByEmail(ctx, event.Email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrAccountNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	token, err := h.issuer.IssueResetToken(ctx, user.Email)
	if err != nil {
		return err
	}

	if err := h.notifier.Send(ctx, ResetPasswordMessage(user, token, h.cfg.GetClientURL())); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to send password reset email")
	}

	if event.OnResponse != nil {
		event.OnResponse(&RequestPasswordResetResponse{
			Email:   user.Email,
			Success: true,
		})
	}

	return nil
}
