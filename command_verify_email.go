package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type VerifyEmailMessage struct {
	Token      string `json:"token" example:"350399bc-c095-4bdc-a59c-3352d44848e4" doc:"Opaque verification token from the emailed link."`
	OnResponse func(resp *VerifyEmailResponse)
}

func (e VerifyEmailMessage) Type() string { return "user.verify_email" }

func (e VerifyEmailMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Token, validation.Required, is.UUIDv4),
	)
}

type VerifyEmailResponse struct {
	Email    string
	Redirect string
	Success  bool
}

// VerifyEmailHandler consumes a verification token: it stamps the user's
// email_verified_at and deletes the token in one transaction. Tokens are
// single use, replaying one fails as not found.
type VerifyEmailHandler struct {
	repo   RepositoryManager
	logger Logger
	now    func() time.Time
}

func NewVerifyEmailHandler(repo RepositoryManager) *VerifyEmailHandler {
	return &VerifyEmailHandler{
		repo:   repo,
		logger: defLogger{},
		now:    time.Now,
	}
}

func (h *VerifyEmailHandler) WithLogger(logger Logger) *VerifyEmailHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *VerifyEmailHandler) WithClock(now func() time.Time) *VerifyEmailHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyEmailHandler) execute(ctx context.Context, event VerifyEmailMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid verification payload")
	}

	token, err := h.repo.VerificationTokens().GetByToken(ctx, event.Token)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrTokenNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve verification token")
	}

	if token.Expired(h.now()) {
		return ErrTokenExpired
	}

	user, err := h.repo.Users().GetByEmail(ctx, token.Email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrAccountNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for verification")
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if !user.IsEmailVerified() {
			if err := h.repo.Users().MarkEmailVerifiedTx(ctx, tx, user.ID, h.now()); err != nil {
				// A concurrent verification beat us to the stamp, which
				// is fine: the timestamp never moves once set.
				if !goerrors.IsNotFound(err) {
					return err
				}
			}
		}

		return h.repo.VerificationTokens().DeleteByIDTx(ctx, tx, token.ID)
	})

	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrTokenNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "email verification transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(&VerifyEmailResponse{
			Email:    token.Email,
			Redirect: DefaultRedirectAfterEmailVerification,
			Success:  true,
		})
	}

	return nil
}
