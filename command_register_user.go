package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Name       string `json:"name" example:"Pepe Rone" doc:"Display name."`
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	Password   string `json:"password" doc:"Plaintext password, hashed before storage."`
	UseHashid  bool   `json:"use_hashid,omitempty" doc:"Derive the user ID from the email."`
	OnResponse func(resp *RegisterUserResponse)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required, validation.Length(3, 200)),
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&e.Password, validation.Required, validation.Length(8, 100)),
	)
}

type RegisterUserResponse struct {
	User    *User
	Status  SignInStatus
	Success bool
}

// RegisterUserHandler creates the account and starts the email verification
// flow. The user is not authenticated on success: they hold a verification
// link, nothing else.
type RegisterUserHandler struct {
	repo     RepositoryManager
	issuer   *Issuer
	notifier Notifier
	cfg      Config
}

func NewRegisterUserHandler(repo RepositoryManager, issuer *Issuer, notifier Notifier, cfg Config) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:     repo,
		issuer:   issuer,
		notifier: notifier,
		cfg:      cfg,
	}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload")
	}

	if _, err := h.repo.Users().GetByEmail(ctx, event.Email); err == nil {
		return ErrEmailAlreadyExists
	} else if !goerrors.IsNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
	}

	hash, err := HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		Name:         event.Name,
		Email:        event.Email,
		PasswordHash: hash,
	}
	if event.UseHashid {
		if id, err := hashid.NewUUID(event.Email); err == nil {
			user.ID = id
		}
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	token, err := h.issuer.IssueVerificationToken(ctx, user.Email)
	if err != nil {
		return err
	}

	if err := h.notifier.Send(ctx, VerificationMessage(user, token, h.cfg.GetClientURL())); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to send verification email")
	}

	resp := &RegisterUserResponse{
		User:    user,
		Status:  StatusVerificationSent,
		Success: true,
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
