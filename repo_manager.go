package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Users() Users
	VerificationTokens() VerificationTokens
	ResetTokens() ResetTokens
	TwoFactorTokens() TwoFactorTokens
	TwoFactorConfirmations() TwoFactorConfirmations
}

type mngr struct {
	db                 *bun.DB
	users              Users
	verificationTokens VerificationTokens
	resetTokens        ResetTokens
	twoFactorTokens    TwoFactorTokens
	confirmations      TwoFactorConfirmations
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:                 db,
		users:              NewUsersRepository(db),
		verificationTokens: NewVerificationTokensRepository(db),
		resetTokens:        NewResetTokensRepository(db),
		twoFactorTokens:    NewTwoFactorTokensRepository(db),
		confirmations:      NewTwoFactorConfirmationsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.verificationTokens == nil {
		return errors.New("repository verificationTokens should be initialized")
	}

	if m.resetTokens == nil {
		return errors.New("repository resetTokens should be initialized")
	}

	if m.twoFactorTokens == nil {
		return errors.New("repository twoFactorTokens should be initialized")
	}

	if m.confirmations == nil {
		return errors.New("repository twoFactorConfirmations should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) VerificationTokens() VerificationTokens {
	return m.verificationTokens
}

func (m mngr) ResetTokens() ResetTokens {
	return m.resetTokens
}

func (m mngr) TwoFactorTokens() TwoFactorTokens {
	return m.twoFactorTokens
}

func (m mngr) TwoFactorConfirmations() TwoFactorConfirmations {
	return m.confirmations
}
