package auth

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	// VerificationTokenTTL is the lifetime of email verification tokens.
	VerificationTokenTTL = time.Hour
	// ResetTokenTTL is the lifetime of password reset tokens.
	ResetTokenTTL = time.Hour
	// TwoFactorTokenTTL is the lifetime of two factor codes. Minutes, not
	// hours: the code is only meant to survive a mail round trip.
	TwoFactorTokenTTL = 15 * time.Minute
)

// Issuer generates, rotates, and expires the three issued token kinds.
// Rotation is delete-then-create inside one transaction, serialized per
// (kind, email), so after any issue call exactly one live token of that kind
// exists for the email and no superseded rows remain.
type Issuer struct {
	repo   RepositoryManager
	logger Logger
	now    func() time.Time
	locks  *keyedMutex
}

func NewIssuer(repo RepositoryManager) *Issuer {
	return &Issuer{
		repo:   repo,
		logger: defLogger{},
		now:    time.Now,
		locks:  newKeyedMutex(),
	}
}

func (i *Issuer) WithLogger(logger Logger) *Issuer {
	if logger != nil {
		i.logger = logger
	}
	return i
}

// WithClock overrides the time source, used by tests to pin expiries.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	if now != nil {
		i.now = now
	}
	return i
}

// IssueVerificationToken rotates and persists a fresh verification token for
// the email, valid for VerificationTokenTTL.
func (i *Issuer) IssueVerificationToken(ctx context.Context, email string) (*VerificationToken, error) {
	unlock := i.locks.lock(KindVerification, email)
	defer unlock()

	record := &VerificationToken{
		Email:     email,
		Token:     uuid.NewString(),
		ExpiresAt: i.now().Add(VerificationTokenTTL),
	}

	err := i.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := i.repo.VerificationTokens().DeleteByEmailTx(ctx, tx, email); err != nil {
			return err
		}
		created, err := i.repo.VerificationTokens().CreateTx(ctx, tx, record)
		if err != nil {
			return err
		}
		record = created
		return nil
	})

	if err != nil {
		i.logger.Error("issue verification token failed", "email", email, "error", err)
		return nil, internalIssueError(err, KindVerification)
	}

	return record, nil
}

// IssueResetToken rotates and persists a fresh password reset token for the
// email, valid for ResetTokenTTL.
func (i *Issuer) IssueResetToken(ctx context.Context, email string) (*ResetToken, error) {
	unlock := i.locks.lock(KindReset, email)
	defer unlock()

	record := &ResetToken{
		Email:     email,
		Token:     uuid.NewString(),
		ExpiresAt: i.now().Add(ResetTokenTTL),
	}

	err := i.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := i.repo.ResetTokens().DeleteByEmailTx(ctx, tx, email); err != nil {
			return err
		}
		created, err := i.repo.ResetTokens().CreateTx(ctx, tx, record)
		if err != nil {
			return err
		}
		record = created
		return nil
	})

	if err != nil {
		i.logger.Error("issue reset token failed", "email", email, "error", err)
		return nil, internalIssueError(err, KindReset)
	}

	return record, nil
}

// IssueTwoFactorToken rotates and persists a fresh six digit code for the
// email, valid for TwoFactorTokenTTL.
func (i *Issuer) IssueTwoFactorToken(ctx context.Context, email string) (*TwoFactorToken, error) {
	unlock := i.locks.lock(KindTwoFactor, email)
	defer unlock()

	code, err := generateTwoFactorCode()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate two factor code")
	}

	record := &TwoFactorToken{
		Email:     email,
		Token:     code,
		ExpiresAt: i.now().Add(TwoFactorTokenTTL),
	}

	err = i.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := i.repo.TwoFactorTokens().DeleteByEmailTx(ctx, tx, email); err != nil {
			return err
		}
		created, err := i.repo.TwoFactorTokens().CreateTx(ctx, tx, record)
		if err != nil {
			return err
		}
		record = created
		return nil
	})

	if err != nil {
		i.logger.Error("issue two factor token failed", "email", email, "error", err)
		return nil, internalIssueError(err, KindTwoFactor)
	}

	return record, nil
}

// generateTwoFactorCode returns a uniformly random code in [100000, 999999].
func generateTwoFactorCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

// internalIssueError hides storage detail behind a generic internal error;
// the cause stays on the chain for server-side logs only.
func internalIssueError(err error, kind TokenKind) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, "Internal Error").
		WithMetadata(map[string]any{
			"token_kind": kind,
		})
}

// keyedMutex serializes token mutations per (kind, email). Entries are
// reference counted and removed when the last holder unlocks.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{
		locks: map[string]*keyedLock{},
	}
}

func (k *keyedMutex) lock(kind TokenKind, email string) func() {
	key := kind + ":" + email

	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedLock{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
