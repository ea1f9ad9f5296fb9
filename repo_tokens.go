package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// VerificationTokens is the store for email verification tokens.
// GetByEmail has findFirst semantics, GetByToken findUnique semantics.
// DeleteByIDTx reports not-found when the row is already gone, which is how
// concurrent duplicate consumption becomes observable.
type VerificationTokens interface {
	GetByEmail(ctx context.Context, email string) (*VerificationToken, error)
	GetByToken(ctx context.Context, token string) (*VerificationToken, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *VerificationToken) (*VerificationToken, error)
	DeleteByEmailTx(ctx context.Context, tx bun.IDB, email string) error
	DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	CountByEmail(ctx context.Context, email string) (int, error)
}

// ResetTokens is the store for password reset tokens, same contract as
// VerificationTokens in its own namespace.
type ResetTokens interface {
	GetByEmail(ctx context.Context, email string) (*ResetToken, error)
	GetByToken(ctx context.Context, token string) (*ResetToken, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *ResetToken) (*ResetToken, error)
	DeleteByEmailTx(ctx context.Context, tx bun.IDB, email string) error
	DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	CountByEmail(ctx context.Context, email string) (int, error)
}

// TwoFactorTokens is the store for the short-lived numeric codes.
type TwoFactorTokens interface {
	GetByEmail(ctx context.Context, email string) (*TwoFactorToken, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *TwoFactorToken) (*TwoFactorToken, error)
	DeleteByEmailTx(ctx context.Context, tx bun.IDB, email string) error
	DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	CountByEmail(ctx context.Context, email string) (int, error)
}

// TwoFactorConfirmations is the store for the transient cleared-challenge
// markers, keyed by user id.
type TwoFactorConfirmations interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*TwoFactorConfirmation, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *TwoFactorConfirmation) (*TwoFactorConfirmation, error)
	DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	DeleteByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

type verificationTokens struct {
	db *bun.DB
}

func NewVerificationTokensRepository(db *bun.DB) VerificationTokens {
	return &verificationTokens{db: db}
}

func (r *verificationTokens) GetByEmail(ctx context.Context, email string) (*VerificationToken, error) {
	record := &VerificationToken{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "email", email)
	}
	return record, nil
}

func (r *verificationTokens) GetByToken(ctx context.Context, token string) (*VerificationToken, error) {
	record := &VerificationToken{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "token", token)
	}
	return record, nil
}

func (r *verificationTokens) CreateTx(ctx context.Context, tx bun.IDB, record *VerificationToken) (*VerificationToken, error) {
	prepareTokenID(&record.ID)
	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *verificationTokens) DeleteByEmailTx(ctx context.Context, tx bun.IDB, email string) error {
	_, err := tx.NewDelete().
		Model((*VerificationToken)(nil)).
		Where("email = ?", email).
		Exec(ctx)
	return err
}

func (r *verificationTokens) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*VerificationToken)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireDeleted(res, "id", id.String())
}

func (r *verificationTokens) CountByEmail(ctx context.Context, email string) (int, error) {
	return r.db.NewSelect().
		Model((*VerificationToken)(nil)).
		Where("email = ?", email).
		Count(ctx)
}

type resetTokens struct {
	db *bun.DB
}

func NewResetTokensRepository(db *bun.DB) ResetTokens {
	return &resetTokens{db: db}
}

func (r *resetTokens) GetByEmail(ctx context.Context, email string) (*ResetToken, error) {
	record := &ResetToken{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "email", email)
	}
	return record, nil
}

func (r *resetTokens) GetByToken(ctx context.Context, token string) (*ResetToken, error) {
	record := &ResetToken{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "token", token)
	}
	return record, nil
}

func (r *resetTokens) CreateTx(ctx context.Context, tx bun.IDB, record *ResetToken) (*ResetToken, error) {
	prepareTokenID(&record.ID)
	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *resetTokens) DeleteByEmailTx(ctx context.Context, tx bun.IDB, email string) error {
	_, err := tx.NewDelete().
		Model((*ResetToken)(nil)).
		Where("email = ?", email).
		Exec(ctx)
	return err
}

func (r *resetTokens) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*ResetToken)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireDeleted(res, "id", id.String())
}

func (r *resetTokens) CountByEmail(ctx context.Context, email string) (int, error) {
	return r.db.NewSelect().
		Model((*ResetToken)(nil)).
		Where("email = ?", email).
		Count(ctx)
}

type twoFactorTokens struct {
	db *bun.DB
}

func NewTwoFactorTokensRepository(db *bun.DB) TwoFactorTokens {
	return &twoFactorTokens{db: db}
}

func (r *twoFactorTokens) GetByEmail(ctx context.Context, email string) (*TwoFactorToken, error) {
	record := &TwoFactorToken{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "email", email)
	}
	return record, nil
}

func (r *twoFactorTokens) CreateTx(ctx context.Context, tx bun.IDB, record *TwoFactorToken) (*TwoFactorToken, error) {
	prepareTokenID(&record.ID)
	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *twoFactorTokens) DeleteByEmailTx(ctx context.Context, tx bun.IDB, email string) error {
	_, err := tx.NewDelete().
		Model((*TwoFactorToken)(nil)).
		Where("email = ?", email).
		Exec(ctx)
	return err
}

func (r *twoFactorTokens) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*TwoFactorToken)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireDeleted(res, "id", id.String())
}

func (r *twoFactorTokens) CountByEmail(ctx context.Context, email string) (int, error) {
	return r.db.NewSelect().
		Model((*TwoFactorToken)(nil)).
		Where("email = ?", email).
		Count(ctx)
}

type twoFactorConfirmations struct {
	db *bun.DB
}

func NewTwoFactorConfirmationsRepository(db *bun.DB) TwoFactorConfirmations {
	return &twoFactorConfirmations{db: db}
}

func (r *twoFactorConfirmations) GetByUserID(ctx context.Context, userID uuid.UUID) (*TwoFactorConfirmation, error) {
	record := &TwoFactorConfirmation{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "user_id", userID.String())
	}
	return record, nil
}

func (r *twoFactorConfirmations) CreateTx(ctx context.Context, tx bun.IDB, record *TwoFactorConfirmation) (*TwoFactorConfirmation, error) {
	prepareTokenID(&record.ID)
	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *twoFactorConfirmations) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*TwoFactorConfirmation)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireDeleted(res, "id", id.String())
}

func (r *twoFactorConfirmations) DeleteByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*TwoFactorConfirmation)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}

func prepareTokenID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func notFoundOr(err error, key, value string) error {
	if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				key: value,
			})
	}
	return err
}

func requireDeleted(res interface{ RowsAffected() (int64, error) }, key, value string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				key: value,
			})
	}

	return nil
}
