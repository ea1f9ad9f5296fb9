package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is the default role assigned at sign-up
	RoleUser UserRole = "USER"
	// RoleAdmin is an administrative role
	RoleAdmin UserRole = "ADMIN"
)

// User is the user model
type User struct {
	bun.BaseModel      `bun:"table:users,alias:usr"`
	ID                 uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name               string     `bun:"name,notnull" json:"name,omitempty"`
	Email              string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash       string     `bun:"password_hash" json:"password_hash,omitempty"`
	Role               UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	EmailVerifiedAt    *time.Time `bun:"email_verified_at,nullzero" json:"email_verified_at,omitempty"`
	IsTwoFactorEnabled bool       `bun:"is_two_factor_enabled" json:"is_two_factor_enabled,omitempty"`
	CreatedAt          *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt          *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// HasPassword reports whether a password path exists for this account.
// OAuth-only accounts carry no hash and must never reach the password check.
func (u *User) HasPassword() bool {
	return u != nil && u.PasswordHash != ""
}

// IsEmailVerified reports whether the verification gate has been cleared.
func (u *User) IsEmailVerified() bool {
	return u != nil && u.EmailVerifiedAt != nil
}

// TokenKind identifies a token namespace. Rotation and the per-email
// serialization in Issuer key off (kind, email).
type TokenKind = string

const (
	KindVerification TokenKind = "verification"
	KindReset        TokenKind = "reset"
	KindTwoFactor    TokenKind = "two_factor"
)

// VerificationToken gates first sign-in until the email address is confirmed.
// At most one live row per email; consumed (deleted) on successful verification.
type VerificationToken struct {
	bun.BaseModel `bun:"table:verification_tokens,alias:vtk"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string    `bun:"email,notnull" json:"email,omitempty"`
	Token         string    `bun:"token,notnull,unique" json:"token,omitempty"`
	ExpiresAt     time.Time `bun:"expires_at,notnull" json:"expires_at,omitempty"`
}

// Expired reports whether the token is past its TTL at the given instant.
func (t *VerificationToken) Expired(now time.Time) bool {
	return t != nil && now.After(t.ExpiresAt)
}

// ResetToken gates password replacement. Same contract as VerificationToken,
// independent table.
type ResetToken struct {
	bun.BaseModel `bun:"table:reset_tokens,alias:rtk"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string    `bun:"email,notnull" json:"email,omitempty"`
	Token         string    `bun:"token,notnull,unique" json:"token,omitempty"`
	ExpiresAt     time.Time `bun:"expires_at,notnull" json:"expires_at,omitempty"`
}

func (t *ResetToken) Expired(now time.Time) bool {
	return t != nil && now.After(t.ExpiresAt)
}

// TwoFactorToken carries the short-lived numeric code mailed to the user.
type TwoFactorToken struct {
	bun.BaseModel `bun:"table:two_factor_tokens,alias:tft"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string    `bun:"email,notnull" json:"email,omitempty"`
	Token         string    `bun:"token,notnull" json:"token,omitempty"`
	ExpiresAt     time.Time `bun:"expires_at,notnull" json:"expires_at,omitempty"`
}

func (t *TwoFactorToken) Expired(now time.Time) bool {
	return t != nil && now.After(t.ExpiresAt)
}

// TwoFactorConfirmation marks that the user cleared the two factor challenge
// for the sign-in currently in flight. The session exchange consumes it.
type TwoFactorConfirmation struct {
	bun.BaseModel `bun:"table:two_factor_confirmations,alias:tfc"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID `bun:"user_id,notnull,unique,type:uuid" json:"user_id,omitempty"`
}
