package auth

import "github.com/goliatone/go-errors"

const (
	TextCodeInvalidCredentials = "auth_invalid_credentials"
	TextCodeEmailExists        = "auth_email_exists"
	TextCodeAccountNotFound    = "auth_account_not_found"
	TextCodeTokenNotFound      = "auth_token_not_found"
	TextCodeTokenExpired       = "auth_token_expired"
	TextCodeInvalidCode        = "auth_invalid_two_factor_code"
	TextCodeTwoFactorRequired  = "auth_two_factor_required"
	TextCodePasswordMismatch   = "auth_password_mismatch"
	TextCodeEmailNotVerified   = "auth_email_not_verified"
	TextCodeEmptyPassword      = "auth_empty_password"
	TextCodeAuthFailed         = "auth_failed"
)

// ErrInvalidCredentials covers unknown accounts, password-less (OAuth only)
// accounts, and bad passwords alike. The message is deliberately generic so
// callers cannot enumerate accounts; the distinction lives in server logs.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrEmailAlreadyExists is returned when sign-up hits an existing email.
var ErrEmailAlreadyExists = errors.New("email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeEmailExists).
	WithCode(errors.CodeConflict)

// ErrAccountNotFound is returned by the password reset request for unknown
// emails. This mirrors the reference behavior and does leak account
// existence; see DESIGN.md before relaxing or tightening it.
var ErrAccountNotFound = errors.New("account not found", errors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(errors.CodeNotFound)

// ErrTokenNotFound is returned when a verification or reset token is absent,
// including replays of an already-consumed token.
var ErrTokenNotFound = errors.New("invalid or unknown token", errors.CategoryNotFound).
	WithTextCode(TextCodeTokenNotFound).
	WithCode(errors.CodeNotFound)

// ErrTokenExpired is returned for tokens past their TTL, distinct from
// ErrTokenNotFound.
var ErrTokenExpired = errors.New("token has expired", errors.CategoryValidation).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeBadRequest)

// ErrInvalidTwoFactorCode is returned for absent or mismatched two factor
// codes. Generic on purpose, same as ErrInvalidCredentials.
var ErrInvalidTwoFactorCode = errors.New("invalid two factor code", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCode).
	WithCode(errors.CodeUnauthorized)

// ErrTwoFactorRequired is returned by the session exchange when a two factor
// account reaches issuance without a live confirmation.
var ErrTwoFactorRequired = errors.New("two factor confirmation required", errors.CategoryAuth).
	WithTextCode(TextCodeTwoFactorRequired).
	WithCode(errors.CodeUnauthorized)

// ErrPasswordMismatch is returned when password and confirmation differ.
var ErrPasswordMismatch = errors.New("passwords do not match", errors.CategoryValidation).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(errors.CodeBadRequest)

// ErrEmailNotVerified is returned by the session exchange when issuance is
// attempted for an unverified account.
var ErrEmailNotVerified = errors.New("email not verified", errors.CategoryAuth).
	WithTextCode(TextCodeEmailNotVerified).
	WithCode(errors.CodeForbidden)

// ErrNoEmptyString rejects empty plaintext before it reaches bcrypt.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the hash comparison failure.
var ErrMismatchedHashAndPassword = errors.New("mismatched hash and password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrAuthFailed is the generic terminal failure for session issuance errors
// that are neither credential nor gate problems.
var ErrAuthFailed = errors.New("authentication failed", errors.CategoryAuth).
	WithTextCode(TextCodeAuthFailed).
	WithCode(errors.CodeUnauthorized)
