// Package auth implements the credential and token lifecycle for email/password
// sign-in with optional email-delivered two-factor codes.
//
// Flows are modeled as command handlers (RegisterUserHandler, SignInHandler,
// OAuthSignInHandler, VerifyEmailHandler, RequestPasswordResetHandler,
// FinalizePasswordResetHandler) that coordinate four single-use token kinds:
//   - verification tokens gate first sign-in until the address is confirmed,
//   - reset tokens gate password replacement,
//   - two-factor tokens carry a short-lived numeric code,
//   - two-factor confirmations mark a cleared challenge for the in-flight
//     sign-in and are consumed by the final session exchange.
//
// Tokens rotate delete-then-create so at most one live token of a kind exists
// per email; consumption is a delete, which makes replay observable as a
// missing row. Gate ordering is fixed: password, email verification, two
// factor, session issuance. An unverified account only ever receives a
// verification email, even with two factor enabled.
//
// Persistence runs through Bun repositories, notification through the
// Notifier interface, and session issuance through a SessionExchanger; all
// three are injectable for testing and for embedding into a host application.
package auth
