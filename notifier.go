package auth

import (
	"context"
	"fmt"

	"github.com/goliatone/go-print"
)

// Message is a rendered notification handed to a Notifier.
type Message struct {
	To       string `json:"to"`
	Name     string `json:"name"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	CTALabel string `json:"cta_label,omitempty"`
	Link     string `json:"link,omitempty"`
}

// VerificationMessage renders the verify-email notification. The link lands
// on the public verification route with the opaque token as a query param.
func VerificationMessage(user *User, token *VerificationToken, clientURL string) Message {
	return Message{
		To:       user.Email,
		Name:     user.Name,
		Subject:  "Verify your email",
		Body:     "You need to verify your email to login. Please click the below button to verify your email.",
		CTALabel: "Verify Email",
		Link:     fmt.Sprintf("%s/verify-email?token=%s", clientURL, token.Token),
	}
}

// ResetPasswordMessage renders the password reset notification.
func ResetPasswordMessage(user *User, token *ResetToken, clientURL string) Message {
	return Message{
		To:       user.Email,
		Name:     user.Name,
		Subject:  "Reset your password",
		Body:     "Please click the below button to reset your password.",
		CTALabel: "Reset Password",
		Link:     fmt.Sprintf("%s/new-password?token=%s", clientURL, token.Token),
	}
}

// TwoFactorMessage renders the two factor code notification. No link: the
// code is typed back into the sign-in form.
func TwoFactorMessage(user *User, token *TwoFactorToken) Message {
	return Message{
		To:      user.Email,
		Name:    user.Name,
		Subject: "Two factor authentication code",
		Body:    fmt.Sprintf("Your sign-in code is %s. It expires in %d minutes.", token.Token, int(TwoFactorTokenTTL.Minutes())),
	}
}

// DebugNotifier logs rendered messages instead of delivering them. Useful
// in development when no SMTP server is around.
type DebugNotifier struct {
	Logger Logger
}

var _ Notifier = (*DebugNotifier)(nil)

func (d DebugNotifier) Send(_ context.Context, msg Message) error {
	logger := d.Logger
	if logger == nil {
		logger = defLogger{}
	}
	logger.Info("Email notification", "payload", print.MaybePrettyJSON(msg))
	return nil
}
