package auth_test

import (
	"context"
	"testing"
	"time"

	auth "github.com/goliatone/go-authflow"
	"github.com/stretchr/testify/assert"
)

func TestVerificationMessage(t *testing.T) {
	user := &auth.User{Name: "Ann Smith", Email: "ann@example.com"}
	token := &auth.VerificationToken{Token: "abc-123", ExpiresAt: time.Now().Add(time.Hour)}

	msg := auth.VerificationMessage(user, token, "https://app.example.com")

	assert.Equal(t, "ann@example.com", msg.To)
	assert.Equal(t, "Ann Smith", msg.Name)
	assert.Equal(t, "https://app.example.com/verify-email?token=abc-123", msg.Link)
	assert.NotEmpty(t, msg.Subject)
	assert.NotEmpty(t, msg.CTALabel)
}

func TestResetPasswordMessage(t *testing.T) {
	user := &auth.User{Name: "Ann Smith", Email: "ann@example.com"}
	token := &auth.ResetToken{Token: "abc-123", ExpiresAt: time.Now().Add(time.Hour)}

	msg := auth.ResetPasswordMessage(user, token, "https://app.example.com")

	assert.Equal(t, "https://app.example.com/new-password?token=abc-123", msg.Link)
}

func TestTwoFactorMessage(t *testing.T) {
	user := &auth.User{Name: "Ann Smith", Email: "ann@example.com"}
	token := &auth.TwoFactorToken{Token: "123456", ExpiresAt: time.Now().Add(15 * time.Minute)}

	msg := auth.TwoFactorMessage(user, token)

	assert.Contains(t, msg.Body, "123456")
	assert.Empty(t, msg.Link, "codes are typed back, never clicked")
}

func TestDebugNotifier(t *testing.T) {
	n := auth.DebugNotifier{}
	err := n.Send(context.Background(), auth.Message{To: "ann@example.com", Subject: "Hello"})
	assert.NoError(t, err)
}

func TestSMTPConfigEnabled(t *testing.T) {
	tests := []struct {
		name    string
		cfg     auth.SMTPConfig
		enabled bool
	}{
		{"complete", auth.SMTPConfig{Host: "mail.example.com", Port: 587, From: "no-reply@example.com"}, true},
		{"missing host", auth.SMTPConfig{Port: 587, From: "no-reply@example.com"}, false},
		{"missing port", auth.SMTPConfig{Host: "mail.example.com", From: "no-reply@example.com"}, false},
		{"missing from", auth.SMTPConfig{Host: "mail.example.com", Port: 587}, false},
		{"empty", auth.SMTPConfig{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.enabled, tt.cfg.Enabled())
		})
	}
}

func TestSMTPNotifierDisabled(t *testing.T) {
	n := auth.NewSMTPNotifier(auth.SMTPConfig{})

	err := n.Send(context.Background(), auth.Message{To: "ann@example.com"})
	assert.Error(t, err)
}
