package auth

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// SMTPConfig configures the SMTP backed Notifier. Secure selects implicit
// TLS on connect; otherwise STARTTLS is attempted when the server offers it.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Secure   bool
}

// Enabled reports whether the config is complete enough to send.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.Port != 0 && c.From != ""
}

// SMTPNotifier delivers Messages over SMTP.
type SMTPNotifier struct {
	cfg SMTPConfig
}

var _ Notifier = (*SMTPNotifier)(nil)

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

func (s *SMTPNotifier) Send(_ context.Context, msg Message) error {
	if !s.cfg.Enabled() {
		return goerrors.New("email is not configured", goerrors.CategoryInternal)
	}

	var body strings.Builder
	body.WriteString(fmt.Sprintf("From: %s\r\n", s.cfg.From))
	body.WriteString(fmt.Sprintf("To: %s\r\n", msg.To))
	body.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	body.WriteString("MIME-Version: 1.0\r\n")
	body.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	body.WriteString(renderPlainText(msg))

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var client *smtp.Client
	var err error

	if s.cfg.Secure {
		conn, dialErr := tls.Dial("tcp", addr, &tls.Config{ServerName: s.cfg.Host})
		if dialErr != nil {
			return goerrors.Wrap(dialErr, goerrors.CategoryInternal, "failed to dial SMTP server")
		}
		client, err = smtp.NewClient(conn, s.cfg.Host)
	} else {
		client, err = smtp.Dial(addr)
	}

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open SMTP session")
	}
	defer client.Close()

	if !s.cfg.Secure {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "STARTTLS failed")
			}
		}
	}

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "SMTP authentication failed")
		}
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "SMTP MAIL FROM failed")
	}
	if err := client.Rcpt(msg.To); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "SMTP RCPT TO failed")
	}

	w, err := client.Data()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "SMTP DATA failed")
	}
	if _, err := w.Write([]byte(body.String())); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write message body")
	}
	if err := w.Close(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize message")
	}

	return client.Quit()
}

func renderPlainText(msg Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\r\n\r\n", msg.Name)
	b.WriteString(msg.Body)
	b.WriteString("\r\n")
	if msg.Link != "" {
		label := msg.CTALabel
		if label == "" {
			label = "Open"
		}
		fmt.Fprintf(&b, "\r\n%s: %s\r\n", label, msg.Link)
	}
	b.WriteString("\r\nIf you didn't request this, you can safely ignore this email.\r\n")
	return b.String()
}
