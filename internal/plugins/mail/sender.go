// Package mail sends the account e-mails of the identity front-end: the
// welcome message with the verification link and the password-reset code.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"net/url"
	"strings"
	"text/template"

	"github.com/keyxmakerx/identity/internal/metrics"
	"github.com/keyxmakerx/identity/internal/plugins/users"
)

// Sender is the contract the account flows use to send e-mail.
type Sender interface {
	// SendWelcomeEmail sends the verification link for a new account.
	// challenge is the login challenge the user registered from, carried
	// through so verification can continue the sign-in.
	SendWelcomeEmail(ctx context.Context, user *users.User, challenge string) error

	// SendResetPasswordEmail sends the user's current reset token.
	SendResetPasswordEmail(ctx context.Context, user *users.User, challenge string) error
}

var (
	welcomeTemplate = template.Must(template.New("welcome").Parse(`Dear {{.Name}}

Welcome! Please verify your e-mail address by opening this link:

{{.Link}}

If you did not create an account, you can ignore this message.`))

	resetPasswordTemplate = template.Must(template.New("reset").Parse(`Dear {{.Name}}

To reset your password, copy and paste this token into the formular:

{{.Token}}

You can also continue here: {{.Link}}`))
)

// mailer implements Sender.
type mailer struct {
	baseURL   string
	from      netmail.Address
	transport Transport
	metrics   *metrics.Metrics
}

// NewSender creates a sender whose links point at baseURL.
func NewSender(baseURL string, from netmail.Address, transport Transport, m *metrics.Metrics) Sender {
	return &mailer{
		baseURL:   strings.TrimRight(baseURL, "/"),
		from:      from,
		transport: transport,
		metrics:   m,
	}
}

func (s *mailer) SendWelcomeEmail(ctx context.Context, user *users.User, challenge string) error {
	if user.ActivateToken == nil {
		return fmt.Errorf("user %s has no activation token", user.Subject)
	}
	link := s.link("/verify-email", url.Values{
		"challenge":      {challenge},
		"email":          {user.Email},
		"activate_token": {*user.ActivateToken},
	})

	body, err := render(welcomeTemplate, map[string]string{"Name": user.Name, "Link": link})
	if err != nil {
		return err
	}
	return s.send(ctx, "welcome", Message{To: user.Email, Subject: "Verify your e-mail address", Body: body})
}

func (s *mailer) SendResetPasswordEmail(ctx context.Context, user *users.User, challenge string) error {
	if user.ResetPasswordToken == nil {
		return fmt.Errorf("user %s has no reset token", user.Subject)
	}
	link := s.link("/enter-verification-code", url.Values{
		"challenge": {challenge},
		"email":     {user.Email},
	})

	body, err := render(resetPasswordTemplate, map[string]string{
		"Name":  user.Name,
		"Token": *user.ResetPasswordToken,
		"Link":  link,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, "reset_password", Message{To: user.Email, Subject: "Reset password", Body: body})
}

func (s *mailer) send(ctx context.Context, kind string, msg Message) error {
	err := s.transport.Send(ctx, s.from, msg)
	s.metrics.Email(kind, err)
	if err != nil {
		slog.Error("failed to send email",
			slog.String("kind", kind),
			slog.String("to", msg.To),
			slog.Any("error", err),
		)
		return fmt.Errorf("sending %s email: %w", kind, err)
	}
	return nil
}

func (s *mailer) link(path string, query url.Values) string {
	return s.baseURL + path + "?" + query.Encode()
}

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering %s email: %w", t.Name(), err)
	}
	return b.String(), nil
}
