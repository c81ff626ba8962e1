package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	netmail "net/mail"
	gosmtp "net/smtp"
	"strings"
	"time"

	"github.com/keyxmakerx/identity/internal/config"
)

// dialTimeout bounds the SMTP connection attempt.
const dialTimeout = 10 * time.Second

// Message is one plain-text e-mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Transport delivers messages.
type Transport interface {
	Send(ctx context.Context, from netmail.Address, msg Message) error
}

// NewTransport returns the SMTP transport for cfg, or the log transport
// when no SMTP host is configured.
func NewTransport(cfg config.MailConfig) Transport {
	if cfg.Host == "" {
		return LogTransport{}
	}
	return &SMTPTransport{cfg: cfg}
}

// --- SMTP ---

// SMTPTransport sends through an SMTP relay using STARTTLS (default),
// implicit TLS ("ssl") or no encryption ("none").
type SMTPTransport struct {
	cfg config.MailConfig
}

// Send delivers msg. The context bounds the dial only; net/smtp has no
// per-command deadlines.
func (t *SMTPTransport) Send(ctx context.Context, from netmail.Address, msg Message) error {
	data := buildMessage(from, msg, time.Now())
	addr := net.JoinHostPort(t.cfg.Host, fmt.Sprint(t.cfg.Port))

	var conn net.Conn
	var err error
	dialer := &net.Dialer{Timeout: dialTimeout}
	if t.cfg.Encryption == "ssl" {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: t.tlsConfig()}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	client, err := gosmtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	defer client.Close()

	if t.cfg.Encryption != "ssl" && t.cfg.Encryption != "none" {
		if err := client.StartTLS(t.tlsConfig()); err != nil {
			return fmt.Errorf("starting TLS: %w", err)
		}
	}

	if t.cfg.Username != "" {
		auth := gosmtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}
	}

	return sendMessage(client, from.Address, msg.To, data)
}

func (t *SMTPTransport) tlsConfig() *tls.Config {
	return &tls.Config{ServerName: t.cfg.Host, MinVersion: tls.VersionTLS12}
}

// sendMessage handles MAIL FROM, RCPT TO, DATA for an existing SMTP client.
func sendMessage(client *gosmtp.Client, from, to string, data []byte) error {
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO %s: %w", to, err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing data: %w", err)
	}
	return client.Quit()
}

// buildMessage renders an RFC 5322 message with CRLF line endings.
func buildMessage(from netmail.Address, msg Message, date time.Time) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from.String())
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", date.UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(msg.Body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}

// --- Log ---

// LogTransport writes messages to the application log instead of sending
// them. Used in development when no SMTP host is configured.
type LogTransport struct{}

func (LogTransport) Send(_ context.Context, from netmail.Address, msg Message) error {
	slog.Info("email not sent (no SMTP host configured)",
		slog.String("from", from.Address),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}
