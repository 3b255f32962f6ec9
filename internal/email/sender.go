package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tunishield/internal/config"
)

const sendTimeout = 15 * time.Second

type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// New returns an SMTP sender when SMTP is configured and a logging no-op
// sender otherwise.
func New(cfg config.EmailConfig, logger *zap.Logger) Sender {
	if !cfg.Enabled() {
		logger.Warn("smtp not configured, outgoing mail will be dropped")
		return &NoopSender{Logger: logger}
	}
	return NewSMTPSender(cfg)
}

type SMTPSender struct {
	cfg  config.EmailConfig
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	d := &net.Dialer{}
	return &SMTPSender{cfg: cfg, dial: d.DialContext}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, text, html string) error {
	if !s.cfg.Enabled() {
		return fmt.Errorf("email is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	fromAddr := s.cfg.From
	if parsed, err := mail.ParseAddress(s.cfg.From); err == nil {
		fromAddr = parsed.Address
	}

	msg := buildMessage(s.cfg.From, to, subject, text, html)
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))

	conn, err := s.dial(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	tlsCfg := &tls.Config{ServerName: s.cfg.Host}
	if s.cfg.Secure {
		conn = tls.Client(conn, tlsCfg)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if !s.cfg.Secure {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsCfg); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(fromAddr); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// buildMessage renders a MIME message. When both bodies are present the
// message is multipart/alternative with the plain text part first.
func buildMessage(from, to, subject, text, html string) string {
	var msg strings.Builder
	msg.WriteString("From: " + from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")

	switch {
	case strings.TrimSpace(html) == "":
		msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
		msg.WriteString(text)
	case strings.TrimSpace(text) == "":
		msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
		msg.WriteString(html)
	default:
		boundary := "tunishield-" + strings.ReplaceAll(uuid.NewString(), "-", "")
		msg.WriteString("Content-Type: multipart/alternative; boundary=\"" + boundary + "\"\r\n\r\n")
		msg.WriteString("--" + boundary + "\r\n")
		msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
		msg.WriteString(text + "\r\n")
		msg.WriteString("--" + boundary + "\r\n")
		msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
		msg.WriteString(html + "\r\n")
		msg.WriteString("--" + boundary + "--\r\n")
	}
	return msg.String()
}

// NoopSender drops mail. It is used when SMTP credentials are absent so
// that code issuance keeps working in local setups.
type NoopSender struct {
	Logger *zap.Logger
}

func (n *NoopSender) Send(_ context.Context, to, subject, _, _ string) error {
	if n.Logger != nil {
		n.Logger.Info("mail dropped, smtp disabled", zap.String("to", to), zap.String("subject", subject))
	}
	return nil
}
