// Package mailer sends account mails: email verification and password reset.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Mailer delivers account mails. Link is the full URL the user should open.
type Mailer interface {
	SendVerification(ctx context.Context, to, name, link string) error
	SendPasswordReset(ctx context.Context, to, name, link string) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	AppName  string
}

// New returns an SMTP mailer when a host is configured, otherwise a mailer
// that only logs the links.
func New(cfg Config, logger *zap.Logger) Mailer {
	if cfg.Host == "" {
		return &LogMailer{logger: logger}
	}
	return newSMTPMailer(cfg, logger)
}

var (
	verificationTmpl = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #222;">
  <h2>Welcome to {{.AppName}}, {{.Name}}!</h2>
  <p>Please confirm your email address to start tracking your reading journey.</p>
  <p><a href="{{.Link}}" style="background:#4f46e5;color:#fff;padding:10px 18px;border-radius:6px;text-decoration:none;">Verify email</a></p>
  <p>This link expires in {{.ExpiresIn}}. If you did not sign up, ignore this message.</p>
</body>
</html>`))

	resetTmpl = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #222;">
  <h2>Reset your {{.AppName}} password</h2>
  <p>Hi {{.Name}}, we received a request to reset your password.</p>
  <p><a href="{{.Link}}" style="background:#4f46e5;color:#fff;padding:10px 18px;border-radius:6px;text-decoration:none;">Choose a new password</a></p>
  <p>This link expires in {{.ExpiresIn}}. If you did not ask for a reset, you can ignore this message.</p>
</body>
</html>`))
)

type mailData struct {
	AppName   string
	Name      string
	Link      string
	ExpiresIn string
}

const linkLifetime = "30 minutes"

func render(tmpl *template.Template, data mailData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s mail: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// sendTimeout bounds one delivery from dial to the end of DATA.
const sendTimeout = 15 * time.Second

type sendFunc func(ctx context.Context, msg *mail.Msg) error

// SMTPMailer sends mail through an SMTP relay. Port 465 uses implicit TLS,
// any other port upgrades with STARTTLS when the server offers it.
type SMTPMailer struct {
	cfg    Config
	logger *zap.Logger
	send   sendFunc
}

func newSMTPMailer(cfg Config, logger *zap.Logger) *SMTPMailer {
	m := &SMTPMailer{cfg: cfg, logger: logger}
	m.send = m.dialAndSend
	return m
}

func (m *SMTPMailer) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTimeout(sendTimeout),
	}
	if m.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return opts
}

func (m *SMTPMailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

func (m *SMTPMailer) SendVerification(ctx context.Context, to, name, link string) error {
	body, err := render(verificationTmpl, mailData{AppName: m.cfg.AppName, Name: name, Link: link, ExpiresIn: linkLifetime})
	if err != nil {
		return err
	}
	return m.deliver(ctx, to, "Verify your email address", body)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, name, link string) error {
	body, err := render(resetTmpl, mailData{AppName: m.cfg.AppName, Name: name, Link: link, ExpiresIn: linkLifetime})
	if err != nil {
		return err
	}
	return m.deliver(ctx, to, "Reset your password", body)
}

func (m *SMTPMailer) deliver(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := newMessage(m.cfg.From, to, subject, htmlBody)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	m.logger.Info("mail sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// newMessage builds a quoted-printable UTF-8 HTML mail with Date and
// Message-ID headers.
func newMessage(from, to, subject, htmlBody string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("mail sender %q: %w", from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("mail recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	return msg, nil
}

// LogMailer is used in development when no SMTP host is configured.
type LogMailer struct {
	logger *zap.Logger
}

func (m *LogMailer) SendVerification(_ context.Context, to, _, link string) error {
	m.logger.Info("verification mail not sent, no SMTP host configured",
		zap.String("to", to), zap.String("link", link))
	return nil
}

func (m *LogMailer) SendPasswordReset(_ context.Context, to, _, link string) error {
	m.logger.Info("password reset mail not sent, no SMTP host configured",
		zap.String("to", to), zap.String("link", link))
	return nil
}
