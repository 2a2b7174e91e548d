// Package mailer hands single-use tokens to their owners, either through SMTP
// or, when no SMTP host is configured, by logging them.
package mailer

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/model"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/config"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// path is a page of the client app at PUBLIC_BASE_URL, not an API route.
// The page reads the token from the query and POSTs it to /users/verify-email
// or /users/reset-password.
type template struct {
	subject string
	path    string
	body    string
}

var templates = map[model.TokenPurpose]template{
	model.PurposeEmailVerify: {
		subject: "Verify your email",
		path:    "/verify-email",
		body:    "Welcome! Confirm your email address by opening this link:\n\n%s\n",
	},
	model.PurposeForgotPassword: {
		subject: "Reset your password",
		path:    "/reset-password",
		body:    "Someone asked to reset your password. If it was you, open this link:\n\n%s\n\nOtherwise ignore this email.\n",
	},
}

func templateFor(purpose model.TokenPurpose) (template, error) {
	t, ok := templates[purpose]
	if !ok {
		return template{}, fmt.Errorf("no mail template for %s", purpose)
	}
	return t, nil
}

// LogDeliverer writes tokens to the log instead of sending them.
type LogDeliverer struct {
	log *zap.Logger
}

func NewLogDeliverer(log *zap.Logger) *LogDeliverer {
	return &LogDeliverer{log: log}
}

func (d *LogDeliverer) Deliver(_ context.Context, purpose model.TokenPurpose, email, token string) error {
	if _, err := templateFor(purpose); err != nil {
		return err
	}
	d.log.Info("token issued",
		zap.String("purpose", string(purpose)),
		zap.String("email", email),
		zap.String("token", token),
	)
	return nil
}

// SMTPDeliverer mails a link carrying the token.
type SMTPDeliverer struct {
	cfg     config.SMTPConfig
	baseURL string
}

func NewSMTPDeliverer(cfg config.SMTPConfig) (*SMTPDeliverer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}
	return &SMTPDeliverer{cfg: cfg, baseURL: strings.TrimSuffix(cfg.BaseURL, "/")}, nil
}

// Message builds the mail for purpose without sending it.
func (d *SMTPDeliverer) Message(purpose model.TokenPurpose, email, token string) (*mail.Msg, error) {
	t, err := templateFor(purpose)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(d.cfg.From); err != nil {
		return nil, fmt.Errorf("setting from address: %w", err)
	}
	if err := msg.To(email); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}
	msg.Subject(t.subject)
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(t.body, d.link(t, token)))
	return msg, nil
}

func (d *SMTPDeliverer) link(t template, token string) string {
	return d.baseURL + t.path + "?token=" + url.QueryEscape(token)
}

func (d *SMTPDeliverer) Deliver(ctx context.Context, purpose model.TokenPurpose, email, token string) error {
	msg, err := d.Message(purpose, email, token)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(d.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if d.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	}
	if d.cfg.Username != "" && d.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(d.cfg.Username),
			mail.WithPassword(d.cfg.Password),
		)
	}

	client, err := mail.NewClient(d.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}
