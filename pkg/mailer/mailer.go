// Package mailer sends plain text email over SMTP.
package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/tendant/siteuser/pkg/config"
)

// SMTPMailer delivers messages through one SMTP relay.
type SMTPMailer struct {
	client      *mail.Client
	defaultFrom string
}

// New creates a mailer for cfg. The connection is opened per message.
func New(cfg config.EmailConfig) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(int(cfg.Port)),
		mail.WithTimeout(30 * time.Second),
	}

	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	if cfg.TLS {
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}),
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, err
	}

	slog.Info("Mail client ready", "host", cfg.Host, "port", cfg.Port, "tls", cfg.TLS)
	return &SMTPMailer{client: client, defaultFrom: cfg.From}, nil
}

// Send delivers one message. An empty from uses EMAIL_FROM.
func (m *SMTPMailer) Send(ctx context.Context, from string, to []string, subject, body string) error {
	if from == "" {
		from = m.defaultFrom
	}
	msg, err := buildMessage(from, to, subject, body)
	if err != nil {
		return err
	}

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		slog.Error("Failed to send email", "to", to, "subject", subject, "err", err)
		return err
	}

	slog.Info("Email sent", "to", to, "subject", subject)
	return nil
}

func buildMessage(from string, to []string, subject, body string) (*mail.Msg, error) {
	if len(to) == 0 {
		return nil, errors.New("email requires at least one recipient")
	}

	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, err
	}
	if err := msg.To(to...); err != nil {
		return nil, err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}
