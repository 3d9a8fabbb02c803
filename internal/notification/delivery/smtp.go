package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"hiring-notifier/internal/common/config"
)

const ProviderSMTP = "smtp"

type sendFunc func(ctx context.Context, msg *mail.Msg) error

type SMTPClient struct {
	from string
	send sendFunc
}

// NewSMTPClient dials the relay once per message.
func NewSMTPClient(cfg config.SMTPConfig, from string, timeout time.Duration) *SMTPClient {
	return &SMTPClient{
		from: from,
		send: func(ctx context.Context, msg *mail.Msg) error {
			client, err := mail.NewClient(cfg.Host, smtpOptions(cfg, timeout)...)
			if err != nil {
				return fmt.Errorf("create smtp client: %w", err)
			}
			return client.DialAndSendWithContext(ctx, msg)
		},
	}
}

func smtpOptions(cfg config.SMTPConfig, timeout time.Duration) []mail.Option {
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if timeout > 0 {
		opts = append(opts, mail.WithTimeout(timeout))
	}
	switch cfg.Encryption {
	case "tls":
		opts = append(opts, mail.WithSSL())
	case "none":
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	return opts
}

func (c *SMTPClient) Name() string { return ProviderSMTP }

func (c *SMTPClient) Send(ctx context.Context, msg Message) Outcome {
	m := mail.NewMsg()
	if err := m.From(c.from); err != nil {
		return Rejected(ProviderSMTP, fmt.Errorf("invalid sender: %w", err))
	}
	if err := m.To(msg.To); err != nil {
		return Rejected(ProviderSMTP, fmt.Errorf("invalid recipient: %w", err))
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	m.SetMessageID()
	m.SetDate()

	if err := c.send(ctx, m); err != nil {
		return Failed(ProviderSMTP, err)
	}

	var messageID string
	if ids := m.GetGenHeader(mail.HeaderMessageID); len(ids) > 0 {
		messageID = ids[0]
	}
	return Delivered(ProviderSMTP, messageID)
}
