// Package delivery sends rendered notifications through an external email
// provider. A Client makes at most one transmission per Send call; retry
// policy belongs to the caller.
package delivery

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"hiring-notifier/internal/common/aws"
	"hiring-notifier/internal/common/config"
	"hiring-notifier/internal/common/errors"
	apphttp "hiring-notifier/internal/common/http"
	"hiring-notifier/internal/common/logger"
)

type Status string

const (
	StatusDelivered Status = "delivered"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// ReasonNotConfigured is the skip reason when the provider lacks credentials.
const ReasonNotConfigured = "provider not configured"

// Message is one email ready for transmission.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Outcome is the result of a single Send.
type Outcome struct {
	Status    Status
	Provider  string
	MessageID string
	Reason    string
	Err       error
}

func Delivered(provider, messageID string) Outcome {
	return Outcome{Status: StatusDelivered, Provider: provider, MessageID: messageID}
}

func Skipped(provider, reason string) Outcome {
	return Outcome{Status: StatusSkipped, Provider: provider, Reason: reason}
}

// Failed classifies err as a timeout or a generic delivery failure.
func Failed(provider string, err error) Outcome {
	var cause error
	if stderrors.Is(err, context.DeadlineExceeded) {
		cause = errors.NewDeliveryTimeoutError(provider, err)
	} else {
		cause = errors.NewDeliveryFailedError(provider, err)
	}
	return Outcome{Status: StatusFailed, Provider: provider, Err: cause}
}

// Rejected is a Failed outcome that no retry can fix.
func Rejected(provider string, err error) Outcome {
	return Outcome{Status: StatusFailed, Provider: provider, Err: errors.NewDeliveryRejectedError(provider, err)}
}

// Client transmits messages. Implementations never panic on provider errors
// and never retry internally.
type Client interface {
	Name() string
	Send(ctx context.Context, msg Message) Outcome
}

// New builds the client selected by cfg.Provider. A provider without
// credentials yields an unconfigured client that skips every message.
func New(ctx context.Context, cfg config.DeliveryConfig, log logger.Logger) (Client, error) {
	timeout := config.GetDuration(cfg.Timeout)

	var client Client
	switch cfg.Provider {
	case ProviderResend:
		if cfg.Resend.APIKey == "" {
			client = NewUnconfigured(ProviderResend)
			break
		}
		c, err := NewResendClient(cfg.Resend.APIKey, cfg.Resend.BaseURL, cfg.From, apphttp.NewClient(timeout))
		if err != nil {
			return nil, err
		}
		client = c
	case ProviderSES:
		if cfg.SES.Region == "" {
			client = NewUnconfigured(ProviderSES)
			break
		}
		sesClient, err := aws.NewSESClient(ctx, cfg.SES.Region)
		if err != nil {
			return nil, fmt.Errorf("create SES client: %w", err)
		}
		client = NewSESClient(sesClient, cfg.From)
	case ProviderSMTP:
		if cfg.SMTP.Host == "" {
			client = NewUnconfigured(ProviderSMTP)
			break
		}
		client = NewSMTPClient(cfg.SMTP, cfg.From, timeout)
	default:
		return nil, fmt.Errorf("unknown delivery provider %q", cfg.Provider)
	}

	if _, unconfigured := client.(*Unconfigured); unconfigured {
		log.Warn("delivery provider not configured; notifications will be skipped",
			map[string]interface{}{"provider": cfg.Provider})
	}
	return WithTimeout(client, timeout), nil
}

type timeoutClient struct {
	Client
	timeout time.Duration
}

// WithTimeout bounds each Send of c by d. A non-positive d returns c unchanged.
func WithTimeout(c Client, d time.Duration) Client {
	if d <= 0 {
		return c
	}
	return &timeoutClient{Client: c, timeout: d}
}

func (c *timeoutClient) Send(ctx context.Context, msg Message) Outcome {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.Client.Send(ctx, msg)
}
