package delivery

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v2"
)

const ProviderResend = "resend"

// resendEmails is the slice of the Resend SDK used here.
type resendEmails interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type ResendClient struct {
	emails resendEmails
	from   string
}

// NewResendClient builds a client for the Resend HTTP API. baseURL overrides
// the API host and may be empty.
func NewResendClient(apiKey, baseURL, from string, httpClient *http.Client) (*ResendClient, error) {
	client := resend.NewCustomClient(httpClient, apiKey)
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse resend base url: %w", err)
		}
		client.BaseURL = u
	}
	return &ResendClient{emails: client.Emails, from: from}, nil
}

func (c *ResendClient) Name() string { return ProviderResend }

func (c *ResendClient) Send(ctx context.Context, msg Message) Outcome {
	resp, err := c.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return Failed(ProviderResend, err)
	}
	return Delivered(ProviderResend, resp.Id)
}
