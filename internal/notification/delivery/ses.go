package delivery

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

const ProviderSES = "ses"

// SESService is the subset of the SES API used for delivery.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESClient struct {
	ses  SESService
	from string
}

func NewSESClient(svc SESService, from string) *SESClient {
	return &SESClient{ses: svc, from: from}
}

func (c *SESClient) Name() string { return ProviderSES }

func (c *SESClient) Send(ctx context.Context, msg Message) Outcome {
	out, err := c.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
			},
		},
		Source: aws.String(c.from),
	})
	if err != nil {
		return Failed(ProviderSES, err)
	}
	return Delivered(ProviderSES, aws.ToString(out.MessageId))
}
