// internal/common/aws/sns.go
package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"hiring-notifier/internal/common/errors"
	"hiring-notifier/internal/models"
)

// SNSService is the subset of the SNS API used for outcome fan-out.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// NewSNSClient builds an SNS client for region from the default credential chain.
func NewSNSClient(ctx context.Context, region string) (*sns.Client, error) {
	cfg, err := loadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return sns.NewFromConfig(cfg), nil
}

// SNSPublisher publishes every dispatch outcome to a topic so downstream
// consumers (analytics, the admin console) can react without polling.
type SNSPublisher struct {
	client   SNSService
	topicARN string
}

func NewSNSPublisher(client SNSService, topicARN string) *SNSPublisher {
	return &SNSPublisher{client: client, topicARN: topicARN}
}

// Record publishes the record as a JSON message with status and kind as
// message attributes for subscription filtering.
func (p *SNSPublisher) Record(ctx context.Context, record models.DeliveryRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return errors.NewOutcomePublishFailedError(fmt.Errorf("marshal record: %w", err))
	}

	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		Subject:  aws.String("notification." + record.Status),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"status": {DataType: aws.String("String"), StringValue: aws.String(record.Status)},
			"kind":   {DataType: aws.String("String"), StringValue: aws.String(string(record.Kind))},
		},
	})
	if err != nil {
		return errors.NewOutcomePublishFailedError(err)
	}
	return nil
}
