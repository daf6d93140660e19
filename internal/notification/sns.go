package notification

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSPublisher is the subset of *sns.Client used by SNSSender.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSender publishes notices to an AWS SNS topic.
type SNSSender struct {
	client   SNSPublisher
	topicARN string
}

// NewSNSSender wraps an existing client.
func NewSNSSender(client SNSPublisher, topicARN string) *SNSSender {
	return &SNSSender{client: client, topicARN: topicARN}
}

// NewSNSSenderFromDefaults loads the default AWS credentials chain for region.
func NewSNSSenderFromDefaults(ctx context.Context, region, topicARN string) (*SNSSender, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return NewSNSSender(sns.NewFromConfig(cfg), topicARN), nil
}

// Name implements Sender.
func (s *SNSSender) Name() string { return "sns" }

// Send implements Sender.
func (s *SNSSender) Send(ctx context.Context, n Notice) error {
	msg := n.Body
	if n.URL != "" {
		msg += "\n" + n.URL
	}
	input := &sns.PublishInput{
		Message:  aws.String(msg),
		Subject:  aws.String(n.Title),
		TopicArn: aws.String(s.topicARN),
	}
	if _, err := s.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("error publishing to AWS SNS topic %s: %w", s.topicARN, err)
	}
	return nil
}
