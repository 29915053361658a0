package delivery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// sesAPI is the subset of the SES client used here
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESProvider sends email using AWS SES
type SESProvider struct {
	client      sesAPI
	fromAddress string
	logger      *slog.Logger
}

// NewSESProvider loads the default AWS credential chain for region
func NewSESProvider(ctx context.Context, region, fromAddress string, logger *slog.Logger) (*SESProvider, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newSESProvider(ses.NewFromConfig(cfg), fromAddress, logger), nil
}

func newSESProvider(client sesAPI, fromAddress string, logger *slog.Logger) *SESProvider {
	return &SESProvider{client: client, fromAddress: fromAddress, logger: logger}
}

func (p *SESProvider) Name() string { return "ses" }

func (p *SESProvider) Send(ctx context.Context, destination string, msg Message) (*Result, error) {
	if err := requireDestination(destination); err != nil {
		return nil, err
	}

	input := &ses.SendEmailInput{
		Source: aws.String(p.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{destination},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(msg.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")},
			},
		},
	}

	result, err := p.client.SendEmail(ctx, input)
	if err != nil {
		p.logger.Error("failed to send email via SES",
			logger.MaskedEmailAttr("email", destination),
			slog.Any("error", err))
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	messageID := aws.ToString(result.MessageId)
	p.logger.Info("email sent",
		logger.MaskedEmailAttr("email", destination),
		slog.String("message_id", messageID))

	return &Result{Provider: p.Name(), MessageID: messageID}, nil
}
