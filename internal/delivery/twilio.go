package delivery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/pkg/logger"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// messageCreator is satisfied by the twilio v2010 ApiService
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioProvider sends SMS using the Twilio REST API
type TwilioProvider struct {
	api    messageCreator
	from   string
	logger *slog.Logger
}

// NewTwilioProvider creates a provider authenticated with the account SID and auth token
func NewTwilioProvider(accountSID, authToken, from string, logger *slog.Logger) *TwilioProvider {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return newTwilioProvider(client.Api, from, logger)
}

func newTwilioProvider(api messageCreator, from string, logger *slog.Logger) *TwilioProvider {
	return &TwilioProvider{api: api, from: from, logger: logger}
}

func (p *TwilioProvider) Name() string { return "twilio" }

// Send ignores ctx once the request is issued; the twilio client has no context-aware call.
func (p *TwilioProvider) Send(ctx context.Context, destination string, msg Message) (*Result, error) {
	if err := requireDestination(destination); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(destination)
	params.SetFrom(p.from)
	params.SetBody(msg.Text)

	resp, err := p.api.CreateMessage(params)
	if err != nil {
		p.logger.Error("failed to send SMS via Twilio",
			logger.MaskedPhoneAttr("phone", destination),
			slog.Any("error", err))
		return nil, fmt.Errorf("failed to send SMS: %w", err)
	}

	result := &Result{Provider: p.Name()}
	if resp != nil && resp.Sid != nil {
		result.MessageID = *resp.Sid
	}

	p.logger.Info("sms sent",
		logger.MaskedPhoneAttr("phone", destination),
		slog.String("message_id", result.MessageID))
	return result, nil
}
