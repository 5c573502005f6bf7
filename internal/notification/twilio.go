package notification

import (
	"context"
	"errors"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioConfig holds the Twilio account used for SMS.
type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

// Enabled reports whether an account is configured.
func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != ""
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender sends notifications as SMS through the Twilio REST API.
type TwilioSender struct {
	api  messageCreator
	from string
}

// NewTwilioSender builds a Twilio REST client for the configured account.
func NewTwilioSender(cfg TwilioConfig) (*TwilioSender, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("twilio account sid and auth token are required")
	}
	if cfg.FromNumber == "" {
		return nil, errors.New("twilio from number is required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioSender{api: client.Api, from: cfg.FromNumber}, nil
}

// Send delivers message as an SMS.
func (s *TwilioSender) Send(ctx context.Context, message Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(message.Destination)
	params.SetFrom(s.from)
	params.SetBody(message.Body)
	_, err := s.api.CreateMessage(params)
	return err
}
