package notify

import (
	"context"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"smartattendance/internal/logger"
)

// SMSSender delivers through Twilio's messages API.
type SMSSender struct {
	client *twilio.RestClient
	from   string
	log    logger.Logger
}

// NewSMSSender returns a Twilio sender, or NoopSender when any credential is missing.
func NewSMSSender(accountSID, authToken, from string, log logger.Logger) Sender {
	if accountSID == "" || authToken == "" || from == "" {
		return NoopSender{}
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &SMSSender{client: client, from: from, log: log}
}

func (s *SMSSender) Send(ctx context.Context, to string, content Content) bool {
	if ctx.Err() != nil {
		return false
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(content.Subject + ": " + content.Body)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		s.log.Warn("sending sms", err)
		return false
	}
	return true
}
