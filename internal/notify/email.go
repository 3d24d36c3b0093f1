package notify

import (
	"context"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"smartattendance/internal/logger"
)

// EmailSender delivers through SendGrid.
type EmailSender struct {
	client     *sendgrid.Client
	from       *sgmail.Email
	subjPrefix string
	log        logger.Logger
}

// NewEmailSender returns a SendGrid sender, or NoopSender when apiKey or from is empty.
func NewEmailSender(apiKey, from, fromName, appName string, log logger.Logger) Sender {
	if apiKey == "" || from == "" {
		return NoopSender{}
	}
	prefix := ""
	if appName != "" {
		prefix = "[" + appName + "] "
	}
	return &EmailSender{
		client:     sendgrid.NewSendClient(apiKey),
		from:       sgmail.NewEmail(fromName, from),
		subjPrefix: prefix,
		log:        log,
	}
}

func (s *EmailSender) Send(ctx context.Context, to string, content Content) bool {
	m := sgmail.NewSingleEmail(s.from, s.subjPrefix+content.Subject, sgmail.NewEmail("", to), content.Body, "")
	res, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		s.log.Warn("sending email", err)
		return false
	}
	if res.StatusCode >= http.StatusBadRequest {
		s.log.Warn("sending email rejected", map[string]any{"status": res.StatusCode, "body": res.Body})
		return false
	}
	return true
}
