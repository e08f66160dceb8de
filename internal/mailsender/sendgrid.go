package mailsender

import (
	"context"
	"fmt"

	"accounts_service/internal/models"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridEndpoint = "/v3/mail/send"

type SendGrid struct {
	client *sendgrid.Client
	from   *mail.Email
}

type SendGridOption func(*SendGrid, string)

// WithSendGridHost points the client at a different API host.
func WithSendGridHost(host string) SendGridOption {
	return func(s *SendGrid, key string) {
		req := sendgrid.GetRequest(key, sendGridEndpoint, host)
		req.Method = "POST"
		s.client = &sendgrid.Client{Request: req}
	}
}

func NewSendGrid(apiKey, fromName, fromAddress string, opts ...SendGridOption) *SendGrid {
	s := &SendGrid{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromAddress),
	}
	for _, opt := range opts {
		opt(s, apiKey)
	}
	return s
}

func (s *SendGrid) Send(ctx context.Context, msg models.Message) error {
	const op = "mailsender.SendGrid.Send"

	to := mail.NewEmail("", msg.To)
	message := mail.NewSingleEmail(s.from, msg.Subject, to, "", msg.Body)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("%s: sendgrid responded %d: %s", op, response.StatusCode, response.Body)
	}

	return nil
}
