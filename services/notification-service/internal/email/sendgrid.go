package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type SendGridSender struct {
	client *sendgrid.Client
	from   From
}

func NewSendGridSender(apiKey string, from From) (*SendGridSender, error) {
	if apiKey == "" {
		return nil, errors.New("sendgrid api key not configured")
	}
	return &SendGridSender{client: sendgrid.NewSendClient(apiKey), from: defaultFrom(from)}, nil
}

// newSendGridSenderWithHost points the client at another API host.
func newSendGridSenderWithHost(apiKey, host string, from From) *SendGridSender {
	req := sendgrid.GetRequest(apiKey, "/v3/mail/send", host)
	req.Method = rest.Post
	return &SendGridSender{client: &sendgrid.Client{Request: req}, from: defaultFrom(from)}
}

func (s *SendGridSender) ProviderID() string { return "sendgrid" }

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	html := msg.HTML
	if html == "" {
		html = msg.Body
	}
	message := mail.NewSingleEmail(
		mail.NewEmail(s.from.Name, s.from.Email),
		msg.Subject,
		mail.NewEmail(msg.ToName, msg.To),
		msg.Body,
		html,
	)
	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}
