package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Message is one outgoing email. HTML is optional.
type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
	ProviderID() string
}

// From is the sender identity shared by every provider.
type From struct {
	Email string
	Name  string
}

func (f From) header() string {
	if f.Name == "" {
		return f.Email
	}
	return fmt.Sprintf("%s <%s>", f.Name, f.Email)
}

func defaultFrom(f From) From {
	f.Email = strings.TrimSpace(f.Email)
	if f.Email == "" {
		f.Email = "no-reply@salonbook.local"
	}
	if f.Name == "" {
		f.Name = "Salon"
	}
	return f
}

// SMTPSender sends through an unauthenticated relay such as Mailpit.
type SMTPSender struct {
	addr string
	from From
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(host, port string, from From) *SMTPSender {
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%s", strings.TrimSpace(host), strings.TrimSpace(port)),
		from: defaultFrom(from),
		send: smtp.SendMail,
	}
}

func (s *SMTPSender) ProviderID() string { return "smtp" }

func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	return s.send(s.addr, nil, s.from.Email, []string{msg.To}, buildMessage(s.from, msg))
}

func buildMessage(from From, msg Message) []byte {
	to := msg.To
	if msg.ToName != "" {
		to = fmt.Sprintf("%s <%s>", msg.ToName, msg.To)
	}
	return []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from.header(), to, msg.Subject, msg.Body,
	))
}

// LogSender only logs. It backs EMAIL_PROVIDER=log for local runs.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) ProviderID() string { return "log" }

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email not sent (log provider)", "to", msg.To, "subject", msg.Subject)
	return nil
}
