package email

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPSenderBuildsPlainTextMessage(t *testing.T) {
	s := NewSMTPSender("mailpit", "1025", From{Email: "desk@glow.example", Name: "Glow"})
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := s.Send(context.Background(), Message{To: "mia@example.com", ToName: "Mia", Subject: "Hello", Body: "See you"})
	require.NoError(t, err)
	assert.Equal(t, "mailpit:1025", gotAddr)
	assert.Equal(t, "desk@glow.example", gotFrom)
	assert.Equal(t, []string{"mia@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "From: Glow <desk@glow.example>\r\n")
	assert.Contains(t, string(gotMsg), "To: Mia <mia@example.com>\r\n")
	assert.Contains(t, string(gotMsg), "Subject: Hello\r\n")
	assert.Contains(t, string(gotMsg), "\r\n\r\nSee you\r\n")
}

func TestSendGridSenderPostsMail(t *testing.T) {
	var auth, path string
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, path = r.Header.Get("Authorization"), r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := newSendGridSenderWithHost("sg-key", srv.URL, From{Email: "desk@glow.example"})
	require.NoError(t, s.Send(context.Background(), Message{To: "mia@example.com", Subject: "Booked", Body: "ok"}))
	assert.Equal(t, "Bearer sg-key", auth)
	assert.Equal(t, "/v3/mail/send", path)
	assert.Equal(t, "Booked", payload["subject"])
}

func TestSendGridSenderReportsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := newSendGridSenderWithHost("sg-key", srv.URL, From{})
	err := s.Send(context.Background(), Message{To: "mia@example.com", Subject: "Booked", Body: "ok"})
	assert.ErrorContains(t, err, "status 400")
}

type fakeSES struct {
	in *sesv2.SendEmailInput
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.in = in
	return &sesv2.SendEmailOutput{MessageId: aws.String("m-1")}, nil
}

func TestSESSenderBuildsInput(t *testing.T) {
	api := &fakeSES{}
	s := NewSESSender(api, From{Email: "desk@glow.example", Name: "Glow"})
	require.NoError(t, s.Send(context.Background(), Message{To: "mia@example.com", Subject: "Booked", Body: "ok"}))

	require.NotNil(t, api.in)
	assert.Equal(t, "Glow <desk@glow.example>", aws.ToString(api.in.FromEmailAddress))
	assert.Equal(t, []string{"mia@example.com"}, api.in.Destination.ToAddresses)
	assert.Equal(t, "Booked", aws.ToString(api.in.Content.Simple.Subject.Data))
	assert.Equal(t, "ok", aws.ToString(api.in.Content.Simple.Body.Text.Data))
	assert.Nil(t, api.in.Content.Simple.Body.Html)
}

func TestNewSelectsProvider(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, Config{Provider: "log"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "log", s.ProviderID())

	s, err = New(ctx, Config{SMTPHost: "localhost", SMTPPort: "25"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "smtp", s.ProviderID())

	_, err = New(ctx, Config{Provider: "sendgrid"}, nil)
	assert.Error(t, err)

	_, err = New(ctx, Config{Provider: "pigeon"}, nil)
	assert.ErrorContains(t, err, "unknown email provider")
}
