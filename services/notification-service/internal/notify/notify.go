package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/salonbook/libs/kafkax"
	"github.com/md-rashed-zaman/salonbook/services/notification-service/internal/email"
	"github.com/md-rashed-zaman/salonbook/services/notification-service/internal/sms"
	"github.com/md-rashed-zaman/salonbook/services/notification-service/internal/storage"
)

// Topics published by salon-service.
const (
	EventAppointmentBooked    = "salon.appointment.booked.v1"
	EventAppointmentCancelled = "salon.appointment.cancelled.v1"
)

func Topics() []string {
	return []string{EventAppointmentBooked, EventAppointmentCancelled}
}

// Notice is the payload of both appointment events.
type Notice struct {
	AppointmentID string   `json:"appointment_id"`
	ClientName    string   `json:"client_name"`
	ClientEmail   string   `json:"client_email"`
	ClientPhone   string   `json:"client_phone,omitempty"`
	StaffName     string   `json:"staff_name"`
	ServiceNames  []string `json:"service_names"`
	Date          string   `json:"appointment_date"`
	StartTime     string   `json:"start_time"`
	EndTime       string   `json:"end_time"`
	TotalPrice    float64  `json:"total_price"`
}

type Store interface {
	Insert(ctx context.Context, n storage.Notification) error
}

type Notifier struct {
	email     email.Sender
	sms       sms.Sender
	store     Store
	salonName string
	logger    *slog.Logger
}

func New(emailSender email.Sender, smsSender sms.Sender, store Store, salonName string, logger *slog.Logger) *Notifier {
	if smsSender == nil {
		smsSender = sms.NoopSender{}
	}
	if salonName == "" {
		salonName = "the salon"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{email: emailSender, sms: smsSender, store: store, salonName: salonName, logger: logger}
}

// Handle sends the messages for one appointment event and records each attempt.
// Malformed or unknown events are logged and dropped. Only a failure to record
// an attempt is returned.
func (n *Notifier) Handle(ctx context.Context, msg kafka.Message) error {
	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventType != EventAppointmentBooked && meta.EventType != EventAppointmentCancelled {
		n.logger.Warn("unexpected event type", "event_type", meta.EventType)
		return nil
	}
	var notice Notice
	if err := json.Unmarshal(msg.Value, &notice); err != nil {
		n.logger.Error("invalid notice payload", "err", err, "event_id", meta.EventID)
		return nil
	}
	if notice.AppointmentID == "" || notice.ClientEmail == "" {
		n.logger.Error("notice missing appointment or recipient", "event_id", meta.EventID)
		return nil
	}

	subject, body := n.compose(meta.EventType, notice)
	attempt := storage.Notification{
		EventID:       meta.EventID,
		EventType:     meta.EventType,
		AppointmentID: notice.AppointmentID,
		Channel:       "email",
		Recipient:     notice.ClientEmail,
		Subject:       subject,
	}
	err := n.email.Send(ctx, email.Message{To: notice.ClientEmail, ToName: notice.ClientName, Subject: subject, Body: body})
	if err := n.record(ctx, attempt, n.email.ProviderID(), err); err != nil {
		return err
	}

	if notice.ClientPhone != "" {
		text := n.smsText(meta.EventType, notice)
		attempt.Channel = "sms"
		attempt.Recipient = notice.ClientPhone
		attempt.Subject = ""
		err := n.sms.Send(ctx, notice.ClientPhone, text)
		if err := n.record(ctx, attempt, n.sms.ProviderID(), err); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) record(ctx context.Context, attempt storage.Notification, provider string, sendErr error) error {
	attempt.Status = storage.StatusSent
	attempt.ProviderID = provider
	if sendErr != nil {
		attempt.Status = storage.StatusFailed
		attempt.Error = sendErr.Error()
		n.logger.Error("notification send failed", "channel", attempt.Channel, "appointment_id", attempt.AppointmentID, "err", sendErr)
	}
	if err := n.store.Insert(ctx, attempt); err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	n.logger.Info("notification processed", "channel", attempt.Channel, "appointment_id", attempt.AppointmentID, "status", attempt.Status)
	return nil
}

func (n *Notifier) compose(eventType string, notice Notice) (string, string) {
	services := strings.Join(notice.ServiceNames, ", ")
	if eventType == EventAppointmentCancelled {
		subject := "Your appointment has been cancelled"
		body := fmt.Sprintf("Hi %s,\n\nYour appointment at %s on %s at %s (%s) has been cancelled.\n",
			notice.ClientName, n.salonName, notice.Date, notice.StartTime, services)
		return subject, body
	}
	subject := "Your appointment is confirmed"
	body := fmt.Sprintf("Hi %s,\n\nYou're booked at %s on %s from %s to %s with %s.\nServices: %s\nTotal: %.2f\n",
		notice.ClientName, n.salonName, notice.Date, notice.StartTime, notice.EndTime, notice.StaffName, services, notice.TotalPrice)
	return subject, body
}

func (n *Notifier) smsText(eventType string, notice Notice) string {
	if eventType == EventAppointmentCancelled {
		return fmt.Sprintf("%s: your appointment on %s at %s was cancelled.", n.salonName, notice.Date, notice.StartTime)
	}
	return fmt.Sprintf("%s: confirmed %s at %s with %s.", n.salonName, notice.Date, notice.StartTime, notice.StaffName)
}
