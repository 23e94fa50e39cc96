package storage

import (
	"context"

	"github.com/md-rashed-zaman/salonbook/libs/db"
)

const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Notification is one delivery attempt on one channel.
type Notification struct {
	EventID       string
	EventType     string
	AppointmentID string
	Channel       string
	Recipient     string
	Subject       string
	Status        string
	ProviderID    string
	Error         string
}

type Repository struct {
	conn db.DBTX
}

func NewRepository(conn db.DBTX) *Repository {
	return &Repository{conn: conn}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO notifications (event_id, event_type, appointment_id, channel, recipient, subject, status, provider_id, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''))
	`, n.EventID, n.EventType, n.AppointmentID, n.Channel, n.Recipient, n.Subject, n.Status, n.ProviderID, n.Error)
	return err
}
