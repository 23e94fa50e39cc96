package resolver

import (
	"context"
	"fmt"

	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/outbox"
)

// Notice builds the event notification-service turns into a message. A client
// that cannot be resolved has no address to write to, so that is an error.
func (r *Resolver) Notice(ctx context.Context, eventType string, appt model.Appointment) (outbox.Event, error) {
	clients, err := r.Clients(ctx, []string{appt.ClientID})
	if err != nil {
		return outbox.Event{}, fmt.Errorf("resolve client: %w", err)
	}
	client, ok := clients[appt.ClientID]
	if !ok {
		return outbox.Event{}, fmt.Errorf("client %s not found", appt.ClientID)
	}

	staff, err := r.Staff(ctx, []string{appt.StaffID})
	if err != nil {
		r.logger.Warn("staff lookup failed, using placeholders", "err", err)
	}
	services, err := r.Services(ctx, appt.ServiceIDs)
	if err != nil {
		r.logger.Warn("service lookup failed, using placeholders", "err", err)
	}

	return outbox.NewNoticeEvent(eventType, outbox.AppointmentNotice{
		AppointmentID: appt.ID,
		ClientName:    client.Name,
		ClientEmail:   client.Email,
		ClientPhone:   client.Phone,
		StaffName:     StaffName(staff, appt.StaffID),
		ServiceNames:  ServiceNames(services, appt.ServiceIDs),
		Date:          appt.Date,
		StartTime:     appt.StartTime,
		EndTime:       appt.EndTime,
		TotalPrice:    appt.TotalPrice,
	})
}
