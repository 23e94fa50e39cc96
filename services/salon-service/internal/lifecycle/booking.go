package lifecycle

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/metrics"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/outbox"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/wizard"
)

type BookingWriter interface {
	Create(ctx context.Context, a model.Appointment, events ...outbox.Event) (model.Appointment, error)
	Update(ctx context.Context, a model.Appointment) error
}

// Booker performs the wizard's terminal write.
type Booker struct {
	appts   BookingWriter
	notices Notices
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewBooker(appts BookingWriter, notices Notices, m *metrics.Metrics, logger *slog.Logger) *Booker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Booker{appts: appts, notices: notices, metrics: m, logger: logger}
}

// Submit creates a confirmed appointment from d, or updates the appointment d
// was opened from. existing is the stored row for edits and ignored otherwise.
func (b *Booker) Submit(ctx context.Context, d wizard.Draft, existing model.Appointment, role model.Role) (model.Appointment, error) {
	appt := model.Appointment{
		ID:            d.AppointmentID,
		ClientID:      d.ClientID,
		StaffID:       d.StaffID,
		ServiceIDs:    d.ServiceIDs,
		Date:          d.Date,
		StartTime:     d.StartTime,
		EndTime:       d.EndTime,
		TotalDuration: d.TotalDuration,
		TotalPrice:    d.TotalPrice,
		Notes:         d.Notes,
	}

	if !d.Create() {
		if existing.Status.Terminal() {
			return model.Appointment{}, ErrNotEditable
		}
		appt.Status = existing.Status
		appt.CreatedAt = existing.CreatedAt
		if err := b.appts.Update(ctx, appt); err != nil {
			return model.Appointment{}, err
		}
		return appt, nil
	}

	appt.ID = uuid.NewString()
	appt.Status = model.StatusConfirmed
	var events []outbox.Event
	if b.notices != nil {
		evt, err := b.notices.Notice(ctx, outbox.EventAppointmentBooked, appt)
		if err != nil {
			b.logger.Warn("appointment notice skipped", "event_type", outbox.EventAppointmentBooked, "err", err)
		} else {
			events = append(events, evt)
		}
	}
	created, err := b.appts.Create(ctx, appt, events...)
	if err != nil {
		return model.Appointment{}, err
	}
	b.metrics.BookingCreated(string(role))
	return created, nil
}
