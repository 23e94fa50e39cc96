package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/outbox"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/wizard"
)

type fakeBookings struct {
	created []model.Appointment
	updated []model.Appointment
	events  []outbox.Event
	err     error
}

func (f *fakeBookings) Create(_ context.Context, a model.Appointment, events ...outbox.Event) (model.Appointment, error) {
	if f.err != nil {
		return model.Appointment{}, f.err
	}
	f.created = append(f.created, a)
	f.events = append(f.events, events...)
	return a, nil
}

func (f *fakeBookings) Update(_ context.Context, a model.Appointment) error {
	if f.err != nil {
		return f.err
	}
	f.updated = append(f.updated, a)
	return nil
}

func draftFor(t *testing.T, appointmentID string) wizard.Draft {
	t.Helper()
	s := wizard.New(model.RoleAdmin, "2025-03-14")
	s.ToggleService(model.Service{ID: "svc-1", Price: 500, Duration: 30})
	s.ToggleService(model.Service{ID: "svc-2", Price: 300, Duration: 45})
	s.SetClient("client-1")
	s.SetStaff("staff-1")
	require.NoError(t, s.SetTime("13:00"))
	s.AppointmentID = appointmentID
	d, err := s.Draft()
	require.NoError(t, err)
	return d
}

func TestSubmitCreatesConfirmedAppointment(t *testing.T) {
	w := &fakeBookings{}
	b := NewBooker(w, fakeNotices{}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	appt, err := b.Submit(context.Background(), draftFor(t, ""), model.Appointment{}, model.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, w.created, 1)
	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, model.StatusConfirmed, appt.Status)
	assert.Equal(t, 800.0, appt.TotalPrice)
	assert.Equal(t, 75, appt.TotalDuration)
	assert.Equal(t, "14:15", appt.EndTime)
	require.Len(t, w.events, 1)
	assert.Equal(t, outbox.EventAppointmentBooked, w.events[0].EventType)
}

func TestSubmitUpdatesExistingAppointment(t *testing.T) {
	w := &fakeBookings{}
	b := NewBooker(w, nil, nil, nil)
	existing := sampleAppointment(model.StatusPending)

	appt, err := b.Submit(context.Background(), draftFor(t, existing.ID), existing, model.RoleStaff)
	require.NoError(t, err)
	assert.Empty(t, w.created)
	require.Len(t, w.updated, 1)
	assert.Equal(t, existing.ID, appt.ID)
	assert.Equal(t, model.StatusPending, appt.Status)
}

func TestSubmitRefusesTerminalEdit(t *testing.T) {
	w := &fakeBookings{}
	b := NewBooker(w, nil, nil, nil)
	existing := sampleAppointment(model.StatusCompleted)

	_, err := b.Submit(context.Background(), draftFor(t, existing.ID), existing, model.RoleStaff)
	assert.ErrorIs(t, err, ErrNotEditable)
	assert.Empty(t, w.updated)
}

func TestSubmitPropagatesWriteFailure(t *testing.T) {
	w := &fakeBookings{err: errors.New("db down")}
	b := NewBooker(w, nil, nil, nil)

	_, err := b.Submit(context.Background(), draftFor(t, ""), model.Appointment{}, model.RoleClient)
	assert.Error(t, err)
}
