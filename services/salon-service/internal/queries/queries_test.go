package queries

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/resolver"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/session"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/storage"
)

type fakeAppointments struct {
	rows    []model.Appointment
	filters []storage.AppointmentFilter
	err     error
}

func (f *fakeAppointments) List(_ context.Context, filter storage.AppointmentFilter) ([]model.Appointment, error) {
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Appointment
	for _, a := range f.rows {
		if filter.ClientID != "" && a.ClientID != filter.ClientID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAppointments) Get(_ context.Context, id string) (model.Appointment, error) {
	for _, a := range f.rows {
		if a.ID == id {
			return a, nil
		}
	}
	return model.Appointment{}, storage.ErrNotFound
}

type fakeCatalog struct{}

func (fakeCatalog) List(context.Context, bool) ([]model.Staff, error) { return nil, nil }

func (fakeCatalog) ByIDs(_ context.Context, ids []string) ([]model.Staff, error) {
	var out []model.Staff
	for _, id := range ids {
		out = append(out, model.Staff{ID: id, Name: "Staff " + id})
	}
	return out, nil
}

type fakeServices struct{}

func (fakeServices) List(context.Context, storage.ServiceFilter) ([]model.Service, error) {
	return []model.Service{{ID: "svc-1", IsActive: true}}, nil
}

func (fakeServices) ByIDs(_ context.Context, ids []string) ([]model.Service, error) {
	var out []model.Service
	for _, id := range ids {
		out = append(out, model.Service{ID: id, Name: "Service " + id})
	}
	return out, nil
}

type fakeClients struct{}

func (fakeClients) List(context.Context) ([]model.Client, error) {
	return []model.Client{{ID: "c-1"}, {ID: "c-2"}}, nil
}

func (fakeClients) ByIDs(_ context.Context, ids []string) ([]model.Client, error) {
	var out []model.Client
	for _, id := range ids {
		out = append(out, model.Client{ID: id, Name: "Client " + id})
	}
	return out, nil
}

type fakeSales struct{}

func (fakeSales) List(context.Context) ([]model.Sale, error) {
	return []model.Sale{
		{ID: "s-1", ClientID: "c-1", StaffID: "st-1", ServiceIDs: []string{"svc-1"}, Amount: 500, CreatedAt: fixedNow},
		{ID: "s-2", ClientID: "c-2", StaffID: "st-1", ServiceIDs: []string{"svc-2"}, Amount: 300, CreatedAt: fixedNow.Add(-72 * time.Hour)},
	}, nil
}

var fixedNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func newQueries(appts *fakeAppointments) *Queries {
	res := resolver.New(resolver.Config{
		Staff: fakeCatalog{}, Services: fakeServices{}, Clients: fakeClients{},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return New(Deps{
		Appointments: appts,
		Staff:        fakeCatalog{},
		Services:     fakeServices{},
		Clients:      fakeClients{},
		Sales:        fakeSales{},
		Resolver:     res,
		Now:          func() time.Time { return fixedNow },
	})
}

func sampleAppointments() []model.Appointment {
	return []model.Appointment{
		{ID: "a-1", ClientID: "c-1", StaffID: "st-1", ServiceIDs: []string{"svc-1"}, Date: "2025-03-15", StartTime: "10:00", Status: model.StatusConfirmed, TotalPrice: 500},
		{ID: "a-2", ClientID: "c-2", StaffID: "st-2", ServiceIDs: []string{"svc-2"}, Date: "2025-03-14", StartTime: "09:00", Status: model.StatusPending, TotalPrice: 300},
	}
}

func TestAppointmentsAreRoleScoped(t *testing.T) {
	appts := &fakeAppointments{rows: sampleAppointments()}
	q := newQueries(appts)
	ctx := context.Background()

	all, err := q.Appointments(ctx, session.Session{Role: model.RoleStaff}, storage.AppointmentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "Staff st-1", all[0].StaffName)

	mine, err := q.Appointments(ctx, session.Session{Role: model.RoleClient, ClientID: "c-2"}, storage.AppointmentFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "a-2", mine[0].ID)
	assert.Equal(t, []string{"Service svc-2"}, mine[0].ServiceNames)

	none, err := q.Appointments(ctx, session.Session{Role: model.RoleClient}, storage.AppointmentFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAppointmentHidesOtherClients(t *testing.T) {
	q := newQueries(&fakeAppointments{rows: sampleAppointments()})

	_, err := q.Appointment(context.Background(), session.Session{Role: model.RoleClient, ClientID: "c-1"}, "a-2")
	assert.True(t, storage.IsNotFound(err))

	v, err := q.Appointment(context.Background(), session.Session{Role: model.RoleAdmin}, "a-2")
	require.NoError(t, err)
	assert.Equal(t, "Client c-2", v.ClientName)
}

func TestPrimaryQueryFailureIsReturned(t *testing.T) {
	q := newQueries(&fakeAppointments{err: errors.New("db down")})
	_, err := q.Appointments(context.Background(), session.Session{Role: model.RoleAdmin}, storage.AppointmentFilter{})
	assert.Error(t, err)
}

func TestSalesPage(t *testing.T) {
	q := newQueries(&fakeAppointments{})

	page, err := q.Sales(context.Background(), "svc-2")
	require.NoError(t, err)
	require.Len(t, page.Sales, 1)
	assert.Equal(t, "s-2", page.Sales[0].ID)
	assert.Equal(t, 800.0, page.Stats.TotalRevenue)
	assert.Equal(t, 500.0, page.Stats.TodayRevenue)
}

func TestDashboardByRole(t *testing.T) {
	q := newQueries(&fakeAppointments{rows: sampleAppointments()})

	admin, err := q.Dashboard(context.Background(), session.Session{Role: model.RoleAdmin})
	require.NoError(t, err)
	require.NotNil(t, admin.Admin)
	assert.Equal(t, 1, admin.Admin.TodayAppointments)
	assert.Equal(t, 2, admin.Admin.TotalClients)
	assert.Len(t, admin.Today, 1)

	client, err := q.Dashboard(context.Background(), session.Session{Role: model.RoleClient, ClientID: "c-1"})
	require.NoError(t, err)
	require.NotNil(t, client.Client)
	assert.Equal(t, 1, client.Client.Upcoming)
	assert.Len(t, client.Upcoming, 1)
	assert.Empty(t, client.Past)
}

func TestCalendarFiltersConfirmedInWindow(t *testing.T) {
	appts := &fakeAppointments{rows: sampleAppointments()}
	q := newQueries(appts)

	w, views, err := q.Calendar(context.Background(), "week", fixedNow, "")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", w.From.Format(model.DateLayout))
	require.Len(t, views, 1)
	assert.Equal(t, "a-1", views[0].ID)
	assert.Equal(t, model.StatusConfirmed, appts.filters[0].Status)
	assert.Equal(t, "2025-03-16", appts.filters[0].To)
}

func TestResourceTablesAndAccess(t *testing.T) {
	r, err := ParseResource("client-appointments")
	require.NoError(t, err)
	assert.Contains(t, r.Tables(), "appointments")
	assert.True(t, r.Allowed(model.RoleClient))
	assert.False(t, ResourceSales.Allowed(model.RoleClient))

	_, err = ParseResource("invoices")
	assert.Error(t, err)
}
