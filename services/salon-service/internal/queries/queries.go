package queries

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/calendar"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/resolver"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/session"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/stats"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/storage"
)

type AppointmentSource interface {
	List(ctx context.Context, f storage.AppointmentFilter) ([]model.Appointment, error)
	Get(ctx context.Context, id string) (model.Appointment, error)
}

type StaffSource interface {
	List(ctx context.Context, activeOnly bool) ([]model.Staff, error)
}

type ServiceSource interface {
	List(ctx context.Context, f storage.ServiceFilter) ([]model.Service, error)
}

type ClientSource interface {
	List(ctx context.Context) ([]model.Client, error)
}

type SaleSource interface {
	List(ctx context.Context) ([]model.Sale, error)
}

type Deps struct {
	Appointments AppointmentSource
	Staff        StaffSource
	Services     ServiceSource
	Clients      ClientSource
	Sales        SaleSource
	Resolver     *resolver.Resolver
	Now          func() time.Time
}

// Queries are the read models behind the HTTP list endpoints and the live feed.
type Queries struct {
	appts    AppointmentSource
	staff    StaffSource
	services ServiceSource
	clients  ClientSource
	sales    SaleSource
	resolver *resolver.Resolver
	now      func() time.Time
}

func New(d Deps) *Queries {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Queries{
		appts:    d.Appointments,
		staff:    d.Staff,
		services: d.Services,
		clients:  d.Clients,
		sales:    d.Sales,
		resolver: d.Resolver,
		now:      d.Now,
	}
}

func (q *Queries) Now() time.Time {
	return q.now()
}

// Appointments lists every appointment for operators and only the caller's
// own for clients, newest date first.
func (q *Queries) Appointments(ctx context.Context, s session.Session, f storage.AppointmentFilter) ([]model.AppointmentView, error) {
	if s.Role == model.RoleClient {
		if s.ClientID == "" {
			return []model.AppointmentView{}, nil
		}
		f.ClientID = s.ClientID
	}
	appts, err := q.appts.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return q.resolver.AppointmentViews(ctx, appts), nil
}

// ClientAppointments lists the caller's own bookings whatever their role.
func (q *Queries) ClientAppointments(ctx context.Context, s session.Session) ([]model.AppointmentView, error) {
	if s.ClientID == "" {
		return []model.AppointmentView{}, nil
	}
	return q.Appointments(ctx, session.Session{Status: s.Status, UserID: s.UserID, Role: model.RoleClient, ClientID: s.ClientID}, storage.AppointmentFilter{})
}

// Appointment hides other clients' appointments as not found.
func (q *Queries) Appointment(ctx context.Context, s session.Session, id string) (model.AppointmentView, error) {
	appt, err := q.RawAppointment(ctx, s, id)
	if err != nil {
		return model.AppointmentView{}, err
	}
	return q.resolver.AppointmentViews(ctx, []model.Appointment{appt})[0], nil
}

func (q *Queries) RawAppointment(ctx context.Context, s session.Session, id string) (model.Appointment, error) {
	appt, err := q.appts.Get(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	if s.Role == model.RoleClient && appt.ClientID != s.ClientID {
		return model.Appointment{}, storage.ErrNotFound
	}
	return appt, nil
}

func (q *Queries) Staff(ctx context.Context, activeOnly bool) ([]model.Staff, error) {
	staff, err := q.staff.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return nonNil(staff), nil
}

func (q *Queries) Services(ctx context.Context, activeOnly bool, category string) ([]model.Service, error) {
	svcs, err := q.services.List(ctx, storage.ServiceFilter{ActiveOnly: activeOnly, Category: category})
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return nonNil(svcs), nil
}

func (q *Queries) Clients(ctx context.Context) ([]model.Client, error) {
	clients, err := q.clients.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return nonNil(clients), nil
}

type SalesPage struct {
	Sales []model.SaleView `json:"sales"`
	Stats stats.Sales      `json:"stats"`
}

// Sales lists sales newest first. Stats always cover every sale; search only
// narrows the rows.
func (q *Queries) Sales(ctx context.Context, search string) (SalesPage, error) {
	sales, err := q.sales.List(ctx)
	if err != nil {
		return SalesPage{}, fmt.Errorf("list sales: %w", err)
	}
	views := calendar.SearchSales(q.resolver.SaleViews(ctx, sales), search)
	return SalesPage{Sales: views, Stats: stats.ForSales(sales, q.now())}, nil
}

type Dashboard struct {
	Role   model.Role    `json:"role"`
	Admin  *stats.Admin  `json:"admin,omitempty"`
	Client *stats.Client `json:"client,omitempty"`
	// Today lists the operator's appointments for today, at most five.
	Today []model.AppointmentView `json:"today,omitempty"`
	// Upcoming and Past split a client's own bookings.
	Upcoming []model.AppointmentView `json:"upcoming,omitempty"`
	Past     []model.AppointmentView `json:"past,omitempty"`
}

func (q *Queries) Dashboard(ctx context.Context, s session.Session) (Dashboard, error) {
	now := q.now()
	if s.Role == model.RoleClient {
		views, err := q.ClientAppointments(ctx, s)
		if err != nil {
			return Dashboard{}, err
		}
		appts := make([]model.Appointment, 0, len(views))
		for _, v := range views {
			appts = append(appts, v.Appointment)
		}
		cs := stats.ForClient(appts, now)
		d := Dashboard{Role: s.Role, Client: &cs}
		for _, v := range views {
			start, err := stats.StartOf(v.Appointment, now.Location())
			if err != nil {
				continue
			}
			switch {
			case start.After(now):
				d.Upcoming = append(d.Upcoming, v)
			case start.Before(now):
				d.Past = append(d.Past, v)
			}
		}
		return d, nil
	}

	appts, err := q.appts.List(ctx, storage.AppointmentFilter{})
	if err != nil {
		return Dashboard{}, fmt.Errorf("list appointments: %w", err)
	}
	clients, err := q.clients.List(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list clients: %w", err)
	}
	svcs, err := q.services.List(ctx, storage.ServiceFilter{})
	if err != nil {
		return Dashboard{}, fmt.Errorf("list services: %w", err)
	}
	as := stats.ForAdmin(appts, len(clients), svcs, now)

	today := now.Format(model.DateLayout)
	var todays []model.Appointment
	for _, a := range appts {
		if a.Date == today && len(todays) < 5 {
			todays = append(todays, a)
		}
	}
	return Dashboard{Role: s.Role, Admin: &as, Today: q.resolver.AppointmentViews(ctx, todays)}, nil
}

// Calendar returns confirmed appointments inside the view's window around anchor.
func (q *Queries) Calendar(ctx context.Context, view calendar.View, anchor time.Time, search string) (calendar.Window, []model.AppointmentView, error) {
	w := calendar.Range(view, anchor)
	appts, err := q.appts.List(ctx, storage.AppointmentFilter{
		From:   w.From.Format(model.DateLayout),
		To:     w.To.Format(model.DateLayout),
		Status: model.StatusConfirmed,
	})
	if err != nil {
		return w, nil, fmt.Errorf("list appointments: %w", err)
	}
	views := calendar.Search(calendar.Confirmed(q.resolver.AppointmentViews(ctx, appts)), search)
	return w, views, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
