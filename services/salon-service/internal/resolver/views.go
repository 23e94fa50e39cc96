package resolver

import (
	"context"

	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
)

// refs collects the distinct ids a batch of rows points at.
type refs struct {
	staff, services, clients []string
}

func (r *Resolver) resolve(ctx context.Context, ids refs) (map[string]model.Staff, map[string]model.Service, map[string]model.Client) {
	staff, err := r.Staff(ctx, ids.staff)
	if err != nil {
		r.logger.Warn("staff lookup failed, using placeholders", "err", err)
	}
	services, err := r.Services(ctx, ids.services)
	if err != nil {
		r.logger.Warn("service lookup failed, using placeholders", "err", err)
	}
	clients, err := r.Clients(ctx, ids.clients)
	if err != nil {
		r.logger.Warn("client lookup failed, using placeholders", "err", err)
	}
	return staff, services, clients
}

// AppointmentViews joins names onto appts. Failed or missing lookups become
// placeholders instead of failing the whole list.
func (r *Resolver) AppointmentViews(ctx context.Context, appts []model.Appointment) []model.AppointmentView {
	var ids refs
	for _, a := range appts {
		ids.staff = append(ids.staff, a.StaffID)
		ids.clients = append(ids.clients, a.ClientID)
		ids.services = append(ids.services, a.ServiceIDs...)
	}
	staff, services, clients := r.resolve(ctx, ids)

	views := make([]model.AppointmentView, 0, len(appts))
	for _, a := range appts {
		v := model.AppointmentView{
			Appointment:  a,
			ClientName:   ClientName(clients, a.ClientID),
			StaffName:    StaffName(staff, a.StaffID),
			ServiceNames: ServiceNames(services, a.ServiceIDs),
		}
		if s, ok := staff[a.StaffID]; ok {
			v.StaffAvatarURL = s.AvatarURL
		}
		views = append(views, v)
	}
	return views
}

func (r *Resolver) SaleViews(ctx context.Context, sales []model.Sale) []model.SaleView {
	var ids refs
	for _, s := range sales {
		ids.staff = append(ids.staff, s.StaffID)
		ids.clients = append(ids.clients, s.ClientID)
		ids.services = append(ids.services, s.ServiceIDs...)
	}
	staff, services, clients := r.resolve(ctx, ids)

	views := make([]model.SaleView, 0, len(sales))
	for _, s := range sales {
		views = append(views, model.SaleView{
			Sale:         s,
			ClientName:   ClientName(clients, s.ClientID),
			StaffName:    StaffName(staff, s.StaffID),
			ServiceNames: ServiceNames(services, s.ServiceIDs),
		})
	}
	return views
}

func StaffName(m map[string]model.Staff, id string) string {
	if s, ok := m[id]; ok {
		return s.Name
	}
	return UnknownStaff
}

func ClientName(m map[string]model.Client, id string) string {
	if c, ok := m[id]; ok {
		return c.Name
	}
	return UnknownClient
}

// ServiceNames keeps the order of ids.
func ServiceNames(m map[string]model.Service, ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if s, ok := m[id]; ok {
			names = append(names, s.Name)
		} else {
			names = append(names, UnknownService)
		}
	}
	return names
}
