package queries

import (
	"context"
	"fmt"

	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/outbox"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/session"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/storage"
)

// Resource names a live query.
type Resource string

const (
	ResourceAppointments       Resource = "appointments"
	ResourceClientAppointments Resource = "client-appointments"
	ResourceStaff              Resource = "staff"
	ResourceServices           Resource = "services"
	ResourceClients            Resource = "clients"
	ResourceSales              Resource = "sales"
)

func ParseResource(s string) (Resource, error) {
	switch r := Resource(s); r {
	case ResourceAppointments, ResourceClientAppointments, ResourceStaff, ResourceServices, ResourceClients, ResourceSales:
		return r, nil
	default:
		return "", fmt.Errorf("unknown resource: %q", s)
	}
}

// Tables lists the tables whose changes invalidate the resource. Joined
// names make staff, services and clients changes relevant to appointments and sales.
func (r Resource) Tables() []string {
	switch r {
	case ResourceAppointments, ResourceClientAppointments:
		return []string{outbox.TableAppointments, outbox.TableStaff, outbox.TableServices, outbox.TableClients}
	case ResourceSales:
		return []string{outbox.TableSales, outbox.TableStaff, outbox.TableServices, outbox.TableClients}
	case ResourceStaff:
		return []string{outbox.TableStaff}
	case ResourceServices:
		return []string{outbox.TableServices}
	case ResourceClients:
		return []string{outbox.TableClients}
	}
	return nil
}

// Allowed reports whether the role may watch the resource.
func (r Resource) Allowed(role model.Role) bool {
	switch r {
	case ResourceClients, ResourceSales:
		return role.Operator()
	}
	return role != ""
}

// Fetch runs the query behind a resource.
func (q *Queries) Fetch(ctx context.Context, r Resource, s session.Session) (any, error) {
	switch r {
	case ResourceAppointments:
		return q.Appointments(ctx, s, storage.AppointmentFilter{})
	case ResourceClientAppointments:
		return q.ClientAppointments(ctx, s)
	case ResourceStaff:
		return q.Staff(ctx, false)
	case ResourceServices:
		return q.Services(ctx, false, "")
	case ResourceClients:
		return q.Clients(ctx)
	case ResourceSales:
		page, err := q.Sales(ctx, "")
		return page.Sales, err
	}
	return nil, fmt.Errorf("unknown resource: %q", r)
}
