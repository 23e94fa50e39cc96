package stats

import (
	"time"

	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
)

type Admin struct {
	TodayAppointments int     `json:"today_appointments"`
	TotalClients      int     `json:"total_clients"`
	ActiveServices    int     `json:"active_services"`
	TodayRevenue      float64 `json:"today_revenue"`
}

// ForAdmin counts today against now's calendar date.
func ForAdmin(appts []model.Appointment, totalClients int, services []model.Service, now time.Time) Admin {
	today := now.Format(model.DateLayout)
	out := Admin{TotalClients: totalClients}
	for _, a := range appts {
		if a.Date == today {
			out.TodayAppointments++
			out.TodayRevenue += a.TotalPrice
		}
	}
	for _, s := range services {
		if s.IsActive {
			out.ActiveServices++
		}
	}
	return out
}

type Client struct {
	Upcoming       int     `json:"upcoming"`
	Past           int     `json:"past"`
	Total          int     `json:"total"`
	ThisMonth      int     `json:"this_month"`
	ServicesBooked int     `json:"services_booked"`
	TotalSpent     float64 `json:"total_spent"`
}

func ForClient(appts []model.Appointment, now time.Time) Client {
	upcoming, past := Split(appts, now)
	out := Client{Upcoming: len(upcoming), Past: len(past), Total: len(appts)}

	services := map[string]struct{}{}
	for _, a := range appts {
		for _, id := range a.ServiceIDs {
			services[id] = struct{}{}
		}
		if d, err := time.ParseInLocation(model.DateLayout, a.Date, now.Location()); err == nil &&
			d.Year() == now.Year() && d.Month() == now.Month() {
			out.ThisMonth++
		}
	}
	out.ServicesBooked = len(services)
	for _, a := range past {
		out.TotalSpent += a.TotalPrice
	}
	return out
}

// Split partitions by start instant in now's location. An appointment that
// starts exactly at now is in neither half.
func Split(appts []model.Appointment, now time.Time) (upcoming, past []model.Appointment) {
	for _, a := range appts {
		start, err := StartOf(a, now.Location())
		if err != nil {
			continue
		}
		switch {
		case start.After(now):
			upcoming = append(upcoming, a)
		case start.Before(now):
			past = append(past, a)
		}
	}
	return upcoming, past
}

func StartOf(a model.Appointment, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(model.DateLayout+" "+model.TimeLayout, a.Date+" "+a.StartTime, loc)
}

type Sales struct {
	TotalRevenue float64 `json:"total_revenue"`
	TotalSales   int     `json:"total_sales"`
	AverageSale  float64 `json:"average_sale"`
	TodayRevenue float64 `json:"today_revenue"`
}

func ForSales(sales []model.Sale, now time.Time) Sales {
	out := Sales{TotalSales: len(sales)}
	y, m, d := now.Date()
	for _, s := range sales {
		out.TotalRevenue += s.Amount
		sy, sm, sd := s.CreatedAt.In(now.Location()).Date()
		if sy == y && sm == m && sd == d {
			out.TodayRevenue += s.Amount
		}
	}
	if out.TotalSales > 0 {
		out.AverageSale = out.TotalRevenue / float64(out.TotalSales)
	}
	return out
}
