package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
)

type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
)

func ParseView(s string) (View, error) {
	switch View(s) {
	case ViewDay, ViewWeek, ViewMonth:
		return View(s), nil
	case "":
		return ViewWeek, nil
	default:
		return "", fmt.Errorf("unknown calendar view: %q", s)
	}
}

// Window is an inclusive range of days.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) Days() []time.Time {
	var days []time.Time
	for d := w.From; !d.After(w.To); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func (w Window) Contains(date string) bool {
	return date >= w.From.Format(model.DateLayout) && date <= w.To.Format(model.DateLayout)
}

// Range returns the days a view shows around anchor. Weeks start on Monday and
// the month view is padded to whole Monday-start weeks.
func Range(view View, anchor time.Time) Window {
	day := truncate(anchor)
	switch view {
	case ViewDay:
		return Window{From: day, To: day}
	case ViewMonth:
		first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		last := first.AddDate(0, 1, -1)
		return Window{From: weekStart(first), To: weekStart(last).AddDate(0, 0, 6)}
	default:
		start := weekStart(day)
		return Window{From: start, To: start.AddDate(0, 0, 6)}
	}
}

// Step moves the anchor one view back (dir < 0) or forward.
func Step(view View, anchor time.Time, dir int) time.Time {
	n := 1
	switch view {
	case ViewWeek:
		n = 7
	case ViewMonth:
		n = 30
	}
	if dir < 0 {
		n = -n
	}
	return anchor.AddDate(0, 0, n)
}

func truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return truncate(t).AddDate(0, 0, -offset)
}

// Confirmed keeps the appointments the calendar shows.
func Confirmed(views []model.AppointmentView) []model.AppointmentView {
	out := make([]model.AppointmentView, 0, len(views))
	for _, v := range views {
		if v.Status == model.StatusConfirmed {
			out = append(out, v)
		}
	}
	return out
}

// Search matches the client name or any service name, ignoring case.
func Search(views []model.AppointmentView, q string) []model.AppointmentView {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return views
	}
	out := make([]model.AppointmentView, 0, len(views))
	for _, v := range views {
		if matches(q, v.ClientName, v.ServiceNames) {
			out = append(out, v)
		}
	}
	return out
}

func SearchSales(views []model.SaleView, q string) []model.SaleView {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return views
	}
	out := make([]model.SaleView, 0, len(views))
	for _, v := range views {
		if matches(q, v.ClientName, v.ServiceNames) {
			out = append(out, v)
		}
	}
	return out
}

func matches(q, client string, services []string) bool {
	if strings.Contains(strings.ToLower(client), q) {
		return true
	}
	for _, name := range services {
		if strings.Contains(strings.ToLower(name), q) {
			return true
		}
	}
	return false
}

// ByDay groups views by appointment date, keeping input order within a day.
func ByDay(views []model.AppointmentView) map[string][]model.AppointmentView {
	out := map[string][]model.AppointmentView{}
	for _, v := range views {
		out[v.Date] = append(out[v.Date], v)
	}
	return out
}
