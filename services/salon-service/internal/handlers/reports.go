package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/calendar"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/session"
)

func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	page, err := h.Queries.Sales(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err, "failed to load sales")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Queries.Dashboard(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err, "failed to load dashboard")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}

type calendarResponse struct {
	View         calendar.View                      `json:"view"`
	From         string                             `json:"from"`
	To           string                             `json:"to"`
	Days         []string                           `json:"days"`
	Prev         string                             `json:"prev"`
	Next         string                             `json:"next"`
	Appointments []model.AppointmentView            `json:"appointments"`
	ByDay        map[string][]model.AppointmentView `json:"by_day"`
}

// Calendar serves GET /v1/calendar?view=day|week|month&date=YYYY-MM-DD&q=.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, err := calendar.ParseView(q.Get("view"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	anchor, err := parseAnchor(q.Get("date"), h.now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	win, views, err := h.Queries.Calendar(r.Context(), view, anchor, q.Get("q"))
	if err != nil {
		h.fail(w, r, err, "failed to load calendar")
		return
	}
	resp := calendarResponse{
		View:         view,
		From:         win.From.Format(model.DateLayout),
		To:           win.To.Format(model.DateLayout),
		Prev:         calendar.Step(view, anchor, -1).Format(model.DateLayout),
		Next:         calendar.Step(view, anchor, 1).Format(model.DateLayout),
		Appointments: views,
		ByDay:        calendar.ByDay(views),
	}
	for _, d := range win.Days() {
		resp.Days = append(resp.Days, d.Format(model.DateLayout))
	}
	if resp.Appointments == nil {
		resp.Appointments = []model.AppointmentView{}
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
