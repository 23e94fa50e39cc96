package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/calendar"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/lifecycle"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/session"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/storage"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/wizard"
)

// selectionRequest is the booking selection. Clients always book for their
// own client record, so ClientID is ignored for them.
type selectionRequest struct {
	ClientID   string   `json:"client_id"`
	StaffID    string   `json:"staff_id"`
	ServiceIDs []string `json:"service_ids"`
	Date       string   `json:"appointment_date"`
	StartTime  string   `json:"start_time"`
	Notes      string   `json:"notes"`
}

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := storage.AppointmentFilter{StaffID: q.Get("staff_id")}
	if raw := q.Get("status"); raw != "" {
		status, err := model.ParseStatus(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.Status = status
	}
	if q.Get("view") != "" || q.Get("date") != "" {
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
		win := calendar.Range(view, anchor)
		f.From = win.From.Format(model.DateLayout)
		f.To = win.To.Format(model.DateLayout)
	}

	views, err := h.Queries.Appointments(r.Context(), session.FromContext(r.Context()), f)
	if err != nil {
		h.fail(w, r, err, "failed to load appointments")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, calendar.Search(views, q.Get("q")))
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	view, err := h.Queries.Appointment(r.Context(), session.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "failed to load appointment")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

// SubmitAppointment books directly from a full selection, without a stored draft.
func (h *Handler) SubmitAppointment(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s, err := h.ensureClient(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err, "failed to create client profile")
		return
	}
	state := wizard.New(s.Role, h.now().Format(model.DateLayout))
	if err := h.applySelection(r.Context(), s, state, req, true); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.submit(w, r, s, state)
}

// UpdateAppointment is the edit path: the stored appointment is reloaded into a
// wizard, the selection applied on top and the result written back.
func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s := session.FromContext(r.Context())
	state, err := h.editState(r.Context(), s, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "failed to load appointment")
		return
	}
	if err := h.applySelection(r.Context(), s, state, req, len(req.ServiceIDs) > 0); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.submit(w, r, s, state)
}

func (h *Handler) editState(ctx context.Context, s session.Session, id string) (*wizard.State, error) {
	appt, err := h.Queries.RawAppointment(ctx, s, id)
	if err != nil {
		return nil, err
	}
	svcs, err := h.Services.ByIDs(ctx, appt.ServiceIDs)
	if err != nil {
		return nil, fmt.Errorf("load services: %w", err)
	}
	return wizard.ForEdit(s.Role, appt, orderServices(svcs, appt.ServiceIDs)), nil
}

// ensureClient gives a client user without a client row (its row was deleted
// by an operator) a fresh one built from the account, the way registration does.
func (h *Handler) ensureClient(ctx context.Context, s session.Session) (session.Session, error) {
	if s.Role != model.RoleClient || s.ClientID != "" {
		return s, nil
	}
	user, err := h.Users.GetByID(ctx, s.UserID)
	if err != nil {
		return s, fmt.Errorf("load user: %w", err)
	}
	name := strings.TrimSpace(user.FullName)
	if name == "" {
		name = user.Email
	}
	c, err := h.Clients.Create(ctx, model.Client{UserID: &user.ID, Name: name, Email: user.Email, Phone: user.Phone})
	if err != nil {
		return s, fmt.Errorf("create client: %w", err)
	}
	h.Logger.Info("client profile recreated", "user_id", user.ID, "client_id", c.ID)
	s.ClientID = c.ID
	return s, nil
}

// applySelection copies non-empty fields of req into state. With
// replaceServices the selected services become exactly req.ServiceIDs.
func (h *Handler) applySelection(ctx context.Context, s session.Session, state *wizard.State, req selectionRequest, replaceServices bool) error {
	if s.Role == model.RoleClient {
		state.SetClient(s.ClientID)
	} else if req.ClientID != "" {
		state.SetClient(req.ClientID)
	}
	if req.StaffID != "" {
		state.SetStaff(req.StaffID)
	}
	if req.Date != "" {
		if err := state.SetDate(req.Date); err != nil {
			return err
		}
	}
	if req.StartTime != "" {
		if err := state.SetTime(req.StartTime); err != nil {
			return err
		}
	}
	if req.Notes != "" {
		state.Notes = strings.TrimSpace(req.Notes)
	}
	if !replaceServices {
		return nil
	}
	svcs, err := h.servicesByID(ctx, req.ServiceIDs)
	if err != nil {
		return err
	}
	state.Services = svcs
	return nil
}

// servicesByID loads ids in request order; an unknown id is a validation error.
func (h *Handler) servicesByID(ctx context.Context, ids []string) ([]model.Service, error) {
	if len(ids) == 0 {
		return []model.Service{}, nil
	}
	svcs, err := h.Services.ByIDs(ctx, ids)
	if err != nil {
		return nil, errors.New("failed to load services")
	}
	ordered := orderServices(svcs, ids)
	if len(ordered) != len(dedupe(ids)) {
		return nil, errors.New("unknown service selected")
	}
	return ordered, nil
}

func orderServices(svcs []model.Service, ids []string) []model.Service {
	byID := make(map[string]model.Service, len(svcs))
	for _, s := range svcs {
		byID[s.ID] = s
	}
	out := make([]model.Service, 0, len(ids))
	for _, id := range dedupe(ids) {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// submit validates state and performs the single write. A validation failure
// returns 400 before anything is written.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request, s session.Session, state *wizard.State) {
	appt, created, err := h.book(r.Context(), s, state)
	if err != nil {
		h.fail(w, r, err, "failed to save appointment")
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpx.WriteJSON(w, status, appt)
}

func (h *Handler) book(ctx context.Context, s session.Session, state *wizard.State) (model.Appointment, bool, error) {
	draft, err := state.Draft()
	if err != nil {
		return model.Appointment{}, false, err
	}
	var existing model.Appointment
	if !draft.Create() {
		existing, err = h.Queries.RawAppointment(ctx, s, draft.AppointmentID)
		if err != nil {
			return model.Appointment{}, false, err
		}
	}
	appt, err := h.Booker.Submit(ctx, draft, existing, s.Role)
	if err != nil {
		return model.Appointment{}, false, err
	}
	return appt, draft.Create(), nil
}

type checkoutRequest struct {
	PaymentMethod   string `json:"payment_method" validate:"omitempty,oneof=cash card"`
	PaymentMethodID string `json:"payment_method_id"`
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	s := session.FromContext(r.Context())
	appt, err := h.Queries.RawAppointment(r.Context(), s, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "failed to load appointment")
		return
	}
	sale, err := h.Lifecycle.Checkout(r.Context(), appt, lifecycle.CheckoutRequest{
		Method:        req.PaymentMethod,
		PaymentMethod: req.PaymentMethodID,
	})
	if err != nil {
		h.fail(w, r, err, "checkout failed")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sale)
}

type cancelRequest struct {
	Confirm bool `json:"confirm"`
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	s := session.FromContext(r.Context())
	appt, err := h.Queries.RawAppointment(r.Context(), s, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "failed to load appointment")
		return
	}
	deleted, err := h.Lifecycle.Cancel(r.Context(), appt, lifecycle.Actor{Role: s.Role, ClientID: s.ClientID}, req.Confirm)
	if err != nil {
		h.fail(w, r, err, "failed to cancel appointment")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"id": appt.ID, "deleted": deleted})
}

type rescheduleRequest struct {
	Date      string `json:"appointment_date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
}

func (h *Handler) RescheduleOptions(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if _, err := h.Queries.RawAppointment(r.Context(), s, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, "failed to load appointment")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, lifecycle.Options(h.now()))
}

func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s := session.FromContext(r.Context())
	appt, err := h.Queries.RawAppointment(r.Context(), s, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "failed to load appointment")
		return
	}
	moved, err := h.Lifecycle.Reschedule(r.Context(), appt, req.Date, req.StartTime, h.now())
	if err != nil {
		h.fail(w, r, err, "failed to reschedule appointment")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, moved)
}

type servicesRequest struct {
	ServiceIDs []string `json:"service_ids"`
}

// SaveServices replaces the appointment's services through the service editor,
// recomputing price, duration and end time.
func (h *Handler) SaveServices(w http.ResponseWriter, r *http.Request) {
	var req servicesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s := session.FromContext(r.Context())
	appt, err := h.Queries.RawAppointment(r.Context(), s, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "failed to load appointment")
		return
	}
	current, err := h.Services.ByIDs(r.Context(), appt.ServiceIDs)
	if err != nil {
		h.fail(w, r, err, "failed to load services")
		return
	}
	wanted, err := h.servicesByID(r.Context(), req.ServiceIDs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	editor := lifecycle.NewServiceEditor(appt, orderServices(current, appt.ServiceIDs))
	if err := editor.Begin(); err != nil {
		h.fail(w, r, err, "failed to edit services")
		return
	}
	for _, svc := range toggles(editor.Selected(), wanted) {
		if err := editor.Toggle(svc); err != nil {
			h.fail(w, r, err, "failed to edit services")
			return
		}
	}
	saved, err := h.Lifecycle.SaveServices(r.Context(), editor)
	if err != nil {
		h.fail(w, r, err, "failed to save services")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, saved)
}

// toggles lists the services whose toggling turns current into wanted.
func toggles(current, wanted []model.Service) []model.Service {
	in := func(set []model.Service, id string) bool {
		for _, s := range set {
			if s.ID == id {
				return true
			}
		}
		return false
	}
	var out []model.Service
	for _, s := range current {
		if !in(wanted, s.ID) {
			out = append(out, s)
		}
	}
	for _, s := range wanted {
		if !in(current, s.ID) {
			out = append(out, s)
		}
	}
	return out
}

func parseAnchor(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return now, nil
	}
	t, err := time.ParseInLocation(model.DateLayout, raw, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return t, nil
}
