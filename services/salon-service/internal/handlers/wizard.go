package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/drafts"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/session"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/wizard"
)

type wizardView struct {
	ID         string        `json:"id"`
	Steps      []wizard.Step `json:"steps"`
	Current    wizard.Step   `json:"current"`
	CanAdvance bool          `json:"can_advance"`
	Moved      *bool         `json:"moved,omitempty"`
	Totals     wizard.Totals `json:"totals"`
	EndTime    string        `json:"end_time,omitempty"`
	State      *wizard.State `json:"state"`
}

func newWizardView(d drafts.Draft) wizardView {
	v := wizardView{
		ID:         d.ID,
		Steps:      d.State.Steps(),
		Current:    d.State.Current(),
		CanAdvance: d.State.CanAdvance(),
		Totals:     d.State.Totals(),
		State:      d.State,
	}
	if d.State.StartTime != "" && len(d.State.Services) > 0 {
		if end, err := wizard.EndTime(d.State.StartTime, v.Totals.Duration); err == nil {
			v.EndTime = end
		}
	}
	return v
}

type startWizardRequest struct {
	Date          string `json:"appointment_date"`
	AppointmentID string `json:"appointment_id"`
}

// StartWizard opens a draft, either blank for a new booking or pre-filled from
// an existing appointment.
func (h *Handler) StartWizard(w http.ResponseWriter, r *http.Request) {
	var req startWizardRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	s := session.FromContext(r.Context())

	var state *wizard.State
	var err error
	if req.AppointmentID != "" {
		if !s.Role.Operator() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		state, err = h.editState(r.Context(), s, req.AppointmentID)
		if err != nil {
			h.fail(w, r, err, "failed to load appointment")
			return
		}
	} else {
		state = wizard.New(s.Role, h.now().Format(model.DateLayout))
		if req.Date != "" {
			if err := state.SetDate(req.Date); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		if s, err = h.ensureClient(r.Context(), s); err != nil {
			h.fail(w, r, err, "failed to create client profile")
			return
		}
		if s.Role == model.RoleClient {
			state.SetClient(s.ClientID)
		}
	}

	d, err := h.Drafts.Create(r.Context(), s.UserID, state)
	if err != nil {
		h.fail(w, r, err, "failed to start booking")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, newWizardView(d))
}

func (h *Handler) loadDraft(w http.ResponseWriter, r *http.Request) (drafts.Draft, bool) {
	s := session.FromContext(r.Context())
	d, err := h.Drafts.Get(r.Context(), chi.URLParam(r, "id"), s.UserID)
	if err != nil {
		h.fail(w, r, err, "failed to load booking")
		return drafts.Draft{}, false
	}
	return d, true
}

func (h *Handler) saveDraft(w http.ResponseWriter, r *http.Request, d drafts.Draft, v wizardView) {
	if err := h.Drafts.Save(r.Context(), d); err != nil {
		h.fail(w, r, err, "failed to save booking")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) GetWizard(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newWizardView(d))
}

// WizardNext is a no-op, reported through moved=false, while the current step
// is incomplete or on the last step.
func (h *Handler) WizardNext(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	moved := d.State.Next()
	v := newWizardView(d)
	v.Moved = &moved
	h.saveDraft(w, r, d, v)
}

func (h *Handler) WizardBack(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	moved := d.State.Back()
	v := newWizardView(d)
	v.Moved = &moved
	h.saveDraft(w, r, d, v)
}

func (h *Handler) WizardToggleService(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	svc, err := h.Services.Get(r.Context(), chi.URLParam(r, "serviceID"))
	if err != nil {
		h.fail(w, r, err, "failed to load service")
		return
	}
	d.State.ToggleService(svc)
	h.saveDraft(w, r, d, newWizardView(d))
}

type wizardSelectionRequest struct {
	selectionRequest
	// ServiceIDs replaces the selection only when present.
	ServiceIDs *[]string `json:"service_ids"`
}

func (h *Handler) WizardSelect(w http.ResponseWriter, r *http.Request) {
	var req wizardSelectionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	d, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	sel := req.selectionRequest
	if req.ServiceIDs != nil {
		sel.ServiceIDs = *req.ServiceIDs
	}
	s := session.FromContext(r.Context())
	if err := h.applySelection(r.Context(), s, d.State, sel, req.ServiceIDs != nil); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.saveDraft(w, r, d, newWizardView(d))
}

// WizardSubmit writes the booking and resets the wizard. When validation fails
// nothing is written and the draft is kept for another attempt.
func (h *Handler) WizardSubmit(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	s, err := h.ensureClient(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err, "failed to create client profile")
		return
	}
	if s.Role == model.RoleClient && d.State.AppointmentID == "" {
		d.State.SetClient(s.ClientID)
	}
	appt, created, err := h.book(r.Context(), s, d.State)
	if err != nil {
		h.fail(w, r, err, "failed to save appointment")
		return
	}
	if err := h.Drafts.Delete(r.Context(), d.ID); err != nil {
		h.Logger.Warn("draft cleanup failed", "draft_id", d.ID, "err", err)
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpx.WriteJSON(w, status, appt)
}

func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, wizard.BookingSlots())
}

type quoteRequest struct {
	ServiceIDs []string `json:"service_ids" validate:"required,min=1"`
	StartTime  string   `json:"start_time"`
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	svcs, err := h.servicesByID(r.Context(), req.ServiceIDs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	q, err := wizard.NewQuote(svcs, req.StartTime)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, q)
}
