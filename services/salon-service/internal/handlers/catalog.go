package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/resolver"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/storage"
)

type serviceRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Category    string  `json:"category" validate:"required"`
	Price       float64 `json:"price" validate:"gte=0"`
	Duration    int     `json:"duration" validate:"gt=0"`
	IsActive    *bool   `json:"is_active"`
}

func (req serviceRequest) model(id string) model.Service {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return model.Service{
		ID:          id,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Category:    strings.TrimSpace(req.Category),
		Price:       req.Price,
		Duration:    req.Duration,
		IsActive:    active,
	}
}

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	activeOnly := q.Get("active_only") == "true"
	svcs, err := h.Queries.Services(r.Context(), activeOnly, q.Get("category"))
	if err != nil {
		h.fail(w, r, err, "failed to load services")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, svcs)
}

func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	svc, err := h.Services.Create(r.Context(), req.model(""))
	if err != nil {
		h.fail(w, r, err, "failed to create service")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, svc)
}

func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	svc := req.model(chi.URLParam(r, "id"))
	if err := h.Services.Update(r.Context(), svc); err != nil {
		h.fail(w, r, err, "failed to update service")
		return
	}
	h.forget(r.Context(), resolver.KindService, svc.ID)
	httpx.WriteJSON(w, http.StatusOK, svc)
}

func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Services.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, "failed to delete service")
		return
	}
	h.forget(r.Context(), resolver.KindService, id)
	w.WriteHeader(http.StatusNoContent)
}

type staffRequest struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
	Title     string `json:"title"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
	IsActive  *bool  `json:"is_active"`
	// Password, when set, also creates a staff login for Email.
	Password string `json:"password" validate:"omitempty,min=6"`
}

func (req staffRequest) model(id string) model.Staff {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return model.Staff{
		ID:        id,
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Phone:     req.Phone,
		Title:     req.Title,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
		IsActive:  active,
	}
}

func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.Queries.Staff(r.Context(), r.URL.Query().Get("active_only") == "true")
	if err != nil {
		h.fail(w, r, err, "failed to load staff")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, staff)
}

// CreateStaff adds a staff member. With a password it also creates the user,
// assigns the staff role and links the row, all in one transaction.
func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	var req staffRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	staff := req.model("")

	if req.Password == "" {
		created, err := h.Staff.Create(r.Context(), staff)
		if err != nil {
			h.fail(w, r, err, "failed to create staff")
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, created)
		return
	}

	if staff.Email == "" {
		http.Error(w, "email is required to create a staff login", http.StatusBadRequest)
		return
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		http.Error(w, "failed to hash password", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	tx, err := h.Users.Begin(ctx)
	if err != nil {
		http.Error(w, "failed to start transaction", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created, err := h.createStaffLogin(r, tx, staff, hash)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			http.Error(w, "email already registered", http.StatusConflict)
			return
		}
		h.fail(w, r, err, "failed to create staff")
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit transaction", http.StatusInternalServerError)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) createStaffLogin(r *http.Request, tx pgx.Tx, staff model.Staff, hash string) (model.Staff, error) {
	ctx := r.Context()
	user, err := h.Users.CreateTx(ctx, tx, model.User{
		Email:        staff.Email,
		PasswordHash: hash,
		FullName:     staff.Name,
		Phone:        staff.Phone,
	})
	if err != nil {
		return model.Staff{}, err
	}
	if err := h.Users.SetRoleTx(ctx, tx, user.ID, model.RoleStaff); err != nil {
		return model.Staff{}, err
	}
	staff.UserID = &user.ID
	return h.Staff.CreateTx(ctx, tx, staff)
}

func (h *Handler) UpdateStaff(w http.ResponseWriter, r *http.Request) {
	var req staffRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	staff := req.model(chi.URLParam(r, "id"))
	if err := h.Staff.Update(r.Context(), staff); err != nil {
		h.fail(w, r, err, "failed to update staff")
		return
	}
	h.forget(r.Context(), resolver.KindStaff, staff.ID)
	httpx.WriteJSON(w, http.StatusOK, staff)
}

func (h *Handler) DeleteStaff(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Staff.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, "failed to delete staff")
		return
	}
	h.forget(r.Context(), resolver.KindStaff, id)
	w.WriteHeader(http.StatusNoContent)
}

type clientRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone"`
	Notes string `json:"notes"`
}

func (req clientRequest) model(id string) model.Client {
	return model.Client{
		ID:    id,
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
		Phone: req.Phone,
		Notes: req.Notes,
	}
}

func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Queries.Clients(r.Context())
	if err != nil {
		h.fail(w, r, err, "failed to load clients")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, clients)
}

func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Please fill in name and email: "+err.Error(), http.StatusBadRequest)
		return
	}
	client, err := h.Clients.Create(r.Context(), req.model(""))
	if err != nil {
		h.fail(w, r, err, "failed to create client")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, client)
}

func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	client := req.model(chi.URLParam(r, "id"))
	if err := h.Clients.Update(r.Context(), client); err != nil {
		h.fail(w, r, err, "failed to update client")
		return
	}
	h.forget(r.Context(), resolver.KindClient, client.ID)
	httpx.WriteJSON(w, http.StatusOK, client)
}

func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Clients.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, "failed to delete client")
		return
	}
	h.forget(r.Context(), resolver.KindClient, id)
	w.WriteHeader(http.StatusNoContent)
}
