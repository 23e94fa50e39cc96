package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/salonbook/libs/auth"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/drafts"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/lifecycle"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/queries"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/resolver"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/session"
)

type ServiceStore interface {
	Get(ctx context.Context, id string) (model.Service, error)
	ByIDs(ctx context.Context, ids []string) ([]model.Service, error)
	Create(ctx context.Context, s model.Service) (model.Service, error)
	Update(ctx context.Context, s model.Service) error
	Delete(ctx context.Context, id string) error
}

type StaffStore interface {
	Get(ctx context.Context, id string) (model.Staff, error)
	Create(ctx context.Context, s model.Staff) (model.Staff, error)
	CreateTx(ctx context.Context, tx pgx.Tx, s model.Staff) (model.Staff, error)
	Update(ctx context.Context, s model.Staff) error
	Delete(ctx context.Context, id string) error
	UpdateContactTx(ctx context.Context, tx pgx.Tx, userID, name, phone string) (bool, error)
}

type ClientStore interface {
	Get(ctx context.Context, id string) (model.Client, error)
	Create(ctx context.Context, c model.Client) (model.Client, error)
	CreateTx(ctx context.Context, tx pgx.Tx, c model.Client) (model.Client, error)
	Update(ctx context.Context, c model.Client) error
	Delete(ctx context.Context, id string) error
	UpdateContactTx(ctx context.Context, tx pgx.Tx, userID, name, phone string) (bool, error)
}

type UserStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	CreateTx(ctx context.Context, tx pgx.Tx, u model.User) (model.User, error)
	SetRoleTx(ctx context.Context, tx pgx.Tx, userID string, role model.Role) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	RoleFor(ctx context.Context, userID string) (model.Role, error)
	UpdateProfileTx(ctx context.Context, tx pgx.Tx, userID, fullName, phone string) error
}

type RefreshStore interface {
	Create(ctx context.Context, userID, rawToken string, expiresAt time.Time) error
	Rotate(ctx context.Context, oldRaw, newRaw string, expiresAt time.Time) (string, error)
	Revoke(ctx context.Context, rawToken string) error
}

// Forgetter drops cached name lookups after a write.
type Forgetter interface {
	Forget(ctx context.Context, kind resolver.Kind, ids ...string)
}

type Deps struct {
	Queries    *queries.Queries
	Lifecycle  *lifecycle.Service
	Booker     *lifecycle.Booker
	Drafts     *drafts.Store
	Services   ServiceStore
	Staff      StaffStore
	Clients    ClientStore
	Users      UserStore
	Tokens     RefreshStore
	Lookups    Forgetter
	Signer     *auth.Signer
	RefreshTTL time.Duration
	Live       http.Handler
	Logger     *slog.Logger
}

type Handler struct {
	Deps
}

func New(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.RefreshTTL <= 0 {
		d.RefreshTTL = 30 * 24 * time.Hour
	}
	return &Handler{Deps: d}
}

// Routes mounts the /v1 API. The session middleware must run before it.
func (h *Handler) Routes(r chi.Router) {
	operators := session.RequireRole(model.RoleAdmin, model.RoleStaff)
	admin := session.RequireRole(model.RoleAdmin)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/refresh", h.Refresh)
		r.Post("/auth/logout", h.Logout)

		r.Get("/services", h.ListServices)
		r.Get("/booking/slots", h.Slots)
		r.Post("/booking/quote", h.Quote)

		r.Group(func(r chi.Router) {
			r.Use(session.RequireAuth)

			r.Get("/auth/me", h.Me)
			r.Patch("/profile", h.UpdateProfile)
			r.Get("/staff", h.ListStaff)
			r.Get("/dashboard", h.Dashboard)

			r.Get("/appointments", h.ListAppointments)
			r.Post("/appointments", h.SubmitAppointment)
			r.Get("/appointments/{id}", h.GetAppointment)
			r.Post("/appointments/{id}/cancel", h.Cancel)
			r.Post("/appointments/{id}/reschedule", h.Reschedule)
			r.Get("/appointments/{id}/reschedule-options", h.RescheduleOptions)

			r.Post("/wizard", h.StartWizard)
			r.Get("/wizard/{id}", h.GetWizard)
			r.Post("/wizard/{id}/next", h.WizardNext)
			r.Post("/wizard/{id}/back", h.WizardBack)
			r.Post("/wizard/{id}/submit", h.WizardSubmit)
			r.Post("/wizard/{id}/services/{serviceID}", h.WizardToggleService)
			r.Put("/wizard/{id}/selection", h.WizardSelect)

			if h.Live != nil {
				r.Method(http.MethodGet, "/live", h.Live)
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(operators)

			r.Get("/clients", h.ListClients)
			r.Post("/clients", h.CreateClient)
			r.Put("/clients/{id}", h.UpdateClient)
			r.Delete("/clients/{id}", h.DeleteClient)

			r.Put("/appointments/{id}", h.UpdateAppointment)
			r.Post("/appointments/{id}/checkout", h.Checkout)
			r.Put("/appointments/{id}/services", h.SaveServices)

			r.Get("/sales", h.ListSales)
			r.Get("/calendar", h.Calendar)
		})

		r.Group(func(r chi.Router) {
			r.Use(admin)

			r.Post("/services", h.CreateService)
			r.Put("/services/{id}", h.UpdateService)
			r.Delete("/services/{id}", h.DeleteService)

			r.Post("/staff", h.CreateStaff)
			r.Put("/staff/{id}", h.UpdateStaff)
			r.Delete("/staff/{id}", h.DeleteStaff)
		})
	})
}

func (h *Handler) forget(ctx context.Context, kind resolver.Kind, id string) {
	if h.Lookups != nil {
		h.Lookups.Forget(ctx, kind, id)
	}
}

func (h *Handler) now() time.Time {
	if h.Queries != nil {
		return h.Queries.Now()
	}
	return time.Now()
}

