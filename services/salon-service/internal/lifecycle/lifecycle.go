package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/metrics"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/outbox"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/payments"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/storage"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/wizard"
)

var (
	ErrNotCheckoutable      = errors.New("appointment cannot be checked out in its current status")
	ErrCheckoutInProgress   = errors.New("checkout already in progress")
	ErrSaleNotRecorded      = errors.New("appointment completed but sale was not recorded")
	ErrConfirmationRequired = errors.New("cancellation must be confirmed")
	ErrNotCancellable       = errors.New("appointment is already completed or cancelled")
	ErrNotOwner             = errors.New("appointment belongs to another client")
	ErrInvalidSlot          = errors.New("date or time is not one of the offered options")
	ErrNotEditable          = errors.New("appointment can no longer be edited")
	ErrNoChanges            = errors.New("no unsaved changes")
	ErrNoServices           = errors.New("at least one service is required")
)

type Appointments interface {
	UpdateStatus(ctx context.Context, id string, status model.Status, events ...outbox.Event) error
	Reschedule(ctx context.Context, id, date, start, end string) error
	UpdateServices(ctx context.Context, id string, serviceIDs []string, totalPrice float64, totalDuration int, end string) error
	Delete(ctx context.Context, id string, events ...outbox.Event) error
}

type Sales interface {
	Create(ctx context.Context, sale model.Sale) (model.Sale, error)
}

// Notices builds the domain event announcing an appointment change to clients.
type Notices interface {
	Notice(ctx context.Context, eventType string, appt model.Appointment) (outbox.Event, error)
}

type Deps struct {
	Appointments Appointments
	Sales        Sales
	Charger      payments.Charger
	Notices      Notices
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

type Service struct {
	appts   Appointments
	sales   Sales
	charger payments.Charger
	notices Notices
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewService(d Deps) *Service {
	if d.Charger == nil {
		d.Charger = payments.CashCharger{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Service{
		appts:    d.Appointments,
		sales:    d.Sales,
		charger:  d.Charger,
		notices:  d.Notices,
		metrics:  d.Metrics,
		logger:   d.Logger,
		inFlight: make(map[string]struct{}),
	}
}

func CanCheckout(status model.Status) bool {
	return status == model.StatusPending || status == model.StatusConfirmed
}

type CheckoutRequest struct {
	Method        string
	PaymentMethod string
}

// Checkout completes appt and records its sale. The two writes are separate:
// when the sale insert fails the appointment stays completed and the error
// wraps ErrSaleNotRecorded.
func (s *Service) Checkout(ctx context.Context, appt model.Appointment, req CheckoutRequest) (model.Sale, error) {
	if !CanCheckout(appt.Status) {
		s.metrics.Checkout("rejected")
		return model.Sale{}, ErrNotCheckoutable
	}
	if !s.begin(appt.ID) {
		s.metrics.Checkout("rejected")
		return model.Sale{}, ErrCheckoutInProgress
	}
	defer s.end(appt.ID)

	method := req.Method
	if method == "" {
		method = model.PaymentMethodCash
	}
	receipt, err := s.charger.Charge(ctx, payments.ChargeRequest{
		AppointmentID: appt.ID,
		Amount:        appt.TotalPrice,
		Method:        method,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		s.metrics.Checkout("charge_failed")
		return model.Sale{}, fmt.Errorf("charge: %w", err)
	}

	if err := s.appts.UpdateStatus(ctx, appt.ID, model.StatusCompleted); err != nil {
		s.metrics.Checkout("status_failed")
		if errors.Is(err, storage.ErrStatusConflict) {
			s.logger.Error("appointment closed while checking out", "appointment_id", appt.ID, "payment_ref", receipt.Ref)
			return model.Sale{}, ErrNotCheckoutable
		}
		return model.Sale{}, fmt.Errorf("complete appointment: %w", err)
	}

	sale, err := s.sales.Create(ctx, model.Sale{
		AppointmentID: appt.ID,
		ClientID:      appt.ClientID,
		StaffID:       appt.StaffID,
		ServiceIDs:    appt.ServiceIDs,
		Amount:        appt.TotalPrice,
		PaymentMethod: method,
		PaymentStatus: model.PaymentStatusCompleted,
		PaymentRef:    receipt.Ref,
	})
	if err != nil {
		s.metrics.Checkout("sale_failed")
		s.logger.Error("sale insert failed after checkout", "appointment_id", appt.ID, "err", err)
		return model.Sale{}, fmt.Errorf("%w: %v", ErrSaleNotRecorded, err)
	}
	s.metrics.Checkout("completed")
	return sale, nil
}

func (s *Service) begin(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *Service) end(id string) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

// Actor is who asks for a cancellation. ClientID is set for the client role.
type Actor struct {
	Role     model.Role
	ClientID string
}

// Cancel deletes the appointment when a client cancels their own booking and
// marks it cancelled when an operator does. It reports whether the row was deleted.
func (s *Service) Cancel(ctx context.Context, appt model.Appointment, actor Actor, confirmed bool) (bool, error) {
	if !confirmed {
		return false, ErrConfirmationRequired
	}
	if appt.Status.Terminal() {
		return false, ErrNotCancellable
	}
	events := s.notice(ctx, outbox.EventAppointmentCancelled, appt)

	if actor.Role == model.RoleClient {
		if actor.ClientID == "" || actor.ClientID != appt.ClientID {
			return false, ErrNotOwner
		}
		if err := s.appts.Delete(ctx, appt.ID, events...); err != nil {
			return false, err
		}
		return true, nil
	}
	if err := s.appts.UpdateStatus(ctx, appt.ID, model.StatusCancelled, events...); err != nil {
		if errors.Is(err, storage.ErrStatusConflict) {
			return false, ErrNotCancellable
		}
		return false, err
	}
	return false, nil
}

func (s *Service) notice(ctx context.Context, eventType string, appt model.Appointment) []outbox.Event {
	if s.notices == nil {
		return nil
	}
	evt, err := s.notices.Notice(ctx, eventType, appt)
	if err != nil {
		s.logger.Warn("appointment notice skipped", "appointment_id", appt.ID, "event_type", eventType, "err", err)
		return nil
	}
	return []outbox.Event{evt}
}

type RescheduleOptions struct {
	Dates []string `json:"dates"`
	Times []string `json:"times"`
}

// Options offers the 14 days after now and half-hour starts from 09:00 to 17:00.
func Options(now time.Time) RescheduleOptions {
	opts := RescheduleOptions{}
	for i := 1; i <= 14; i++ {
		opts.Dates = append(opts.Dates, now.AddDate(0, 0, i).Format(model.DateLayout))
	}
	for _, slot := range wizard.TimeSlots(9*60, 17*60, 30) {
		opts.Times = append(opts.Times, slot.Value)
	}
	return opts
}

func (o RescheduleOptions) contains(date, start string) bool {
	var dateOK, timeOK bool
	for _, d := range o.Dates {
		if d == date {
			dateOK = true
			break
		}
	}
	for _, t := range o.Times {
		if t == start {
			timeOK = true
			break
		}
	}
	return dateOK && timeOK
}

// Reschedule moves appt keeping its duration.
func (s *Service) Reschedule(ctx context.Context, appt model.Appointment, date, start string, now time.Time) (model.Appointment, error) {
	if appt.Status.Terminal() {
		return model.Appointment{}, ErrNotEditable
	}
	if !Options(now).contains(date, start) {
		return model.Appointment{}, ErrInvalidSlot
	}
	end, err := wizard.EndTime(start, appt.TotalDuration)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := s.appts.Reschedule(ctx, appt.ID, date, start, end); err != nil {
		return model.Appointment{}, err
	}
	appt.Date, appt.StartTime, appt.EndTime = date, start, end
	return appt, nil
}

// SaveServices persists the editor's selection and returns it to viewing.
func (s *Service) SaveServices(ctx context.Context, e *ServiceEditor) (model.Appointment, error) {
	if e.Mode() != ModeEditing || !e.Dirty() {
		return model.Appointment{}, ErrNoChanges
	}
	if len(e.selected) == 0 {
		return model.Appointment{}, ErrNoServices
	}
	totals := e.Totals()
	end, err := wizard.EndTime(e.appt.StartTime, totals.Duration)
	if err != nil {
		return model.Appointment{}, err
	}
	ids := wizard.IDs(e.selected)
	if err := s.appts.UpdateServices(ctx, e.appt.ID, ids, totals.Price, totals.Duration, end); err != nil {
		return model.Appointment{}, err
	}

	appt := e.appt
	appt.ServiceIDs = ids
	appt.TotalPrice = totals.Price
	appt.TotalDuration = totals.Duration
	appt.EndTime = end
	e.Reset(appt, e.selected)
	return appt, nil
}
