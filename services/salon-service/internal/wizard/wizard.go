// Package wizard holds the booking flow: an ordered list of steps with a
// cursor, per-step completion predicates, and the derived totals shown while
// services are picked. It does no I/O; callers persist State and perform the
// final write with the Draft it produces.
package wizard

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
)

type Step string

const (
	StepService Step = "service"
	StepClient  Step = "client"
	StepStaff   Step = "staff"
	StepTime    Step = "time"
	StepConfirm Step = "confirm"
)

// StepsFor returns the step sequence for the booking operator. Clients book
// for themselves, so they never see the client step.
func StepsFor(role model.Role) []Step {
	if role == model.RoleClient {
		return []Step{StepService, StepStaff, StepTime, StepConfirm}
	}
	return []Step{StepService, StepClient, StepStaff, StepTime, StepConfirm}
}

// State is the serialisable wizard state.
type State struct {
	Role          model.Role      `json:"role"`
	Cursor        int             `json:"cursor"`
	Services      []model.Service `json:"services"`
	ClientID      string          `json:"client_id,omitempty"`
	StaffID       string          `json:"staff_id,omitempty"`
	Date          string          `json:"appointment_date"`
	StartTime     string          `json:"start_time,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	AppointmentID string          `json:"appointment_id,omitempty"`
}

func New(role model.Role, date string) *State {
	return &State{Role: role, Date: date, Services: []model.Service{}}
}

// ForEdit pre-fills a wizard from an existing appointment; submitting it updates
// that appointment instead of creating one.
func ForEdit(role model.Role, appt model.Appointment, services []model.Service) *State {
	s := New(role, appt.Date)
	s.Services = append(s.Services, services...)
	s.ClientID = appt.ClientID
	s.StaffID = appt.StaffID
	s.StartTime = appt.StartTime
	s.Notes = appt.Notes
	s.AppointmentID = appt.ID
	return s
}

func (s *State) Steps() []Step {
	return StepsFor(s.Role)
}

func (s *State) Current() Step {
	steps := s.Steps()
	if s.Cursor < 0 {
		return steps[0]
	}
	if s.Cursor >= len(steps) {
		return steps[len(steps)-1]
	}
	return steps[s.Cursor]
}

// CanAdvance is the completion predicate of the current step. The confirm step
// is never advanced past; it triggers submission instead.
func (s *State) CanAdvance() bool {
	switch s.Current() {
	case StepService:
		return len(s.Services) > 0
	case StepClient:
		return s.ClientID != ""
	case StepStaff:
		return s.StaffID != ""
	case StepTime:
		return s.StartTime != ""
	default:
		return false
	}
}

// Next moves forward one step when the current predicate holds and a next step
// exists. It reports whether the cursor moved.
func (s *State) Next() bool {
	if s.Cursor+1 >= len(s.Steps()) || !s.CanAdvance() {
		return false
	}
	s.Cursor++
	return true
}

// Back moves to the previous step; on the first step it is a no-op.
func (s *State) Back() bool {
	if s.Cursor-1 < 0 {
		return false
	}
	s.Cursor--
	return true
}

func (s *State) ToggleService(svc model.Service) {
	s.Services = Toggle(s.Services, svc)
}

func (s *State) SetClient(id string) { s.ClientID = id }

func (s *State) SetStaff(id string) { s.StaffID = id }

func (s *State) SetDate(date string) error {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q", date)
	}
	s.Date = date
	return nil
}

// ErrOffGrid rejects a new booking whose start is not one of BookingSlots.
var ErrOffGrid = errors.New("start time is not one of the offered slots")

// SetTime sets the start. A new booking must start on a BookingSlots value;
// an edit keeps whatever time the stored appointment already has.
func (s *State) SetTime(start string) error {
	m, err := ParseClock(start)
	if err != nil {
		return err
	}
	if m >= 24*60 {
		return fmt.Errorf("invalid time %q", start)
	}
	value := FormatClock(m)
	if s.AppointmentID == "" && !IsBookingSlot(value) {
		return fmt.Errorf("%w: %s", ErrOffGrid, value)
	}
	s.StartTime = value
	return nil
}

func (s *State) Totals() Totals {
	return DeriveTotals(s.Services)
}

// Reset returns the wizard to its initial state for the same operator.
func (s *State) Reset(date string) {
	*s = *New(s.Role, date)
}

// ErrIncomplete is matched by IncompleteError through errors.Is.
var ErrIncomplete = errors.New("Please fill all required fields")

// IncompleteError lists what is missing before a booking can be written.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return ErrIncomplete.Error()
}

func (e *IncompleteError) Is(target error) bool {
	return target == ErrIncomplete
}

// Draft is a validated booking ready to be persisted.
type Draft struct {
	AppointmentID string
	ClientID      string
	StaffID       string
	ServiceIDs    []string
	Date          string
	StartTime     string
	EndTime       string
	TotalPrice    float64
	TotalDuration int
	Notes         string
}

// Create reports whether the draft books a new appointment rather than editing one.
func (d Draft) Create() bool {
	return d.AppointmentID == ""
}

// Draft validates the selection and computes the end time. Nothing may be
// written when it returns an error.
func (s *State) Draft() (Draft, error) {
	var missing []string
	if s.ClientID == "" {
		missing = append(missing, "client")
	}
	if s.StaffID == "" {
		missing = append(missing, "staff")
	}
	if s.StartTime == "" {
		missing = append(missing, "time")
	}
	if len(s.Services) == 0 {
		missing = append(missing, "services")
	}
	if s.Date == "" {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		return Draft{}, &IncompleteError{Missing: missing}
	}

	totals := s.Totals()
	end, err := EndTime(s.StartTime, totals.Duration)
	if err != nil {
		return Draft{}, err
	}
	return Draft{
		AppointmentID: s.AppointmentID,
		ClientID:      s.ClientID,
		StaffID:       s.StaffID,
		ServiceIDs:    IDs(s.Services),
		Date:          s.Date,
		StartTime:     s.StartTime,
		EndTime:       end,
		TotalPrice:    totals.Price,
		TotalDuration: totals.Duration,
		Notes:         s.Notes,
	}, nil
}

// HasService reports whether the service id is selected.
func (s *State) HasService(id string) bool {
	return slices.ContainsFunc(s.Services, func(svc model.Service) bool { return svc.ID == id })
}
