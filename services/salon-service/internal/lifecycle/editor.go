package lifecycle

import (
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/wizard"
)

type Mode string

const (
	ModeViewing Mode = "viewing"
	ModeEditing Mode = "editing"
)

// ServiceEditor edits the service set of one appointment:
// viewing -> editing -> viewing, either saved or discarded.
type ServiceEditor struct {
	appt     model.Appointment
	original []model.Service
	selected []model.Service
	mode     Mode
	dirty    bool
}

func NewServiceEditor(appt model.Appointment, current []model.Service) *ServiceEditor {
	e := &ServiceEditor{}
	e.Reset(appt, current)
	return e
}

func (e *ServiceEditor) Mode() Mode { return e.mode }

func (e *ServiceEditor) Dirty() bool { return e.dirty }

func (e *ServiceEditor) Appointment() model.Appointment { return e.appt }

func (e *ServiceEditor) Selected() []model.Service {
	return append([]model.Service(nil), e.selected...)
}

func (e *ServiceEditor) Totals() wizard.Totals {
	return wizard.DeriveTotals(e.selected)
}

// Begin enters editing. Completed appointments stay read-only.
func (e *ServiceEditor) Begin() error {
	if e.appt.Status == model.StatusCompleted {
		return ErrNotEditable
	}
	e.mode = ModeEditing
	return nil
}

func (e *ServiceEditor) Toggle(svc model.Service) error {
	if e.mode != ModeEditing {
		return ErrNotEditable
	}
	e.selected = wizard.Toggle(e.selected, svc)
	e.dirty = true
	return nil
}

// Discard drops unsaved changes.
func (e *ServiceEditor) Discard() {
	e.selected = append([]model.Service(nil), e.original...)
	e.mode = ModeViewing
	e.dirty = false
}

// Reset rebinds the editor to appt, clearing the dirty flag.
func (e *ServiceEditor) Reset(appt model.Appointment, current []model.Service) {
	e.appt = appt
	e.original = append([]model.Service(nil), current...)
	e.selected = append([]model.Service(nil), current...)
	e.mode = ModeViewing
	e.dirty = false
}
