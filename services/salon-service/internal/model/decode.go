package model

import (
	"fmt"
	"time"
)

// DecodeError reports a stored row that does not satisfy the record contract.
type DecodeError struct {
	Entity string
	ID     string
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("decode %s: %s: %s", e.Entity, e.Field, e.Reason)
	}
	return fmt.Sprintf("decode %s %s: %s: %s", e.Entity, e.ID, e.Field, e.Reason)
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ValidateAppointment checks the invariants every persisted appointment holds.
func ValidateAppointment(a Appointment) error {
	fail := func(field, reason string) error {
		return &DecodeError{Entity: "appointment", ID: a.ID, Field: field, Reason: reason}
	}
	if _, err := ParseStatus(string(a.Status)); err != nil {
		return fail("status", err.Error())
	}
	if len(a.ServiceIDs) == 0 {
		return fail("service_ids", "must not be empty")
	}
	if _, err := time.Parse(DateLayout, a.Date); err != nil {
		return fail("appointment_date", "not a YYYY-MM-DD date")
	}
	if !validClock(a.StartTime) {
		return fail("start_time", "not an HH:MM time")
	}
	if a.TotalDuration < 0 {
		return fail("total_duration", "negative")
	}
	if a.TotalPrice < 0 {
		return fail("total_price", "negative")
	}
	return nil
}

// validClock accepts HH:MM with minutes under 60. Hours may exceed 23 because
// end times are not wrapped at midnight.
func validClock(s string) bool {
	var h, m int
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	if _, err := fmt.Sscanf(s, "%02d:%02d", &h, &m); err != nil {
		return false
	}
	return h >= 0 && m >= 0 && m < 60
}
