package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitions(t *testing.T) {
	assert.True(t, CanTransition(StatusConfirmed, StatusCompleted))
	assert.True(t, CanTransition(StatusPending, StatusCancelled))
	assert.False(t, CanTransition(StatusCompleted, StatusCancelled))
	assert.False(t, CanTransition(StatusCancelled, StatusConfirmed))
	assert.False(t, CanTransition(Status("archived"), StatusCompleted))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("staff")
	require.NoError(t, err)
	assert.True(t, r.Operator())
	assert.False(t, RoleClient.Operator())

	_, err = ParseRole("owner")
	assert.Error(t, err)
}

func TestValidateAppointment(t *testing.T) {
	valid := Appointment{
		ID:         "a1",
		ServiceIDs: []string{"s1"},
		Date:       "2025-03-14",
		StartTime:  "13:00",
		EndTime:    "14:15",
		Status:     StatusConfirmed,
	}
	require.NoError(t, ValidateAppointment(valid))

	noServices := valid
	noServices.ServiceIDs = nil
	err := ValidateAppointment(noServices)
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "service_ids", de.Field)
	assert.Equal(t, "a1", de.ID)

	badStatus := valid
	badStatus.Status = "booked"
	require.True(t, errors.As(ValidateAppointment(badStatus), &de))
	assert.Equal(t, "status", de.Field)

	badTime := valid
	badTime.StartTime = "1pm"
	require.True(t, errors.As(ValidateAppointment(badTime), &de))
	assert.Equal(t, "start_time", de.Field)
}
