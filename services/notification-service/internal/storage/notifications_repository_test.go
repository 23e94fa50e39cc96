package storage

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertWritesAttempt(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs("evt-1", "salon.appointment.booked.v1", "appt-1", "email", "mia@example.com", "Booked", StatusFailed, "smtp", "relay down").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = NewRepository(mock).Insert(context.Background(), Notification{
		EventID:       "evt-1",
		EventType:     "salon.appointment.booked.v1",
		AppointmentID: "appt-1",
		Channel:       "email",
		Recipient:     "mia@example.com",
		Subject:       "Booked",
		Status:        StatusFailed,
		ProviderID:    "smtp",
		Error:         "relay down",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
