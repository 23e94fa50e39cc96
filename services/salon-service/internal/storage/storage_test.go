package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/outbox"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func expectOutbox(mock pgxmock.PgxPoolIface, eventType string) {
	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), eventType, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func appointmentRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "client_id", "staff_id", "service_ids", "appointment_date", "start_time",
		"end_time", "total_duration", "total_price", "status", "notes", "created_at", "updated_at"})
}

func TestAppointmentListDecodesRows(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepository(mock, outbox.NewRepository())
	now := time.Now()

	mock.ExpectQuery("FROM appointments").
		WithArgs("client-1", "", "", "", "").
		WillReturnRows(appointmentRows().
			AddRow("a-2", "client-1", "staff-1", []string{"svc-1"}, "2025-03-15", "13:00", "14:15", 75, 800.0, "confirmed", "", now, now).
			AddRow("a-1", "client-1", "staff-1", []string{"svc-2"}, "2025-03-14", "10:00", "10:45", 45, 500.0, "completed", "", now, now))

	appts, err := repo.List(context.Background(), AppointmentFilter{ClientID: "client-1"})
	require.NoError(t, err)
	require.Len(t, appts, 2)
	assert.Equal(t, model.StatusConfirmed, appts[0].Status)
	assert.Equal(t, "2025-03-15", appts[0].Date)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentGetRejectsUnknownStatus(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepository(mock, outbox.NewRepository())
	now := time.Now()

	mock.ExpectQuery("FROM appointments").WithArgs("a-1").WillReturnRows(appointmentRows().
		AddRow("a-1", "client-1", "staff-1", []string{"svc-1"}, "2025-03-14", "10:00", "10:45", 45, 500.0, "archived", "", now, now))

	_, err := repo.Get(context.Background(), "a-1")
	var decodeErr *model.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "status", decodeErr.Field)
}

func TestAppointmentGetRejectsEmptyServices(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepository(mock, outbox.NewRepository())
	now := time.Now()

	mock.ExpectQuery("FROM appointments").WithArgs("a-1").WillReturnRows(appointmentRows().
		AddRow("a-1", "client-1", "staff-1", []string{}, "2025-03-14", "10:00", "10:45", 45, 500.0, "pending", "", now, now))

	_, err := repo.Get(context.Background(), "a-1")
	var decodeErr *model.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "service_ids", decodeErr.Field)
}

func TestAppointmentCreateRecordsChangeAndEvents(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepository(mock, outbox.NewRepository())
	now := time.Now()

	appt := model.Appointment{
		ID: "a-1", ClientID: "client-1", StaffID: "staff-1", ServiceIDs: []string{"svc-1", "svc-2"},
		Date: "2025-03-14", StartTime: "13:00", EndTime: "14:15", TotalDuration: 75, TotalPrice: 800,
		Status: model.StatusConfirmed,
	}
	notice, err := outbox.NewNoticeEvent(outbox.EventAppointmentBooked, outbox.AppointmentNotice{AppointmentID: "a-1"})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs("a-1", "client-1", "staff-1", []string{"svc-1", "svc-2"}, "2025-03-14", "13:00", "14:15", 75, 800.0, "confirmed", "").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	expectOutbox(mock, "salon.appointments.changed.v1")
	expectOutbox(mock, outbox.EventAppointmentBooked)
	mock.ExpectCommit()

	created, err := repo.Create(context.Background(), appt, notice)
	require.NoError(t, err)
	assert.Equal(t, now, created.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentUpdateStatusMissingRow(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepository(mock, outbox.NewRepository())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE appointments SET status").
		WithArgs("missing", "completed").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	err := repo.UpdateStatus(context.Background(), "missing", model.StatusCompleted)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentUpdateStatusOnlyMovesOpenAppointments(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepository(mock, outbox.NewRepository())

	mock.ExpectBegin()
	mock.ExpectExec(`WHERE id = \$1 AND status IN \('pending', 'confirmed'\)`).
		WithArgs("a-1", "cancelled").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("a-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.UpdateStatus(context.Background(), "a-1", model.StatusCancelled)
	assert.ErrorIs(t, err, ErrStatusConflict)
	assert.False(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentUpdateStatusRecordsChange(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepository(mock, outbox.NewRepository())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE appointments SET status").
		WithArgs("a-1", "completed").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectOutbox(mock, "salon.appointments.changed.v1")
	mock.ExpectCommit()

	require.NoError(t, repo.UpdateStatus(context.Background(), "a-1", model.StatusCompleted))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceListPassesFilter(t *testing.T) {
	mock := newMock(t)
	repo := NewServiceRepository(mock, outbox.NewRepository())

	mock.ExpectQuery("FROM services").
		WithArgs(true, "Hair").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "category", "price", "duration", "is_active"}).
			AddRow("svc-1", "Haircut", "", "Hair", 500.0, 45, true))

	svcs, err := repo.List(context.Background(), ServiceFilter{ActiveOnly: true, Category: "Hair"})
	require.NoError(t, err)
	require.Len(t, svcs, 1)
	assert.Equal(t, 45, svcs[0].Duration)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceByIDsSkipsEmptySet(t *testing.T) {
	mock := newMock(t)
	repo := NewServiceRepository(mock, outbox.NewRepository())

	svcs, err := repo.ByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, svcs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaleCreate(t *testing.T) {
	mock := newMock(t)
	repo := NewSaleRepository(mock, outbox.NewRepository())
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO sales").
		WithArgs(pgxmock.AnyArg(), "client-1", "staff-1", []string{"svc-1"}, 500.0, "cash", "completed", "").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow("sale-1", now))
	expectOutbox(mock, "salon.sales.changed.v1")
	mock.ExpectCommit()

	sale, err := repo.Create(context.Background(), model.Sale{
		AppointmentID: "a-1", ClientID: "client-1", StaffID: "staff-1", ServiceIDs: []string{"svc-1"},
		Amount: 500, PaymentMethod: model.PaymentMethodCash, PaymentStatus: model.PaymentStatusCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, "sale-1", sale.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleForRejectsUnknownRole(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock, outbox.NewRepository())

	mock.ExpectQuery("FROM user_roles").WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("superuser"))

	_, err := repo.RoleFor(context.Background(), "u-1")
	var decodeErr *model.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "role", decodeErr.Field)
}

func TestRoleForMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock, outbox.NewRepository())

	mock.ExpectQuery("FROM user_roles").WithArgs("u-1").WillReturnError(pgx.ErrNoRows)

	_, err := repo.RoleFor(context.Background(), "u-1")
	assert.True(t, IsNotFound(err))
}

func TestRotateRejectsRevokedToken(t *testing.T) {
	mock := newMock(t)
	repo := NewRefreshRepository(mock)
	revoked := time.Now().Add(-time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM refresh_tokens").WithArgs(HashToken("old")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "expires_at", "revoked_at"}).
			AddRow("rt-1", "u-1", time.Now().Add(time.Hour), &revoked))
	mock.ExpectRollback()

	_, err := repo.Rotate(context.Background(), "old", "new", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrRefreshInvalid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateIssuesNewToken(t *testing.T) {
	mock := newMock(t)
	repo := NewRefreshRepository(mock)
	expires := time.Now().Add(24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM refresh_tokens").WithArgs(HashToken("old")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "expires_at", "revoked_at"}).
			AddRow("rt-1", "u-1", time.Now().Add(time.Hour), (*time.Time)(nil)))
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").WithArgs("rt-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO refresh_tokens").WithArgs("u-1", HashToken("new"), expires).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	userID, err := repo.Rotate(context.Background(), "old", "new", expires)
	require.NoError(t, err)
	assert.Equal(t, "u-1", userID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsForeignKeyViolation(errors.Join(errors.New("insert"), &pgconn.PgError{Code: "23503"})))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.True(t, IsNotFound(pgx.ErrNoRows))
	assert.NotEqual(t, HashToken("a"), HashToken("b"))
}
