package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/outbox"
)

// AppointmentFilter narrows List. Empty fields do not filter.
type AppointmentFilter struct {
	ClientID string
	StaffID  string
	From     string
	To       string
	Status   model.Status
}

type AppointmentRepository struct {
	conn db.DBTX
	box  Outbox
}

func NewAppointmentRepository(conn db.DBTX, box Outbox) *AppointmentRepository {
	return &AppointmentRepository{conn: conn, box: box}
}

const appointmentColumns = `id::text, client_id::text, staff_id::text, service_ids::text[], appointment_date::text,
	start_time, end_time, total_duration, total_price, status, notes, created_at, updated_at`

// scanAppointment decodes a row and rejects rows that break the appointment invariants.
func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	var status string
	if err := row.Scan(&a.ID, &a.ClientID, &a.StaffID, &a.ServiceIDs, &a.Date, &a.StartTime, &a.EndTime,
		&a.TotalDuration, &a.TotalPrice, &status, &a.Notes, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return model.Appointment{}, err
	}
	a.Status = model.Status(status)
	if err := model.ValidateAppointment(a); err != nil {
		return model.Appointment{}, err
	}
	return a, nil
}

// List orders by date then start time, newest first.
func (r *AppointmentRepository) List(ctx context.Context, f AppointmentFilter) ([]model.Appointment, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE ($1 = '' OR client_id::text = $1)
			AND ($2 = '' OR staff_id::text = $2)
			AND ($3 = '' OR appointment_date >= $3::date)
			AND ($4 = '' OR appointment_date <= $4::date)
			AND ($5 = '' OR status = $5)
		ORDER BY appointment_date DESC, start_time DESC
	`, f.ClientID, f.StaffID, f.From, f.To, string(f.Status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (model.Appointment, error) {
	return scanAppointment(r.conn.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id))
}

// Create inserts a with its caller-assigned id. events are written to the
// outbox in the same transaction as the row.
func (r *AppointmentRepository) Create(ctx context.Context, a model.Appointment, events ...outbox.Event) (model.Appointment, error) {
	err := db.WithTx(ctx, r.conn, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO appointments
				(id, client_id, staff_id, service_ids, appointment_date, start_time, end_time,
				 total_duration, total_price, status, notes)
			VALUES ($1, $2, $3, $4::text[]::uuid[], $5, $6, $7, $8, $9, $10, $11)
			RETURNING created_at, updated_at
		`, a.ID, a.ClientID, a.StaffID, a.ServiceIDs, a.Date, a.StartTime, a.EndTime,
			a.TotalDuration, a.TotalPrice, string(a.Status), a.Notes).Scan(&a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return err
		}
		return recordAll(ctx, tx, r.box, outbox.TableAppointments, outbox.OpInsert, a.ID, events)
	})
	return a, err
}

// Update overwrites the editable fields. Status and created_at are kept.
func (r *AppointmentRepository) Update(ctx context.Context, a model.Appointment) error {
	return writeRow(ctx, r.conn, r.box, outbox.TableAppointments, outbox.OpUpdate, a.ID, nil, `
		UPDATE appointments
		SET client_id = $2, staff_id = $3, service_ids = $4::text[]::uuid[], appointment_date = $5,
			start_time = $6, end_time = $7, total_duration = $8, total_price = $9, notes = $10, updated_at = now()
		WHERE id = $1
	`, a.ID, a.ClientID, a.StaffID, a.ServiceIDs, a.Date, a.StartTime, a.EndTime, a.TotalDuration, a.TotalPrice, a.Notes)
}

// UpdateStatus moves an open (pending or confirmed) appointment to status.
// A missing row yields ErrNotFound; a row that is already completed or
// cancelled yields ErrStatusConflict and nothing is written.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id string, status model.Status, events ...outbox.Event) error {
	return db.WithTx(ctx, r.conn, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE appointments SET status = $2, updated_at = now()
			WHERE id = $1 AND status IN ('pending', 'confirmed')
		`, id, string(status))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, id).Scan(&exists); err != nil {
				return err
			}
			if exists {
				return ErrStatusConflict
			}
			return ErrNotFound
		}
		return recordAll(ctx, tx, r.box, outbox.TableAppointments, outbox.OpUpdate, id, events)
	})
}

func (r *AppointmentRepository) Reschedule(ctx context.Context, id, date, start, end string) error {
	return writeRow(ctx, r.conn, r.box, outbox.TableAppointments, outbox.OpUpdate, id, nil, `
		UPDATE appointments
		SET appointment_date = $2, start_time = $3, end_time = $4, updated_at = now()
		WHERE id = $1
	`, id, date, start, end)
}

func (r *AppointmentRepository) UpdateServices(ctx context.Context, id string, serviceIDs []string, totalPrice float64, totalDuration int, end string) error {
	return writeRow(ctx, r.conn, r.box, outbox.TableAppointments, outbox.OpUpdate, id, nil, `
		UPDATE appointments
		SET service_ids = $2::text[]::uuid[], total_price = $3, total_duration = $4, end_time = $5, updated_at = now()
		WHERE id = $1
	`, id, serviceIDs, totalPrice, totalDuration, end)
}

func (r *AppointmentRepository) Delete(ctx context.Context, id string, events ...outbox.Event) error {
	return writeRow(ctx, r.conn, r.box, outbox.TableAppointments, outbox.OpDelete, id, events, `
		DELETE FROM appointments WHERE id = $1
	`, id)
}
