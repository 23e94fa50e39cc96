package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/outbox"
)

type SaleRepository struct {
	conn db.DBTX
	box  Outbox
}

func NewSaleRepository(conn db.DBTX, box Outbox) *SaleRepository {
	return &SaleRepository{conn: conn, box: box}
}

const saleColumns = `id::text, COALESCE(appointment_id::text, ''), client_id::text, staff_id::text, service_ids::text[],
	amount, payment_method, payment_status, payment_ref, created_at`

func scanSale(row pgx.Row) (model.Sale, error) {
	var s model.Sale
	err := row.Scan(&s.ID, &s.AppointmentID, &s.ClientID, &s.StaffID, &s.ServiceIDs,
		&s.Amount, &s.PaymentMethod, &s.PaymentStatus, &s.PaymentRef, &s.CreatedAt)
	return s, err
}

// List returns sales newest first.
func (r *SaleRepository) List(ctx context.Context) ([]model.Sale, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *SaleRepository) GetByAppointment(ctx context.Context, appointmentID string) (model.Sale, error) {
	return scanSale(r.conn.QueryRow(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE appointment_id = $1
	`, appointmentID))
}

func (r *SaleRepository) Create(ctx context.Context, s model.Sale) (model.Sale, error) {
	var appointmentID *string
	if s.AppointmentID != "" {
		appointmentID = &s.AppointmentID
	}
	err := db.WithTx(ctx, r.conn, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO sales
				(appointment_id, client_id, staff_id, service_ids, amount, payment_method, payment_status, payment_ref)
			VALUES ($1, $2, $3, $4::text[]::uuid[], $5, $6, $7, $8)
			RETURNING id::text, created_at
		`, appointmentID, s.ClientID, s.StaffID, s.ServiceIDs, s.Amount, s.PaymentMethod, s.PaymentStatus, s.PaymentRef).
			Scan(&s.ID, &s.CreatedAt)
		if err != nil {
			return err
		}
		return r.box.RecordChange(ctx, tx, outbox.TableSales, outbox.OpInsert, s.ID)
	})
	return s, err
}
