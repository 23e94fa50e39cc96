package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/outbox"
)

type ServiceFilter struct {
	ActiveOnly bool
	Category   string
}

type ServiceRepository struct {
	conn db.DBTX
	box  Outbox
}

func NewServiceRepository(conn db.DBTX, box Outbox) *ServiceRepository {
	return &ServiceRepository{conn: conn, box: box}
}

const serviceColumns = `id::text, name, description, category, price, duration, is_active`

func (r *ServiceRepository) List(ctx context.Context, f ServiceFilter) ([]model.Service, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE ($1 = false OR is_active)
			AND ($2 = '' OR category = $2)
		ORDER BY category, name
	`, f.ActiveOnly, f.Category)
	if err != nil {
		return nil, err
	}
	return collectServices(rows)
}

func (r *ServiceRepository) ByIDs(ctx context.Context, ids []string) ([]model.Service, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.conn.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE id = ANY($1::text[]::uuid[])
	`, ids)
	if err != nil {
		return nil, err
	}
	return collectServices(rows)
}

func (r *ServiceRepository) Get(ctx context.Context, id string) (model.Service, error) {
	var s model.Service
	err := r.conn.QueryRow(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.Description, &s.Category, &s.Price, &s.Duration, &s.IsActive)
	return s, err
}

func (r *ServiceRepository) Create(ctx context.Context, s model.Service) (model.Service, error) {
	err := db.WithTx(ctx, r.conn, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO services (name, description, category, price, duration, is_active)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id::text
		`, s.Name, s.Description, s.Category, s.Price, s.Duration, s.IsActive).Scan(&s.ID)
		if err != nil {
			return err
		}
		return r.box.RecordChange(ctx, tx, outbox.TableServices, outbox.OpInsert, s.ID)
	})
	return s, err
}

func (r *ServiceRepository) Update(ctx context.Context, s model.Service) error {
	return writeRow(ctx, r.conn, r.box, outbox.TableServices, outbox.OpUpdate, s.ID, nil, `
		UPDATE services
		SET name = $2, description = $3, category = $4, price = $5, duration = $6, is_active = $7, updated_at = now()
		WHERE id = $1
	`, s.ID, s.Name, s.Description, s.Category, s.Price, s.Duration, s.IsActive)
}

func (r *ServiceRepository) Delete(ctx context.Context, id string) error {
	return writeRow(ctx, r.conn, r.box, outbox.TableServices, outbox.OpDelete, id, nil, `
		DELETE FROM services WHERE id = $1
	`, id)
}

func collectServices(rows pgx.Rows) ([]model.Service, error) {
	defer rows.Close()
	var out []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Category, &s.Price, &s.Duration, &s.IsActive); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
