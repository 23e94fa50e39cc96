package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/outbox"
)

type ClientRepository struct {
	conn db.DBTX
	box  Outbox
}

func NewClientRepository(conn db.DBTX, box Outbox) *ClientRepository {
	return &ClientRepository{conn: conn, box: box}
}

const clientColumns = `id::text, user_id::text, name, email, phone, notes, created_at`

func scanClient(row pgx.Row) (model.Client, error) {
	var c model.Client
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Notes, &c.CreatedAt)
	return c, err
}

func (r *ClientRepository) List(ctx context.Context) ([]model.Client, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	return collectClients(rows)
}

func (r *ClientRepository) ByIDs(ctx context.Context, ids []string) ([]model.Client, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.conn.Query(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE id = ANY($1::text[]::uuid[])
	`, ids)
	if err != nil {
		return nil, err
	}
	return collectClients(rows)
}

func (r *ClientRepository) Get(ctx context.Context, id string) (model.Client, error) {
	return scanClient(r.conn.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
}

func (r *ClientRepository) GetByUserID(ctx context.Context, userID string) (model.Client, error) {
	return scanClient(r.conn.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE user_id = $1`, userID))
}

func (r *ClientRepository) Create(ctx context.Context, c model.Client) (model.Client, error) {
	err := db.WithTx(ctx, r.conn, func(tx pgx.Tx) error {
		var err error
		c, err = r.CreateTx(ctx, tx, c)
		return err
	})
	return c, err
}

func (r *ClientRepository) CreateTx(ctx context.Context, tx pgx.Tx, c model.Client) (model.Client, error) {
	err := tx.QueryRow(ctx, `
		INSERT INTO clients (user_id, name, email, phone, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text, created_at
	`, c.UserID, c.Name, c.Email, c.Phone, c.Notes).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return model.Client{}, err
	}
	if err := r.box.RecordChange(ctx, tx, outbox.TableClients, outbox.OpInsert, c.ID); err != nil {
		return model.Client{}, err
	}
	return c, nil
}

func (r *ClientRepository) Update(ctx context.Context, c model.Client) error {
	return writeRow(ctx, r.conn, r.box, outbox.TableClients, outbox.OpUpdate, c.ID, nil, `
		UPDATE clients
		SET name = $2, email = $3, phone = $4, notes = $5, updated_at = now()
		WHERE id = $1
	`, c.ID, c.Name, c.Email, c.Phone, c.Notes)
}

// Delete removes the client and, by cascade, their appointments and sales.
func (r *ClientRepository) Delete(ctx context.Context, id string) error {
	return writeRow(ctx, r.conn, r.box, outbox.TableClients, outbox.OpDelete, id, nil, `
		DELETE FROM clients WHERE id = $1
	`, id)
}

func (r *ClientRepository) UpdateContactTx(ctx context.Context, tx pgx.Tx, userID, name, phone string) (bool, error) {
	var id string
	err := tx.QueryRow(ctx, `
		UPDATE clients
		SET name = $2, phone = $3, updated_at = now()
		WHERE user_id = $1
		RETURNING id::text
	`, userID, name, phone).Scan(&id)
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, r.box.RecordChange(ctx, tx, outbox.TableClients, outbox.OpUpdate, id)
}

func collectClients(rows pgx.Rows) ([]model.Client, error) {
	defer rows.Close()
	var out []model.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
