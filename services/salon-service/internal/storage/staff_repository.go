package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/outbox"
)

type StaffRepository struct {
	conn db.DBTX
	box  Outbox
}

func NewStaffRepository(conn db.DBTX, box Outbox) *StaffRepository {
	return &StaffRepository{conn: conn, box: box}
}

const staffColumns = `id::text, user_id::text, name, email, phone, title, bio, avatar_url, is_active`

func scanStaff(row pgx.Row) (model.Staff, error) {
	var s model.Staff
	err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.Email, &s.Phone, &s.Title, &s.Bio, &s.AvatarURL, &s.IsActive)
	return s, err
}

// List returns staff ordered by name.
func (r *StaffRepository) List(ctx context.Context, activeOnly bool) ([]model.Staff, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT `+staffColumns+`
		FROM staff
		WHERE ($1 = false OR is_active)
		ORDER BY name
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	return collectStaff(rows)
}

func (r *StaffRepository) ByIDs(ctx context.Context, ids []string) ([]model.Staff, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.conn.Query(ctx, `
		SELECT `+staffColumns+`
		FROM staff
		WHERE id = ANY($1::text[]::uuid[])
	`, ids)
	if err != nil {
		return nil, err
	}
	return collectStaff(rows)
}

func (r *StaffRepository) Get(ctx context.Context, id string) (model.Staff, error) {
	return scanStaff(r.conn.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = $1`, id))
}

func (r *StaffRepository) GetByUserID(ctx context.Context, userID string) (model.Staff, error) {
	return scanStaff(r.conn.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE user_id = $1`, userID))
}

func (r *StaffRepository) Create(ctx context.Context, s model.Staff) (model.Staff, error) {
	err := db.WithTx(ctx, r.conn, func(tx pgx.Tx) error {
		var err error
		s, err = r.CreateTx(ctx, tx, s)
		return err
	})
	return s, err
}

// CreateTx inserts inside tx, for staff created together with their login.
func (r *StaffRepository) CreateTx(ctx context.Context, tx pgx.Tx, s model.Staff) (model.Staff, error) {
	err := tx.QueryRow(ctx, `
		INSERT INTO staff (user_id, name, email, phone, title, bio, avatar_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id::text
	`, s.UserID, s.Name, s.Email, s.Phone, s.Title, s.Bio, s.AvatarURL, s.IsActive).Scan(&s.ID)
	if err != nil {
		return model.Staff{}, err
	}
	if err := r.box.RecordChange(ctx, tx, outbox.TableStaff, outbox.OpInsert, s.ID); err != nil {
		return model.Staff{}, err
	}
	return s, nil
}

func (r *StaffRepository) Update(ctx context.Context, s model.Staff) error {
	return writeRow(ctx, r.conn, r.box, outbox.TableStaff, outbox.OpUpdate, s.ID, nil, `
		UPDATE staff
		SET name = $2, email = $3, phone = $4, title = $5, bio = $6, avatar_url = $7, is_active = $8, updated_at = now()
		WHERE id = $1
	`, s.ID, s.Name, s.Email, s.Phone, s.Title, s.Bio, s.AvatarURL, s.IsActive)
}

func (r *StaffRepository) Delete(ctx context.Context, id string) error {
	return writeRow(ctx, r.conn, r.box, outbox.TableStaff, outbox.OpDelete, id, nil, `
		DELETE FROM staff WHERE id = $1
	`, id)
}

// UpdateContactTx mirrors a profile change into the staff row linked to userID.
// It reports whether such a row exists.
func (r *StaffRepository) UpdateContactTx(ctx context.Context, tx pgx.Tx, userID, name, phone string) (bool, error) {
	var id string
	err := tx.QueryRow(ctx, `
		UPDATE staff
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
	return true, r.box.RecordChange(ctx, tx, outbox.TableStaff, outbox.OpUpdate, id)
}

func collectStaff(rows pgx.Rows) ([]model.Staff, error) {
	defer rows.Close()
	var out []model.Staff
	for rows.Next() {
		s, err := scanStaff(rows)
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
