package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/outbox"
)

type UserRepository struct {
	conn db.DBTX
	box  Outbox
}

func NewUserRepository(conn db.DBTX, box Outbox) *UserRepository {
	return &UserRepository{conn: conn, box: box}
}

// Begin starts a transaction for multi-row account writes.
func (r *UserRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.conn.Begin(ctx)
}

func (r *UserRepository) CreateTx(ctx context.Context, tx pgx.Tx, u model.User) (model.User, error) {
	err := tx.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, full_name, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, created_at
	`, u.Email, u.PasswordHash, u.FullName, u.Phone).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

func (r *UserRepository) SetRoleTx(ctx context.Context, tx pgx.Tx, userID string, role model.Role) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO user_roles (user_id, role)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role
	`, userID, string(role))
	if err != nil {
		return err
	}
	return r.box.RecordChange(ctx, tx, outbox.TableUserRoles, outbox.OpUpdate, userID)
}

const userColumns = `id::text, email, password_hash, full_name, phone, created_at`

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &u.CreatedAt)
	return u, err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (model.User, error) {
	return scanUser(r.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// RoleFor reads the user's role. A stored value outside the known roles is a decode error.
func (r *UserRepository) RoleFor(ctx context.Context, userID string) (model.Role, error) {
	var raw string
	if err := r.conn.QueryRow(ctx, `SELECT role FROM user_roles WHERE user_id = $1`, userID).Scan(&raw); err != nil {
		return "", err
	}
	role, err := model.ParseRole(raw)
	if err != nil {
		return "", &model.DecodeError{Entity: "user_role", ID: userID, Field: "role", Reason: err.Error()}
	}
	return role, nil
}

func (r *UserRepository) UpdateProfileTx(ctx context.Context, tx pgx.Tx, userID, fullName, phone string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE users SET full_name = $2, phone = $3, updated_at = now() WHERE id = $1
	`, userID, fullName, phone)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
